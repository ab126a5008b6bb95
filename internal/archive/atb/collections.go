package atb

import "github.com/noiretools/noirefs/internal/nhash"

// knownCollectionNames lists every attribute definition whose entries
// carry a nested collection body. The reader treats the set as a
// data-driven allowlist keyed by the CRC-32 of each name.
var knownCollectionNames = []string{
	"act",
	"actormanagersettings",
	"animationgroup",
	"animationsettings",
	"assignedcase",
	"brawlinginterrogationconversation",
	"case",
	"caseactor",
	"charactermanagersettings",
	"clueconversation",
	"constrainedconversation",
	"conversationanimationgroup",
	"conversationbase",
	"customertype",
	"dlcfolder",
	"deadbodysettings",
	"debugpickersettings",
	"decalmanagersettings",
	"demographicsettings",
	"desk",
	"evadeglobalsettings",
	"exitnotebookconversation",
	"exposedcollection",
	"foliagemanagersettings",
	"gamewellconversation",
	"generalaimsettings",
	"getupanimationgroup",
	"gridswapcollection",
	"guncombatsquad",
	"inspectionsession",
	"newact",
	"notebookconversation",
	"notebookentrycollection",
	"notebookpagetemplateset",
	"onchargedconversation",
	"partnerconversation",
	"pedestriansettings",
	"policestation",
	"postprocesssettings",
	"propmanagersettings",
	"roletype",
	"savecollection",
	"scriptedsequenceconversation",
	"steeringpathsettingscollection",
	"streamedcollection",
	"streamingcollection",
	"streetcrimeresponseconversation",
	"targetrangeinstance",
	"targetrangesettings",
	"testcase",
	"tiledmapicons",
	"toggleablecollection",
	"turnuncooperativeconversation",
	"uibranchselection",
	"uibusynotification",
	"uicasecompletescreen",
	"uicasecompletionstats",
	"uicaselistlines",
	"uicasetitle",
	"uicasesmenu3d",
	"uicollection",
	"uicontrollerconfiglines",
	"uicontrollerconfiglinesx360",
	"uicredits",
	"uicreditsscroller",
	"uidlcstore",
	"uielement",
	"uiestablishingshotlayer",
	"uiextrasmenu3d",
	"uifailurescreen",
	"uifullmap",
	"uiicon",
	"uiicondynamic",
	"uiinsertdisc",
	"uiinspectionicon",
	"uiinstallscreen",
	"uilayer",
	"uilegalsscreen",
	"uilegendlayer",
	"uilogscreen",
	"uilogscreenlines",
	"uimainmenu3d",
	"uimapatlasicon",
	"uimaplegend",
	"uimaplegendicons",
	"uimaplegendlabels",
	"uimaplocationinfo",
	"uimaplocationlabel",
	"uimaplocationlabeltext",
	"uimenu",
	"uiminimap",
	"uimousepointer",
	"uinewspaper",
	"uinewspaperclose",
	"uinewspaperopen",
	"uinotebookupdate",
	"uinotebookupdateelement",
	"uioptionsaimmenu",
	"uioptionscameramenu",
	"uioptionscontrolsconfigmenu",
	"uioptionscontrolsconfigmenux360",
	"uioptionscontrolsmenu",
	"uioptionsdisplaymenu",
	"uioptionsdisplayrendersettingsmenu",
	"uioptionsgamemenu",
	"uioptionsgammamenu",
	"uioptionsmenu",
	"uioptionssoundmenu",
	"uioutfitselection",
	"uipausemenu",
	"uirendersettingslines",
	"uisaveselect",
	"uisaveselectlines",
	"uishield",
	"uisocialclub",
	"uisocialclubagecheck",
	"uisocialclubdocselect",
	"uisocialclubintro",
	"uisocialclubnews",
	"uisocialclubpasswordreset",
	"uisocialclubsignin",
	"uisocialclubtos",
	"uisocialclubwelcome",
	"uistatsscreen",
	"uistatsscreenlines",
	"uistreamedfolder",
	"uistreamedtexture",
	"uistreamedtexturescreen",
	"uistreamingscreen",
	"uistring",
	"uisubtitlelayer",
	"uisurface",
	"uitextbox",
	"uititlecardscreen",
	"uitutoriallayer",
	"uiunassignedcasetitle",
	"uiwindow",
	"uiyesno",
	"unassignedcase",
	"unconstrainedconversation",
	"unusedobjectscollection",
	"vehicleconversation",
	"vehicleshowroom",
	"vehicleshowroominfo",
	"weathermanagersettings",
	"workertype",
	"worldbookmarkcollection",
}

// IsCollectionDefinition reports whether the definition hash names a
// collection type.
func IsCollectionDefinition(definitionHash uint32) bool {
	return collectionDefinitions[definitionHash]
}

var collectionDefinitions = func() map[uint32]bool {
	m := make(map[uint32]bool, len(knownCollectionNames))
	for _, name := range knownCollectionNames {
		m[nhash.CRC32(name)] = true
	}
	return m
}()
