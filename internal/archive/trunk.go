package archive

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/noiretools/noirefs/internal/nhash"
	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

// TrunkMagic is the header magic, "trM#" read as a little-endian u32.
const TrunkMagic = 0x234D7274

const trunkHeaderSize = 20

// TrunkSection is one named region. The raw Offset encodes which data
// region holds the bytes: an odd offset points into the secondary region
// at offset&^1, an even one is an absolute stream position.
type TrunkSection struct {
	NameHash uint32
	Size     uint32
	Offset   uint32
}

var (
	hashUniqueTextureMain = nhash.CRC32("uniquetexturemain")
	hashUniqueTextureVRAM = nhash.CRC32("uniquetexturevram")
)

const uniqueTextureDir = vpath.Path("/uniquetexture/")

// Trunk is the streamed-model archive: a header, then the primary data
// region (which begins with the section table), then the secondary data
// region. Sections surface as hash-named
// files; when the unique-texture pair of sections is present its
// textures additionally surface under uniquetexture/.
type Trunk struct {
	vfs.BaseFile
	reg           *Registry
	primaryPos    int64
	primarySize   int64
	secondaryPos  int64
	secondarySize int64
	sections      []TrunkSection
	tree          *vfs.Tree
	textures      *UniqueTexture
}

var (
	_ vfs.File   = (*Trunk)(nil)
	_ vfs.Device = (*Trunk)(nil)
)

// NewTrunkType returns the trunk file-type descriptor.
func NewTrunkType(r *Registry) *vfs.Type {
	return &vfs.Type{
		ID:       TypeTrunk,
		Priority: 1,
		Valid: func(s stream.Stream) bool {
			if s.Size() < trunkHeaderSize {
				return false
			}
			magic, err := stream.ReadU32At(s, 0)
			return err == nil && magic == TrunkMagic
		},
		New: func(dev vfs.Device, p vpath.Path, raw stream.Stream) (vfs.File, error) {
			t := &Trunk{
				BaseFile: vfs.NewBaseFile(dev, p, raw, TypeTrunk),
				reg:      r,
				tree:     vfs.NewTree(),
			}
			return t, nil
		},
	}
}

// Sections returns the section table in file order.
func (t *Trunk) Sections() []TrunkSection { return t.sections }

// Load reads the header, the region bounds and the section table.
func (t *Trunk) Load() error {
	if t.Loaded() {
		return nil
	}
	s := t.Raw()
	if s.Size() == 0 {
		t.MarkLoaded()
		return nil
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return err
	}
	magic, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("trunk header: %w", err)
	}
	if magic != TrunkMagic {
		return formatErrf("trunk", "bad magic %08x", magic)
	}
	// 4 reserved bytes of unknown meaning
	if _, err := s.Seek(4, io.SeekCurrent); err != nil {
		return err
	}
	primaryPlusHeader, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("trunk header: %w", err)
	}
	secondarySize, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("trunk header: %w", err)
	}
	// runtime pointer slot, 0 on disk
	if _, err := s.Seek(4, io.SeekCurrent); err != nil {
		return err
	}
	if int64(primaryPlusHeader) < trunkHeaderSize {
		return formatErrf("trunk", "primary size %d smaller than header", primaryPlusHeader)
	}

	t.primaryPos = s.Tell()
	t.primarySize = int64(primaryPlusHeader) - trunkHeaderSize
	t.secondaryPos = t.primaryPos + t.primarySize
	t.secondarySize = int64(secondarySize)
	if t.secondaryPos+t.secondarySize > s.Size() {
		return formatErrf("trunk", "data regions [%d,%d) exceed stream size %d",
			t.primaryPos, t.secondaryPos+t.secondarySize, s.Size())
	}

	count, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("trunk section table: %w", err)
	}
	if s.Tell()+int64(count)*12 > s.Size() {
		return formatErrf("trunk", "section table for %d sections exceeds stream size %d", count, s.Size())
	}
	t.sections = make([]TrunkSection, 0, count)
	for i := uint32(0); i < count; i++ {
		var sec TrunkSection
		if sec.NameHash, err = stream.ReadU32(s); err != nil {
			return xerrors.Errorf("trunk section %d: %w", i, err)
		}
		if sec.Size, err = stream.ReadU32(s); err != nil {
			return xerrors.Errorf("trunk section %d: %w", i, err)
		}
		if sec.Offset, err = stream.ReadU32(s); err != nil {
			return xerrors.Errorf("trunk section %d: %w", i, err)
		}
		if t.DataOffset(sec.Offset)+int64(sec.Size) > s.Size() {
			return formatErrf("trunk", "section %08x range exceeds stream size %d", sec.NameHash, s.Size())
		}
		t.sections = append(t.sections, sec)

		p := vpath.Root.Append(vpath.Path(t.reg.label(sec.NameHash)).Normalize())
		if err := t.tree.RegisterExistingFile(p, vfs.FileInfo(sec.NameHash)); err != nil {
			return xerrors.Errorf("trunk index %08x: %w", sec.NameHash, err)
		}
	}

	if t.HasUniqueTexture() {
		ut, err := t.loadUniqueTexture()
		if err != nil {
			return err
		}
		t.textures = ut
		for i, e := range ut.Textures {
			p := uniqueTextureDir.Append(vpath.Path(t.reg.label(e.NameHash)).Normalize())
			if err := t.tree.RegisterExistingFile(p, vfs.FileInfo(uint64(i)|textureInfoFlag)); err != nil {
				return xerrors.Errorf("trunk texture index %08x: %w", e.NameHash, err)
			}
		}
	}
	t.MarkLoaded()
	return nil
}

// textureInfoFlag marks namespace payloads that index the unique-texture
// table instead of the section table.
const textureInfoFlag = uint64(1) << 32

// DataOffset resolves a section's raw offset to its byte position: the
// low bit steers between the primary and secondary regions.
func (t *Trunk) DataOffset(offset uint32) int64 {
	if offset&1 != 0 {
		return t.secondaryPos + int64(offset&^uint32(1))
	}
	return int64(offset)
}

// HasSection reports whether a section with the given name hash exists.
func (t *Trunk) HasSection(nameHash uint32) bool {
	_, ok := t.Section(nameHash)
	return ok
}

// Section returns the section with the given name hash.
func (t *Trunk) Section(nameHash uint32) (TrunkSection, bool) {
	for _, sec := range t.sections {
		if sec.NameHash == nameHash {
			return sec, true
		}
	}
	return TrunkSection{}, false
}

// SectionStream opens the section's data range.
func (t *Trunk) SectionStream(nameHash uint32) (stream.Stream, error) {
	sec, ok := t.Section(nameHash)
	if !ok {
		return nil, xerrors.Errorf("trunk section %08x: %w", nameHash, vfs.ErrNotExist)
	}
	return stream.NewSub(t.Raw(), t.DataOffset(sec.Offset), int64(sec.Size))
}

// TextureEntry is one embedded texture: its offset into the VRAM section
// and the hash of its name.
type TextureEntry struct {
	Offset   uint32
	NameHash uint32
}

// UniqueTexture is the embedded texture pack co-defined by the
// uniquetexturemain and uniquetexturevram sections. Entries are ordered
// by ascending offset; a texture's size is the gap to the next offset,
// the last one running to the end of the VRAM section.
type UniqueTexture struct {
	Main     TrunkSection
	VRAM     TrunkSection
	Textures []TextureEntry
}

// HasUniqueTexture reports whether both texture sections are present.
func (t *Trunk) HasUniqueTexture() bool {
	return t.HasSection(hashUniqueTextureMain) && t.HasSection(hashUniqueTextureVRAM)
}

// UniqueTexture returns the parsed texture pack, or ErrNotExist when the
// trunk has none.
func (t *Trunk) UniqueTexture() (*UniqueTexture, error) {
	if t.textures == nil {
		return nil, vfs.ErrNotExist
	}
	return t.textures, nil
}

func (t *Trunk) loadUniqueTexture() (*UniqueTexture, error) {
	main, _ := t.Section(hashUniqueTextureMain)
	vram, _ := t.Section(hashUniqueTextureVRAM)
	ms, err := t.SectionStream(hashUniqueTextureMain)
	if err != nil {
		return nil, err
	}

	// 4 bytes of runtime scratch, always 0 on disk
	scratch, err := stream.ReadU32(ms)
	if err != nil {
		return nil, xerrors.Errorf("unique texture header: %w", err)
	}
	if scratch != 0 {
		return nil, formatErrf("trunk", "unique texture runtime slot is %08x, want 0", scratch)
	}
	count, err := stream.ReadU32(ms)
	if err != nil {
		return nil, xerrors.Errorf("unique texture header: %w", err)
	}

	ut := &UniqueTexture{Main: main, VRAM: vram}
	ut.Textures = make([]TextureEntry, 0, count)
	var prev uint32
	for i := uint32(0); i < count; i++ {
		var e TextureEntry
		if e.Offset, err = stream.ReadU32(ms); err != nil {
			return nil, xerrors.Errorf("unique texture entry %d: %w", i, err)
		}
		zero, err := stream.ReadU32(ms)
		if err != nil {
			return nil, xerrors.Errorf("unique texture entry %d: %w", i, err)
		}
		if zero != 0 {
			return nil, formatErrf("trunk", "unique texture entry %d second word is %08x, want 0", i, zero)
		}
		if e.NameHash, err = stream.ReadU32(ms); err != nil {
			return nil, xerrors.Errorf("unique texture entry %d: %w", i, err)
		}
		if i > 0 && e.Offset < prev {
			return nil, formatErrf("trunk", "unique texture offsets not ascending at entry %d", i)
		}
		if int64(e.Offset) > int64(vram.Size) {
			return nil, formatErrf("trunk", "unique texture entry %d offset %d outside vram section", i, e.Offset)
		}
		prev = e.Offset
		ut.Textures = append(ut.Textures, e)
	}
	return ut, nil
}

// TextureSize returns the byte length of texture i.
func (ut *UniqueTexture) TextureSize(i int) int64 {
	e := ut.Textures[i]
	if i < len(ut.Textures)-1 {
		return int64(ut.Textures[i+1].Offset) - int64(e.Offset)
	}
	return int64(ut.VRAM.Size) - int64(e.Offset)
}

// TextureStream opens the payload of texture i inside the VRAM section.
func (t *Trunk) TextureStream(i int) (stream.Stream, error) {
	ut, err := t.UniqueTexture()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(ut.Textures) {
		return nil, xerrors.Errorf("texture %d: %w", i, vfs.ErrNotExist)
	}
	vram, err := t.SectionStream(hashUniqueTextureVRAM)
	if err != nil {
		return nil, err
	}
	return stream.NewSub(vram, int64(ut.Textures[i].Offset), ut.TextureSize(i))
}

func (t *Trunk) Exists(p vpath.Path) bool { return t.tree.Exists(p) }

func (t *Trunk) Open(p vpath.Path) (vfs.File, error) {
	sub, err := t.openEntry(p)
	if err != nil {
		return nil, err
	}
	typ := t.reg.Catalog.FindType(sub)
	if typ == nil {
		return nil, xerrors.Errorf("open %s: no file type claimed the stream", p)
	}
	return typ.New(t, p, sub)
}

func (t *Trunk) openEntry(p vpath.Path) (stream.Stream, error) {
	info, ok := t.tree.FileInfo(p)
	if !ok {
		return nil, vfs.ErrNotExist
	}
	if uint64(info)&textureInfoFlag != 0 {
		return t.TextureStream(int(uint64(info) &^ textureInfoFlag))
	}
	return t.SectionStream(uint32(info))
}

func (t *Trunk) Create(p vpath.Path, typeID uint32) (vfs.File, error) {
	return nil, vfs.ErrUnsupported
}

func (t *Trunk) Delete(p vpath.Path) bool {
	if !t.tree.Delete(p) {
		return false
	}
	t.MarkChanged()
	return true
}

func (t *Trunk) Visit(dir vpath.Path, recursive bool, visitDir, visitFile vfs.VisitFunc) error {
	return t.tree.Visit(dir, recursive, visitDir, visitFile)
}

func (t *Trunk) OpenStream(p vpath.Path) (stream.Stream, error) {
	sub, err := t.openEntry(p)
	if err != nil {
		return nil, xerrors.Errorf("open stream %s: %w", p, err)
	}
	return stream.NewReadOnly(sub), nil
}

func (t *Trunk) Commit() error { return nil }
