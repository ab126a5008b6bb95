package archive

import (
	"github.com/noiretools/noirefs/internal/archive/atb"
	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

// Attribute is a parsed attribute-tree file. It is a leaf: unlike the
// archives it exposes no device, only the typed tree.
type Attribute struct {
	vfs.BaseFile
	tree *atb.Tree
}

var _ vfs.File = (*Attribute)(nil)

// NewAttributeType returns the attribute-tree file-type descriptor.
func NewAttributeType(r *Registry) *vfs.Type {
	return &vfs.Type{
		ID:       TypeAttribute,
		Priority: 1,
		Valid: func(s stream.Stream) bool {
			if s.Size() < 4 {
				return false
			}
			magic, err := stream.ReadU32At(s, 0)
			return err == nil && magic&0x00FFFFFF == atb.HeaderMagic
		},
		New: func(dev vfs.Device, p vpath.Path, raw stream.Stream) (vfs.File, error) {
			f := &Attribute{BaseFile: vfs.NewBaseFile(dev, p, raw, TypeAttribute)}
			return f, nil
		},
	}
}

// Load parses the tree.
func (a *Attribute) Load() error {
	if a.Loaded() {
		return nil
	}
	if a.Raw().Size() == 0 {
		a.tree = &atb.Tree{Root: atb.Object{Name: "root", IsCollection: true}}
		a.MarkLoaded()
		return nil
	}
	t, err := atb.NewReader(a.Raw()).Read()
	if err != nil {
		return err
	}
	a.tree = t
	a.MarkLoaded()
	return nil
}

// Tree returns the parsed attribute tree; call Load first.
func (a *Attribute) Tree() *atb.Tree { return a.tree }

// Save re-serializes the tree.
func (a *Attribute) Save(dst stream.Stream) error {
	if a.tree == nil {
		return a.BaseFile.Save(dst)
	}
	return atb.NewWriter(dst).Write(a.tree)
}
