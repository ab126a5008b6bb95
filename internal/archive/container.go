package archive

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

// ContainerEntriesMagic opens the entries header at the end of the file.
const ContainerEntriesMagic = 3

// ContainerEntry is one chunk record. The four fields past the name hash
// are only partially understood; Offset and Size expose the
// reverse-engineered interpretation.
type ContainerEntry struct {
	NameHash uint32
	F1       uint32 // offset >> 4, chunks are 16-byte aligned
	F2       uint32
	F3       uint32
	F4       uint32 // stored size of compressed 'sges' chunks, 0 for 'trM#'
}

// Offset returns the chunk's byte position in the archive.
func (e ContainerEntry) Offset() int64 { return int64(e.F1) << 4 }

// Size returns the chunk's byte length: F4 when nonzero (a compressed
// 'sges' chunk), otherwise the sum of the masked F2/F3 halves (an
// uncompressed 'trM#' chunk).
func (e ContainerEntry) Size() int64 {
	if e.F4 != 0 {
		return int64(e.F4)
	}
	return int64(e.F2&0x7FFFFFFF) + int64(e.F3&0x7FFFFFFF)
}

// Container is the big-file archive: chunks keyed by name hash, the
// entries header reachable through a trailing offset-from-end word. Its
// children surface under the hash's label when known, else its hex form.
type Container struct {
	vfs.BaseFile
	reg     *Registry
	entries []ContainerEntry
	byHash  map[uint32]int
	tree    *vfs.Tree
}

var (
	_ vfs.File   = (*Container)(nil)
	_ vfs.Device = (*Container)(nil)
)

// NewContainerType returns the container file-type descriptor.
func NewContainerType(r *Registry) *vfs.Type {
	return &vfs.Type{
		ID:       TypeContainer,
		Priority: 3,
		Valid: func(s stream.Stream) bool {
			size := s.Size()
			if size < 12 {
				return false
			}
			entriesOffset, err := stream.ReadU32At(s, size-4)
			if err != nil {
				return false
			}
			entriesPos := size - int64(entriesOffset)
			if entriesPos < 0 || entriesPos+4 >= size {
				return false
			}
			magic, err := stream.ReadU32At(s, entriesPos)
			return err == nil && magic == ContainerEntriesMagic
		},
		New: func(dev vfs.Device, p vpath.Path, raw stream.Stream) (vfs.File, error) {
			c := &Container{
				BaseFile: vfs.NewBaseFile(dev, p, raw, TypeContainer),
				reg:      r,
				byHash:   make(map[uint32]int),
				tree:     vfs.NewTree(),
			}
			return c, nil
		},
	}
}

// Entries returns the chunk table in file order.
func (c *Container) Entries() []ContainerEntry { return c.entries }

// Load locates the entries header through the trailing offset word and
// reads the chunk table.
func (c *Container) Load() error {
	if c.Loaded() {
		return nil
	}
	s := c.Raw()
	size := s.Size()
	if size == 0 {
		c.MarkLoaded()
		return nil
	}
	if size < 12 {
		return formatErrf("container", "stream of %d bytes is too small", size)
	}
	entriesOffset, err := stream.ReadU32At(s, size-4)
	if err != nil {
		return xerrors.Errorf("container trailer: %w", err)
	}
	entriesPos := size - int64(entriesOffset)
	if entriesPos < 0 || entriesPos+8 > size {
		return formatErrf("container", "entries header at %d outside stream of %d bytes", entriesPos, size)
	}
	if _, err := s.Seek(entriesPos, io.SeekStart); err != nil {
		return err
	}
	magic, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("container header: %w", err)
	}
	if magic != ContainerEntriesMagic {
		return formatErrf("container", "bad entries magic %d", magic)
	}
	count, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("container header: %w", err)
	}
	if entriesPos+8+int64(count)*20 > size {
		return formatErrf("container", "entry table for %d entries exceeds stream size %d", count, size)
	}

	c.entries = make([]ContainerEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var e ContainerEntry
		fields := []*uint32{&e.NameHash, &e.F1, &e.F2, &e.F3, &e.F4}
		for _, f := range fields {
			if *f, err = stream.ReadU32(s); err != nil {
				return xerrors.Errorf("container entry %d: %w", i, err)
			}
		}
		// tolerate zero-byte chunks; anything else must fit the stream
		if e.Offset()+e.Size() > size {
			return formatErrf("container", "entry %08x range [%d,%d) exceeds stream size %d",
				e.NameHash, e.Offset(), e.Offset()+e.Size(), size)
		}
		idx := len(c.entries)
		c.entries = append(c.entries, e)
		c.byHash[e.NameHash] = idx

		p := vpath.Root.Append(vpath.Path(c.reg.label(e.NameHash)).Normalize())
		if err := c.tree.RegisterExistingFile(p, vfs.FileInfo(e.NameHash)); err != nil {
			return xerrors.Errorf("container index %08x: %w", e.NameHash, err)
		}
	}
	c.MarkLoaded()
	return nil
}

// Entry returns the chunk record for a name hash.
func (c *Container) Entry(nameHash uint32) (ContainerEntry, bool) {
	i, ok := c.byHash[nameHash]
	if !ok {
		return ContainerEntry{}, false
	}
	return c.entries[i], true
}

func (c *Container) entryAt(p vpath.Path) (ContainerEntry, bool) {
	info, ok := c.tree.FileInfo(p)
	if !ok {
		return ContainerEntry{}, false
	}
	return c.Entry(uint32(info))
}

// entryStream opens the chunk's byte range; a zero offset+size entry
// yields an empty stream.
func (c *Container) entryStream(e ContainerEntry) (stream.Stream, error) {
	if e.Offset() == 0 && e.Size() == 0 {
		return stream.NewMemory(), nil
	}
	return stream.NewSub(c.Raw(), e.Offset(), e.Size())
}

func (c *Container) Exists(p vpath.Path) bool { return c.tree.Exists(p) }

func (c *Container) Open(p vpath.Path) (vfs.File, error) {
	e, ok := c.entryAt(p)
	if !ok {
		return nil, vfs.ErrNotExist
	}
	sub, err := c.entryStream(e)
	if err != nil {
		return nil, err
	}
	t := c.reg.Catalog.FindType(sub)
	if t == nil {
		return nil, xerrors.Errorf("open %s: no file type claimed the stream", p)
	}
	return t.New(c, p, sub)
}

func (c *Container) Create(p vpath.Path, typeID uint32) (vfs.File, error) {
	return nil, vfs.ErrUnsupported
}

func (c *Container) Delete(p vpath.Path) bool {
	if !c.tree.Delete(p) {
		return false
	}
	c.MarkChanged()
	return true
}

func (c *Container) Visit(dir vpath.Path, recursive bool, visitDir, visitFile vfs.VisitFunc) error {
	return c.tree.Visit(dir, recursive, visitDir, visitFile)
}

func (c *Container) OpenStream(p vpath.Path) (stream.Stream, error) {
	e, ok := c.entryAt(p)
	if !ok {
		return nil, xerrors.Errorf("open stream %s: %w", p, vfs.ErrNotExist)
	}
	sub, err := c.entryStream(e)
	if err != nil {
		return nil, err
	}
	return stream.NewReadOnly(sub), nil
}

func (c *Container) Commit() error { return nil }
