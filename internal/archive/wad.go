package archive

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

// WADMagic is the header magic, "WAD\x01" read as a little-endian u32.
const WADMagic = 0x01444157

const wadHeaderSize = 8

// WADEntry describes one sub-file: its path (read from the trailing path
// table), the CRC-32 of that path, and the byte range in the archive.
type WADEntry struct {
	Path     string
	PathHash uint32
	Offset   int64
	Size     int64
}

// WAD is a named-entry archive with real nested paths. The entry table
// follows the header; the path table sits immediately after the last
// entry's data.
type WAD struct {
	vfs.BaseFile
	reg     *Registry
	entries []WADEntry
	tree    *vfs.Tree
}

var (
	_ vfs.File   = (*WAD)(nil)
	_ vfs.Device = (*WAD)(nil)
)

// NewWADType returns the WAD file-type descriptor.
func NewWADType(r *Registry) *vfs.Type {
	return &vfs.Type{
		ID:       TypeWAD,
		Priority: 4,
		Valid: func(s stream.Stream) bool {
			if s.Size() < wadHeaderSize {
				return false
			}
			magic, err := stream.ReadU32(s)
			if err != nil || magic != WADMagic {
				return false
			}
			count, err := stream.ReadU32(s)
			if err != nil {
				return false
			}
			return wadHeaderSize+int64(count)*12 <= s.Size()
		},
		New: func(dev vfs.Device, p vpath.Path, raw stream.Stream) (vfs.File, error) {
			w := &WAD{
				BaseFile: vfs.NewBaseFile(dev, p, raw, TypeWAD),
				reg:      r,
				tree:     vfs.NewTree(),
			}
			return w, nil
		},
	}
}

// Entries returns the entry table in file order.
func (w *WAD) Entries() []WADEntry { return w.entries }

// Load reads the entry table and the trailing path table, then indexes
// every entry path in the namespace tree.
func (w *WAD) Load() error {
	if w.Loaded() {
		return nil
	}
	s := w.Raw()
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return err
	}
	magic, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("wad header: %w", err)
	}
	if magic != WADMagic {
		return formatErrf("wad", "bad magic %08x", magic)
	}
	count, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("wad header: %w", err)
	}
	if wadHeaderSize+int64(count)*12 > s.Size() {
		return formatErrf("wad", "entry table for %d entries exceeds stream size %d", count, s.Size())
	}

	w.entries = make([]WADEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var e WADEntry
		if e.PathHash, err = stream.ReadU32(s); err != nil {
			return xerrors.Errorf("wad entry %d: %w", i, err)
		}
		off, err := stream.ReadU32(s)
		if err != nil {
			return xerrors.Errorf("wad entry %d: %w", i, err)
		}
		size, err := stream.ReadU32(s)
		if err != nil {
			return xerrors.Errorf("wad entry %d: %w", i, err)
		}
		e.Offset, e.Size = int64(off), int64(size)
		if e.Offset+e.Size > s.Size() {
			return formatErrf("wad", "entry %d range [%d,%d) exceeds stream size %d", i, e.Offset, e.Offset+e.Size, s.Size())
		}
		w.entries = append(w.entries, e)
	}

	if count > 0 {
		// the path table follows the last entry's data
		last := w.entries[len(w.entries)-1]
		if _, err := s.Seek(last.Offset+last.Size, io.SeekStart); err != nil {
			return err
		}
		for i := range w.entries {
			n, err := stream.ReadU16(s)
			if err != nil {
				return xerrors.Errorf("wad path %d: %w", i, err)
			}
			buf := make([]byte, n)
			if _, err := io.ReadFull(s, buf); err != nil {
				return xerrors.Errorf("wad path %d: %w", i, err)
			}
			w.entries[i].Path = string(buf)
		}
	}

	for i, e := range w.entries {
		p := vpath.Root.Append(vpath.Path(e.Path).Normalize())
		if err := w.tree.RegisterExistingFile(p, vfs.FileInfo(i)); err != nil {
			return xerrors.Errorf("wad index %q: %w", e.Path, err)
		}
	}
	w.MarkLoaded()
	return nil
}

// Save re-serializes the archive to dst: header, entry table, entry data
// copied from the source ranges, then the path table.
func (w *WAD) Save(dst stream.Stream) error {
	if err := stream.WriteU32(dst, WADMagic); err != nil {
		return err
	}
	if err := stream.WriteU32(dst, uint32(len(w.entries))); err != nil {
		return err
	}
	for _, e := range w.entries {
		if err := stream.WriteU32(dst, e.PathHash); err != nil {
			return err
		}
		if err := stream.WriteU32(dst, uint32(e.Offset)); err != nil {
			return err
		}
		if err := stream.WriteU32(dst, uint32(e.Size)); err != nil {
			return err
		}
	}
	for _, e := range w.entries {
		sub, err := stream.NewSub(w.Raw(), e.Offset, e.Size)
		if err != nil {
			return err
		}
		if _, err := stream.CopyTo(dst, sub); err != nil {
			return err
		}
	}
	for _, e := range w.entries {
		if err := stream.WriteU16(dst, uint16(len(e.Path))); err != nil {
			return err
		}
		if _, err := dst.Write([]byte(e.Path)); err != nil {
			return err
		}
	}
	return nil
}

func (w *WAD) entryAt(p vpath.Path) (*WADEntry, bool) {
	info, ok := w.tree.FileInfo(p)
	if !ok {
		return nil, false
	}
	return &w.entries[int(info)], true
}

// Exists reports whether p names an entry or directory in the archive.
func (w *WAD) Exists(p vpath.Path) bool { return w.tree.Exists(p) }

// Open types the entry at p by probing its sub-stream through the
// catalog.
func (w *WAD) Open(p vpath.Path) (vfs.File, error) {
	e, ok := w.entryAt(p)
	if !ok {
		return nil, vfs.ErrNotExist
	}
	sub, err := stream.NewSub(w.Raw(), e.Offset, e.Size)
	if err != nil {
		return nil, err
	}
	t := w.reg.Catalog.FindType(sub)
	if t == nil {
		return nil, xerrors.Errorf("open %s: no file type claimed the stream", p)
	}
	return t.New(w, p, sub)
}

// Create is not supported on archives.
func (w *WAD) Create(p vpath.Path, typeID uint32) (vfs.File, error) {
	return nil, vfs.ErrUnsupported
}

// Delete drops the entry from the namespace only. The entry table is left
// as it is, so Save still writes the entry's bytes and path.
func (w *WAD) Delete(p vpath.Path) bool {
	if !w.tree.Delete(p) {
		return false
	}
	w.MarkChanged()
	return true
}

func (w *WAD) Visit(dir vpath.Path, recursive bool, visitDir, visitFile vfs.VisitFunc) error {
	return w.tree.Visit(dir, recursive, visitDir, visitFile)
}

// OpenStream returns a read-only view of exactly the entry's byte range.
func (w *WAD) OpenStream(p vpath.Path) (stream.Stream, error) {
	e, ok := w.entryAt(p)
	if !ok {
		return nil, xerrors.Errorf("open stream %s: %w", p, vfs.ErrNotExist)
	}
	sub, err := stream.NewSub(w.Raw(), e.Offset, e.Size)
	if err != nil {
		return nil, err
	}
	return stream.NewReadOnly(sub), nil
}

func (w *WAD) Commit() error { return nil }
