package vfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"

	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vpath"
)

// Native maps a device namespace onto a host directory. Paths inside the
// device are joined onto the root with the leading separator stripped;
// paths produced by Visit are re-normalized to '/' separators with a
// trailing separator on directories.
type Native struct {
	root    string
	catalog *Catalog
}

var _ Device = (*Native)(nil)

// NewNative wraps the absolute host directory root. The catalog types
// opened files through probing.
func NewNative(root string, catalog *Catalog) (*Native, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, xerrors.Errorf("native device: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, xerrors.Errorf("native device: %w", err)
	}
	if !fi.IsDir() {
		return nil, precondition("NewNative", "%q is not a directory", abs)
	}
	return &Native{root: abs, catalog: catalog}, nil
}

// Root returns the host directory backing the device.
func (d *Native) Root() string { return d.root }

func (d *Native) fullPath(p vpath.Path) string {
	return filepath.Join(d.root, filepath.FromSlash(strings.TrimPrefix(p.String(), "/")))
}

func (d *Native) Exists(p vpath.Path) bool {
	if !p.IsAbsolute() {
		return false
	}
	fi, err := os.Stat(d.fullPath(p))
	if err != nil {
		return false
	}
	// the path's type must agree with the host entry's
	return fi.IsDir() == p.IsDirectory()
}

func (d *Native) Open(p vpath.Path) (File, error) {
	if !p.IsAbsolute() || !p.IsFile() {
		return nil, precondition("Open", "%q is not an absolute file path", p)
	}
	full := d.fullPath(p)
	if _, err := os.Stat(full); err != nil {
		return nil, ErrNotExist
	}
	raw, err := stream.OpenFile(full)
	if err != nil {
		return nil, err
	}
	t := d.catalog.FindType(raw)
	if t == nil {
		raw.Close()
		return nil, xerrors.Errorf("open %s: no file type claimed the stream", p)
	}
	f, err := t.New(d, p, raw)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return f, nil
}

func (d *Native) Create(p vpath.Path, typeID uint32) (File, error) {
	return nil, ErrUnsupported
}

func (d *Native) Delete(p vpath.Path) bool {
	if !p.IsAbsolute() || !p.IsFile() {
		return false
	}
	return os.Remove(d.fullPath(p)) == nil
}

func (d *Native) Visit(dir vpath.Path, recursive bool, visitDir, visitFile VisitFunc) error {
	if !dir.IsAbsolute() || !dir.IsDirectory() {
		return precondition("Visit", "%q is not an absolute directory path", dir)
	}
	full := d.fullPath(dir)

	visit := func(hostPath string, isDir bool) error {
		rel, err := filepath.Rel(d.root, hostPath)
		if err != nil {
			return err
		}
		p := vpath.Root.Append(vpath.Path(filepath.ToSlash(rel))).Normalize()
		if isDir {
			p = p.Concat("/")
			if visitDir != nil {
				return visitDir(p)
			}
			return nil
		}
		if visitFile != nil {
			return visitFile(p)
		}
		return nil
	}

	var err error
	if recursive {
		err = filepath.WalkDir(full, func(hostPath string, e fs.DirEntry, werr error) error {
			if werr != nil {
				return werr
			}
			if hostPath == full {
				return nil
			}
			if !e.Type().IsRegular() && !e.IsDir() {
				return nil
			}
			return visit(hostPath, e.IsDir())
		})
	} else {
		var entries []fs.DirEntry
		entries, err = os.ReadDir(full)
		if err == nil {
			for _, e := range entries {
				if !e.Type().IsRegular() && !e.IsDir() {
					continue
				}
				if err = visit(filepath.Join(full, e.Name()), e.IsDir()); err != nil {
					break
				}
			}
		}
	}
	if err == SkipAll {
		err = nil
	}
	return err
}

func (d *Native) OpenStream(p vpath.Path) (stream.Stream, error) {
	if !p.IsAbsolute() || !p.IsFile() {
		return nil, precondition("OpenStream", "%q is not an absolute file path", p)
	}
	full := d.fullPath(p)
	if _, err := os.Stat(full); err != nil {
		return nil, xerrors.Errorf("open stream %s: %w", p, ErrNotExist)
	}
	f, err := stream.OpenFile(full)
	if err != nil {
		return nil, err
	}
	return stream.NewReadOnly(f), nil
}

// Commit is a no-op: native writes pass straight through to the host.
func (d *Native) Commit() error { return nil }
