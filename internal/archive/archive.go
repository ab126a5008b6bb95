// Package archive implements the game's container formats. Every archive
// type is both a file (typed accessors over its own bytes) and a device
// (its entries addressable as paths), so archives nest: a trunk inside a
// container inside a WAD resolves transparently once each level is
// mounted.
package archive

import (
	"fmt"

	"github.com/noiretools/noirefs/internal/nhash"
	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

// Type IDs, hashed from the format names.
var (
	TypeRaw            = nhash.CRC32("raw")
	TypeWAD            = nhash.CRC32("wad")
	TypeContainer      = nhash.CRC32("container")
	TypeTrunk          = nhash.CRC32("trunk")
	TypeShaderPrograms = nhash.CRC32("shaderprograms")
	TypeAttribute      = nhash.CRC32("attribute")
)

// FormatError reports a malformed archive: wrong magic, an entry count
// that does not fit the stream, an offset past the end.
type FormatError struct {
	Format string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Format, e.Detail)
}

func formatErrf(format, detail string, args ...interface{}) error {
	return &FormatError{Format: format, Detail: fmt.Sprintf(detail, args...)}
}

// Raw is the universal fallback file: the underlying stream as-is, no
// structure. Its validator accepts everything at priority 0.
type Raw struct {
	vfs.BaseFile
}

// NewRawType returns the fallback descriptor.
func NewRawType() *vfs.Type {
	return &vfs.Type{
		ID:       TypeRaw,
		Priority: 0,
		Valid:    func(s stream.Stream) bool { return true },
		New: func(dev vfs.Device, p vpath.Path, raw stream.Stream) (vfs.File, error) {
			f := &Raw{BaseFile: vfs.NewBaseFile(dev, p, raw, TypeRaw)}
			return f, nil
		},
	}
}

// Registry carries what the built-in archive types need at probe time:
// the catalog used to type nested entries and the hash-label databases
// for naming hash-keyed entries.
type Registry struct {
	Catalog *vfs.Catalog
	// Names translates case-sensitive name hashes; may be nil.
	Names *nhash.DB
}

func (r *Registry) label(hash uint32) string {
	return r.Names.TryGetString(hash)
}

// RegisterBuiltinTypes registers every built-in file type with the
// catalog: WAD, container, shader programs, trunk, attribute tree and
// the raw fallback. It replaces static registration; call it once at
// startup before any probe.
func RegisterBuiltinTypes(c *vfs.Catalog, names *nhash.DB) *Registry {
	r := &Registry{Catalog: c, Names: names}
	c.Register(NewWADType(r))
	c.Register(NewContainerType(r))
	c.Register(NewShaderProgramsType(r))
	c.Register(NewTrunkType(r))
	c.Register(NewAttributeType(r))
	c.Register(NewRawType())
	return r
}

// IsCollection reports whether the type is an archive that exposes a
// device over its entries.
func IsCollection(typeID uint32) bool {
	switch typeID {
	case TypeWAD, TypeContainer, TypeTrunk, TypeShaderPrograms:
		return true
	}
	return false
}
