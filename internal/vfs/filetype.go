package vfs

import (
	"io"
	"sort"

	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vpath"
)

// Type describes one recognizable file format: a cheap validator over a
// stream prefix and a factory for the typed file. Higher priority wins;
// priority 0 is reserved for the universal raw fallback.
type Type struct {
	// ID is an opaque hash identifying the type.
	ID uint32
	// Priority orders probing; descending, ties keep registration order.
	Priority int
	// Valid inspects the stream and reports whether this type claims
	// it. The catalog rewinds the stream before each call; validators
	// may seek freely.
	Valid func(s stream.Stream) bool
	// New creates the typed file over raw, which the caller has already
	// opened from dev at p.
	New func(dev Device, p vpath.Path, raw stream.Stream) (File, error)
}

// Catalog is the registry the probe dispatches through. It is mutated
// only at startup/shutdown and treated as read-only while probes are in
// flight; access is single-threaded by contract.
type Catalog struct {
	types []*Type
}

// NewCatalog returns an empty catalog. Callers register the built-in
// archive types explicitly; there is no static registration.
func NewCatalog() *Catalog { return &Catalog{} }

// Register adds t, keeping the catalog sorted by descending priority.
// Registering the same descriptor twice is a no-op.
func (c *Catalog) Register(t *Type) {
	for _, have := range c.types {
		if have == t {
			return
		}
	}
	c.types = append(c.types, t)
	sort.SliceStable(c.types, func(i, j int) bool {
		return c.types[i].Priority > c.types[j].Priority
	})
}

// Deregister removes t by identity.
func (c *Catalog) Deregister(t *Type) {
	for i, have := range c.types {
		if have == t {
			c.types = append(c.types[:i], c.types[i+1:]...)
			return
		}
	}
}

// Types returns the descriptors in probe order.
func (c *Catalog) Types() []*Type { return c.types }

// FindType probes s against every registered validator in priority order
// and returns the first that claims it, or nil when none does. The
// stream is rewound to position 0 before each validator and restored to
// position 0 on exit.
func (c *Catalog) FindType(s stream.Stream) *Type {
	defer s.Seek(0, io.SeekStart)
	for _, t := range c.types {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil
		}
		if t.Valid(s) {
			return t
		}
	}
	return nil
}
