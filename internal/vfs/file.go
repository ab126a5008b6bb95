package vfs

import (
	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vpath"
)

// File is a typed view of a byte range inside some device. Files are
// created lazily by the catalog probe; Load must run before any typed
// accessor is meaningful.
type File interface {
	// Device returns the device the file lives in.
	Device() Device
	// Path returns the file's path inside its device.
	Path() vpath.Path
	// Raw returns the underlying byte stream.
	Raw() stream.Stream
	// TypeID identifies the file type that claimed this file.
	TypeID() uint32
	// Load parses the file's structure from Raw. Calling it again after
	// a successful load is a no-op.
	Load() error
	// Loaded reports whether Load has completed.
	Loaded() bool
	// Changed reports whether the file has unpersisted modifications.
	Changed() bool
	// Save writes the file's current content to dst. The base
	// implementation copies the raw stream verbatim.
	Save(dst stream.Stream) error
}

// AsDevice reports whether f exposes its contents as a device (archives
// do; leaf files do not).
func AsDevice(f File) (Device, bool) {
	d, ok := f.(Device)
	return d, ok
}

// BaseFile carries the state every file type shares. Format files embed
// it and override Load.
type BaseFile struct {
	dev     Device
	path    vpath.Path
	raw     stream.Stream
	typeID  uint32
	loaded  bool
	changed bool
}

// NewBaseFile initializes the shared file state.
func NewBaseFile(dev Device, p vpath.Path, raw stream.Stream, typeID uint32) BaseFile {
	return BaseFile{dev: dev, path: p, raw: raw, typeID: typeID}
}

func (f *BaseFile) Device() Device     { return f.dev }
func (f *BaseFile) Path() vpath.Path   { return f.path }
func (f *BaseFile) Raw() stream.Stream { return f.raw }
func (f *BaseFile) TypeID() uint32     { return f.typeID }
func (f *BaseFile) Loaded() bool       { return f.loaded }
func (f *BaseFile) Changed() bool      { return f.changed }

// MarkLoaded records a completed Load.
func (f *BaseFile) MarkLoaded() { f.loaded = true }

// MarkChanged records an unpersisted modification.
func (f *BaseFile) MarkChanged() { f.changed = true }

// Load on the base file has nothing to parse.
func (f *BaseFile) Load() error {
	f.loaded = true
	return nil
}

// Save copies the raw stream to dst.
func (f *BaseFile) Save(dst stream.Stream) error {
	_, err := stream.CopyTo(dst, f.raw)
	return err
}
