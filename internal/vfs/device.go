// Package vfs defines the device and file abstractions the filesystem is
// assembled from: the device interface, the native (host-backed) device,
// the mount table that stitches devices into one namespace, the
// process-wide file-type catalog, and the arena-backed namespace tree
// container-like devices use to index their entries.
package vfs

import (
	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vpath"
)

// VisitFunc receives one entry path per call. Directory paths carry a
// trailing separator. Returning SkipAll ends the visit early without
// error; any other error aborts it.
type VisitFunc func(p vpath.Path) error

// Device is a filesystem node addressed by absolute paths. Devices own
// their children: subordinate devices, file objects and stream handles
// die with them. A device is driven by one consumer at a time.
type Device interface {
	// Exists reports whether p resolves inside the device. It never
	// fails; any resolution miss is false.
	Exists(p vpath.Path) bool

	// Open returns the typed file at the absolute file path p, or
	// ErrNotExist when absent.
	Open(p vpath.Path) (File, error)

	// Create makes a new file of the given type at p. Devices that do
	// not support creation return ErrUnsupported.
	Create(p vpath.Path, typeID uint32) (File, error)

	// Delete removes the file at p and reports whether it existed.
	Delete(p vpath.Path) bool

	// Visit enumerates the subtree at the absolute directory path dir,
	// calling visitDir for directories and visitFile for files.
	Visit(dir vpath.Path, recursive bool, visitDir, visitFile VisitFunc) error

	// OpenStream returns a read-only stream over the file at p.
	OpenStream(p vpath.Path) (stream.Stream, error)

	// Commit persists pending writes, transitively.
	Commit() error
}
