package vfs

import (
	"sort"

	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vpath"
)

// MountPoint associates a directory path with the device serving it.
type MountPoint struct {
	Path   vpath.Path
	Device Device
	seq    int
}

// Multi routes paths to the mounted device with the longest matching
// prefix. Mount order is remembered separately so Commit applies to
// children in registration order.
type Multi struct {
	mounts  []MountPoint
	nextSeq int
}

var _ Device = (*Multi)(nil)

// NewMulti returns an empty mount table.
func NewMulti() *Multi { return &Multi{} }

// Mount adds a device at the absolute directory path p. Mounting over an
// existing mount path is rejected.
func (m *Multi) Mount(p vpath.Path, dev Device) error {
	if !p.IsAbsolute() || !p.IsDirectory() {
		return precondition("Mount", "%q is not an absolute directory path", p)
	}
	if dev == nil {
		return precondition("Mount", "nil device")
	}
	for _, mp := range m.mounts {
		if mp.Path == p {
			return precondition("Mount", "%q is already mounted", p)
		}
	}
	m.mounts = append(m.mounts, MountPoint{Path: p, Device: dev, seq: m.nextSeq})
	m.nextSeq++
	// longest mount paths first, so deeper mounts shadow their parents
	sort.SliceStable(m.mounts, func(i, j int) bool {
		return len(m.mounts[i].Path) > len(m.mounts[j].Path)
	})
	return nil
}

// Unmount removes the mount at p and reports whether it existed.
func (m *Multi) Unmount(p vpath.Path) bool {
	for i, mp := range m.mounts {
		if mp.Path == p {
			m.mounts = append(m.mounts[:i], m.mounts[i+1:]...)
			return true
		}
	}
	return false
}

// Mounts returns the mount points in resolution order (longest prefix
// first).
func (m *Multi) Mounts() []MountPoint { return m.mounts }

// Resolve finds the device serving p. rel is p relative to the device's
// mount, preserving the leading separator; mount is the mount path.
func (m *Multi) Resolve(p vpath.Path) (dev Device, rel, mount vpath.Path) {
	for _, mp := range m.mounts {
		if len(p) >= len(mp.Path) && p[:len(mp.Path)] == mp.Path {
			return mp.Device, p[len(mp.Path)-1:], mp.Path
		}
	}
	return nil, "", ""
}

func (m *Multi) Exists(p vpath.Path) bool {
	dev, rel, _ := m.Resolve(p)
	return dev != nil && dev.Exists(rel)
}

func (m *Multi) Open(p vpath.Path) (File, error) {
	dev, rel, _ := m.Resolve(p)
	if dev == nil {
		return nil, ErrNotExist
	}
	return dev.Open(rel)
}

func (m *Multi) Create(p vpath.Path, typeID uint32) (File, error) {
	dev, rel, _ := m.Resolve(p)
	if dev == nil {
		return nil, ErrNotExist
	}
	return dev.Create(rel, typeID)
}

func (m *Multi) Delete(p vpath.Path) bool {
	dev, rel, _ := m.Resolve(p)
	return dev != nil && dev.Delete(rel)
}

// Visit enumerates the device owning dir, rebasing emitted paths by
// prepending the mount point.
func (m *Multi) Visit(dir vpath.Path, recursive bool, visitDir, visitFile VisitFunc) error {
	if !dir.IsAbsolute() || !dir.IsDirectory() {
		return precondition("Visit", "%q is not an absolute directory path", dir)
	}
	dev, rel, mount := m.Resolve(dir)
	if dev == nil {
		return ErrNotExist
	}
	rebase := func(fn VisitFunc) VisitFunc {
		if fn == nil {
			return nil
		}
		return func(p vpath.Path) error {
			return fn(mount.Append(p.RelativeTo(vpath.Root)))
		}
	}
	return dev.Visit(rel, recursive, rebase(visitDir), rebase(visitFile))
}

func (m *Multi) OpenStream(p vpath.Path) (stream.Stream, error) {
	dev, rel, _ := m.Resolve(p)
	if dev == nil {
		return nil, ErrNotExist
	}
	return dev.OpenStream(rel)
}

// Commit commits every child device in registration order.
func (m *Multi) Commit() error {
	ordered := append([]MountPoint(nil), m.mounts...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	for _, mp := range ordered {
		if err := mp.Device.Commit(); err != nil {
			return err
		}
	}
	return nil
}
