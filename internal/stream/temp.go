package stream

import (
	"io"

	"golang.org/x/xerrors"
)

// DefaultTempThreshold is the memory size at which a Temp stream spills
// to a temporary file.
const DefaultTempThreshold = 32 * 1024 * 1024

// Temp is a writable scratch stream that starts in memory and promotes
// itself to a delete-on-close temporary file once its size reaches a
// threshold. Content and position are preserved across the switch.
type Temp struct {
	threshold int64
	mem       *Memory
	file      *File
}

var _ Stream = (*Temp)(nil)

// NewTemp returns a Temp stream spilling at threshold bytes; a
// non-positive threshold selects DefaultTempThreshold.
func NewTemp(threshold int64) *Temp {
	if threshold <= 0 {
		threshold = DefaultTempThreshold
	}
	return &Temp{threshold: threshold, mem: NewMemory()}
}

// IsUsingTempFile reports whether the stream has spilled to a file.
func (t *Temp) IsUsingTempFile() bool { return t.file != nil }

func (t *Temp) current() Stream {
	if t.file != nil {
		return t.file
	}
	return t.mem
}

// checkUsage promotes the memory buffer to a temp file before a write
// once the size has reached the threshold.
func (t *Temp) checkUsage() error {
	if t.file != nil || t.mem.Size() < t.threshold {
		return nil
	}
	f, err := OpenTempFile()
	if err != nil {
		return xerrors.Errorf("promote to temp file: %w", err)
	}
	if _, err := CopyTo(f, t.mem); err != nil {
		f.Close()
		return xerrors.Errorf("promote to temp file: %w", err)
	}
	if _, err := f.Seek(t.mem.Tell(), io.SeekStart); err != nil {
		f.Close()
		return err
	}
	t.file = f
	t.mem = nil
	return nil
}

func (t *Temp) Read(p []byte) (int, error)              { return t.current().Read(p) }
func (t *Temp) ReadAt(p []byte, off int64) (int, error) { return t.current().ReadAt(p, off) }

func (t *Temp) Write(p []byte) (int, error) {
	if err := t.checkUsage(); err != nil {
		return 0, err
	}
	return t.current().Write(p)
}

func (t *Temp) WriteAt(p []byte, off int64) (int, error) {
	if err := t.checkUsage(); err != nil {
		return 0, err
	}
	return t.current().WriteAt(p, off)
}

func (t *Temp) Seek(offset int64, whence int) (int64, error) {
	return t.current().Seek(offset, whence)
}

func (t *Temp) Tell() int64 { return t.current().Tell() }
func (t *Temp) Size() int64 { return t.current().Size() }

func (t *Temp) Close() error {
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}
