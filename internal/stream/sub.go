package stream

import (
	"io"

	"golang.org/x/xerrors"
)

// Sub is a bounded, rebased view over a base stream. It shares the base;
// closing a Sub does not close the base, whose lifetime is the longest
// holder's. Reads and writes are clamped to the view's range; a Sub never
// extends its base.
type Sub struct {
	base Stream
	off  int64
	size int64
	pos  int64
}

var _ Stream = (*Sub)(nil)

// NewSub returns a view of size bytes of base starting at off. The range
// must lie within the base's current size.
func NewSub(base Stream, off, size int64) (*Sub, error) {
	if off < 0 || size < 0 || off+size > base.Size() {
		return nil, xerrors.Errorf("substream [%d,%d) outside base of size %d", off, off+size, base.Size())
	}
	return &Sub{base: base, off: off, size: size}, nil
}

func (s *Sub) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *Sub) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= s.size {
		return 0, io.EOF
	}
	max := s.size - off
	short := false
	if int64(len(p)) > max {
		p = p[:max]
		short = true
	}
	n, err := s.base.ReadAt(p, s.off+off)
	if err == nil && short {
		err = io.EOF
	}
	return n, err
}

func (s *Sub) Write(p []byte) (int, error) {
	n, err := s.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *Sub) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= s.size {
		return 0, io.ErrShortWrite
	}
	max := s.size - off
	short := false
	if int64(len(p)) > max {
		p = p[:max]
		short = true
	}
	n, err := s.base.WriteAt(p, s.off+off)
	if err == nil && short {
		err = io.ErrShortWrite
	}
	return n, err
}

// Seek clamps the position to [0, Size].
func (s *Sub) Seek(offset int64, whence int) (int64, error) {
	pos, err := seekPosition(s.pos, s.size, offset, whence)
	if err != nil {
		pos = 0
	}
	if pos > s.size {
		pos = s.size
	}
	s.pos = pos
	return s.pos, nil
}

func (s *Sub) Tell() int64 { return s.pos }

func (s *Sub) Size() int64 { return s.size }

func (s *Sub) Close() error { return nil }

// ReadOnly wraps a stream so writes fail with ErrReadOnly. All other
// calls pass through to the base.
type ReadOnly struct {
	base Stream
}

var _ Stream = (*ReadOnly)(nil)

// NewReadOnly returns a read-only view of base.
func NewReadOnly(base Stream) *ReadOnly { return &ReadOnly{base: base} }

func (s *ReadOnly) Read(p []byte) (int, error)              { return s.base.Read(p) }
func (s *ReadOnly) ReadAt(p []byte, off int64) (int, error) { return s.base.ReadAt(p, off) }
func (s *ReadOnly) Write(p []byte) (int, error)             { return 0, ErrReadOnly }
func (s *ReadOnly) WriteAt(p []byte, off int64) (int, error) {
	return 0, ErrReadOnly
}
func (s *ReadOnly) Seek(offset int64, whence int) (int64, error) {
	return s.base.Seek(offset, whence)
}
func (s *ReadOnly) Tell() int64 { return s.base.Tell() }
func (s *ReadOnly) Size() int64 { return s.base.Size() }

// Close closes the base. A ReadOnly over a shared Sub view stays
// harmless because Sub.Close never touches its own base.
func (s *ReadOnly) Close() error { return s.base.Close() }
