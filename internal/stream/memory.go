package stream

import "io"

const (
	defaultBufferSize = 0x2000
	minBytesToGrow    = 0x1000
)

// Memory is a dynamically growing in-memory stream. Bytes between the old
// size and the offset of a WriteAt past the end are unspecified; readers
// must not depend on any particular fill.
type Memory struct {
	buf  []byte
	size int64
	pos  int64
}

var _ Stream = (*Memory)(nil)

// NewMemory returns an empty memory stream.
func NewMemory() *Memory {
	return &Memory{buf: make([]byte, defaultBufferSize)}
}

// NewMemoryBuffer returns a memory stream initialized with a copy of b.
func NewMemoryBuffer(b []byte) *Memory {
	m := &Memory{buf: make([]byte, len(b))}
	copy(m.buf, b)
	m.size = int64(len(b))
	return m
}

func (m *Memory) grow(min int64) {
	if int64(len(m.buf)) >= min {
		return
	}
	n := int64(len(m.buf)) + minBytesToGrow
	if min > n {
		n = min
	}
	buf := make([]byte, n)
	copy(buf, m.buf)
	m.buf = buf
}

func (m *Memory) Read(p []byte) (int, error) {
	n, err := m.ReadAt(p, m.pos)
	m.pos += int64(n)
	return n, err
}

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= m.size {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:m.size])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Memory) Write(p []byte) (int, error) {
	n, err := m.WriteAt(p, m.pos)
	m.pos += int64(n)
	return n, err
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrShortWrite
	}
	end := off + int64(len(p))
	m.grow(end)
	copy(m.buf[off:end], p)
	if end > m.size {
		m.size = end
	}
	return len(p), nil
}

// Seek may position past the current size; the gap materializes only when
// written to.
func (m *Memory) Seek(offset int64, whence int) (int64, error) {
	pos, err := seekPosition(m.pos, m.size, offset, whence)
	if err != nil {
		return m.pos, err
	}
	m.pos = pos
	return m.pos, nil
}

func (m *Memory) Tell() int64 { return m.pos }

func (m *Memory) Size() int64 { return m.size }

// Bytes returns the written content. The slice aliases the internal
// buffer and is valid until the next write.
func (m *Memory) Bytes() []byte { return m.buf[:m.size] }

func (m *Memory) Close() error { return nil }
