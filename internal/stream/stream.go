// Package stream provides the random-access byte streams that back every
// device and archive parser: native files, growable memory buffers,
// bounded sub-range views, read-only wrappers and a spill-to-temp-file
// buffer. All streams carry an explicit position; ReadAt/WriteAt never
// disturb it.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrReadOnly is returned by write calls on read-only streams.
var ErrReadOnly = errors.New("stream: write on read-only stream")

// Stream is a seekable byte channel. Seek follows the io.Seeker whence
// constants. A stream is not safe for concurrent use; two logical readers
// of the same underlying bytes must each hold their own Sub view.
type Stream interface {
	io.Reader
	io.ReaderAt
	io.Writer
	io.WriterAt
	io.Seeker
	io.Closer

	// Tell returns the current position.
	Tell() int64
	// Size returns the current length of the stream in bytes.
	Size() int64
}

const copyBufferSize = 81920

// CopyTo copies the entire content of src (regardless of its position) to
// dst at dst's current position, through a fixed-size scratch buffer. It
// stops at the first short read and reports bytes copied.
func CopyTo(dst Stream, src Stream) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var off int64
	for {
		n, err := src.ReadAt(buf, off)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return off, werr
			}
			off += int64(n)
		}
		if err == io.EOF {
			return off, nil
		}
		if err != nil {
			return off, err
		}
		if n == 0 {
			return off, nil
		}
	}
}

// The fixed-size record helpers below read and write little-endian values
// at the stream's current position, the byte order of every on-disk format
// this module parses.

func ReadU8(s io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func ReadU16(s io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func ReadU32(s io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func ReadU64(s io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func WriteU16(s io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := s.Write(b[:])
	return err
}

func WriteU32(s io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := s.Write(b[:])
	return err
}

// ReadU32At reads a little-endian uint32 at off without moving the
// position.
func ReadU32At(s io.ReaderAt, off int64) (uint32, error) {
	var b [4]byte
	if _, err := s.ReadAt(b[:], off); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// seekPosition resolves a Seek call against pos and size.
func seekPosition(pos, size, offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += pos
	case io.SeekEnd:
		offset += size
	default:
		return 0, errors.New("stream: invalid seek whence")
	}
	if offset < 0 {
		return 0, errors.New("stream: negative seek position")
	}
	return offset, nil
}
