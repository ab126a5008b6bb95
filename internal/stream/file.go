package stream

import (
	"io"
	"io/ioutil"
	"os"

	"golang.org/x/xerrors"
)

// File is a stream backed by an OS file opened for read and write,
// created if absent. Reads and writes use positioned I/O so ReadAt and
// WriteAt never disturb the stream position.
type File struct {
	f    *os.File
	name string
	pos  int64
	size int64
	temp bool
}

var _ Stream = (*File)(nil)

// OpenFile opens (or creates) the named host file.
func OpenFile(name string) (*File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, xerrors.Errorf("open %s: %w", name, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("stat %s: %w", name, err)
	}
	return &File{f: f, name: name, size: fi.Size()}, nil
}

// OpenTempFile creates a uniquely named file under the OS temp directory.
// The file is removed when the stream is closed.
func OpenTempFile() (*File, error) {
	f, err := ioutil.TempFile("", "noirefs")
	if err != nil {
		return nil, xerrors.Errorf("create temp file: %w", err)
	}
	return &File{f: f, name: f.Name(), temp: true}, nil
}

// Name returns the host path of the underlying file.
func (s *File) Name() string { return s.name }

func (s *File) Read(p []byte) (int, error) {
	n, err := s.f.ReadAt(p, s.pos)
	s.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (s *File) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *File) Write(p []byte) (int, error) {
	n, err := s.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *File) WriteAt(p []byte, off int64) (int, error) {
	n, err := s.f.WriteAt(p, off)
	if end := off + int64(n); end > s.size {
		s.size = end
	}
	return n, err
}

func (s *File) Seek(offset int64, whence int) (int64, error) {
	pos, err := seekPosition(s.pos, s.size, offset, whence)
	if err != nil {
		return s.pos, err
	}
	s.pos = pos
	return s.pos, nil
}

func (s *File) Tell() int64 { return s.pos }

func (s *File) Size() int64 { return s.size }

// Close closes the OS handle. Temp files are removed.
func (s *File) Close() error {
	err := s.f.Close()
	if s.temp {
		if rerr := os.Remove(s.name); err == nil {
			err = rerr
		}
	}
	return err
}
