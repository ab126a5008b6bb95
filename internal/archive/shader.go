package archive

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

// DXBCMagic opens every shader bytecode blob.
const DXBCMagic = 0x43425844

const shaderHeaderSize = 8

// ShaderProgramsEntry locates one program's two chunks in the archive.
// Offsets are absolute (the on-disk relative offsets are rebased during
// load); sizes are whole-chunk sizes including the chunk headers.
type ShaderProgramsEntry struct {
	NameHash uint32
	VSOffset int64
	PSOffset int64
	VSSize   int64
	PSSize   int64
}

// ShaderPrograms is the compiled-shader archive. It has no magic; the
// validator accepts a stream iff the header arithmetic matches the
// stream size exactly. Each program surfaces as one synthetic file whose
// content is the vertex chunk concatenated with the pixel chunk, even
// though the two are not contiguous in the archive.
type ShaderPrograms struct {
	vfs.BaseFile
	reg           *Registry
	entries       []ShaderProgramsEntry
	byHash        map[uint32]int
	rawDataOffset int64
	rawDataSize   int64
	tree          *vfs.Tree
}

var (
	_ vfs.File   = (*ShaderPrograms)(nil)
	_ vfs.Device = (*ShaderPrograms)(nil)
)

// the known dx9 variant has a different layout; its fixed header pair is
// rejected until that layout is understood
const (
	dx9EntryCount  = 15582
	dx9RawDataSize = 0xBB8780
)

// NewShaderProgramsType returns the shader-archive file-type descriptor.
func NewShaderProgramsType(r *Registry) *vfs.Type {
	return &vfs.Type{
		ID:       TypeShaderPrograms,
		Priority: 2,
		Valid: func(s stream.Stream) bool {
			size := s.Size()
			if size <= shaderHeaderSize {
				return false
			}
			entryCount, err := stream.ReadU32(s)
			if err != nil {
				return false
			}
			rawDataSize, err := stream.ReadU32(s)
			if err != nil {
				return false
			}
			if entryCount == dx9EntryCount && rawDataSize == dx9RawDataSize {
				return false
			}
			rawDataOffset := int64(shaderHeaderSize) + int64(entryCount)*4 + int64(entryCount)*0x10
			return rawDataOffset+int64(rawDataSize) == size
		},
		New: func(dev vfs.Device, p vpath.Path, raw stream.Stream) (vfs.File, error) {
			sp := &ShaderPrograms{
				BaseFile: vfs.NewBaseFile(dev, p, raw, TypeShaderPrograms),
				reg:      r,
				byHash:   make(map[uint32]int),
				tree:     vfs.NewTree(),
			}
			return sp, nil
		},
	}
}

// Entries returns the program table in file order.
func (sp *ShaderPrograms) Entries() []ShaderProgramsEntry { return sp.entries }

// Load reads the name-hash table and the offset table, rebases the
// offsets past the header and resolves each chunk's size from its
// leading size word.
func (sp *ShaderPrograms) Load() error {
	if sp.Loaded() {
		return nil
	}
	s := sp.Raw()
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return err
	}
	entryCount, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("shader programs header: %w", err)
	}
	rawDataSize, err := stream.ReadU32(s)
	if err != nil {
		return xerrors.Errorf("shader programs header: %w", err)
	}
	sp.rawDataSize = int64(rawDataSize)

	sp.entries = make([]ShaderProgramsEntry, entryCount)
	for i := range sp.entries {
		if sp.entries[i].NameHash, err = stream.ReadU32(s); err != nil {
			return xerrors.Errorf("shader programs hash %d: %w", i, err)
		}
	}
	for i := range sp.entries {
		e := &sp.entries[i]
		vsOff, err := stream.ReadU32(s)
		if err != nil {
			return xerrors.Errorf("shader programs entry %d: %w", i, err)
		}
		if _, err := s.Seek(4, io.SeekCurrent); err != nil { // runtime slot, 0 on disk
			return err
		}
		psOff, err := stream.ReadU32(s)
		if err != nil {
			return xerrors.Errorf("shader programs entry %d: %w", i, err)
		}
		if _, err := s.Seek(4, io.SeekCurrent); err != nil {
			return err
		}
		e.VSOffset, e.PSOffset = int64(vsOff), int64(psOff)
	}

	sp.rawDataOffset = s.Tell()
	for i := range sp.entries {
		e := &sp.entries[i]
		e.VSOffset += sp.rawDataOffset
		e.PSOffset += sp.rawDataOffset
		vsSize, err := stream.ReadU32At(s, e.VSOffset)
		if err != nil {
			return xerrors.Errorf("shader programs entry %d vertex chunk: %w", i, err)
		}
		psSize, err := stream.ReadU32At(s, e.PSOffset)
		if err != nil {
			return xerrors.Errorf("shader programs entry %d pixel chunk: %w", i, err)
		}
		e.VSSize, e.PSSize = int64(vsSize), int64(psSize)
		if e.VSOffset+e.VSSize > s.Size() || e.PSOffset+e.PSSize > s.Size() {
			return formatErrf("shader programs", "entry %08x chunk range exceeds stream size %d", e.NameHash, s.Size())
		}

		sp.byHash[e.NameHash] = i
		p := vpath.Root.Append(vpath.Path(sp.reg.label(e.NameHash)).Normalize())
		if err := sp.tree.RegisterExistingFile(p, vfs.FileInfo(i)); err != nil {
			return xerrors.Errorf("shader programs index %08x: %w", e.NameHash, err)
		}
	}
	sp.MarkLoaded()
	return nil
}

// Entry returns the program record for a name hash.
func (sp *ShaderPrograms) Entry(nameHash uint32) (ShaderProgramsEntry, bool) {
	i, ok := sp.byHash[nameHash]
	if !ok {
		return ShaderProgramsEntry{}, false
	}
	return sp.entries[i], true
}

// ProgramStream opens one logical stream over the program's two chunks.
func (sp *ShaderPrograms) ProgramStream(e ShaderProgramsEntry) (stream.Stream, error) {
	vs, err := stream.NewSub(sp.Raw(), e.VSOffset, e.VSSize)
	if err != nil {
		return nil, err
	}
	ps, err := stream.NewSub(sp.Raw(), e.PSOffset, e.PSSize)
	if err != nil {
		return nil, err
	}
	return &programStream{vs: vs, ps: ps, size: e.VSSize + e.PSSize}, nil
}

func (sp *ShaderPrograms) entryAt(p vpath.Path) (ShaderProgramsEntry, bool) {
	info, ok := sp.tree.FileInfo(p)
	if !ok {
		return ShaderProgramsEntry{}, false
	}
	return sp.entries[int(info)], true
}

func (sp *ShaderPrograms) Exists(p vpath.Path) bool { return sp.tree.Exists(p) }

func (sp *ShaderPrograms) Open(p vpath.Path) (vfs.File, error) {
	e, ok := sp.entryAt(p)
	if !ok {
		return nil, vfs.ErrNotExist
	}
	s, err := sp.ProgramStream(e)
	if err != nil {
		return nil, err
	}
	t := sp.reg.Catalog.FindType(s)
	if t == nil {
		return nil, xerrors.Errorf("open %s: no file type claimed the stream", p)
	}
	return t.New(sp, p, s)
}

func (sp *ShaderPrograms) Create(p vpath.Path, typeID uint32) (vfs.File, error) {
	return nil, vfs.ErrUnsupported
}

func (sp *ShaderPrograms) Delete(p vpath.Path) bool {
	if !sp.tree.Delete(p) {
		return false
	}
	sp.MarkChanged()
	return true
}

func (sp *ShaderPrograms) Visit(dir vpath.Path, recursive bool, visitDir, visitFile vfs.VisitFunc) error {
	return sp.tree.Visit(dir, recursive, visitDir, visitFile)
}

func (sp *ShaderPrograms) OpenStream(p vpath.Path) (stream.Stream, error) {
	e, ok := sp.entryAt(p)
	if !ok {
		return nil, xerrors.Errorf("open stream %s: %w", p, vfs.ErrNotExist)
	}
	s, err := sp.ProgramStream(e)
	if err != nil {
		return nil, err
	}
	return stream.NewReadOnly(s), nil
}

func (sp *ShaderPrograms) Commit() error { return nil }

// programStream presents a program's vertex and pixel chunks as one
// contiguous read-only stream. Reads crossing the boundary split into a
// positional read from each half.
type programStream struct {
	vs   *stream.Sub
	ps   *stream.Sub
	size int64
	pos  int64
}

var _ stream.Stream = (*programStream)(nil)

func (s *programStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *programStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= s.size {
		return 0, io.EOF
	}
	short := false
	if max := s.size - off; int64(len(p)) > max {
		p = p[:max]
		short = true
	}
	var n int
	vsSize := s.vs.Size()
	if off < vsSize {
		first := p
		if int64(len(first)) > vsSize-off {
			first = first[:vsSize-off]
		}
		m, err := s.vs.ReadAt(first, off)
		n += m
		if err != nil && err != io.EOF {
			return n, err
		}
		p = p[m:]
		off += int64(m)
	}
	if len(p) > 0 {
		m, err := s.ps.ReadAt(p, off-vsSize)
		n += m
		if err != nil && err != io.EOF {
			return n, err
		}
	}
	if short {
		return n, io.EOF
	}
	return n, nil
}

func (s *programStream) Write(p []byte) (int, error) { return 0, stream.ErrReadOnly }
func (s *programStream) WriteAt(p []byte, off int64) (int, error) {
	return 0, stream.ErrReadOnly
}

func (s *programStream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += s.pos
	case io.SeekEnd:
		offset += s.size
	}
	if offset < 0 {
		offset = 0
	}
	if offset > s.size {
		offset = s.size
	}
	s.pos = offset
	return s.pos, nil
}

func (s *programStream) Tell() int64  { return s.pos }
func (s *programStream) Size() int64  { return s.size }
func (s *programStream) Close() error { return nil }

// Shader is one decoded shader chunk: the DXBC bytecode and the trailing
// debug name.
type Shader struct {
	Name     string
	Unk      uint32
	Bytecode []byte
}

// ShaderProgram is a decoded program: the vertex and pixel chunks of one
// composite program stream.
type ShaderProgram struct {
	Vertex Shader
	Pixel  Shader
}

// ParseProgram decodes the two chunks of a composite program stream, as
// produced by ProgramStream.
func ParseProgram(s stream.Stream) (*ShaderProgram, error) {
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	var prog ShaderProgram
	if err := readShaderChunk(s, &prog.Vertex); err != nil {
		return nil, xerrors.Errorf("vertex chunk: %w", err)
	}
	if err := readShaderChunk(s, &prog.Pixel); err != nil {
		return nil, xerrors.Errorf("pixel chunk: %w", err)
	}
	return &prog, nil
}

// each chunk is {u32 chunkSize, u32 bytecodeSize, u32 unk, bytecode,
// name}, chunkSize covering the whole chunk
func readShaderChunk(s stream.Stream, sh *Shader) error {
	chunkSize, err := stream.ReadU32(s)
	if err != nil {
		return err
	}
	bytecodeSize, err := stream.ReadU32(s)
	if err != nil {
		return err
	}
	if sh.Unk, err = stream.ReadU32(s); err != nil {
		return err
	}
	if int64(bytecodeSize) > int64(chunkSize)-12 {
		return formatErrf("shader program", "bytecode size %d exceeds chunk size %d", bytecodeSize, chunkSize)
	}
	sh.Bytecode = make([]byte, bytecodeSize)
	if _, err := io.ReadFull(s, sh.Bytecode); err != nil {
		return err
	}
	name := make([]byte, int64(chunkSize)-int64(bytecodeSize)-12)
	if _, err := io.ReadFull(s, name); err != nil {
		return err
	}
	sh.Name = string(name)
	return nil
}
