package archive

import (
	"encoding/binary"
	"io"
	"io/ioutil"
	"testing"

	"github.com/orcaman/writerseeker"
	"github.com/stretchr/testify/require"

	"github.com/noiretools/noirefs/internal/nhash"
	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
)

// image builds archive fixtures in memory.
type image struct {
	t *testing.T
	w *writerseeker.WriterSeeker
}

func newImage(t *testing.T) *image {
	return &image{t: t, w: &writerseeker.WriterSeeker{}}
}

func (im *image) u8(v uint8)   { im.write(v) }
func (im *image) u16(v uint16) { im.write(v) }
func (im *image) u32(v uint32) { im.write(v) }

func (im *image) write(v interface{}) {
	im.t.Helper()
	require.NoError(im.t, binary.Write(im.w, binary.LittleEndian, v))
}

func (im *image) bytes(b []byte) {
	im.t.Helper()
	_, err := im.w.Write(b)
	require.NoError(im.t, err)
}

func (im *image) seek(off int64) {
	im.t.Helper()
	_, err := im.w.Seek(off, io.SeekStart)
	require.NoError(im.t, err)
}

func (im *image) stream() *stream.Memory {
	im.t.Helper()
	b, err := ioutil.ReadAll(im.w.BytesReader())
	require.NoError(im.t, err)
	return stream.NewMemoryBuffer(b)
}

func newImageBytes(t *testing.T, b []byte) *stream.Memory {
	t.Helper()
	return stream.NewMemoryBuffer(b)
}

type wadFixtureEntry struct {
	path string
	data []byte
}

// buildWAD lays out header, entry table, entry data in order, then the
// path table directly after the last entry's data.
func buildWAD(t *testing.T, entries []wadFixtureEntry) *stream.Memory {
	im := newImage(t)
	im.u32(WADMagic)
	im.u32(uint32(len(entries)))

	offset := uint32(wadHeaderSize + 12*len(entries))
	for _, e := range entries {
		im.u32(nhash.CRC32(e.path))
		im.u32(offset)
		im.u32(uint32(len(e.data)))
		offset += uint32(len(e.data))
	}
	for _, e := range entries {
		im.bytes(e.data)
	}
	for _, e := range entries {
		im.u16(uint16(len(e.path)))
		im.bytes([]byte(e.path))
	}
	return im.stream()
}

type containerFixtureEntry struct {
	nameHash uint32
	data     []byte
	// split selects the F2/F3 ('trM#') size encoding instead of F4
	split bool
}

// buildContainer places chunks on 16-byte boundaries and the entries
// header at the end, reachable via the trailing offset-from-end word.
func buildContainer(t *testing.T, entries []containerFixtureEntry) *stream.Memory {
	im := newImage(t)
	type placed struct {
		containerFixtureEntry
		offset uint32
	}
	var ps []placed
	offset := uint32(16)
	for _, e := range entries {
		if len(e.data) == 0 {
			ps = append(ps, placed{e, 0})
			continue
		}
		im.seek(int64(offset))
		im.bytes(e.data)
		ps = append(ps, placed{e, offset})
		offset += uint32(len(e.data))
		if rem := offset % 16; rem != 0 {
			offset += 16 - rem
		}
	}

	entriesPos := int64(offset)
	im.seek(entriesPos)
	im.u32(ContainerEntriesMagic)
	im.u32(uint32(len(ps)))
	for _, p := range ps {
		im.u32(p.nameHash)
		im.u32(p.offset >> 4)
		if p.split {
			half := uint32(len(p.data)) / 2
			im.u32(half)
			im.u32(uint32(len(p.data)) - half)
			im.u32(0)
		} else {
			im.u32(0)
			im.u32(0)
			im.u32(uint32(len(p.data)))
		}
	}
	end := entriesPos + 8 + int64(20*len(ps)) + 4
	im.u32(uint32(end - entriesPos))
	return im.stream()
}

type trunkFixtureSection struct {
	nameHash  uint32
	data      []byte
	secondary bool
}

// buildTrunk writes the 20-byte header, the section table at the start
// of the primary region, primary payloads after it, and secondary
// payloads in the secondary region.
func buildTrunk(t *testing.T, sections []trunkFixtureSection) *stream.Memory {
	tableSize := int64(4 + 12*len(sections))
	primaryDataPos := int64(trunkHeaderSize) + tableSize

	var primarySize, secondarySize int64
	type placed struct {
		trunkFixtureSection
		offset uint32
	}
	var ps []placed
	primarySize = tableSize
	for _, sec := range sections {
		if sec.secondary {
			ps = append(ps, placed{sec, uint32(secondarySize) | 1})
			secondarySize += int64(len(sec.data))
			if secondarySize%2 != 0 { // keep region offsets even: the low bit is the region selector
				secondarySize++
			}
		} else {
			ps = append(ps, placed{sec, uint32(int64(trunkHeaderSize) + primarySize)})
			primarySize += int64(len(sec.data))
		}
	}
	secondaryPos := int64(trunkHeaderSize) + primarySize

	im := newImage(t)
	im.u32(TrunkMagic)
	im.u32(0) // reserved
	im.u32(uint32(trunkHeaderSize + primarySize))
	im.u32(uint32(secondarySize))
	im.u32(0) // runtime pointer slot

	im.u32(uint32(len(ps)))
	for _, p := range ps {
		im.u32(p.nameHash)
		im.u32(uint32(len(p.data)))
		im.u32(p.offset)
	}
	pos := primaryDataPos
	for _, p := range ps {
		if p.secondary {
			continue
		}
		im.seek(pos)
		im.bytes(p.data)
		pos += int64(len(p.data))
	}
	if secondarySize > 0 {
		region := make([]byte, secondarySize)
		for _, p := range ps {
			if p.secondary {
				copy(region[p.offset&^uint32(1):], p.data)
			}
		}
		im.seek(secondaryPos)
		im.bytes(region)
	}
	return im.stream()
}

// uniqueTextureMain serializes the main-section payload for the given
// texture entries.
func uniqueTextureMain(t *testing.T, textures []TextureEntry) []byte {
	im := newImage(t)
	im.u32(0) // runtime scratch
	im.u32(uint32(len(textures)))
	for _, e := range textures {
		im.u32(e.Offset)
		im.u32(0)
		im.u32(e.NameHash)
	}
	b, err := ioutil.ReadAll(im.w.BytesReader())
	require.NoError(t, err)
	return b
}

// shaderChunk serializes one {chunkSize, bytecodeSize, unk, bytecode,
// name} shader chunk.
func shaderChunk(t *testing.T, bytecode []byte, name string) []byte {
	im := newImage(t)
	im.u32(uint32(12 + len(bytecode) + len(name)))
	im.u32(uint32(len(bytecode)))
	im.u32(0)
	im.bytes(bytecode)
	im.bytes([]byte(name))
	b, err := ioutil.ReadAll(im.w.BytesReader())
	require.NoError(t, err)
	return b
}

// dxbc fabricates a minimal bytecode blob carrying the DXBC magic.
func dxbc(t *testing.T, payload []byte) []byte {
	im := newImage(t)
	im.u32(DXBCMagic)
	im.bytes(payload)
	b, err := ioutil.ReadAll(im.w.BytesReader())
	require.NoError(t, err)
	return b
}

type shaderFixtureProgram struct {
	nameHash uint32
	vs, ps   []byte // whole chunks
}

// buildShaderPrograms lays out the header, hash table, offset table and
// the chunk data region.
func buildShaderPrograms(t *testing.T, programs []shaderFixtureProgram) *stream.Memory {
	im := newImage(t)
	im.u32(uint32(len(programs)))

	var rawDataSize uint32
	offsets := make([][2]uint32, len(programs))
	for i, p := range programs {
		offsets[i][0] = rawDataSize
		rawDataSize += uint32(len(p.vs))
		offsets[i][1] = rawDataSize
		rawDataSize += uint32(len(p.ps))
	}
	im.u32(rawDataSize)
	for _, p := range programs {
		im.u32(p.nameHash)
	}
	for i := range programs {
		im.u32(offsets[i][0])
		im.u32(0)
		im.u32(offsets[i][1])
		im.u32(0)
	}
	for _, p := range programs {
		im.bytes(p.vs)
		im.bytes(p.ps)
	}
	return im.stream()
}

// testRegistry returns a catalog with every built-in type plus the
// registry the types share.
func testRegistry(names *nhash.DB) (*vfs.Catalog, *Registry) {
	c := vfs.NewCatalog()
	r := RegisterBuiltinTypes(c, names)
	return c, r
}

// probeAndLoad types s through the catalog and loads the resulting
// file.
func probeAndLoad(t *testing.T, c *vfs.Catalog, s stream.Stream) vfs.File {
	t.Helper()
	typ := c.FindType(s)
	require.NotNil(t, typ)
	f, err := typ.New(nil, "/fixture", s)
	require.NoError(t, err)
	require.NoError(t, f.Load())
	return f
}
