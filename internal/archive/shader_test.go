package archive

import (
	"io"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
)

func shaderFixture(t *testing.T) []shaderFixtureProgram {
	return []shaderFixtureProgram{
		{
			nameHash: 0xCAFE0001,
			vs:       shaderChunk(t, dxbc(t, []byte("vertex-code")), "diffuse_vs"),
			ps:       shaderChunk(t, dxbc(t, []byte("pixel-code!")), "diffuse_ps"),
		},
		{
			nameHash: 0xCAFE0002,
			vs:       shaderChunk(t, dxbc(t, []byte("vv")), "flat_vs"),
			ps:       shaderChunk(t, dxbc(t, nil), "flat_ps"),
		},
	}
}

func TestShaderProgramsValidator(t *testing.T) {
	c, _ := testRegistry(nil)

	s := buildShaderPrograms(t, shaderFixture(t))
	typ := c.FindType(s)
	require.NotNil(t, typ)
	require.Equal(t, TypeShaderPrograms, typ.ID)

	// off-by-one in the size arithmetic falls through to raw
	truncated := newImageBytes(t, s.Bytes()[:s.Size()-1])
	require.Equal(t, TypeRaw, c.FindType(truncated).ID)

	// the known dx9 header pair is rejected outright
	im := newImage(t)
	im.u32(15582)
	im.u32(0xBB8780)
	im.seek(int64(shaderHeaderSize) + 15582*4 + 15582*0x10 + 0xBB8780 - 1)
	im.bytes([]byte{0})
	require.Equal(t, TypeRaw, c.FindType(im.stream()).ID)
}

func TestShaderProgramsLoad(t *testing.T) {
	c, _ := testRegistry(nil)
	sp := probeAndLoad(t, c, buildShaderPrograms(t, shaderFixture(t))).(*ShaderPrograms)

	require.Len(t, sp.Entries(), 2)
	e, ok := sp.Entry(0xCAFE0001)
	require.True(t, ok)
	require.EqualValues(t, 12+15+10, e.VSSize)
	require.EqualValues(t, 12+15+10, e.PSSize)

	require.True(t, sp.Exists("/cafe0001"))
	require.True(t, sp.Exists("/cafe0002"))
	require.False(t, sp.Exists("/cafe0003"))
}

func TestShaderProgramCompositeStream(t *testing.T) {
	c, _ := testRegistry(nil)
	fixture := shaderFixture(t)
	sp := probeAndLoad(t, c, buildShaderPrograms(t, fixture)).(*ShaderPrograms)

	es, err := sp.OpenStream("/cafe0001")
	require.NoError(t, err)

	want := append(append([]byte(nil), fixture[0].vs...), fixture[0].ps...)
	require.EqualValues(t, len(want), es.Size())

	got, err := ioutil.ReadAll(io.LimitReader(es, 4096))
	require.NoError(t, err)
	require.Equal(t, want, got)

	// a read straddling the vertex/pixel boundary splits into two
	// positional reads and concatenates
	straddle := make([]byte, 10)
	_, err = es.ReadAt(straddle, int64(len(fixture[0].vs))-5)
	require.NoError(t, err)
	require.Equal(t, want[len(fixture[0].vs)-5:len(fixture[0].vs)+5], straddle)

	_, err = es.WriteAt([]byte{1}, 0)
	require.ErrorIs(t, err, stream.ErrReadOnly)

	// seeks clamp to the composite size
	pos, err := es.Seek(1<<20, io.SeekStart)
	require.NoError(t, err)
	require.EqualValues(t, len(want), pos)
}

func TestParseProgram(t *testing.T) {
	c, _ := testRegistry(nil)
	sp := probeAndLoad(t, c, buildShaderPrograms(t, shaderFixture(t))).(*ShaderPrograms)

	e, ok := sp.Entry(0xCAFE0001)
	require.True(t, ok)
	ps, err := sp.ProgramStream(e)
	require.NoError(t, err)

	prog, err := ParseProgram(ps)
	require.NoError(t, err)
	require.Equal(t, "diffuse_vs", prog.Vertex.Name)
	require.Equal(t, "diffuse_ps", prog.Pixel.Name)
	require.Equal(t, dxbc(t, []byte("vertex-code")), prog.Vertex.Bytecode)
	require.Equal(t, dxbc(t, []byte("pixel-code!")), prog.Pixel.Bytecode)
}

func TestShaderProgramsOpen(t *testing.T) {
	c, _ := testRegistry(nil)
	sp := probeAndLoad(t, c, buildShaderPrograms(t, shaderFixture(t))).(*ShaderPrograms)

	f, err := sp.Open("/cafe0002")
	require.NoError(t, err)
	require.Equal(t, TypeRaw, f.TypeID(), "program payloads carry no archive magic")

	_, err = sp.Open("/missing")
	require.ErrorIs(t, err, vfs.ErrNotExist)
}
