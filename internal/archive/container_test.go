package archive

import (
	"io"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/noiretools/noirefs/internal/nhash"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

func TestContainerLoad(t *testing.T) {
	c, _ := testRegistry(nil)
	s := buildContainer(t, []containerFixtureEntry{
		{nameHash: 0xAABBCCDD, data: []byte("sges-style chunk")},
		{nameHash: 0x11223344, data: []byte("split size chunk"), split: true},
		{nameHash: 0x99999999, data: nil},
	})

	typ := c.FindType(s)
	require.NotNil(t, typ)
	require.Equal(t, TypeContainer, typ.ID)

	f := probeAndLoad(t, c, s)
	ct := f.(*Container)
	require.Len(t, ct.Entries(), 3)

	e, ok := ct.Entry(0xAABBCCDD)
	require.True(t, ok)
	require.EqualValues(t, 16, e.Offset())
	require.EqualValues(t, 16, e.Size())

	// the F2/F3 halves sum to the chunk size
	e, ok = ct.Entry(0x11223344)
	require.True(t, ok)
	require.EqualValues(t, 16, e.Size())
	require.Zero(t, e.F4)

	// unknown hashes name the children as hex pseudo-paths
	require.True(t, ct.Exists("/aabbccdd"))
	require.True(t, ct.Exists("/11223344"))
	require.True(t, ct.Exists("/99999999"))
	require.False(t, ct.Exists("/deadbeef"))
}

func TestContainerOpenStream(t *testing.T) {
	c, _ := testRegistry(nil)
	ct := probeAndLoad(t, c, buildContainer(t, []containerFixtureEntry{
		{nameHash: 0xAABBCCDD, data: []byte("payload bytes")},
		{nameHash: 0x99999999, data: nil},
	})).(*Container)

	es, err := ct.OpenStream("/aabbccdd")
	require.NoError(t, err)
	require.EqualValues(t, 13, es.Size())
	got, err := ioutil.ReadAll(io.LimitReader(es, 64))
	require.NoError(t, err)
	require.Equal(t, []byte("payload bytes"), got)

	// a zero offset+size entry yields an empty stream, not an error
	empty, err := ct.OpenStream("/99999999")
	require.NoError(t, err)
	require.EqualValues(t, 0, empty.Size())

	_, err = ct.OpenStream("/deadbeef")
	require.ErrorIs(t, err, vfs.ErrNotExist)
}

func TestContainerResolvesNamesThroughDB(t *testing.T) {
	db, err := nhash.LoadDB(strings.NewReader("vehicles/packard.trunk\n"), false)
	require.NoError(t, err)
	c, _ := testRegistry(db)

	ct := probeAndLoad(t, c, buildContainer(t, []containerFixtureEntry{
		{nameHash: nhash.CRC32("vehicles/packard.trunk"), data: []byte("xx")},
		{nameHash: 0x12345678, data: []byte("yy")},
	})).(*Container)

	require.True(t, ct.Exists("/vehicles/packard.trunk"))
	require.True(t, ct.Exists("/vehicles/"))
	require.True(t, ct.Exists("/12345678"))

	var files []vpath.Path
	require.NoError(t, ct.Visit("/", true, nil,
		func(p vpath.Path) error { files = append(files, p); return nil }))
	if diff := cmp.Diff([]vpath.Path{"/vehicles/packard.trunk", "/12345678"}, files); diff != "" {
		t.Errorf("files diff (-want +got):\n%s", diff)
	}
}

func TestContainerValidatorRejects(t *testing.T) {
	c, _ := testRegistry(nil)

	// too small
	typ := c.FindType(newImageBytes(t, []byte{1, 2, 3}))
	require.Equal(t, TypeRaw, typ.ID)

	// trailing offset pointing outside the stream
	im := newImage(t)
	im.u32(0)
	im.u32(0)
	im.u32(0xFFFF)
	typ = c.FindType(im.stream())
	require.Equal(t, TypeRaw, typ.ID)
}

func TestContainerRejectsOversizeEntry(t *testing.T) {
	c, _ := testRegistry(nil)
	im := newImage(t)
	im.seek(16)
	im.u32(ContainerEntriesMagic)
	im.u32(1)
	im.u32(0xABCD)        // name hash
	im.u32(0x100000 >> 4) // offset far past the end
	im.u32(0)
	im.u32(0)
	im.u32(0x1000)
	im.u32(4 + 8 + 20) // offset from end to entries header
	s := im.stream()

	typ := c.FindType(s)
	require.Equal(t, TypeContainer, typ.ID)
	f, err := typ.New(nil, "/bad.big", s)
	require.NoError(t, err)
	var ferr *FormatError
	require.ErrorAs(t, f.Load(), &ferr)
}
