package vfs

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vpath"
)

func catalogWithRaw() (*Catalog, *Type) {
	c := NewCatalog()
	raw := descriptor(0xF0F0F0F0, 0, func(s stream.Stream) bool { return true })
	c.Register(raw)
	return c, raw
}

func writeHostFile(t *testing.T, root string, rel string, content []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, content, 0644))
}

func TestNativeExistsOpenDelete(t *testing.T) {
	root := t.TempDir()
	writeHostFile(t, root, "final/pc/out.wad", []byte{1, 2, 3})

	cat, rawType := catalogWithRaw()
	d, err := NewNative(root, cat)
	require.NoError(t, err)

	require.True(t, d.Exists("/final/"))
	require.True(t, d.Exists("/final/pc/out.wad"))
	require.False(t, d.Exists("/final/pc/out.wad/"), "type mismatch resolves to false")
	require.False(t, d.Exists("/missing"))

	f, err := d.Open("/final/pc/out.wad")
	require.NoError(t, err)
	require.Equal(t, rawType.ID, f.TypeID())
	require.Equal(t, vpath.Path("/final/pc/out.wad"), f.Path())
	require.EqualValues(t, 3, f.Raw().Size())
	require.NoError(t, f.Raw().Close())

	_, err = d.Open("/final/pc/missing.wad")
	require.ErrorIs(t, err, ErrNotExist)

	require.True(t, d.Delete("/final/pc/out.wad"))
	require.False(t, d.Exists("/final/pc/out.wad"))
	require.False(t, d.Delete("/final/pc/out.wad"))
}

func TestNativeOpenStream(t *testing.T) {
	root := t.TempDir()
	writeHostFile(t, root, "data.bin", []byte{9, 8, 7, 6})

	cat, _ := catalogWithRaw()
	d, err := NewNative(root, cat)
	require.NoError(t, err)

	s, err := d.OpenStream("/data.bin")
	require.NoError(t, err)
	defer s.Close()

	got := make([]byte, 4)
	_, err = io.ReadFull(s, got)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 8, 7, 6}, got)

	_, err = s.Write([]byte{1})
	require.ErrorIs(t, err, stream.ErrReadOnly)

	_, err = d.OpenStream("/missing.bin")
	require.ErrorIs(t, err, ErrNotExist)
}

func TestNativeVisit(t *testing.T) {
	root := t.TempDir()
	writeHostFile(t, root, "a.txt", nil)
	writeHostFile(t, root, "dir/b.txt", nil)
	writeHostFile(t, root, "dir/sub/c.txt", nil)

	cat, _ := catalogWithRaw()
	d, err := NewNative(root, cat)
	require.NoError(t, err)

	var dirs, files []string
	require.NoError(t, d.Visit("/", true,
		func(p vpath.Path) error { dirs = append(dirs, p.String()); return nil },
		func(p vpath.Path) error { files = append(files, p.String()); return nil }))
	sort.Strings(dirs)
	sort.Strings(files)
	if diff := cmp.Diff([]string{"/dir/", "/dir/sub/"}, dirs); diff != "" {
		t.Errorf("dirs diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/a.txt", "/dir/b.txt", "/dir/sub/c.txt"}, files); diff != "" {
		t.Errorf("files diff (-want +got):\n%s", diff)
	}

	files = files[:0]
	require.NoError(t, d.Visit("/dir/", false, nil,
		func(p vpath.Path) error { files = append(files, p.String()); return nil }))
	if diff := cmp.Diff([]string{"/dir/b.txt"}, files); diff != "" {
		t.Errorf("flat files diff (-want +got):\n%s", diff)
	}

	// SkipAll short-circuits between entries
	n := 0
	require.NoError(t, d.Visit("/", true, nil, func(p vpath.Path) error {
		n++
		return SkipAll
	}))
	require.Equal(t, 1, n)
}

func TestNativeRejectsNonDirectoryRoot(t *testing.T) {
	root := t.TempDir()
	writeHostFile(t, root, "f", nil)
	cat, _ := catalogWithRaw()
	_, err := NewNative(filepath.Join(root, "f"), cat)
	require.Error(t, err)
}
