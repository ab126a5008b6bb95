package noirefs

import (
	"context"
	"encoding/binary"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/noiretools/noirefs/internal/archive"
	"github.com/noiretools/noirefs/internal/nhash"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

func le32(vs ...uint32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	return b
}

// buildWADFile writes a minimal WAD image: header, entry table, entry
// data in order, path table after the last entry's data.
func buildWADFile(t *testing.T, entries map[string][]byte, order []string) []byte {
	t.Helper()
	var b []byte
	b = append(b, le32(archive.WADMagic, uint32(len(order)))...)
	offset := uint32(8 + 12*len(order))
	for _, path := range order {
		b = append(b, le32(nhash.CRC32(path), offset, uint32(len(entries[path])))...)
		offset += uint32(len(entries[path]))
	}
	for _, path := range order {
		b = append(b, entries[path]...)
	}
	for _, path := range order {
		var l [2]byte
		binary.LittleEndian.PutUint16(l[:], uint16(len(path)))
		b = append(b, l[:]...)
		b = append(b, path...)
	}
	return b
}

// buildTrunkFile writes a minimal trunk with one primary section.
func buildTrunkFile(t *testing.T, nameHash uint32, data []byte) []byte {
	t.Helper()
	tableSize := uint32(4 + 12)
	dataOffset := uint32(20) + tableSize
	primaryPlusHeader := dataOffset + uint32(len(data))
	var b []byte
	b = append(b, le32(archive.TrunkMagic, 0, primaryPlusHeader, 0, 0)...)
	b = append(b, le32(1, nameHash, uint32(len(data)), dataOffset)...)
	b = append(b, data...)
	return b
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(ioutil.Discard)
	return log
}

func openAndScan(t *testing.T, root string, cfg Config) *FileSystem {
	t.Helper()
	cfg.RootPath = root
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	fs, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })
	if cfg.EnableAutoScan {
		<-fs.ScanDone()
		require.NoError(t, fs.ScanErr())
	}
	return fs
}

func TestOpenRequiresRoot(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestScanMountsArchives(t *testing.T) {
	root := t.TempDir()
	innerTrunk := buildTrunkFile(t, 0x11223344, []byte("section data"))
	wad := buildWADFile(t, map[string][]byte{
		"foo/bar.dat":      []byte("bar content"),
		"models/car.trunk": innerTrunk,
	}, []string{"foo/bar.dat", "models/car.trunk"})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "final", "archive.wad"), wad, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "plain.txt"), []byte("just text"), 0644))

	fs := openAndScan(t, root, Config{EnableAutoScan: true})

	// native entries resolve
	require.True(t, fs.Exists("/plain.txt"))
	require.True(t, fs.Exists("/final/archive.wad"))

	// the WAD is mounted at its own path; entries resolve through it
	require.True(t, fs.Exists("/final/archive.wad/foo/bar.dat"))

	s, err := fs.OpenStream("/final/archive.wad/foo/bar.dat")
	require.NoError(t, err)
	got, err := ioutil.ReadAll(io.LimitReader(s, 64))
	require.NoError(t, err)
	require.Equal(t, []byte("bar content"), got)
	require.EqualValues(t, len("bar content"), s.Size())

	// the trunk nested inside the WAD is mounted one level deeper
	require.True(t, fs.Exists("/final/archive.wad/models/car.trunk/11223344"))
	ts, err := fs.OpenStream("/final/archive.wad/models/car.trunk/11223344")
	require.NoError(t, err)
	got, err = ioutil.ReadAll(io.LimitReader(ts, 64))
	require.NoError(t, err)
	require.Equal(t, []byte("section data"), got)

	// mounts: /, the wad, the trunk
	require.Len(t, fs.Mounts(), 3)
}

func TestScanDisabled(t *testing.T) {
	root := t.TempDir()
	wad := buildWADFile(t, map[string][]byte{"a": []byte("x")}, []string{"a"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "archive.wad"), wad, 0644))

	fs := openAndScan(t, root, Config{})
	<-fs.ScanDone() // closed immediately when scanning is off

	require.True(t, fs.Exists("/archive.wad"))
	require.False(t, fs.Exists("/archive.wad/a"))

	// a manual scan mounts it
	require.NoError(t, fs.Scan(context.Background()))
	require.True(t, fs.Exists("/archive.wad/a"))
}

func TestOpenTypesThroughCatalog(t *testing.T) {
	root := t.TempDir()
	wad := buildWADFile(t, map[string][]byte{"a": []byte("x")}, []string{"a"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "archive.wad"), wad, 0644))

	fs := openAndScan(t, root, Config{EnableAutoScan: true})

	f, err := fs.Open("/archive.wad")
	require.NoError(t, err)
	require.Equal(t, archive.TypeWAD, f.TypeID())
	_, isDevice := vfs.AsDevice(f)
	require.True(t, isDevice)
	require.NoError(t, f.Raw().Close())

	f, err = fs.Open("/archive.wad/a")
	require.NoError(t, err)
	require.Equal(t, archive.TypeRaw, f.TypeID())
}

func TestDeleteInsideArchive(t *testing.T) {
	root := t.TempDir()
	wad := buildWADFile(t, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}, []string{"a", "b"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "archive.wad"), wad, 0644))

	fs := openAndScan(t, root, Config{EnableAutoScan: true})

	require.True(t, fs.Exists("/archive.wad/b"))
	require.True(t, fs.Delete("/archive.wad/b"))
	require.False(t, fs.Exists("/archive.wad/b"))
	require.True(t, fs.Exists("/archive.wad/a"))

	require.NoError(t, fs.Commit())
}

func TestVisitSpansMountedDevice(t *testing.T) {
	root := t.TempDir()
	wad := buildWADFile(t, map[string][]byte{
		"dir/x": []byte("1"),
		"y":     []byte("2"),
	}, []string{"dir/x", "y"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "archive.wad"), wad, 0644))

	fs := openAndScan(t, root, Config{EnableAutoScan: true})

	var files []vpath.Path
	require.NoError(t, fs.Visit("/archive.wad/", true, nil, func(p vpath.Path) error {
		files = append(files, p)
		return nil
	}))
	require.Equal(t, []vpath.Path{"/archive.wad/dir/x", "/archive.wad/y"}, files)
}

func TestScanCancellation(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), []byte("x"), 0644))

	fs := openAndScan(t, root, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, fs.Scan(ctx))
}

func TestNewScratchHonorsThreshold(t *testing.T) {
	root := t.TempDir()
	fs := openAndScan(t, root, Config{TempStreamThresholdBytes: 4})

	s := fs.NewScratch()
	defer s.Close()
	_, err := s.Write([]byte{0, 1, 2, 3})
	require.NoError(t, err)
	require.False(t, s.IsUsingTempFile())
	_, err = s.Write([]byte{4})
	require.NoError(t, err)
	require.True(t, s.IsUsingTempFile())
}
