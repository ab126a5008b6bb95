// Package noirefs assembles the layered virtual filesystem: a native
// device mounted at the root, plus one device per archive discovered by
// probing every regular file, recursively, so that paths cross format
// boundaries transparently (native folder → WAD → container → trunk).
package noirefs

import (
	"context"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/noiretools/noirefs/internal/archive"
	"github.com/noiretools/noirefs/internal/nhash"
	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

// Config configures an assembled filesystem. RootPath is the only
// required option.
type Config struct {
	// RootPath is the absolute host directory mounted at /.
	RootPath string
	// TempStreamThresholdBytes is the size at which scratch streams
	// spill from memory to a temp file. 0 selects the 32 MiB default.
	TempStreamThresholdBytes int64
	// EnableAutoScan mounts nested archives automatically on Open.
	EnableAutoScan bool
	// Names translates name hashes back to strings; nil leaves
	// hash-keyed entries with their hex names.
	Names *nhash.DB
	// Logger receives scan progress; nil selects the standard logger.
	Logger *logrus.Logger
}

// FileSystem is the assembled mount table plus the catalog its devices
// probe through. All path operations accept absolute paths spanning
// every mounted archive.
type FileSystem struct {
	cfg     Config
	log     *logrus.Logger
	catalog *vfs.Catalog
	reg     *archive.Registry
	mounts  *vfs.Multi

	scanStarted chan struct{}
	scanDone    chan struct{}
	startedOnce sync.Once
	doneOnce    sync.Once
	scanErr     error

	mu       sync.Mutex
	archives []vfs.File // keeps mounted archive streams alive
}

// Open mounts RootPath at / and, when auto-scanning is enabled, starts
// the archive scan on a worker goroutine. ScanStarted and ScanDone
// signal the scan's progress; the rest of the filesystem stays usable
// while it runs.
func Open(cfg Config) (*FileSystem, error) {
	if cfg.RootPath == "" {
		return nil, xerrors.New("noirefs: RootPath is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	catalog := vfs.NewCatalog()
	reg := archive.RegisterBuiltinTypes(catalog, cfg.Names)

	native, err := vfs.NewNative(cfg.RootPath, catalog)
	if err != nil {
		return nil, err
	}
	mounts := vfs.NewMulti()
	if err := mounts.Mount(vpath.Root, native); err != nil {
		return nil, err
	}

	fs := &FileSystem{
		cfg:         cfg,
		log:         log,
		catalog:     catalog,
		reg:         reg,
		mounts:      mounts,
		scanStarted: make(chan struct{}),
		scanDone:    make(chan struct{}),
	}
	if cfg.EnableAutoScan {
		go fs.Scan(context.Background())
	} else {
		fs.startedOnce.Do(func() { close(fs.scanStarted) })
		fs.doneOnce.Do(func() { close(fs.scanDone) })
	}
	return fs, nil
}

// ScanStarted is closed when the archive scan begins.
func (fs *FileSystem) ScanStarted() <-chan struct{} { return fs.scanStarted }

// ScanDone is closed when the archive scan has finished; ScanErr holds
// its outcome afterwards.
func (fs *FileSystem) ScanDone() <-chan struct{} { return fs.scanDone }

// ScanErr reports the result of an auto-started scan once ScanDone is
// closed.
func (fs *FileSystem) ScanErr() error { return fs.scanErr }

// Scan walks every regular file reachable from the root, probes it
// against the registered archive validators and mounts each match as a
// device at the file's own path, recursively for nested archives.
func (fs *FileSystem) Scan(ctx context.Context) (err error) {
	fs.startedOnce.Do(func() { close(fs.scanStarted) })
	defer fs.doneOnce.Do(func() {
		fs.scanErr = err
		close(fs.scanDone)
	})

	fs.log.Info("archive scan started")
	dev, _, _ := fs.mounts.Resolve(vpath.Root)
	if err := fs.scanDevice(ctx, dev, vpath.Root, true); err != nil {
		fs.log.WithError(err).Warn("archive scan failed")
		return err
	}
	fs.log.Info("archive scan complete")
	return nil
}

// scanDevice probes every file of one device. The top-level (native)
// scan probes in parallel: each probe opens its own host file handle.
// Nested devices are scanned serially, since their entry streams share
// the parent archive's base stream.
func (fs *FileSystem) scanDevice(ctx context.Context, dev vfs.Device, mount vpath.Path, parallel bool) error {
	var files []vpath.Path
	err := dev.Visit(vpath.Root, true, nil, func(p vpath.Path) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return xerrors.Errorf("scan %s: %w", mount, err)
	}

	collections := make([]bool, len(files))
	probe := func(i int) {
		s, err := dev.OpenStream(files[i])
		if err != nil {
			fs.log.WithError(err).Warnf("probe %s", mount.Append(files[i].RelativeTo(vpath.Root)))
			return
		}
		defer s.Close()
		if t := fs.catalog.FindType(s); t != nil && archive.IsCollection(t.ID) {
			collections[i] = true
		}
	}
	if parallel {
		var eg errgroup.Group
		eg.SetLimit(runtime.NumCPU())
		for i := range files {
			i := i
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				probe(i)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	} else {
		for i := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			probe(i)
		}
	}

	for i, isCollection := range collections {
		if !isCollection {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fs.mountArchive(ctx, dev, mount, files[i]); err != nil {
			fs.log.WithError(err).Warnf("mount %s", mount.Append(files[i].RelativeTo(vpath.Root)))
		}
	}
	return nil
}

// mountArchive opens and loads the archive at rel inside dev, mounts it
// at its absolute path and scans inside it.
func (fs *FileSystem) mountArchive(ctx context.Context, dev vfs.Device, mount, rel vpath.Path) error {
	f, err := dev.Open(rel)
	if err != nil {
		return err
	}
	if err := f.Load(); err != nil {
		return err
	}
	archDev, ok := vfs.AsDevice(f)
	if !ok {
		return xerrors.Errorf("%s: type %08x is not a collection", rel, f.TypeID())
	}
	mountPath := mount.Append(rel.RelativeTo(vpath.Root)).Concat("/")
	if err := fs.mounts.Mount(mountPath, archDev); err != nil {
		return err
	}
	fs.mu.Lock()
	fs.archives = append(fs.archives, f)
	fs.mu.Unlock()
	fs.log.WithField("mount", mountPath).Debug("mounted archive")

	return fs.scanDevice(ctx, archDev, mountPath, false)
}

// Exists reports whether p resolves anywhere in the namespace.
func (fs *FileSystem) Exists(p vpath.Path) bool { return fs.mounts.Exists(p) }

// Open returns the typed file at p.
func (fs *FileSystem) Open(p vpath.Path) (vfs.File, error) { return fs.mounts.Open(p) }

// OpenStream returns a read-only stream over the file at p.
func (fs *FileSystem) OpenStream(p vpath.Path) (stream.Stream, error) {
	return fs.mounts.OpenStream(p)
}

// Delete removes the file at p and reports whether it existed.
func (fs *FileSystem) Delete(p vpath.Path) bool { return fs.mounts.Delete(p) }

// Visit enumerates the subtree at dir.
func (fs *FileSystem) Visit(dir vpath.Path, recursive bool, visitDir, visitFile vfs.VisitFunc) error {
	return fs.mounts.Visit(dir, recursive, visitDir, visitFile)
}

// Commit persists pending writes on every mounted device in mount
// order.
func (fs *FileSystem) Commit() error { return fs.mounts.Commit() }

// Mounts returns the active mount points, longest prefix first.
func (fs *FileSystem) Mounts() []vfs.MountPoint { return fs.mounts.Mounts() }

// Catalog returns the file-type catalog the filesystem probes through.
// Mutating it while a scan is in flight is not allowed.
func (fs *FileSystem) Catalog() *vfs.Catalog { return fs.catalog }

// NewScratch returns a writable scratch stream honoring the configured
// memory threshold.
func (fs *FileSystem) NewScratch() *stream.Temp {
	return stream.NewTemp(fs.cfg.TempStreamThresholdBytes)
}

// Close releases every mounted archive's underlying stream.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var first error
	for _, f := range fs.archives {
		if err := f.Raw().Close(); err != nil && first == nil {
			first = err
		}
	}
	fs.archives = nil
	return first
}
