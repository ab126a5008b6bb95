// Package fusefs exposes an assembled filesystem as a read-only FUSE
// mount, so the layered archive namespace can be browsed with ordinary
// shell tools.
package fusefs

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/noiretools/noirefs/internal/stream"
	"github.com/noiretools/noirefs/internal/vfs"
	"github.com/noiretools/noirefs/internal/vpath"
)

// Source is the slice of the assembled filesystem the mount needs.
type Source interface {
	Visit(dir vpath.Path, recursive bool, visitDir, visitFile vfs.VisitFunc) error
	OpenStream(p vpath.Path) (stream.Stream, error)
	Mounts() []vfs.MountPoint
}

// never is used for FUSE expiration timestamps: the namespace is
// immutable for the lifetime of the mount, so the kernel can cache
// everything forever.
var never = time.Now().Add(100 * 365 * 24 * time.Hour)

type node struct {
	inode    fuseops.InodeID
	path     vpath.Path
	dir      bool
	size     int64
	sized    bool
	children []fuseops.InodeID
	byName   map[string]fuseops.InodeID
}

// FS is the fuseutil server. The inode table is built once at mount
// time by walking the source namespace; file sizes are resolved lazily
// on first attribute read.
type FS struct {
	fuseutil.NotImplementedFileSystem

	src Source

	mu      sync.Mutex
	nodes   map[fuseops.InodeID]*node
	next    fuseops.InodeID
	readers map[fuseops.HandleID]stream.Stream
	nextFH  fuseops.HandleID
}

// New indexes the source namespace and returns a mountable server.
// Every mount point of the source is walked, so archive mounts nested
// below the root appear inside their archive's directory.
func New(src Source) (*FS, error) {
	fs := &FS{
		src:     src,
		nodes:   make(map[fuseops.InodeID]*node),
		next:    fuseops.RootInodeID + 1,
		readers: make(map[fuseops.HandleID]stream.Stream),
		nextFH:  1,
	}
	root := &node{
		inode:  fuseops.RootInodeID,
		path:   vpath.Root,
		dir:    true,
		byName: make(map[string]fuseops.InodeID),
	}
	fs.nodes[root.inode] = root

	for _, m := range src.Mounts() {
		if !m.Path.IsRoot() {
			// the mount directory itself shadows the archive file of
			// the same name one level up
			fs.addPath(m.Path, true)
		}
		err := src.Visit(m.Path, true,
			func(p vpath.Path) error { fs.addPath(p, true); return nil },
			func(p vpath.Path) error { fs.addPath(p, false); return nil })
		if err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// Mount serves the filesystem at mountpoint until the mount is
// unmounted or ctx is canceled.
func (fs *FS) Mount(ctx context.Context, mountpoint, fsName string) error {
	server := fuseutil.NewFileSystemServer(fs)
	mfs, err := fuse.Mount(mountpoint, server, &fuse.MountConfig{
		FSName:   fsName,
		ReadOnly: true,
	})
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		fuse.Unmount(mountpoint)
	}()
	return mfs.Join(context.Background())
}

// addPath ensures nodes exist for p and each of its ancestors.
func (fs *FS) addPath(p vpath.Path, dir bool) fuseops.InodeID {
	if p.IsRoot() {
		return fuseops.RootInodeID
	}
	parent := fs.addPath(parentOf(p), true)
	pn := fs.nodes[parent]
	name := p.Name()
	if id, ok := pn.byName[name]; ok {
		return id
	}
	n := &node{inode: fs.next, path: p, dir: dir}
	if dir {
		n.byName = make(map[string]fuseops.InodeID)
	}
	fs.next++
	fs.nodes[n.inode] = n
	pn.children = append(pn.children, n.inode)
	pn.byName[name] = n.inode
	return n.inode
}

func parentOf(p vpath.Path) vpath.Path {
	if par := p.Parent(); !par.IsEmpty() {
		return par
	}
	return vpath.Root
}

func (fs *FS) node(id fuseops.InodeID) (*node, bool) {
	n, ok := fs.nodes[id]
	return n, ok
}

func (fs *FS) attributes(n *node) (fuseops.InodeAttributes, error) {
	attr := fuseops.InodeAttributes{
		Nlink: 1,
		Atime: never,
		Mtime: never,
		Ctime: never,
	}
	if n.dir {
		attr.Mode = os.ModeDir | 0555
		return attr, nil
	}
	attr.Mode = 0444
	if !n.sized {
		s, err := fs.src.OpenStream(n.path)
		if err != nil {
			return attr, fuse.EIO
		}
		n.size = s.Size()
		n.sized = true
		s.Close()
	}
	attr.Size = uint64(n.size)
	return attr, nil
}

func (fs *FS) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	op.BlockSize = 4096
	op.Blocks = 1
	op.IoSize = 65536
	return nil
}

func (fs *FS) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	parent, ok := fs.node(op.Parent)
	if !ok || !parent.dir {
		return fuse.ENOENT
	}
	id, ok := parent.byName[op.Name]
	if !ok {
		return fuse.ENOENT
	}
	n := fs.nodes[id]
	attr, err := fs.attributes(n)
	if err != nil {
		return err
	}
	op.Entry.Child = id
	op.Entry.Attributes = attr
	op.Entry.AttributesExpiration = never
	op.Entry.EntryExpiration = never
	return nil
}

func (fs *FS) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	attr, err := fs.attributes(n)
	if err != nil {
		return err
	}
	op.Attributes = attr
	op.AttributesExpiration = never
	return nil
}

func (fs *FS) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.node(op.Inode)
	if !ok || !n.dir {
		return fuse.ENOENT
	}
	return nil
}

func (fs *FS) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.node(op.Inode)
	if !ok || !n.dir {
		return fuse.EIO
	}
	if op.Offset > fuseops.DirOffset(len(n.children)) {
		return fuse.EIO
	}
	for i, id := range n.children[op.Offset:] {
		c := fs.nodes[id]
		typ := fuseutil.DT_File
		if c.dir {
			typ = fuseutil.DT_Directory
		}
		written := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
			Offset: op.Offset + fuseops.DirOffset(i) + 1,
			Inode:  id,
			Name:   c.path.Name(),
			Type:   typ,
		})
		if written == 0 {
			break
		}
		op.BytesRead += written
	}
	return nil
}

func (fs *FS) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.node(op.Inode)
	if !ok || n.dir {
		return fuse.ENOENT
	}
	s, err := fs.src.OpenStream(n.path)
	if err != nil {
		return fuse.EIO
	}
	op.Handle = fs.nextFH
	fs.nextFH++
	fs.readers[op.Handle] = s
	op.KeepPageCache = true
	return nil
}

func (fs *FS) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	fs.mu.Lock()
	r, ok := fs.readers[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return fuse.EIO
	}
	var err error
	op.BytesRead, err = r.ReadAt(op.Dst, op.Offset)
	if err == io.EOF {
		err = nil // FUSE does not want io.EOF
	}
	return err
}

func (fs *FS) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if r, ok := fs.readers[op.Handle]; ok {
		r.Close()
		delete(fs.readers, op.Handle)
	}
	return nil
}
