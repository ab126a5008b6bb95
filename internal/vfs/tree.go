package vfs

import (
	"github.com/noiretools/noirefs/internal/nhash"
	"github.com/noiretools/noirefs/internal/vpath"
)

// EntryKind discriminates tree nodes.
type EntryKind uint8

const (
	kindNone EntryKind = iota
	KindDirectory
	KindFile
)

// FileInfo is the opaque payload a hosting device attaches to a file
// node, typically an entry index or name hash.
type FileInfo uint64

const invalidNode = int32(-1)

type treeNode struct {
	name     string
	kind     EntryKind
	parent   int32
	children []int32
	info     FileInfo
}

// Tree is the in-memory namespace of a container-like device: directory
// and file nodes in a slab, linked by indices, indexed by the CRC-32 of
// the absolute path. It holds metadata only; the hosting device
// interprets each file's FileInfo to find bytes.
type Tree struct {
	nodes []treeNode
	index map[uint32]int32
}

// NewTree returns a tree holding only the root directory.
func NewTree() *Tree {
	t := &Tree{index: make(map[uint32]int32)}
	t.nodes = append(t.nodes, treeNode{name: "", kind: KindDirectory, parent: invalidNode})
	t.index[nhash.CRC32(vpath.Root.String())] = 0
	return t
}

func (t *Tree) lookup(p vpath.Path) int32 {
	i, ok := t.index[nhash.CRC32(p.String())]
	if !ok {
		return invalidNode
	}
	return i
}

// directory finds the directory node at the absolute directory path p,
// creating intermediate directories when create is set.
func (t *Tree) directory(p vpath.Path, create bool) (int32, error) {
	if p.IsRoot() {
		return 0, nil
	}
	if !p.IsAbsolute() || !p.IsDirectory() {
		return invalidNode, precondition("directory", "%q is not an absolute directory path", p)
	}
	if i := t.lookup(p); i != invalidNode {
		if t.nodes[i].kind != KindDirectory {
			return invalidNode, precondition("directory", "%q exists and is not a directory", p)
		}
		return i, nil
	}
	if !create {
		return invalidNode, ErrNotExist
	}
	parent, err := t.directory(p.Parent(), true)
	if err != nil {
		return invalidNode, err
	}
	i := t.addNode(treeNode{name: p.Name(), kind: KindDirectory, parent: parent}, p)
	return i, nil
}

func (t *Tree) addNode(n treeNode, p vpath.Path) int32 {
	i := int32(len(t.nodes))
	t.nodes = append(t.nodes, n)
	t.index[nhash.CRC32(p.String())] = i
	if n.parent != invalidNode {
		t.nodes[n.parent].children = append(t.nodes[n.parent].children, i)
	}
	return i
}

// RegisterExistingFile records a file node at the absolute file path p,
// auto-creating directories along the way. Registering the same path
// again updates its info.
func (t *Tree) RegisterExistingFile(p vpath.Path, info FileInfo) error {
	if !p.IsAbsolute() || !p.IsFile() {
		return precondition("RegisterExistingFile", "%q is not an absolute file path", p)
	}
	if i := t.lookup(p); i != invalidNode {
		if t.nodes[i].kind != KindFile {
			return precondition("RegisterExistingFile", "%q exists and is not a file", p)
		}
		t.nodes[i].info = info
		return nil
	}
	parent, err := t.directory(p.Parent(), true)
	if err != nil {
		return err
	}
	t.addNode(treeNode{name: p.Name(), kind: KindFile, parent: parent, info: info}, p)
	return nil
}

// Exists reports whether p names a live node.
func (t *Tree) Exists(p vpath.Path) bool {
	i := t.lookup(p)
	return i != invalidNode && t.nodes[i].kind != kindNone
}

// FileInfo returns the payload of the file node at p.
func (t *Tree) FileInfo(p vpath.Path) (FileInfo, bool) {
	i := t.lookup(p)
	if i == invalidNode || t.nodes[i].kind != KindFile {
		return 0, false
	}
	return t.nodes[i].info, true
}

// Delete removes the file node at p (files only) and reports whether it
// existed. The arena slot is retired, not reused.
func (t *Tree) Delete(p vpath.Path) bool {
	i := t.lookup(p)
	if i == invalidNode || t.nodes[i].kind != KindFile {
		return false
	}
	parent := t.nodes[i].parent
	siblings := t.nodes[parent].children
	for j, c := range siblings {
		if c == i {
			t.nodes[parent].children = append(siblings[:j], siblings[j+1:]...)
			break
		}
	}
	delete(t.index, nhash.CRC32(p.String()))
	t.nodes[i] = treeNode{kind: kindNone, parent: invalidNode}
	return true
}

// pathOf rebuilds the absolute path of node i.
func (t *Tree) pathOf(i int32) vpath.Path {
	if i == 0 {
		return vpath.Root
	}
	p := t.pathOf(t.nodes[i].parent).Concat(t.nodes[i].name)
	if t.nodes[i].kind == KindDirectory {
		p = p.Concat("/")
	}
	return p
}

// ForEachFile calls fn for every file under the absolute directory path
// dir, in registration order. fn may return SkipAll to stop early.
func (t *Tree) ForEachFile(dir vpath.Path, recursive bool, fn func(p vpath.Path, info FileInfo) error) error {
	err := t.Visit(dir, recursive, nil, func(p vpath.Path) error {
		info, _ := t.FileInfo(p)
		return fn(p, info)
	})
	return err
}

// Visit enumerates the subtree at dir, calling visitDir for directories
// (root excluded) and visitFile for files. Either callback may be nil.
func (t *Tree) Visit(dir vpath.Path, recursive bool, visitDir, visitFile VisitFunc) error {
	i, err := t.directory(dir, false)
	if err != nil {
		return err
	}
	err = t.visit(i, dir, recursive, visitDir, visitFile)
	if err == SkipAll {
		err = nil
	}
	return err
}

func (t *Tree) visit(i int32, dir vpath.Path, recursive bool, visitDir, visitFile VisitFunc) error {
	for _, c := range t.nodes[i].children {
		n := &t.nodes[c]
		switch n.kind {
		case KindFile:
			if visitFile != nil {
				if err := visitFile(dir.Concat(n.name)); err != nil {
					return err
				}
			}
		case KindDirectory:
			sub := dir.Concat(n.name).Concat("/")
			if visitDir != nil {
				if err := visitDir(sub); err != nil {
					return err
				}
			}
			if recursive {
				if err := t.visit(c, sub, true, visitDir, visitFile); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
