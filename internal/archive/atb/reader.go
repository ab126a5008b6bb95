package atb

import (
	"io"
	"math"

	"golang.org/x/xerrors"

	"github.com/noiretools/noirefs/internal/stream"
)

// Reader decodes an attribute tree from a stream.
type Reader struct {
	s     stream.Stream
	links []*Link
}

// NewReader returns a reader over s.
func NewReader(s stream.Stream) *Reader { return &Reader{s: s} }

// Read parses the whole file: header, root collection, then the link
// table. Link resolution is deferred until the entire tree has been
// read, since the table follows the root.
func (r *Reader) Read() (*Tree, error) {
	if _, err := r.s.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	magic, err := stream.ReadU32(r.s)
	if err != nil {
		return nil, xerrors.Errorf("atb header: %w", err)
	}
	if magic&0x00FFFFFF != HeaderMagic {
		return nil, xerrors.Errorf("atb: bad magic %08x", magic)
	}

	t := &Tree{
		Root:    Object{Name: "root", IsCollection: true},
		Version: uint8(magic >> 24),
	}
	r.links = r.links[:0]
	if err := r.readCollection(&t.Root); err != nil {
		return nil, err
	}
	if err := r.resolveLinks(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Reader) readCollection(dest *Object) error {
	count, err := stream.ReadU16(r.s)
	if err != nil {
		return xerrors.Errorf("atb collection: %w", err)
	}
	if cap(dest.Objects) == 0 {
		dest.Objects = make([]Object, 0, count)
	}
	for i := uint16(0); i < count; i++ {
		if err := r.readCollectionEntry(dest); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readCollectionEntry(dest *Object) error {
	var obj Object
	var err error
	if obj.DefinitionHash, err = stream.ReadU32(r.s); err != nil {
		return xerrors.Errorf("atb entry: %w", err)
	}
	nameLen, err := stream.ReadU8(r.s)
	if err != nil {
		return xerrors.Errorf("atb entry: %w", err)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r.s, name); err != nil {
		return xerrors.Errorf("atb entry name: %w", err)
	}
	obj.Name = string(name)

	if err := r.readObject(&obj); err != nil {
		return err
	}

	if IsCollectionDefinition(obj.DefinitionHash) {
		obj.IsCollection = true
		if err := r.readCollection(&obj); err != nil {
			return err
		}
	} else {
		// a non-collection entry still carries the collection object
		// count slot; a nonzero value means the allowlist is missing a
		// definition hash
		guard, err := stream.ReadU16(r.s)
		if err != nil {
			return xerrors.Errorf("atb entry guard: %w", err)
		}
		if guard != 0 {
			return xerrors.Errorf("atb: entry %q (definition %08x) has %d collection objects but is not a known collection",
				obj.Name, obj.DefinitionHash, guard)
		}
	}

	dest.Objects = append(dest.Objects, obj)
	return nil
}

// readObject reads the property records of one object body, terminated
// by a zero value-type tag.
func (r *Reader) readObject(dest *Object) error {
	for {
		tag, err := stream.ReadU8(r.s)
		if err != nil {
			return xerrors.Errorf("atb property tag: %w", err)
		}
		if ValueType(tag) == TypeInvalid {
			return nil
		}
		nameHash, err := stream.ReadU32(r.s)
		if err != nil {
			return xerrors.Errorf("atb property name: %w", err)
		}
		v, err := r.readValue(ValueType(tag))
		if err != nil {
			return err
		}
		dest.Properties = append(dest.Properties, Property{NameHash: nameHash, Value: v})
	}
}

func (r *Reader) readFloats(n int) ([]float32, error) {
	out := make([]float32, n)
	for i := range out {
		bits, err := stream.ReadU32(r.s)
		if err != nil {
			return nil, err
		}
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

func (r *Reader) readValue(tag ValueType) (Value, error) {
	switch tag {
	case TypeInt32:
		v, err := stream.ReadU32(r.s)
		return Int32(int32(v)), err
	case TypeUInt32:
		v, err := stream.ReadU32(r.s)
		return UInt32(v), err
	case TypeFloat:
		v, err := stream.ReadU32(r.s)
		return Float(math.Float32frombits(v)), err
	case TypeBool:
		v, err := stream.ReadU8(r.s)
		return Bool(v != 0), err
	case TypeVec3:
		f, err := r.readFloats(3)
		if err != nil {
			return nil, err
		}
		return Vec3{f[0], f[1], f[2]}, nil
	case TypeVec2:
		f, err := r.readFloats(2)
		if err != nil {
			return nil, err
		}
		return Vec2{f[0], f[1]}, nil
	case TypeMat4:
		f, err := r.readFloats(16)
		if err != nil {
			return nil, err
		}
		var m Mat4
		copy(m[:], f)
		return m, nil
	case TypeAString:
		n, err := stream.ReadU16(r.s)
		if err != nil {
			return nil, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r.s, b); err != nil {
			return nil, err
		}
		return AString(b), nil
	case TypeUInt64:
		v, err := stream.ReadU64(r.s)
		return UInt64(v), err
	case TypeVec4:
		f, err := r.readFloats(4)
		if err != nil {
			return nil, err
		}
		return Vec4{f[0], f[1], f[2], f[3]}, nil
	case TypeUString:
		n, err := stream.ReadU16(r.s)
		if err != nil {
			return nil, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r.s, b); err != nil {
			return nil, err
		}
		return UString(b), nil
	case TypeBitfield:
		var bf Bitfield
		var err error
		if bf.Mask, err = stream.ReadU32(r.s); err != nil {
			return nil, err
		}
		if bf.Flags, err = stream.ReadU32(r.s); err != nil {
			return nil, err
		}
		return bf, nil
	case TypePolyPtr:
		defHash, err := stream.ReadU32(r.s)
		if err != nil {
			return nil, err
		}
		var pp PolyPtr
		if defHash != 0 {
			pp.Object = &Object{DefinitionHash: defHash}
			if err := r.readObject(pp.Object); err != nil {
				return nil, err
			}
		}
		return pp, nil
	case TypeLink:
		id, err := stream.ReadU16(r.s)
		if err != nil {
			return nil, err
		}
		l := &Link{ID: id}
		if id != InvalidLinkID {
			r.links = append(r.links, l)
		}
		return l, nil
	case TypeArray:
		elemTag, err := stream.ReadU8(r.s)
		if err != nil {
			return nil, err
		}
		count, err := stream.ReadU16(r.s)
		if err != nil {
			return nil, err
		}
		arr := Array{ElementType: ValueType(elemTag)}
		arr.Elements = make([]Value, 0, count)
		for i := uint16(0); i < count; i++ {
			v, err := r.readValue(arr.ElementType)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, v)
		}
		return arr, nil
	case TypeStructure:
		defHash, err := stream.ReadU32(r.s)
		if err != nil {
			return nil, err
		}
		st := Structure{Object: &Object{DefinitionHash: defHash}}
		if err := r.readObject(st.Object); err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, xerrors.Errorf("atb: unknown value type tag %d", uint8(tag))
}

// resolveLinks reads the trailing link table and populates every
// non-null link encountered during the tree read.
func (r *Reader) resolveLinks() error {
	count, err := stream.ReadU16(r.s)
	if err != nil {
		return xerrors.Errorf("atb link table: %w", err)
	}
	names := make([][]uint32, count)
	for i := range names {
		n, err := stream.ReadU8(r.s)
		if err != nil {
			return xerrors.Errorf("atb link name %d: %w", i, err)
		}
		hashes := make([]uint32, n)
		for j := range hashes {
			if hashes[j], err = stream.ReadU32(r.s); err != nil {
				return xerrors.Errorf("atb link name %d: %w", i, err)
			}
		}
		names[i] = hashes
	}
	for _, l := range r.links {
		if int(l.ID) >= len(names) {
			return xerrors.Errorf("atb: link id %d outside table of %d names", l.ID, len(names))
		}
		l.ScopedNameHashes = names[l.ID]
	}
	return nil
}
