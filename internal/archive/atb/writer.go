package atb

import (
	"math"

	"golang.org/x/xerrors"

	"github.com/noiretools/noirefs/internal/stream"
)

// Writer serializes an attribute tree back to the wire format. Link ids
// are renumbered in encounter order; everything else round-trips
// structurally.
type Writer struct {
	s       stream.Stream
	linkIDs map[*Link]uint16
	names   [][]uint32
}

// NewWriter returns a writer over s.
func NewWriter(s stream.Stream) *Writer { return &Writer{s: s} }

// Write serializes the whole tree: header, root collection, link table.
func (w *Writer) Write(t *Tree) error {
	if err := stream.WriteU32(w.s, HeaderMagic|uint32(t.Version)<<24); err != nil {
		return err
	}
	w.linkIDs = make(map[*Link]uint16)
	w.names = w.names[:0]
	if err := w.writeCollection(&t.Root); err != nil {
		return err
	}
	return w.writeLinks()
}

func (w *Writer) writeCollection(col *Object) error {
	if len(col.Objects) > 0xFFFF {
		return xerrors.Errorf("atb: collection %q has %d objects", col.Name, len(col.Objects))
	}
	if err := stream.WriteU16(w.s, uint16(len(col.Objects))); err != nil {
		return err
	}
	for i := range col.Objects {
		if err := w.writeCollectionEntry(&col.Objects[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeCollectionEntry(obj *Object) error {
	if err := stream.WriteU32(w.s, obj.DefinitionHash); err != nil {
		return err
	}
	if len(obj.Name) > 0xFF {
		return xerrors.Errorf("atb: object name %q too long", obj.Name)
	}
	if _, err := w.s.Write([]byte{uint8(len(obj.Name))}); err != nil {
		return err
	}
	if _, err := w.s.Write([]byte(obj.Name)); err != nil {
		return err
	}
	if err := w.writeObject(obj); err != nil {
		return err
	}
	if obj.IsCollection {
		return w.writeCollection(obj)
	}
	return stream.WriteU16(w.s, 0)
}

func (w *Writer) writeObject(obj *Object) error {
	for i := range obj.Properties {
		p := &obj.Properties[i]
		if _, err := w.s.Write([]byte{uint8(p.Value.ValueType())}); err != nil {
			return err
		}
		if err := stream.WriteU32(w.s, p.NameHash); err != nil {
			return err
		}
		if err := w.writeValue(p.Value); err != nil {
			return err
		}
	}
	_, err := w.s.Write([]byte{uint8(TypeInvalid)})
	return err
}

func (w *Writer) writeFloats(f []float32) error {
	for _, v := range f {
		if err := stream.WriteU32(w.s, math.Float32bits(v)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeValue(v Value) error {
	switch v := v.(type) {
	case Int32:
		return stream.WriteU32(w.s, uint32(int32(v)))
	case UInt32:
		return stream.WriteU32(w.s, uint32(v))
	case Float:
		return stream.WriteU32(w.s, math.Float32bits(float32(v)))
	case Bool:
		b := byte(0)
		if v {
			b = 1
		}
		_, err := w.s.Write([]byte{b})
		return err
	case Vec2:
		return w.writeFloats(v[:])
	case Vec3:
		return w.writeFloats(v[:])
	case Vec4:
		return w.writeFloats(v[:])
	case Mat4:
		return w.writeFloats(v[:])
	case AString:
		if err := stream.WriteU16(w.s, uint16(len(v))); err != nil {
			return err
		}
		_, err := w.s.Write([]byte(v))
		return err
	case UInt64:
		if err := stream.WriteU32(w.s, uint32(uint64(v))); err != nil {
			return err
		}
		return stream.WriteU32(w.s, uint32(uint64(v)>>32))
	case UString:
		if err := stream.WriteU16(w.s, uint16(len(v))); err != nil {
			return err
		}
		_, err := w.s.Write([]byte(v))
		return err
	case Bitfield:
		if err := stream.WriteU32(w.s, v.Mask); err != nil {
			return err
		}
		return stream.WriteU32(w.s, v.Flags)
	case PolyPtr:
		if v.Object == nil {
			return stream.WriteU32(w.s, 0)
		}
		if err := stream.WriteU32(w.s, v.Object.DefinitionHash); err != nil {
			return err
		}
		return w.writeObject(v.Object)
	case *Link:
		id := uint16(InvalidLinkID)
		if v.ID != InvalidLinkID {
			var ok bool
			if id, ok = w.linkIDs[v]; !ok {
				id = uint16(len(w.names))
				w.linkIDs[v] = id
				w.names = append(w.names, v.ScopedNameHashes)
			}
		}
		return stream.WriteU16(w.s, id)
	case Array:
		if _, err := w.s.Write([]byte{uint8(v.ElementType)}); err != nil {
			return err
		}
		if err := stream.WriteU16(w.s, uint16(len(v.Elements))); err != nil {
			return err
		}
		for _, e := range v.Elements {
			if err := w.writeValue(e); err != nil {
				return err
			}
		}
		return nil
	case Structure:
		if err := stream.WriteU32(w.s, v.Object.DefinitionHash); err != nil {
			return err
		}
		return w.writeObject(v.Object)
	}
	return xerrors.Errorf("atb: cannot serialize value of type %T", v)
}

func (w *Writer) writeLinks() error {
	if err := stream.WriteU16(w.s, uint16(len(w.names))); err != nil {
		return err
	}
	for _, hashes := range w.names {
		if _, err := w.s.Write([]byte{uint8(len(hashes))}); err != nil {
			return err
		}
		for _, h := range hashes {
			if err := stream.WriteU32(w.s, h); err != nil {
				return err
			}
		}
	}
	return nil
}
