// Package atb parses the recursive tagged-value attribute-tree format.
// The value-type tag codes are on the wire and must not change.
package atb

import "fmt"

// HeaderMagic is the 'A','T','B' byte triple in the low three bytes of
// the leading u32. The high byte is a version-like value the game never
// checks; it is retained on the parsed tree.
const HeaderMagic = 0x00425441

// ValueType tags a property value on the wire.
type ValueType uint8

const (
	TypeInvalid   ValueType = 0
	TypeInt32     ValueType = 1
	TypeUInt32    ValueType = 2
	TypeFloat     ValueType = 3
	TypeBool      ValueType = 4
	TypeVec3      ValueType = 5
	TypeVec2      ValueType = 6
	TypeMat4      ValueType = 7
	TypeAString   ValueType = 8
	TypeUInt64    ValueType = 9
	TypeVec4      ValueType = 10
	TypeUString   ValueType = 11
	TypePolyPtr   ValueType = 30
	TypeLink      ValueType = 40
	TypeBitfield  ValueType = 50
	TypeArray     ValueType = 60
	TypeStructure ValueType = 70
)

// String names the tag for diagnostics.
func (t ValueType) String() string {
	switch t {
	case TypeInvalid:
		return "Invalid"
	case TypeInt32:
		return "Int32"
	case TypeUInt32:
		return "UInt32"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	case TypeVec3:
		return "Vec3"
	case TypeVec2:
		return "Vec2"
	case TypeMat4:
		return "Mat4"
	case TypeAString:
		return "AString"
	case TypeUInt64:
		return "UInt64"
	case TypeVec4:
		return "Vec4"
	case TypeUString:
		return "UString"
	case TypePolyPtr:
		return "PolyPtr"
	case TypeLink:
		return "Link"
	case TypeBitfield:
		return "Bitfield"
	case TypeArray:
		return "Array"
	case TypeStructure:
		return "Structure"
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// Value is one decoded property value; the concrete type matches the
// wire tag.
type Value interface {
	ValueType() ValueType
}

type (
	Int32   int32
	UInt32  uint32
	Float   float32
	Bool    bool
	UInt64  uint64
	Vec2    [2]float32
	Vec3    [3]float32
	Vec4    [4]float32
	Mat4    [16]float32
	AString string
	UString string
)

func (Int32) ValueType() ValueType   { return TypeInt32 }
func (UInt32) ValueType() ValueType  { return TypeUInt32 }
func (Float) ValueType() ValueType   { return TypeFloat }
func (Bool) ValueType() ValueType    { return TypeBool }
func (UInt64) ValueType() ValueType  { return TypeUInt64 }
func (Vec2) ValueType() ValueType    { return TypeVec2 }
func (Vec3) ValueType() ValueType    { return TypeVec3 }
func (Vec4) ValueType() ValueType    { return TypeVec4 }
func (Mat4) ValueType() ValueType    { return TypeMat4 }
func (AString) ValueType() ValueType { return TypeAString }
func (UString) ValueType() ValueType { return TypeUString }

// Bitfield is a masked flag set. The runtime value is
// (Flags & Mask) | (default & ^Mask), where the default lives in the
// game's constructors, not in the file.
type Bitfield struct {
	Mask  uint32
	Flags uint32
}

func (Bitfield) ValueType() ValueType { return TypeBitfield }

// PolyPtr is a polymorphic object reference; Object is nil when the
// stored definition hash is 0.
type PolyPtr struct {
	Object *Object
}

func (PolyPtr) ValueType() ValueType { return TypePolyPtr }

// InvalidLinkID is the on-wire id of a null link.
const InvalidLinkID = 0xFFFF

// Link refers to another object through the file's trailing link table.
// A null link is a Link whose ID is InvalidLinkID (0xFFFF on the wire);
// it has no ScopedNameHashes. For other links ScopedNameHashes is
// resolved only after the whole collection tree has been read.
type Link struct {
	ID               uint16
	ScopedNameHashes []uint32
}

func (*Link) ValueType() ValueType { return TypeLink }

// Array is a homogeneous sequence; elements carry no name hashes.
type Array struct {
	ElementType ValueType
	Elements    []Value
}

func (Array) ValueType() ValueType { return TypeArray }

// Structure is an inline object value.
type Structure struct {
	Object *Object
}

func (Structure) ValueType() ValueType { return TypeStructure }

// Property is one named value of an object.
type Property struct {
	NameHash uint32
	Value    Value
}

// Object is a node of the attribute tree. Collection objects carry
// nested child objects.
type Object struct {
	DefinitionHash uint32
	Name           string
	Properties     []Property
	IsCollection   bool
	Objects        []Object
}

// Property returns the first property with the given name hash.
func (o *Object) Property(nameHash uint32) (Property, bool) {
	for _, p := range o.Properties {
		if p.NameHash == nameHash {
			return p, true
		}
	}
	return Property{}, false
}

// Child returns the first child object with the given name.
func (o *Object) Child(name string) (*Object, bool) {
	for i := range o.Objects {
		if o.Objects[i].Name == name {
			return &o.Objects[i], true
		}
	}
	return nil, false
}

// Tree is a parsed attribute file: the synthetic root collection plus
// the uninterpreted version byte from the header.
type Tree struct {
	Root    Object
	Version uint8
}
