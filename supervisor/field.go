package supervisor

import "fmt"

// FieldType identifies the VRML/PROTO field kind a Field carries. There
// are nine base (single-value, "SF") kinds; setting bit 0x10 turns any
// of them into the corresponding multi-value ("MF") kind, for eighteen
// kinds in total.
type FieldType uint8

const mfBit FieldType = 0x10

const (
	SFBool FieldType = iota
	SFInt32
	SFFloat
	SFVec2f
	SFVec3f
	SFRotation
	SFColor
	SFString
	SFNode
)

const (
	MFBool     = SFBool | mfBit
	MFInt32    = SFInt32 | mfBit
	MFFloat    = SFFloat | mfBit
	MFVec2f    = SFVec2f | mfBit
	MFVec3f    = SFVec3f | mfBit
	MFRotation = SFRotation | mfBit
	MFColor    = SFColor | mfBit
	MFString   = SFString | mfBit
	MFNode     = SFNode | mfBit
)

// IsMF reports whether t is a multi-value field type.
func (t FieldType) IsMF() bool { return t&mfBit != 0 }

// Base returns the single-value type underlying an MF type (a no-op for
// SF types).
func (t FieldType) Base() FieldType { return t &^ mfBit }

func (t FieldType) String() string {
	names := [...]string{"SFBool", "SFInt32", "SFFloat", "SFVec2f", "SFVec3f", "SFRotation", "SFColor", "SFString", "SFNode"}
	base := t.Base()
	if int(base) >= len(names) {
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
	if t.IsMF() {
		return "MF" + names[base][2:]
	}
	return names[base]
}

// FieldValue is a tagged union carrying exactly one of a field's
// possible value shapes, discriminated by Type. This stands in for the
// original's raw union by making the active member explicit and
// type-checked at construction time instead of by convention.
type FieldValue struct {
	Type FieldType

	Bool     bool
	Int32    int32
	Float    float64
	Vec2f    [2]float64
	Vec3f    [3]float64
	Rotation [4]float64
	Color    [3]float64
	Str      string
	NodeID   int32

	// MF variants. Exactly one of these is populated when Type.IsMF().
	Bools     []bool
	Int32s    []int32
	Floats    []float64
	Vec2fs    [][2]float64
	Vec3fs    [][3]float64
	Rotations [][4]float64
	Colors    [][3]float64
	Strs      []string
	NodeIDs   []int32
}

// Count returns the number of elements an MF value holds (1 for SF
// values, by convention, so callers can treat both uniformly for index
// bounds checks).
func (v FieldValue) Count() int {
	switch v.Type {
	case MFBool:
		return len(v.Bools)
	case MFInt32:
		return len(v.Int32s)
	case MFFloat:
		return len(v.Floats)
	case MFVec2f:
		return len(v.Vec2fs)
	case MFVec3f:
		return len(v.Vec3fs)
	case MFRotation:
		return len(v.Rotations)
	case MFColor:
		return len(v.Colors)
	case MFString:
		return len(v.Strs)
	case MFNode:
		return len(v.NodeIDs)
	default:
		return 1
	}
}

// Field mirrors one VRML field of a mirrored Node.
type Field struct {
	Name string
	NodeID int32
	ID     int32
	Type   FieldType
	Count  int32

	IsProtoInternal bool

	Data FieldValue
}

// fieldKey identifies a field uniquely within the engine: fields are
// scoped to their owning node, so (nodeID, fieldID) is the natural key
// (name lookups resolve to this key first).
type fieldKey struct {
	nodeID int32
	fieldID int32
}

// fieldRegistry mirrors fields the same way nodeRegistry mirrors nodes.
type fieldRegistry struct {
	byKey map[fieldKey]*Field
}

func newFieldRegistry() *fieldRegistry {
	return &fieldRegistry{byKey: make(map[fieldKey]*Field)}
}

func (r *fieldRegistry) find(nodeID, fieldID int32) *Field {
	return r.byKey[fieldKey{nodeID, fieldID}]
}

// findByName returns the field of nodeID named name, or nil. Field ids
// are assigned by the simulator on first reference (FIELD_GET_FROM_NAME)
// and are then stable, so this is a linear scan over the node's known
// fields rather than a secondary index.
func (r *fieldRegistry) findByName(nodeID int32, name string) *Field {
	for k, f := range r.byKey {
		if k.nodeID == nodeID && f.Name == name {
			return f
		}
	}
	return nil
}

func (r *fieldRegistry) upsert(f *Field) {
	r.byKey[fieldKey{f.NodeID, f.ID}] = f
}

func (r *fieldRegistry) removeForNode(nodeID int32) {
	for k := range r.byKey {
		if k.nodeID == nodeID {
			delete(r.byKey, k)
		}
	}
}

// purgeProtoInternal drops every field belonging to a node flagged
// IsProtoInternal among nodeIDs, mirroring nodeRegistry.purgeProtoInternal.
func (r *fieldRegistry) purgeProtoInternal(nodeIDs map[int32]bool) {
	for k, f := range r.byKey {
		if f.IsProtoInternal && nodeIDs[k.nodeID] {
			delete(r.byKey, k)
		}
	}
}
