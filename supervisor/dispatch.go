package supervisor

import "github.com/webots/supervisor/wire"

// BaseHandler is delegated the frame reader when the dispatcher
// encounters a reply tag it does not recognize as a supervisor update.
// The reader position is rewound by one byte first so the tag itself is
// still visible to the base handler, mirroring how the real controller
// falls through to its generic message pump for anything the supervisor
// extension doesn't own.
type BaseHandler interface {
	HandleUnknownReply(tag wire.Reader) error
}

// DispatchForReplay feeds a previously recorded reply frame through the
// same dispatch path Engine.Flush uses, without requiring a live
// Transport. This is what internal/journal-backed replay tooling drives
// an Engine's registries with offline.
func DispatchForReplay(e *Engine, r *wire.Reader) error {
	return e.dispatchReplies(r, nil)
}

// dispatchReplies walks every reply frame the simulator sent back for
// the step just flushed, updating the node/field registries in place.
// Unrecognized tags are handed to base for default-message handling
// after rewinding one byte.
func (e *Engine) dispatchReplies(r *wire.Reader, base BaseHandler) error {
	for r.Remaining() > 0 {
		tag := Opcode(r.ReadUint8())
		if r.Err() != nil {
			return r.Err()
		}
		switch tag {
		case ReplyNodeDef:
			e.applyNodeDef(r)
		case ReplyNodeValue:
			e.applyNodeValue(r)
		case ReplyFieldValue:
			e.applyFieldValue(r)
		case ReplyFieldCount:
			e.applyFieldCount(r)
		case ReplyNodeRegenerated:
			e.applyNodeRegenerated(r)
		case ReplyNodeRemoved:
			e.applyNodeRemoved(r)
		case ReplyContactPoints:
			e.applyContactPoints(r)
		case ReplyConfigure:
			e.applyConfigure(r)
		default:
			if base == nil {
				return r.Err()
			}
			rewound := wire.NewReader(append([]byte{uint8(tag)}, r.Rest()...))
			if err := base.HandleUnknownReply(*rewound); err != nil {
				return err
			}
			return nil
		}
		if r.Err() != nil {
			return r.Err()
		}
	}
	return nil
}

func (e *Engine) applyNodeDef(r *wire.Reader) {
	id := r.ReadInt32()
	typ := NodeType(r.ReadInt32())
	model := r.ReadCString()
	def := r.ReadCString()
	parent := r.ReadInt32()
	tag := r.ReadInt32()
	isProto := r.ReadBool()
	isProtoInternal := r.ReadBool()
	parentProto := r.ReadInt32()

	n := &Node{
		ID: id, Type: typ, ModelName: model, DefName: def,
		ParentID: parent, Tag: tag, IsProto: isProto,
		IsProtoInternal: isProtoInternal, ParentProto: parentProto,
	}
	e.nodes.upsert(n)
}

func (e *Engine) applyNodeValue(r *wire.Reader) {
	id := r.ReadInt32()
	kind := r.ReadUint8()
	// The payload width is determined by kind alone, so it must be read
	// (and the reader position advanced past it) even when the node is
	// no longer known locally, or every reply after this one in the
	// frame would be misaligned.
	switch kind {
	case 0: // position
		v := [3]float64(r.ReadFloat64Slice(3))
		if n := e.nodes.findByID(id); n != nil {
			n.Cached.Position = v
		}
	case 1: // orientation
		v := [9]float64(r.ReadFloat64Slice(9))
		if n := e.nodes.findByID(id); n != nil {
			n.Cached.Orientation = v
		}
	case 2: // velocity
		v := [6]float64(r.ReadFloat64Slice(6))
		if n := e.nodes.findByID(id); n != nil {
			n.Cached.Velocity = v
		}
	case 3: // center of mass
		v := [3]float64(r.ReadFloat64Slice(3))
		if n := e.nodes.findByID(id); n != nil {
			n.Cached.CenterOfMass = v
		}
	case 4: // static balance
		v := r.ReadBool()
		if n := e.nodes.findByID(id); n != nil {
			n.Cached.StaticBalance = v
		}
	}
}

func (e *Engine) applyFieldValue(r *wire.Reader) {
	nodeID := r.ReadInt32()
	fieldID := r.ReadInt32()
	name := r.ReadCString()
	typ := FieldType(r.ReadUint8())
	isProtoInternal := r.ReadBool()
	value := readFieldValue(r, typ)

	f := e.fields.find(nodeID, fieldID)
	if f == nil {
		f = &Field{NodeID: nodeID, ID: fieldID}
		e.fields.upsert(f)
	}
	f.Name = name
	f.Type = typ
	f.IsProtoInternal = isProtoInternal
	f.Data = value
	f.Count = int32(value.Count())
}

func (e *Engine) applyFieldCount(r *wire.Reader) {
	nodeID := r.ReadInt32()
	fieldID := r.ReadInt32()
	count := r.ReadInt32()
	if f := e.fields.find(nodeID, fieldID); f != nil {
		f.Count = count
	}
}

func (e *Engine) applyNodeRegenerated(r *wire.Reader) {
	protoID := r.ReadInt32()
	// Collect the proto-internal node ids *before* purging them from the
	// node registry: fieldRegistry.purgeProtoInternal needs the set of
	// nodes that just disappeared to know which fields to drop with
	// them, and that set cannot be reconstructed afterward.
	nodeIDs := make(map[int32]bool)
	for id, n := range e.nodes.byID {
		if n.IsProtoInternal && n.ParentProto == protoID {
			nodeIDs[id] = true
		}
	}
	e.nodes.purgeProtoInternal(protoID)
	e.fields.purgeProtoInternal(nodeIDs)
}

func (e *Engine) applyNodeRemoved(r *wire.Reader) {
	id := r.ReadInt32()
	e.nodes.remove(id)
	e.fields.removeForNode(id)
}

func (e *Engine) applyContactPoints(r *wire.Reader) {
	nodeID := r.ReadInt32()
	simTime := r.ReadFloat64()
	count := int(r.ReadInt32())
	points := make([]ContactPoint, count)
	for i := range points {
		points[i].Position = [3]float64(r.ReadFloat64Slice(3))
		points[i].NodeID = r.ReadInt32()
		points[i].ODEName = r.ReadCString()
	}
	if n := e.nodes.findByID(nodeID); n != nil {
		n.Cached.ContactPoints = points
		n.Cached.CapturedAtTime = simTime
		n.Cached.captured = true
	}
}

func (e *Engine) applyConfigure(r *wire.Reader) {
	e.simulationMode = r.ReadInt32()
}

func readFieldValue(r *wire.Reader, typ FieldType) FieldValue {
	v := FieldValue{Type: typ}
	if !typ.IsMF() {
		readSFInto(r, typ, &v)
		return v
	}
	count := int(r.ReadInt32())
	base := typ.Base()
	switch typ {
	case MFBool:
		v.Bools = make([]bool, count)
		for i := range v.Bools {
			v.Bools[i] = r.ReadBool()
		}
	case MFInt32:
		v.Int32s = make([]int32, count)
		for i := range v.Int32s {
			v.Int32s[i] = r.ReadInt32()
		}
	case MFFloat:
		v.Floats = r.ReadFloat64Slice(count)
	case MFVec2f:
		v.Vec2fs = make([][2]float64, count)
		for i := range v.Vec2fs {
			v.Vec2fs[i] = [2]float64(r.ReadFloat64Slice(2))
		}
	case MFVec3f:
		v.Vec3fs = make([][3]float64, count)
		for i := range v.Vec3fs {
			v.Vec3fs[i] = [3]float64(r.ReadFloat64Slice(3))
		}
	case MFRotation:
		v.Rotations = make([][4]float64, count)
		for i := range v.Rotations {
			v.Rotations[i] = [4]float64(r.ReadFloat64Slice(4))
		}
	case MFColor:
		v.Colors = make([][3]float64, count)
		for i := range v.Colors {
			v.Colors[i] = [3]float64(r.ReadFloat64Slice(3))
		}
	case MFString:
		v.Strs = make([]string, count)
		for i := range v.Strs {
			v.Strs[i] = r.ReadCString()
		}
	case MFNode:
		v.NodeIDs = make([]int32, count)
		for i := range v.NodeIDs {
			v.NodeIDs[i] = r.ReadInt32()
		}
	default:
		_ = base
	}
	return v
}

func readSFInto(r *wire.Reader, typ FieldType, v *FieldValue) {
	switch typ {
	case SFBool:
		v.Bool = r.ReadBool()
	case SFInt32:
		v.Int32 = r.ReadInt32()
	case SFFloat:
		v.Float = r.ReadFloat64()
	case SFVec2f:
		v.Vec2f = [2]float64(r.ReadFloat64Slice(2))
	case SFVec3f:
		v.Vec3f = [3]float64(r.ReadFloat64Slice(3))
	case SFRotation:
		v.Rotation = [4]float64(r.ReadFloat64Slice(4))
	case SFColor:
		v.Color = [3]float64(r.ReadFloat64Slice(3))
	case SFString:
		v.Str = r.ReadCString()
	case SFNode:
		v.NodeID = r.ReadInt32()
	}
}
