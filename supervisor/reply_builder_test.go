package supervisor

import "github.com/webots/supervisor/wire"

// replyBuilder assembles a synthetic simulator reply frame for a single
// step, used by engine tests to script what the "simulator" sends back
// without a real transport.
type replyBuilder struct {
	w *wire.Writer
}

func newReply() *replyBuilder {
	return &replyBuilder{w: wire.NewWriter(256)}
}

func (b *replyBuilder) bytes() []byte { return b.w.Bytes() }

func (b *replyBuilder) nodeDef(id int32, typ NodeType, model, def string, parent, tag int32, isProto, isProtoInternal bool, parentProto int32) *replyBuilder {
	b.w.WriteUint8(uint8(ReplyNodeDef))
	b.w.WriteInt32(id)
	b.w.WriteInt32(int32(typ))
	b.w.WriteCString(model)
	b.w.WriteCString(def)
	b.w.WriteInt32(parent)
	b.w.WriteInt32(tag)
	b.w.WriteBool(isProto)
	b.w.WriteBool(isProtoInternal)
	b.w.WriteInt32(parentProto)
	return b
}

func (b *replyBuilder) fieldValueSFFloat(nodeID, fieldID int32, name string, v float64) *replyBuilder {
	return b.fieldValueSFFloatInternal(nodeID, fieldID, name, v, false)
}

func (b *replyBuilder) fieldValueSFFloatInternal(nodeID, fieldID int32, name string, v float64, isProtoInternal bool) *replyBuilder {
	b.w.WriteUint8(uint8(ReplyFieldValue))
	b.w.WriteInt32(nodeID)
	b.w.WriteInt32(fieldID)
	b.w.WriteCString(name)
	b.w.WriteUint8(uint8(SFFloat))
	b.w.WriteBool(isProtoInternal)
	b.w.WriteFloat64(v)
	return b
}

func (b *replyBuilder) fieldValueMFFloat(nodeID, fieldID int32, name string, vs []float64) *replyBuilder {
	b.w.WriteUint8(uint8(ReplyFieldValue))
	b.w.WriteInt32(nodeID)
	b.w.WriteInt32(fieldID)
	b.w.WriteCString(name)
	b.w.WriteUint8(uint8(MFFloat))
	b.w.WriteBool(false)
	b.w.WriteInt32(int32(len(vs)))
	b.w.WriteFloat64Slice(vs)
	return b
}

// nodeValue builds a NODE_GET_* scalar-attribute reply. kind follows
// applyNodeValue's own discriminant: 0 position (3f64), 1 orientation
// (9f64), 2 velocity (6f64), 3 center of mass (3f64), 4 static balance
// (1 bool).
func (b *replyBuilder) nodeValue(id int32, kind uint8, f64s []float64, balance bool) *replyBuilder {
	b.w.WriteUint8(uint8(ReplyNodeValue))
	b.w.WriteInt32(id)
	b.w.WriteUint8(kind)
	if kind == 4 {
		b.w.WriteBool(balance)
		return b
	}
	b.w.WriteFloat64Slice(f64s)
	return b
}

func (b *replyBuilder) fieldCount(nodeID, fieldID, count int32) *replyBuilder {
	b.w.WriteUint8(uint8(ReplyFieldCount))
	b.w.WriteInt32(nodeID)
	b.w.WriteInt32(fieldID)
	b.w.WriteInt32(count)
	return b
}

func (b *replyBuilder) nodeRemoved(id int32) *replyBuilder {
	b.w.WriteUint8(uint8(ReplyNodeRemoved))
	b.w.WriteInt32(id)
	return b
}

func (b *replyBuilder) nodeRegenerated(protoID int32) *replyBuilder {
	b.w.WriteUint8(uint8(ReplyNodeRegenerated))
	b.w.WriteInt32(protoID)
	return b
}

func (b *replyBuilder) contactPoints(nodeID int32, simTime float64, points []ContactPoint) *replyBuilder {
	b.w.WriteUint8(uint8(ReplyContactPoints))
	b.w.WriteInt32(nodeID)
	b.w.WriteFloat64(simTime)
	b.w.WriteInt32(int32(len(points)))
	for _, p := range points {
		b.w.WriteFloat64Slice(p.Position[:])
		b.w.WriteInt32(p.NodeID)
		b.w.WriteCString(p.ODEName)
	}
	return b
}

func (b *replyBuilder) configure(mode int32) *replyBuilder {
	b.w.WriteUint8(uint8(ReplyConfigure))
	b.w.WriteInt32(mode)
	return b
}
