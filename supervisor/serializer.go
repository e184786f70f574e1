package supervisor

import "github.com/webots/supervisor/wire"

// serialize writes one step's outgoing frame in the fixed emission order
// spec.md §4.5 requires:
//
//  1. the mutually-exclusive step-global command, if any
//  2. handle-resolution requests
//  3. the per-field operations queue, with its single GET special-cased
//  4. labels
//  5. node-targeted operations, in nodeCommandOrder
//  6. movie/export/animation/world-save commands
//  7. the VR headset pose report
//
// The order is significant: later slots may reference ids the handle
// requests resolve, and within one node a velocity read is emitted
// before a same-step reset-physics.
func (e *Engine) serialize(w *wire.Writer, slots *commandSlots, sets []*pendingRequest, get *pendingRequest) {
	writeExclusive(w, slots.exclusive)
	writeHandleRequests(w, slots.handles)
	writeOpsQueue(w, sets, get)
	writeLabels(w, slots.labels)
	writeNodeOps(w, slots.orderedNodeOps())
	writeMisc(w, slots.misc)
	writeVRHeadset(w, slots.vrHeadset)
}

func writeExclusive(w *wire.Writer, cmd *exclusiveCommand) {
	if cmd == nil {
		return
	}
	w.WriteUint8(uint8(cmd.opcode))
	switch cmd.opcode {
	case OpWorldLoad:
		w.WriteCString(cmd.world)
	case OpSimulationSetMode:
		w.WriteInt32(cmd.mode)
	}
}

func writeHandleRequests(w *wire.Writer, reqs []*handleRequest) {
	for _, h := range reqs {
		w.WriteUint8(uint8(h.opcode))
		switch h.opcode {
		case OpNodeGetFromDef:
			w.WriteCString(h.defName)
		case OpNodeGetFromID:
			w.WriteInt32(h.id)
		case OpNodeGetFromTag:
			w.WriteInt32(h.tag)
		case OpFieldGetFromName:
			w.WriteInt32(h.ownerNodeID)
			w.WriteCString(h.fieldName)
		}
	}
}

func writeOpsQueue(w *wire.Writer, sets []*pendingRequest, get *pendingRequest) {
	for _, p := range sets {
		writePendingRequest(w, p)
	}
	// The single in-flight GET, if any, is always emitted last within
	// this slot: it must observe every SET queued ahead of it this step.
	if get != nil {
		w.WriteUint8(uint8(OpFieldGetValue))
		w.WriteInt32(get.nodeID)
		w.WriteInt32(get.fieldID)
	}
}

func writePendingRequest(w *wire.Writer, p *pendingRequest) {
	switch p.kind {
	case requestSet:
		w.WriteUint8(uint8(OpFieldSetValue))
		w.WriteInt32(p.nodeID)
		w.WriteInt32(p.fieldID)
		w.WriteInt32(p.index)
		writeFieldValue(w, p.value)
	case requestInsert:
		w.WriteUint8(uint8(OpFieldInsertValue))
		w.WriteInt32(p.nodeID)
		w.WriteInt32(p.fieldID)
		w.WriteInt32(p.index)
		writeFieldValue(w, p.value)
	case requestImportFromString:
		w.WriteUint8(uint8(OpFieldImportNodeFromString))
		w.WriteInt32(p.nodeID)
		w.WriteInt32(p.fieldID)
		w.WriteInt32(p.index)
		w.WriteCString(p.value.Str)
	case requestImport:
		w.WriteUint8(uint8(OpFieldImportNode))
		w.WriteInt32(p.nodeID)
		w.WriteInt32(p.fieldID)
		w.WriteInt32(p.index)
		w.WriteCString(p.value.Str)
	case requestRemove:
		w.WriteUint8(uint8(OpFieldRemoveValue))
		w.WriteInt32(p.nodeID)
		w.WriteInt32(p.fieldID)
		w.WriteInt32(p.index)
	}
}

func writeFieldValue(w *wire.Writer, v FieldValue) {
	w.WriteUint8(uint8(v.Type))
	switch v.Type {
	case SFBool:
		w.WriteBool(v.Bool)
	case SFInt32:
		w.WriteInt32(v.Int32)
	case SFFloat:
		w.WriteFloat64(v.Float)
	case SFVec2f:
		w.WriteFloat64Slice(v.Vec2f[:])
	case SFVec3f:
		w.WriteFloat64Slice(v.Vec3f[:])
	case SFRotation:
		w.WriteFloat64Slice(v.Rotation[:])
	case SFColor:
		w.WriteFloat64Slice(v.Color[:])
	case SFString:
		w.WriteCString(v.Str)
	case SFNode:
		w.WriteInt32(v.NodeID)
	}
}

func writeLabels(w *wire.Writer, labels map[int32]*labelCommand) {
	for _, l := range labels {
		w.WriteUint8(uint8(OpSetLabel))
		w.WriteInt32(l.ID)
		w.WriteCString(l.Text)
		w.WriteFloat64(l.X)
		w.WriteFloat64(l.Y)
		w.WriteFloat64(l.Size)
		w.WriteFloat64Slice(l.Color[:])
		w.WriteFloat64(l.Transparency)
		w.WriteCString(l.FontName)
	}
}

func writeNodeOps(w *wire.Writer, ops []*nodeCommand) {
	for _, n := range ops {
		w.WriteUint8(uint8(n.opcode))
		w.WriteInt32(n.nodeID)
		switch n.opcode {
		case OpNodeSetVelocity:
			w.WriteFloat64Slice(n.velocity[:])
		case OpNodeSetVisibility:
			w.WriteBool(n.visible)
			w.WriteInt32(n.visibleFrom)
		case OpNodeMoveViewpoint:
			w.WriteFloat64Slice(n.viewpoint[:])
			w.WriteFloat64Slice(n.viewOrient[:])
		case OpNodeAddForce:
			w.WriteFloat64Slice(n.force[:])
			w.WriteBool(n.relative)
		case OpNodeAddForceWithOffset:
			w.WriteFloat64Slice(n.force[:])
			w.WriteFloat64Slice(n.offset[:])
			w.WriteBool(n.relative)
		case OpNodeAddTorque:
			w.WriteFloat64Slice(n.torque[:])
			w.WriteBool(n.relative)
		}
	}
}

func writeMisc(w *wire.Writer, cmds []*miscCommand) {
	for _, m := range cmds {
		w.WriteUint8(uint8(m.opcode))
		switch m.opcode {
		case OpExportImage:
			w.WriteCString(m.path)
			w.WriteInt32(m.quality)
		case OpMovieStartRecording:
			w.WriteCString(m.path)
			w.WriteInt32(m.width)
			w.WriteInt32(m.height)
			w.WriteInt32(m.codec)
			w.WriteInt32(m.quality)
		case OpMovieStopRecording, OpAnimationStopRecording:
			// no payload
		case OpAnimationStartRecording:
			w.WriteCString(m.path)
		case OpWorldSave:
			w.WriteCString(m.path)
		}
	}
}

func writeVRHeadset(w *wire.Writer, v *vrHeadsetCommand) {
	if v == nil {
		return
	}
	w.WriteUint8(uint8(OpVirtualRealityHeadsetPosition))
	w.WriteFloat64Slice(v.Position[:])
	w.WriteFloat64Slice(v.Orientation[:])
	w.WriteFloat64Slice(v.LeftEyePosition[:])
	w.WriteFloat64Slice(v.RightEyePosition[:])
}
