package supervisor

import (
	"context"
	"sync"

	"github.com/webots/supervisor/wire"
)

// fakeTransport is the in-memory Transport test double grounded on the
// same seam transport/tcp.Conn fills for a real simulator connection. It
// records the exact bytes written for each step and plays back a queued
// reply frame, letting tests assert on the serialized opcode order
// without a socket.
type fakeTransport struct {
	mu     sync.Mutex
	writer *wire.Writer

	// replies is consumed one frame per Flush call; once exhausted, Flush
	// returns an empty reply frame.
	replies [][]byte

	// frames records the raw bytes sent on every Flush call, in order.
	frames [][]byte

	flushErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{writer: wire.NewWriter(256)}
}

func (f *fakeTransport) Lock()   { f.mu.Lock() }
func (f *fakeTransport) Unlock() { f.mu.Unlock() }

func (f *fakeTransport) Writer() *wire.Writer { return f.writer }

func (f *fakeTransport) queueReply(frame []byte) {
	f.replies = append(f.replies, frame)
}

func (f *fakeTransport) Flush(ctx context.Context) (*wire.Reader, error) {
	if f.flushErr != nil {
		return nil, f.flushErr
	}
	sent := append([]byte(nil), f.writer.Bytes()...)
	f.frames = append(f.frames, sent)
	f.writer.Reset()

	var reply []byte
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return wire.NewReader(reply), nil
}

// lastFrame returns the bytes sent on the most recent Flush, or nil if
// Flush has never been called.
func (f *fakeTransport) lastFrame() []byte {
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

// decodeFrame parses a request frame the same way the simulator would,
// returning the opcodes it contains in emission order. It mirrors
// serializer.go's write side exactly so tests can assert on the fixed
// emission order without reimplementing the wire format loosely.
func decodeFrame(data []byte) []Opcode {
	r := wire.NewReader(data)
	var ops []Opcode
	for r.Remaining() > 0 {
		op := Opcode(r.ReadUint8())
		if r.Err() != nil {
			return ops
		}
		ops = append(ops, op)
		switch op {
		case OpSimulationReset, OpSimulationQuit, OpAnimationStopRecording, OpMovieStopRecording:
		case OpSimulationSetMode:
			r.ReadInt32()
		case OpWorldLoad, OpWorldSave, OpAnimationStartRecording:
			r.ReadCString()
		case OpExportImage:
			r.ReadCString()
			r.ReadInt32()
		case OpMovieStartRecording:
			r.ReadCString()
			r.ReadInt32()
			r.ReadInt32()
			r.ReadInt32()
			r.ReadInt32()
		case OpSetLabel:
			r.ReadInt32()
			r.ReadCString()
			r.ReadFloat64()
			r.ReadFloat64()
			r.ReadFloat64()
			r.ReadFloat64Slice(3)
			r.ReadFloat64()
			r.ReadCString()
		case OpVirtualRealityHeadsetPosition:
			r.ReadFloat64Slice(3)
			r.ReadFloat64Slice(9)
			r.ReadFloat64Slice(3)
			r.ReadFloat64Slice(3)
		case OpNodeGetFromDef:
			r.ReadCString()
		case OpNodeGetFromID, OpNodeGetFromTag:
			r.ReadInt32()
		case OpFieldGetFromName:
			r.ReadInt32()
			r.ReadCString()
		case OpNodeGetPosition, OpNodeGetOrientation, OpNodeGetVelocity,
			OpNodeGetCenterOfMass, OpNodeGetStaticBalance,
			OpNodeResetPhysics, OpNodeRestartController, OpNodeGetContactPoints,
			OpNodeRemoveNode:
			r.ReadInt32()
		case OpNodeSetVelocity:
			r.ReadInt32()
			r.ReadFloat64Slice(6)
		case OpNodeSetVisibility:
			r.ReadInt32()
			r.ReadBool()
			r.ReadInt32()
		case OpNodeMoveViewpoint:
			r.ReadInt32()
			r.ReadFloat64Slice(3)
			r.ReadFloat64Slice(9)
		case OpNodeAddForce:
			r.ReadInt32()
			r.ReadFloat64Slice(3)
			r.ReadBool()
		case OpNodeAddForceWithOffset:
			r.ReadInt32()
			r.ReadFloat64Slice(3)
			r.ReadFloat64Slice(3)
			r.ReadBool()
		case OpNodeAddTorque:
			r.ReadInt32()
			r.ReadFloat64Slice(3)
			r.ReadBool()
		case OpFieldGetValue:
			r.ReadInt32()
			r.ReadInt32()
		case OpFieldSetValue:
			r.ReadInt32()
			r.ReadInt32()
			r.ReadInt32()
			decodeFieldValue(r)
		case OpFieldImportNodeFromString, OpFieldImportNode:
			r.ReadInt32()
			r.ReadInt32()
			r.ReadInt32()
			r.ReadCString()
		case OpFieldInsertValue:
			r.ReadInt32()
			r.ReadInt32()
			r.ReadInt32()
			decodeFieldValue(r)
		case OpFieldRemoveValue:
			r.ReadInt32()
			r.ReadInt32()
			r.ReadInt32()
		default:
			return ops
		}
		if r.Err() != nil {
			return ops
		}
	}
	return ops
}

func decodeFieldValue(r *wire.Reader) {
	typ := FieldType(r.ReadUint8())
	switch typ {
	case SFBool:
		r.ReadBool()
	case SFInt32:
		r.ReadInt32()
	case SFFloat:
		r.ReadFloat64()
	case SFVec2f:
		r.ReadFloat64Slice(2)
	case SFVec3f:
		r.ReadFloat64Slice(3)
	case SFRotation:
		r.ReadFloat64Slice(4)
	case SFColor:
		r.ReadFloat64Slice(3)
	case SFString:
		r.ReadCString()
	case SFNode:
		r.ReadInt32()
	}
}

func countOpcode(ops []Opcode, want Opcode) int {
	n := 0
	for _, op := range ops {
		if op == want {
			n++
		}
	}
	return n
}
