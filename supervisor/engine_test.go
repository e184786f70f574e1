package supervisor

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() (*Engine, *fakeTransport) {
	ft := newFakeTransport()
	return NewEngine(ft, nil), ft
}

func asValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected a *ValidationError, got %v", err)
	return ve
}

// --- S1: handle caching — exactly one NODE_GET_FROM_DEF reaches the wire.

func TestNodeFromDefCachesAfterResolution(t *testing.T) {
	e, ft := newTestEngine()

	_, err := e.NodeFromDef("ROBOT1")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	ft.queueReply(newReply().
		nodeDef(5, NodeTypeRobot, "Robot", "ROBOT1", 0, 1, false, false, -1).
		bytes())
	require.NoError(t, e.Flush(context.Background(), nil))

	ops := decodeFrame(ft.lastFrame())
	assert.Equal(t, 1, countOpcode(ops, OpNodeGetFromDef))

	n, err := e.NodeFromDef("ROBOT1")
	require.NoError(t, err)
	assert.Equal(t, int32(5), n.ID)

	// A second flush with nothing new queued must not re-request the
	// handle: the cache satisfies every subsequent lookup.
	ft.queueReply(nil)
	require.NoError(t, e.Flush(context.Background(), nil))
	assert.Equal(t, 0, countOpcode(decodeFrame(ft.lastFrame()), OpNodeGetFromDef))
}

// --- S2: write-then-read coalescing produces zero wire traffic for the read.

func TestFieldValueReadYourWrites(t *testing.T) {
	e, _ := newTestEngine()
	f := &Field{NodeID: 5, ID: 1, Type: SFFloat, Data: FieldValue{Type: SFFloat, Float: 1.0}}
	e.fields.upsert(f)

	require.NoError(t, e.SetSFFloat(f, 42.5))

	// FieldValue must observe the queued write without requesting a GET.
	v := e.FieldValue(f, -1)
	assert.Equal(t, 42.5, v.Float)
	assert.False(t, e.queue.hasGetInFlight(), "a cached read must not register a GET")
}

// --- S3: rotation axis validation.

func TestSetSFRotationRejectsZeroAxis(t *testing.T) {
	e, _ := newTestEngine()
	f := &Field{NodeID: 5, ID: 2, Type: SFRotation}
	e.fields.upsert(f)

	err := e.SetSFRotation(f, [4]float64{0, 0, 0, 1.57})
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationZeroAxis, ve.Kind)
}

func TestSetSFRotationAcceptsNonZeroAxis(t *testing.T) {
	e, _ := newTestEngine()
	f := &Field{NodeID: 5, ID: 2, Type: SFRotation}
	e.fields.upsert(f)

	require.NoError(t, e.SetSFRotation(f, [4]float64{0, 1, 0, 1.57}))
}

// --- S4: node removal drops the registry entry and refreshes children's parent link.

func TestRemoveNodeDropsEntryAndRefreshesChildren(t *testing.T) {
	e, ft := newTestEngine()
	parent := &Node{ID: 1, ParentID: 0}
	child := &Node{ID: 2, ParentID: 1}
	grandchild := &Node{ID: 3, ParentID: 2}
	e.nodes.upsert(parent)
	e.nodes.upsert(child)
	e.nodes.upsert(grandchild)

	e.RemoveNode(child)

	ft.queueReply(newReply().nodeRemoved(2).bytes())
	require.NoError(t, e.Flush(context.Background(), nil))

	assert.Nil(t, e.nodes.findByID(2))
	_, err := e.NodeFromID(2)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	gc := e.nodes.findByID(3)
	require.NotNil(t, gc)
	assert.Equal(t, int32(-1), gc.ParentID, "grandchild must be reparented away from the removed node")
}

// --- S5: NODE_REGENERATED purges the PROTO's internal subtree, fields included.

func TestNodeRegeneratedPurgesProtoInternalSubtree(t *testing.T) {
	e, ft := newTestEngine()
	proto := &Node{ID: 10, IsProto: true}
	internal := &Node{ID: 11, IsProtoInternal: true, ParentProto: 10}
	unrelated := &Node{ID: 12}
	e.nodes.upsert(proto)
	e.nodes.upsert(internal)
	e.nodes.upsert(unrelated)

	internalField := &Field{NodeID: 11, ID: 1, IsProtoInternal: true}
	externalField := &Field{NodeID: 12, ID: 1}
	e.fields.upsert(internalField)
	e.fields.upsert(externalField)

	ft.queueReply(newReply().nodeRegenerated(10).bytes())
	require.NoError(t, e.Flush(context.Background(), nil))

	assert.Nil(t, e.nodes.findByID(11), "proto-internal node must be purged")
	assert.NotNil(t, e.nodes.findByID(12), "unrelated node must survive")
	assert.Nil(t, e.fields.find(11, 1), "field of a purged proto-internal node must be purged")
	assert.NotNil(t, e.fields.find(12, 1), "unrelated field must survive")
}

// --- S6: contact-point cache freshness is judged against simulation time.

func TestContactPointsFreshness(t *testing.T) {
	e, ft := newTestEngine()
	n := &Node{ID: 7}
	e.nodes.upsert(n)

	_, fresh := e.ContactPoints(n, 1.0)
	assert.False(t, fresh, "an uncaptured node is never fresh")

	ft.queueReply(newReply().
		contactPoints(7, 1.0, []ContactPoint{{Position: [3]float64{1, 2, 3}, NodeID: 99, ODEName: "floor"}}).
		bytes())
	e.RequestContactPoints(n)
	require.NoError(t, e.Flush(context.Background(), nil))

	points, fresh := e.ContactPoints(n, 1.0)
	assert.True(t, fresh)
	require.Len(t, points, 1)
	assert.Equal(t, "floor", points[0].ODEName)

	// Simulation time has since advanced past the capture time: the
	// cached reading is stale and a fresh request is required.
	_, fresh = e.ContactPoints(n, 2.0)
	assert.False(t, fresh)

	ft.queueReply(newReply().contactPoints(7, 2.0, nil).bytes())
	e.RequestContactPoints(n)
	require.NoError(t, e.Flush(context.Background(), nil))

	_, fresh = e.ContactPoints(n, 2.0)
	assert.True(t, fresh)
}

// --- Invariant: the pending queue holds only SET/IMPORT/REMOVE — coalesced by target.

func TestEnqueueSetCoalescesLastWriterWins(t *testing.T) {
	e, _ := newTestEngine()
	f := &Field{NodeID: 1, ID: 1, Type: SFFloat}
	e.fields.upsert(f)

	require.NoError(t, e.SetSFFloat(f, 1.0))
	require.NoError(t, e.SetSFFloat(f, 2.0))

	assert.Len(t, e.queue.pending, 1)
	v, ok := e.queue.pendingSetValue(1, 1, -1)
	require.True(t, ok)
	assert.Equal(t, 2.0, v.Float)
}

// --- Invariant: at most one GET may be in flight per step.

func TestAtMostOneGetInFlightPerStep(t *testing.T) {
	e, _ := newTestEngine()
	fa := &Field{NodeID: 1, ID: 1, Type: SFFloat}
	fb := &Field{NodeID: 1, ID: 2, Type: SFFloat}
	e.fields.upsert(fa)
	e.fields.upsert(fb)

	require.NoError(t, e.RequestFieldValue(fa))
	// Re-requesting the same target is harmless.
	require.NoError(t, e.RequestFieldValue(fa))
	err := e.RequestFieldValue(fb)
	assert.ErrorIs(t, err, ErrGetInFlight)
}

// --- Invariant: every float argument is checked for finiteness.

func TestSetSFFloatRejectsNonFinite(t *testing.T) {
	e, _ := newTestEngine()
	f := &Field{NodeID: 1, ID: 1, Type: SFFloat}
	e.fields.upsert(f)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := e.SetSFFloat(f, v)
		ve := asValidationError(t, err)
		assert.Equal(t, ValidationNotFinite, ve.Kind)
	}
}

func TestSetVelocityRejectsNonFinite(t *testing.T) {
	e, _ := newTestEngine()
	n := &Node{ID: 1}
	e.nodes.upsert(n)

	err := e.SetVelocity(n, [6]float64{0, 0, math.NaN(), 0, 0, 0})
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationNotFinite, ve.Kind)
}

// --- Invariant: color channels are bounded to [0, 1].

func TestSetSFColorRejectsOutOfRange(t *testing.T) {
	e, _ := newTestEngine()
	f := &Field{NodeID: 1, ID: 1, Type: SFColor}
	e.fields.upsert(f)

	err := e.SetSFColor(f, [3]float64{1.5, 0, 0})
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationOutOfRange, ve.Kind)
}

func TestSetLabelRejectsOutOfRangeColor(t *testing.T) {
	e, _ := newTestEngine()
	err := e.SetLabel(1, "hud", 0, 0, 1, [3]float64{-0.1, 0, 0}, 0, "Arial")
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationOutOfRange, ve.Kind)
}

// --- Invariant: a round-tripped SF float set/get observes the simulator's value post-flush.

func TestSFFloatRoundTrip(t *testing.T) {
	e, ft := newTestEngine()
	f := &Field{NodeID: 1, ID: 1, Type: SFFloat, Name: "mass"}
	e.fields.upsert(f)

	require.NoError(t, e.SetSFFloat(f, 9.81))
	ft.queueReply(newReply().fieldValueSFFloat(1, 1, "mass", 9.81).bytes())
	require.NoError(t, e.Flush(context.Background(), nil))

	assert.Equal(t, 9.81, f.Data.Float)
	// The set has been drained; a subsequent read observes the
	// simulator-confirmed value, not a stale pending write.
	assert.Equal(t, 9.81, e.FieldValue(f, -1).Float)
}

// --- Boundary: MF index normalization and bounds.

func TestSetMFFloatIndexBounds(t *testing.T) {
	e, _ := newTestEngine()
	f := &Field{NodeID: 1, ID: 1, Type: MFFloat, Count: 3}
	e.fields.upsert(f)

	require.NoError(t, e.SetMFFloat(f, 0, 1.0))
	require.NoError(t, e.SetMFFloat(f, -1, 3.0), "negative index counts from the end")

	err := e.SetMFFloat(f, 3, 4.0)
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationIndexBounds, ve.Kind)
}

func TestInsertMFFloatIndexBoundsAndWire(t *testing.T) {
	e, ft := newTestEngine()
	f := &Field{NodeID: 1, ID: 1, Type: MFFloat, Count: 2}
	e.fields.upsert(f)

	// Insertion accepts index == count (append) where Set/Remove would not.
	require.NoError(t, e.InsertMFFloat(f, 2, 9.0))
	require.NoError(t, e.Flush(context.Background(), nil))
	ops := decodeFrame(ft.lastFrame())
	assert.Equal(t, []Opcode{OpFieldInsertValue}, ops)

	err := e.InsertMFFloat(f, 10, 1.0)
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationIndexBounds, ve.Kind)
}

func TestRemoveMFValueIndexBounds(t *testing.T) {
	e, _ := newTestEngine()
	f := &Field{NodeID: 1, ID: 1, Type: MFFloat, Count: 2}
	e.fields.upsert(f)

	err := e.RemoveMFValue(f, 5)
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationIndexBounds, ve.Kind)

	require.NoError(t, e.RemoveMFValue(f, 0))
}

// --- Boundary: file extension gating.

func TestSaveWorldRejectsWrongExtension(t *testing.T) {
	e, _ := newTestEngine()
	err := e.SaveWorld("/tmp/world.txt")
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationBadExtension, ve.Kind)

	assert.NoError(t, e.SaveWorld("/tmp/world.wbt"))
}

func TestExportImageRejectsWrongExtension(t *testing.T) {
	e, _ := newTestEngine()
	err := e.ExportImage("/tmp/shot.bmp", 100)
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationBadExtension, ve.Kind)

	assert.NoError(t, e.ExportImage("/tmp/shot.png", 100))
}

// --- Emission order: spec.md §4.5's fixed ordering across every slot kind.

func TestSerializeFixedEmissionOrder(t *testing.T) {
	e, ft := newTestEngine()
	f := &Field{NodeID: 1, ID: 1, Type: SFFloat}
	e.fields.upsert(f)
	n := &Node{ID: 1}
	e.nodes.upsert(n)

	e.SetSimulationMode(1)
	_, _ = e.NodeFromDef("X")
	require.NoError(t, e.SetSFFloat(f, 1.0))
	require.NoError(t, e.RequestFieldValue(f))
	require.NoError(t, e.SetLabel(1, "hud", 0, 0, 1, [3]float64{1, 1, 1}, 0, "Arial"))
	e.RequestPosition(n)
	require.NoError(t, e.ExportImage("/tmp/a.png", 100))

	ft.queueReply(nil)
	require.NoError(t, e.Flush(context.Background(), nil))

	ops := decodeFrame(ft.lastFrame())
	indexOf := func(op Opcode) int {
		for i, o := range ops {
			if o == op {
				return i
			}
		}
		return -1
	}

	assert.True(t, indexOf(OpSimulationSetMode) < indexOf(OpNodeGetFromDef))
	assert.True(t, indexOf(OpNodeGetFromDef) < indexOf(OpFieldSetValue))
	assert.True(t, indexOf(OpFieldSetValue) < indexOf(OpFieldGetValue), "the in-flight GET is always emitted after every SET this step")
	assert.True(t, indexOf(OpFieldGetValue) < indexOf(OpSetLabel))
	assert.True(t, indexOf(OpSetLabel) < indexOf(OpNodeGetPosition))
	assert.True(t, indexOf(OpNodeGetPosition) < indexOf(OpExportImage))
}

// --- Quitting short-circuits Flush.

func TestFlushAfterQuittingReturnsErrQuitting(t *testing.T) {
	e, ft := newTestEngine()
	e.QuitSimulation()
	ft.queueReply(nil)
	require.NoError(t, e.Flush(context.Background(), nil))

	e.quitting = true
	err := e.Flush(context.Background(), nil)
	assert.ErrorIs(t, err, ErrQuitting)
}

// --- NODE_REGENERATED purges fields decoded from the wire, not just
// fields constructed directly in a test.

func TestNodeRegeneratedPurgesFieldDecodedFromWire(t *testing.T) {
	e, ft := newTestEngine()
	proto := &Node{ID: 10, IsProto: true}
	internal := &Node{ID: 11, IsProtoInternal: true, ParentProto: 10}
	e.nodes.upsert(proto)
	e.nodes.upsert(internal)

	ft.queueReply(newReply().
		fieldValueSFFloatInternal(11, 1, "mass", 1.0, true).
		bytes())
	require.NoError(t, e.Flush(context.Background(), nil))

	f := e.fields.find(11, 1)
	require.NotNil(t, f)
	assert.True(t, f.IsProtoInternal, "the FIELD_GET_FROM_NAME is_proto_internal bit must be decoded and stored")

	ft.queueReply(newReply().nodeRegenerated(10).bytes())
	require.NoError(t, e.Flush(context.Background(), nil))

	assert.Nil(t, e.fields.find(11, 1), "a field decoded from the wire for a purged proto-internal node must itself be purged")
}

// --- Center of mass and static balance round-trip through the cache.

func TestCenterOfMassAndStaticBalanceRoundTrip(t *testing.T) {
	e, ft := newTestEngine()
	n := &Node{ID: 7}
	e.nodes.upsert(n)

	e.RequestCenterOfMass(n)
	e.RequestStaticBalance(n)

	ft.queueReply(newReply().
		nodeValue(7, 3, []float64{1, 2, 3}, false).
		nodeValue(7, 4, nil, true).
		bytes())
	require.NoError(t, e.Flush(context.Background(), nil))

	assert.Equal(t, [3]float64{1, 2, 3}, e.CenterOfMass(n))
	assert.True(t, e.StaticBalance(n))

	ops := decodeFrame(ft.lastFrame())
	assert.Equal(t, 1, countOpcode(ops, OpNodeGetCenterOfMass))
	assert.Equal(t, 1, countOpcode(ops, OpNodeGetStaticBalance))
}

// --- AddForce / AddForceWithOffset / AddTorque validate and serialize.

func TestAddForceAddForceWithOffsetAddTorque(t *testing.T) {
	e, ft := newTestEngine()
	n := &Node{ID: 3}
	e.nodes.upsert(n)

	require.NoError(t, e.AddForce(n, [3]float64{1, 0, 0}, false))
	require.NoError(t, e.AddForceWithOffset(n, [3]float64{0, 1, 0}, [3]float64{0, 0, 1}, true))
	require.NoError(t, e.AddTorque(n, [3]float64{0, 0, 1}, false))

	require.NoError(t, e.Flush(context.Background(), nil))
	ops := decodeFrame(ft.lastFrame())
	assert.Equal(t, 1, countOpcode(ops, OpNodeAddForce))
	assert.Equal(t, 1, countOpcode(ops, OpNodeAddForceWithOffset))
	assert.Equal(t, 1, countOpcode(ops, OpNodeAddTorque))
}

func TestAddForceRejectsNonFinite(t *testing.T) {
	e, _ := newTestEngine()
	n := &Node{ID: 3}
	e.nodes.upsert(n)

	err := e.AddForce(n, [3]float64{math.NaN(), 0, 0}, false)
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationNotFinite, ve.Kind)
}

func TestAddForceWithOffsetRejectsNonFiniteOffset(t *testing.T) {
	e, _ := newTestEngine()
	n := &Node{ID: 3}
	e.nodes.upsert(n)

	err := e.AddForceWithOffset(n, [3]float64{1, 0, 0}, [3]float64{0, math.Inf(1), 0}, false)
	ve := asValidationError(t, err)
	assert.Equal(t, ValidationNotFinite, ve.Kind)
}

// --- SetLabel rejects x, y, size, and transparency outside [0, 1], not
// just an out-of-range color.

func TestSetLabelRejectsOutOfRangeGeometry(t *testing.T) {
	e, _ := newTestEngine()

	cases := []struct {
		name                      string
		x, y, size, transparency float64
	}{
		{"x", 1.1, 0, 1, 0},
		{"y", 0, -0.1, 1, 0},
		{"size", 0, 0, 1.5, 0},
		{"transparency", 0, 0, 1, -1},
	}
	for _, c := range cases {
		err := e.SetLabel(1, "hud", c.x, c.y, c.size, [3]float64{1, 1, 1}, c.transparency, "Arial")
		ve := asValidationError(t, err)
		assert.Equal(t, ValidationOutOfRange, ve.Kind, "case %s", c.name)
	}
}

// --- DEF names are normalized by stripping everything up to the last '.'.

func TestNodeDefNameStripsDotSuffix(t *testing.T) {
	e, _ := newTestEngine()
	e.nodes.upsert(&Node{ID: 1, DefName: "Outer.Inner.WHEEL"})
	e.nodes.upsert(&Node{ID: 2, DefName: "PLAIN"})

	n, err := e.NodeFromDef("WHEEL")
	require.NoError(t, err)
	assert.Equal(t, int32(1), n.ID)

	n2, err := e.NodeFromDef("PLAIN")
	require.NoError(t, err)
	assert.Equal(t, int32(2), n2.ID)
}
