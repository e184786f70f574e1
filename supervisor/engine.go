// Package supervisor implements a client-side mirror of a running
// simulation's scene graph for a single supervisor-privileged controller
// process. It batches every request a controller issues within a
// simulation step, serializes them to the simulator in a fixed order,
// and updates its local registries from whatever the simulator sends
// back — the controller never blocks except at the single explicit
// flush point each step.
package supervisor

import (
	"context"
	"fmt"
)

// DiagnosticSink receives warnings and precondition-violation reports
// the engine would otherwise only write to stderr, mirroring spec.md
// §7's "Error: <function>()" convention. The sink NewEngineWithLogging
// installs adapts this onto the module's structured logger.
type DiagnosticSink interface {
	Warn(function, message string)
	Error(err error)
}

// Engine is the single mutable aggregate the whole package operates on:
// node and field registries, the pending-operations queue, this step's
// command slots, and the transport collaborator. Collapsing what the
// original kept as global state into one value means multiple Engines
// (e.g. in tests) never interfere with each other.
type Engine struct {
	transport Transport
	diag      DiagnosticSink

	nodes  *nodeRegistry
	fields *fieldRegistry
	queue  *opsQueue
	slots  *commandSlots

	quitting       bool
	simulationMode int32
	step           int64
}

// NewEngine constructs an Engine bound to the given transport. diag may
// be nil, in which case diagnostics are dropped (tests typically pass
// nil; NewEngineWithLogging wires the module's logger instead).
func NewEngine(t Transport, diag DiagnosticSink) *Engine {
	e := &Engine{
		transport: t,
		diag:      diag,
		nodes:     newNodeRegistry(),
		fields:    newFieldRegistry(),
		queue:     newOpsQueue(),
		slots:     newCommandSlots(),
	}
	e.nodes.upsert(&Node{ID: 0, Type: NodeTypeGroup, ModelName: NodeTypeName(NodeTypeGroup), ParentID: -1})
	return e
}

func (e *Engine) warn(function, message string) {
	if e.diag != nil {
		e.diag.Warn(function, message)
	}
}

func (e *Engine) reportError(err error) {
	if e.diag != nil {
		e.diag.Error(err)
	}
}

// IsQuitting reports whether the simulator has asked the controller to
// terminate (robot_is_quitting in the glossary).
func (e *Engine) IsQuitting() bool {
	return e.quitting
}

// SimulationMode returns the last known simulation run mode, cached from
// the most recent CONFIGURE reply; see SPEC_FULL.md's supplemented
// simulation-mode getter.
func (e *Engine) SimulationMode() int32 {
	return e.simulationMode
}

// Step returns the number of flushes this engine has performed.
func (e *Engine) Step() int64 {
	return e.step
}

// RegistrySizes reports the current number of tracked nodes and fields,
// for metrics sampling (internal/metrics.StepMetrics.RecordRegistrySize).
func (e *Engine) RegistrySizes() (nodes, fields int) {
	return len(e.nodes.byID), len(e.fields.byKey)
}

// Flush emits everything queued for the current step in the fixed order
// (serialize), sends it, and applies the reply to the registries
// (dispatchReplies). It is the only method on Engine that may block for
// an unbounded time, matching the concurrency model's single suspension
// point. base is passed through to the reply dispatcher for opcodes
// the supervisor extension doesn't own; it may be nil.
func (e *Engine) Flush(ctx context.Context, base BaseHandler) error {
	if e.quitting {
		return ErrQuitting
	}

	e.transport.Lock()
	defer e.transport.Unlock()

	sets, get := e.queue.drain()
	slots := e.slots.drain()

	w := e.transport.Writer()
	e.serialize(w, slots, sets, get)

	r, err := e.transport.Flush(ctx)
	if err != nil {
		return fmt.Errorf("supervisor: flush: %w", err)
	}
	e.step++

	if err := e.dispatchReplies(r, base); err != nil {
		e.reportError(err)
		return err
	}
	return nil
}

// --- Node lookup -----------------------------------------------------

// NodeFromDef resolves a node by its DEF name. If the node is not yet
// mirrored locally, a handle-resolution request is queued for the next
// flush and ErrNodeNotFound is returned for this call; callers follow
// the same find-then-flush-then-retry pattern the original's six-step
// call contract describes.
func (e *Engine) NodeFromDef(name string) (*Node, error) {
	if n := e.nodes.findByDef(name, nil); n != nil {
		return n, nil
	}
	e.slots.addHandleRequest(&handleRequest{opcode: OpNodeGetFromDef, defName: name})
	return nil, ErrNodeNotFound
}

// NodeFromProtoDef resolves innerDefName within the internal subtree of
// the PROTO node named protoDefName (SPEC_FULL.md's supplemented
// two-step lookup): it first resolves the PROTO node itself, then
// searches its internal subtree.
func (e *Engine) NodeFromProtoDef(protoDefName, innerDefName string) (*Node, error) {
	proto, err := e.NodeFromDef(protoDefName)
	if err != nil {
		return nil, err
	}
	if n := e.nodes.findByDef(innerDefName, proto); n != nil {
		return n, nil
	}
	e.slots.addHandleRequest(&handleRequest{opcode: OpNodeGetFromDef, defName: innerDefName, protoDef: protoDefName})
	return nil, ErrNodeNotFound
}

// NodeFromID resolves a node by its numeric id.
func (e *Engine) NodeFromID(id int32) (*Node, error) {
	if n := e.nodes.findByID(id); n != nil {
		return n, nil
	}
	e.slots.addHandleRequest(&handleRequest{opcode: OpNodeGetFromID, id: id})
	return nil, ErrNodeNotFound
}

// NodeFromTag resolves a node by its simulator-assigned tag.
func (e *Engine) NodeFromTag(tag int32) (*Node, error) {
	if n := e.nodes.findByTag(tag); n != nil {
		return n, nil
	}
	e.slots.addHandleRequest(&handleRequest{opcode: OpNodeGetFromTag, tag: tag})
	return nil, ErrNodeNotFound
}

// FieldFromName resolves a field of node by name.
func (e *Engine) FieldFromName(node *Node, name string) (*Field, error) {
	if f := e.fields.findByName(node.ID, name); f != nil {
		return f, nil
	}
	e.slots.addHandleRequest(&handleRequest{opcode: OpFieldGetFromName, ownerNodeID: node.ID, fieldName: name})
	return nil, ErrFieldNotFound
}

// --- Node state getters (cached, no wire traffic on a fresh cache) ----

// Position returns the node's last-known world position.
func (e *Engine) Position(n *Node) [3]float64 {
	return n.Cached.Position
}

// Orientation returns the node's last-known 3x3 rotation matrix.
func (e *Engine) Orientation(n *Node) [9]float64 {
	return n.Cached.Orientation
}

// Velocity returns the node's last-known linear+angular velocity.
func (e *Engine) Velocity(n *Node) [6]float64 {
	return n.Cached.Velocity
}

// CenterOfMass returns the node's last-known center of mass.
func (e *Engine) CenterOfMass(n *Node) [3]float64 {
	return n.Cached.CenterOfMass
}

// StaticBalance returns the node's last-known static-balance flag.
func (e *Engine) StaticBalance(n *Node) bool {
	return n.Cached.StaticBalance
}

// RequestPosition queues a position read for the next flush.
func (e *Engine) RequestPosition(n *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeGetPosition, nodeID: n.ID})
}

// RequestOrientation queues an orientation read for the next flush.
func (e *Engine) RequestOrientation(n *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeGetOrientation, nodeID: n.ID})
}

// RequestVelocity queues a velocity read for the next flush.
func (e *Engine) RequestVelocity(n *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeGetVelocity, nodeID: n.ID})
}

// RequestCenterOfMass queues a center-of-mass read for the next flush.
func (e *Engine) RequestCenterOfMass(n *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeGetCenterOfMass, nodeID: n.ID})
}

// RequestStaticBalance queues a static-balance read for the next flush.
func (e *Engine) RequestStaticBalance(n *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeGetStaticBalance, nodeID: n.ID})
}

// SetVelocity queues a velocity write for n, validating every component
// is finite before queuing it.
func (e *Engine) SetVelocity(n *Node, v [6]float64) error {
	if err := validateFiniteSlice("wb_supervisor_node_set_velocity", v[:]); err != nil {
		return e.trackValidation(err)
	}
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeSetVelocity, nodeID: n.ID, velocity: v})
	return nil
}

// ResetPhysics queues a physics reset for n.
func (e *Engine) ResetPhysics(n *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeResetPhysics, nodeID: n.ID})
}

// RestartController queues a controller restart for n (typically the
// Robot node running the calling controller itself, or another robot).
func (e *Engine) RestartController(n *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeRestartController, nodeID: n.ID})
}

// SetVisibility queues a visibility change for n as seen from the given
// camera/viewpoint node.
func (e *Engine) SetVisibility(n *Node, visible bool, fromNode *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeSetVisibility, nodeID: n.ID, visible: visible, visibleFrom: fromNode.ID})
}

// MoveViewpoint queues a viewpoint move.
func (e *Engine) MoveViewpoint(n *Node, position [3]float64, orientation [9]float64) error {
	if err := validateFiniteSlice("wb_supervisor_node_move_viewpoint", position[:]); err != nil {
		return e.trackValidation(err)
	}
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeMoveViewpoint, nodeID: n.ID, viewpoint: position, viewOrient: orientation})
	return nil
}

// ContactPoints returns n's last-known contact points, and whether that
// cache is fresh for simTime: per the concurrency model, a cached
// reading is only reused when simTime has not advanced past the time it
// was captured at, otherwise the caller should call
// RequestContactPoints and flush before reading again.
func (e *Engine) ContactPoints(n *Node, simTime float64) (points []ContactPoint, fresh bool) {
	fresh = n.Cached.captured && simTime <= n.effectiveContactTime()
	return n.Cached.ContactPoints, fresh
}

// RequestContactPoints queues a contact-point read for the next flush.
func (e *Engine) RequestContactPoints(n *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeGetContactPoints, nodeID: n.ID})
}

// AddForce queues a force application on n's Solid parent, validating
// every component is finite. relative selects whether force is
// expressed in n's own coordinate system rather than the world frame.
func (e *Engine) AddForce(n *Node, force [3]float64, relative bool) error {
	if err := validateFiniteSlice("wb_supervisor_node_add_force", force[:]); err != nil {
		return e.trackValidation(err)
	}
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeAddForce, nodeID: n.ID, force: force, relative: relative})
	return nil
}

// AddForceWithOffset queues a force application at offset from n's
// center of mass, validating every component of both vectors is finite.
func (e *Engine) AddForceWithOffset(n *Node, force, offset [3]float64, relative bool) error {
	if err := validateFiniteSlice("wb_supervisor_node_add_force_with_offset", force[:]); err != nil {
		return e.trackValidation(err)
	}
	if err := validateFiniteSlice("wb_supervisor_node_add_force_with_offset", offset[:]); err != nil {
		return e.trackValidation(err)
	}
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeAddForceWithOffset, nodeID: n.ID, force: force, offset: offset, relative: relative})
	return nil
}

// AddTorque queues a torque application on n's Solid parent, validating
// every component is finite.
func (e *Engine) AddTorque(n *Node, torque [3]float64, relative bool) error {
	if err := validateFiniteSlice("wb_supervisor_node_add_torque", torque[:]); err != nil {
		return e.trackValidation(err)
	}
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeAddTorque, nodeID: n.ID, torque: torque, relative: relative})
	return nil
}

// RemoveNode queues removal of n. The local registry entry (and its
// fields) is not dropped until the simulator's NODE_REMOVE_NODE reply
// arrives, since removing an MF_NODE element deletes an entire subtree
// and only that reply carries the parent field's authoritative new
// count (spec.md §3's Field invariant).
func (e *Engine) RemoveNode(n *Node) {
	e.slots.addNodeOp(&nodeCommand{opcode: OpNodeRemoveNode, nodeID: n.ID})
}

// --- Field read/write --------------------------------------------------

// FieldValue returns f's last-known value, resolved through the pending
// operations queue first (read-your-writes): a SET already queued for f
// this step is observed before whatever value the simulator last sent.
func (e *Engine) FieldValue(f *Field, index int32) FieldValue {
	if v, ok := e.queue.pendingSetValue(f.NodeID, f.ID, index); ok {
		return v
	}
	return f.Data
}

// RequestFieldValue queues a GET for f. Only one GET may be in flight
// per step; a second GET for a different field before the next flush
// returns ErrGetInFlight.
func (e *Engine) RequestFieldValue(f *Field) error {
	return e.queue.requestGet(f.NodeID, f.ID)
}

// SetSFFloat queues a SET of a SFFloat field, validating finiteness.
func (e *Engine) SetSFFloat(f *Field, v float64) error {
	if err := validateFieldType("wb_supervisor_field_set_sf_float", f, SFFloat); err != nil {
		return e.trackValidation(err)
	}
	if err := validateFinite("wb_supervisor_field_set_sf_float", v); err != nil {
		return e.trackValidation(err)
	}
	e.queue.enqueueSet(f.NodeID, f.ID, -1, FieldValue{Type: SFFloat, Float: v})
	return nil
}

// SetSFRotation queues a SET of a SFRotation field, validating the axis
// is non-zero and every component is finite.
func (e *Engine) SetSFRotation(f *Field, r [4]float64) error {
	if err := validateFieldType("wb_supervisor_field_set_sf_rotation", f, SFRotation); err != nil {
		return e.trackValidation(err)
	}
	if err := validateRotationAxis("wb_supervisor_field_set_sf_rotation", r); err != nil {
		return e.trackValidation(err)
	}
	e.queue.enqueueSet(f.NodeID, f.ID, -1, FieldValue{Type: SFRotation, Rotation: r})
	return nil
}

// SetSFColor queues a SET of a SFColor field, validating every channel
// is in [0, 1].
func (e *Engine) SetSFColor(f *Field, c [3]float64) error {
	if err := validateFieldType("wb_supervisor_field_set_sf_color", f, SFColor); err != nil {
		return e.trackValidation(err)
	}
	if err := validateColor("wb_supervisor_field_set_sf_color", c); err != nil {
		return e.trackValidation(err)
	}
	e.queue.enqueueSet(f.NodeID, f.ID, -1, FieldValue{Type: SFColor, Color: c})
	return nil
}

// SetMFFloat queues a SET of one element of a MFFloat field, normalizing
// and bounds-checking index against the field's current Count.
func (e *Engine) SetMFFloat(f *Field, index int32, v float64) error {
	if err := validateFieldType("wb_supervisor_field_set_mf_float", f, MFFloat); err != nil {
		return e.trackValidation(err)
	}
	normalized, err := validateIndex("wb_supervisor_field_set_mf_float", int(index), int(f.Count))
	if err != nil {
		return e.trackValidation(err)
	}
	if err := validateFinite("wb_supervisor_field_set_mf_float", v); err != nil {
		return e.trackValidation(err)
	}
	e.queue.enqueueSet(f.NodeID, f.ID, int32(normalized), FieldValue{Type: SFFloat, Float: v})
	return nil
}

// InsertMFFloat queues an INSERT of a new element into a MFFloat field
// at index, normalizing and bounds-checking index against the field's
// current Count with the insertion-specific inclusive upper bound
// (index == Count appends).
func (e *Engine) InsertMFFloat(f *Field, index int32, v float64) error {
	if err := validateFieldType("wb_supervisor_field_insert_mf_float", f, MFFloat); err != nil {
		return e.trackValidation(err)
	}
	normalized, err := validateInsertIndex("wb_supervisor_field_insert_mf_float", int(index), int(f.Count))
	if err != nil {
		return e.trackValidation(err)
	}
	if err := validateFinite("wb_supervisor_field_insert_mf_float", v); err != nil {
		return e.trackValidation(err)
	}
	e.queue.enqueueInsert(f.NodeID, f.ID, int32(normalized), FieldValue{Type: SFFloat, Float: v})
	return nil
}

// InsertMFString queues an INSERT of a new element into a MFString
// field at index.
func (e *Engine) InsertMFString(f *Field, index int32, v string) error {
	if err := validateFieldType("wb_supervisor_field_insert_mf_string", f, MFString); err != nil {
		return e.trackValidation(err)
	}
	normalized, err := validateInsertIndex("wb_supervisor_field_insert_mf_string", int(index), int(f.Count))
	if err != nil {
		return e.trackValidation(err)
	}
	e.queue.enqueueInsert(f.NodeID, f.ID, int32(normalized), FieldValue{Type: SFString, Str: v})
	return nil
}

// ImportSFNodeFromString queues an IMPORT_FROM_STRING request that
// assigns a node parsed from nodeString into f at index, provided f's
// base type is SFNode or MFNode. This is the extension-polarity Open
// Question resolved in DESIGN.md: the companion ImportSFNode file-based
// entry point checks the file extension; a VRML string is not checked.
func (e *Engine) ImportSFNodeFromString(f *Field, index int32, nodeString string) error {
	if f.Type.Base() != SFNode {
		return e.trackValidation(newValidationError("wb_supervisor_field_import_sf_node_from_string", ValidationTypeMismatch, "field does not hold a node"))
	}
	e.queue.enqueueImport(f.NodeID, f.ID, index, nodeString)
	return nil
}

// ImportSFNode queues an IMPORT request that assigns a node parsed from
// the .wbo/.wrl file at path. Per DESIGN.md's resolution of the
// extension-check Open Question, a .wbo file is accepted (not rejected).
// An SFNode field accepts only .wbo; an MFNode field accepts .wbo or
// .wrl; any other extension is rejected.
func (e *Engine) ImportSFNode(f *Field, index int32, path string) error {
	if f.Type.Base() != SFNode {
		return e.trackValidation(newValidationError("wb_supervisor_field_import_sf_node", ValidationTypeMismatch, "field does not hold a node"))
	}
	allowed := []string{".wbo", ".wrl"}
	if f.Type == SFNode {
		allowed = []string{".wbo"}
	}
	if err := validateExtension("wb_supervisor_field_import_sf_node", path, allowed...); err != nil {
		return e.trackValidation(err)
	}
	e.queue.pending = append(e.queue.pending, &pendingRequest{
		kind: requestImport, nodeID: f.NodeID, fieldID: f.ID, index: index,
		value: FieldValue{Type: SFString, Str: path},
	})
	return nil
}

// RemoveMFValue queues removal of the element at index in an MF field.
func (e *Engine) RemoveMFValue(f *Field, index int32) error {
	normalized, err := validateIndex("wb_supervisor_field_remove_mf", int(index), int(f.Count))
	if err != nil {
		return e.trackValidation(err)
	}
	e.queue.enqueueRemove(f.NodeID, f.ID, int32(normalized))
	return nil
}

// --- Step-global commands ---------------------------------------------

// ResetSimulation queues a simulation reset.
func (e *Engine) ResetSimulation() {
	e.slots.setExclusive(&exclusiveCommand{opcode: OpSimulationReset})
}

// QuitSimulation queues a simulation quit request.
func (e *Engine) QuitSimulation() {
	e.slots.setExclusive(&exclusiveCommand{opcode: OpSimulationQuit})
}

// SetSimulationMode queues a run-mode change (pause/real-time/fast).
func (e *Engine) SetSimulationMode(mode int32) {
	e.slots.setExclusive(&exclusiveCommand{opcode: OpSimulationSetMode, mode: mode})
}

// LoadWorld queues a world load, restricted to .wbt files.
func (e *Engine) LoadWorld(path string) error {
	if err := validateExtension("wb_supervisor_world_load", path, ".wbt"); err != nil {
		return e.trackValidation(err)
	}
	e.slots.setExclusive(&exclusiveCommand{opcode: OpWorldLoad, world: path})
	return nil
}

// SaveWorld queues a world save, restricted to .wbt files.
func (e *Engine) SaveWorld(path string) error {
	if err := validateExtension("wb_supervisor_world_save", path, ".wbt"); err != nil {
		return e.trackValidation(err)
	}
	e.slots.setMisc(&miscCommand{opcode: OpWorldSave, path: path})
	return nil
}

// ExportImage queues an image export, restricted to common image
// extensions.
func (e *Engine) ExportImage(path string, quality int32) error {
	if err := validateExtension("wb_supervisor_export_image", path, ".png", ".jpg", ".jpeg"); err != nil {
		return e.trackValidation(err)
	}
	e.slots.setMisc(&miscCommand{opcode: OpExportImage, path: path, quality: quality})
	return nil
}

// StartMovie queues the start of a movie recording, restricted to .mp4/.avi files.
func (e *Engine) StartMovie(path string, width, height, codec, quality int32) error {
	if err := validateExtension("wb_supervisor_movie_start_recording", path, ".mp4", ".avi"); err != nil {
		return e.trackValidation(err)
	}
	e.slots.setMisc(&miscCommand{opcode: OpMovieStartRecording, path: path, width: width, height: height, codec: codec, quality: quality})
	return nil
}

// StopMovie queues the end of a movie recording.
func (e *Engine) StopMovie() {
	e.slots.setMisc(&miscCommand{opcode: OpMovieStopRecording})
}

// StartAnimation queues the start of an HTML animation recording,
// restricted to .html files.
func (e *Engine) StartAnimation(path string) error {
	if err := validateExtension("wb_supervisor_animation_start_recording", path, ".html"); err != nil {
		return e.trackValidation(err)
	}
	e.slots.setMisc(&miscCommand{opcode: OpAnimationStartRecording, path: path})
	return nil
}

// StopAnimation queues the end of an HTML animation recording.
func (e *Engine) StopAnimation() {
	e.slots.setMisc(&miscCommand{opcode: OpAnimationStopRecording})
}

// SetLabel queues an on-screen overlay label update, keyed by id.
func (e *Engine) SetLabel(id int32, text string, x, y, size float64, color [3]float64, transparency float64, font string) error {
	if err := validateUnitRange("wb_supervisor_set_label", "x", x); err != nil {
		return e.trackValidation(err)
	}
	if err := validateUnitRange("wb_supervisor_set_label", "y", y); err != nil {
		return e.trackValidation(err)
	}
	if err := validateUnitRange("wb_supervisor_set_label", "size", size); err != nil {
		return e.trackValidation(err)
	}
	if err := validateUnitRange("wb_supervisor_set_label", "transparency", transparency); err != nil {
		return e.trackValidation(err)
	}
	if err := validateColor("wb_supervisor_set_label", color); err != nil {
		return e.trackValidation(err)
	}
	e.slots.setLabel(&labelCommand{ID: id, Text: text, X: x, Y: y, Size: size, Color: color, Transparency: transparency, FontName: font})
	return nil
}

// ReportVRHeadsetPose queues the VR headset pose report.
func (e *Engine) ReportVRHeadsetPose(v vrHeadsetCommand) {
	e.slots.setVRHeadset(&v)
}
