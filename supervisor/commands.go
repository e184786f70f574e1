package supervisor

// exclusiveCommand is one of the handful of step-global operations that
// cannot coexist with another of their own kind in the same step
// (spec.md §4.4): resetting the simulation, quitting it, changing its
// run mode, or loading a new world all invalidate any other exclusive
// command queued in the same step, so submitting one replaces whichever
// was queued before it.
type exclusiveCommand struct {
	opcode  Opcode
	world   string // OpWorldLoad
	mode    int32  // OpSimulationSetMode
}

// handleRequest resolves a node or field handle the caller asked for by
// def name, id, tag, or (name, owning node) pair. These are emitted
// right after the exclusive command slot and before the per-field
// operations queue, since later slots may reference the handle being
// resolved.
type handleRequest struct {
	opcode     Opcode
	defName    string
	id         int32
	tag        int32
	protoDef   string // OpNodeGetFromProtoDef inner lookup
	fieldName  string
	ownerNodeID int32
}

// labelCommand sets or updates an on-screen overlay label. Labels are
// keyed by id; setting the same id twice in a step keeps only the last
// value (last-writer-wins), matching the SET coalescing rule used for
// fields.
type labelCommand struct {
	ID      int32
	Text    string
	X, Y    float64
	Size    float64
	Color   [3]float64
	Transparency float64
	FontName     string
}

// nodeCommand is a node-targeted operation other than a field
// read/write: physics reset, controller restart, visibility, viewpoint
// move, velocity set/get, a position/orientation/center-of-mass/
// contact-points/static-balance read, a force/torque application, or a
// node removal. These are emitted in the fixed order nodeCommandOrder
// gives, so e.g. a same-step velocity read is emitted before a
// reset-physics and does not observe the reset.
type nodeCommand struct {
	opcode Opcode
	nodeID int32

	velocity    [6]float64 // OpNodeSetVelocity
	visible     bool       // OpNodeSetVisibility
	visibleFrom int32      // id of the viewpoint the visibility change applies to
	viewpoint   [3]float64 // OpNodeMoveViewpoint position
	viewOrient  [9]float64 // OpNodeMoveViewpoint orientation

	force    [3]float64 // OpNodeAddForce, OpNodeAddForceWithOffset
	offset   [3]float64 // OpNodeAddForceWithOffset
	torque   [3]float64 // OpNodeAddTorque
	relative bool       // OpNodeAddForce, OpNodeAddForceWithOffset, OpNodeAddTorque
}

// nodeCommandOrder fixes the relative order node-targeted opcodes are
// emitted in within a single step, independent of call order, matching
// spec.md §4.5 step 5's listed sequence: node remove, then position,
// orientation, center-of-mass, contact-points, static-balance,
// get-velocity, set-velocity, reset-physics, restart-controller,
// set-visibility, move-viewpoint, add-force, add-force-with-offset,
// add-torque.
var nodeCommandOrder = map[Opcode]int{
	OpNodeRemoveNode:         0,
	OpNodeGetPosition:        1,
	OpNodeGetOrientation:     2,
	OpNodeGetCenterOfMass:    3,
	OpNodeGetContactPoints:   4,
	OpNodeGetStaticBalance:   5,
	OpNodeGetVelocity:        6,
	OpNodeSetVelocity:        7,
	OpNodeResetPhysics:       8,
	OpNodeRestartController:  9,
	OpNodeSetVisibility:      10,
	OpNodeMoveViewpoint:      11,
	OpNodeAddForce:           12,
	OpNodeAddForceWithOffset: 13,
	OpNodeAddTorque:          14,
}

// miscCommand covers the remaining step-global, non-exclusive slots:
// export-image, movie start/stop, animation start/stop, and world save.
// Unlike exclusiveCommand these can all be queued in the same step as
// each other and as the exclusive command; submitting the same opcode
// twice in one step replaces the previous payload.
type miscCommand struct {
	opcode Opcode

	path    string // file path for image/movie/animation/world-save
	width   int32
	height  int32
	quality int32
	codec   int32
}

// vrHeadsetCommand reports the VR headset pose, emitted last in the
// serializer's fixed order.
type vrHeadsetCommand struct {
	Position    [3]float64
	Orientation [9]float64
	LeftEyePosition, RightEyePosition [3]float64
}

// commandSlots holds every per-step command other than the field
// operations queue, cleared after each successful flush.
type commandSlots struct {
	exclusive *exclusiveCommand
	handles   []*handleRequest
	labels    map[int32]*labelCommand
	nodeOps   []*nodeCommand
	misc      []*miscCommand
	vrHeadset *vrHeadsetCommand
}

func newCommandSlots() *commandSlots {
	return &commandSlots{labels: make(map[int32]*labelCommand)}
}

func (c *commandSlots) setExclusive(cmd *exclusiveCommand) {
	c.exclusive = cmd
}

func (c *commandSlots) addHandleRequest(h *handleRequest) {
	c.handles = append(c.handles, h)
}

func (c *commandSlots) setLabel(l *labelCommand) {
	c.labels[l.ID] = l
}

func (c *commandSlots) addNodeOp(n *nodeCommand) {
	c.nodeOps = append(c.nodeOps, n)
}

func (c *commandSlots) setMisc(m *miscCommand) {
	for i, existing := range c.misc {
		if existing.opcode == m.opcode {
			c.misc[i] = m
			return
		}
	}
	c.misc = append(c.misc, m)
}

func (c *commandSlots) setVRHeadset(v *vrHeadsetCommand) {
	c.vrHeadset = v
}

// drain returns the current slots and resets the receiver to an empty
// state, mirroring opsQueue.drain.
func (c *commandSlots) drain() *commandSlots {
	out := c
	*c = *newCommandSlots()
	return out
}

func (c *commandSlots) orderedNodeOps() []*nodeCommand {
	ops := make([]*nodeCommand, len(c.nodeOps))
	copy(ops, c.nodeOps)
	for i := 1; i < len(ops); i++ {
		for j := i; j > 0 && nodeCommandOrder[ops[j-1].opcode] > nodeCommandOrder[ops[j].opcode]; j-- {
			ops[j-1], ops[j] = ops[j], ops[j-1]
		}
	}
	return ops
}
