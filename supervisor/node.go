package supervisor

import "strings"

// NodeType identifies the kind of a scene-graph node (WB_NODE_* in the
// glossary). The engine never needs the full enumeration the simulator
// understands; it treats the type as an opaque identifier except where a
// handful of well-known values gate behavior (see NodeTypeName).
type NodeType int32

// Well-known node types referenced directly by engine logic.
const (
	NodeTypeNoNode NodeType = 0
	NodeTypeGroup  NodeType = 1
	NodeTypeRobot  NodeType = 2
	NodeTypeSolid  NodeType = 3
)

var nodeTypeNames = map[NodeType]string{
	NodeTypeNoNode: "NO_NODE",
	NodeTypeGroup:  "Group",
	NodeTypeRobot:  "Robot",
	NodeTypeSolid:  "Solid",
}

// NodeTypeName returns the static name associated with a node type, or
// "" if the type is not one of the well-known constants above. Node
// names for types outside this small set are learned from the wire
// reply that introduced them (Node.ModelName) rather than looked up
// here, mirroring how the simulator keeps the authoritative name table.
func NodeTypeName(t NodeType) string {
	return nodeTypeNames[t]
}

// Node mirrors the simulator-side scene-graph node the engine has
// observed. Zero value id 0 is reserved for the implicit root node.
type Node struct {
	ID      int32
	Type    NodeType
	ModelName string
	DefName   string
	ParentID  int32 // -1 when the node has no parent (root, or detached)
	Tag       int32

	IsProto         bool
	IsProtoInternal bool
	ParentProto     int32 // id of the enclosing PROTO node, or -1

	// Cached contains the last-known transform and velocity the engine
	// has read back from the simulator, used to satisfy synchronous
	// getters (position, orientation, velocity) without an extra
	// round trip when the cache is still fresh for the current step.
	Cached CachedNodeState
}

// CachedNodeState holds the per-node state the position/orientation/
// velocity/contact-point getters serve from cache.
type CachedNodeState struct {
	Position     [3]float64
	Orientation  [9]float64 // row-major 3x3 rotation matrix
	CenterOfMass [3]float64
	Velocity     [6]float64 // linear (3) + angular (3)
	StaticBalance bool

	// ContactPoints and the simulation time it was captured at. Per
	// the concurrency model, a fresh read is only issued when the
	// current simulation time is strictly greater than CapturedAtTime.
	ContactPoints  []ContactPoint
	CapturedAtTime float64
	captured       bool
}

// ContactPoint is one point of contact reported for a Solid node.
type ContactPoint struct {
	Position   [3]float64
	NodeID     int32
	ODEName    string
}

// nodeRegistry is the authoritative set of nodes the engine has mirrored
// from the simulator, keyed by id. It is held by Engine and takes no
// lock of its own.
type nodeRegistry struct {
	byID map[int32]*Node
}

func newNodeRegistry() *nodeRegistry {
	return &nodeRegistry{byID: make(map[int32]*Node)}
}

// findByID returns the node with the given id, or nil.
func (r *nodeRegistry) findByID(id int32) *Node {
	return r.byID[id]
}

// findByDef returns a node whose DefName matches name; when several
// nodes match, which one is returned is not defined (the registry is a
// map and its traversal order is not fixed). withinProto, when
// non-nil, restricts the search to nodes whose ParentProto equals the
// given proto node's id, implementing the scoped two-step lookup
// SPEC_FULL.md's NodeFromProtoDef convenience builds on.
func (r *nodeRegistry) findByDef(name string, withinProto *Node) *Node {
	for _, n := range r.byID {
		if n.DefName != name {
			continue
		}
		if withinProto != nil && n.ParentProto != withinProto.ID {
			continue
		}
		if withinProto == nil && n.IsProtoInternal {
			// Internal PROTO subtree nodes are only reachable through
			// an explicit within-proto search.
			continue
		}
		return n
	}
	return nil
}

// findByTag returns the node with the given tag, or nil. Tags are
// assigned by the simulator and are stable across a node's lifetime.
func (r *nodeRegistry) findByTag(tag int32) *Node {
	for _, n := range r.byID {
		if n.Tag == tag {
			return n
		}
	}
	return nil
}

// stripDefSuffix returns the last '.'-separated segment of a simulator-
// reported DEF expression (spec.md §3: "def_name: ... the last path
// segment after `.`"), e.g. "Outer.Inner.WHEEL" resolves by "WHEEL". A
// name with no dot is returned unchanged.
func stripDefSuffix(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// upsert inserts or replaces a node record. A reply that re-describes an
// already-known id overwrites the previous record in place so any
// pointers callers retrieved from findByID continue to observe updates
// (the cached state is kept from the existing record; the descriptor
// fields take the new values). DefName
// is normalized with stripDefSuffix before storage, whether this is a
// fresh insert or a refresh of an existing id.
func (r *nodeRegistry) upsert(n *Node) {
	n.DefName = stripDefSuffix(n.DefName)
	if existing, ok := r.byID[n.ID]; ok {
		n.Cached = existing.Cached
		*existing = *n
		return
	}
	r.byID[n.ID] = n
}

// remove deletes a node from the registry and resets ParentID to -1 on
// any remaining node that listed it as a parent, per the
// NODE_REMOVE_NODE invariant.
func (r *nodeRegistry) remove(id int32) {
	delete(r.byID, id)
	for _, n := range r.byID {
		if n.ParentID == id {
			n.ParentID = -1
		}
	}
}

// purgeProtoInternal removes every node flagged IsProtoInternal whose
// ParentProto matches protoID. Called on NODE_REGENERATED so a PROTO's
// stale internal subtree never outlives a regeneration.
func (r *nodeRegistry) purgeProtoInternal(protoID int32) {
	for id, n := range r.byID {
		if n.IsProtoInternal && n.ParentProto == protoID {
			delete(r.byID, id)
		}
	}
}

func (n *Node) effectiveContactTime() float64 {
	if !n.Cached.captured {
		return -1
	}
	return n.Cached.CapturedAtTime
}
