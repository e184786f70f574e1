package supervisor

// Opcode identifies a single request or reply frame exchanged with the
// simulator. Request opcodes below 0x80 are step-global (not tied to a
// node or field); opcodes at or above 0x80 are node- or field-targeted
// and may appear multiple times per step.
type Opcode uint8

// Step-global command opcodes (spec.md §4.4). Reset, quit, set-mode and
// world-load are mutually exclusive per step; a label is emitted once
// per label id, and the remaining commands may share a step.
const (
	OpSimulationReset Opcode = iota + 1
	OpSimulationQuit
	OpSimulationSetMode
	OpWorldLoad
	OpWorldSave
	OpExportImage
	OpAnimationStartRecording
	OpAnimationStopRecording
	OpMovieStartRecording
	OpMovieStopRecording
	OpSetLabel
	OpVirtualRealityHeadsetPosition
)

// Node- and field-targeted opcodes (spec.md §4.5/§4.6).
const (
	OpNodeGetFromDef Opcode = iota + 0x80
	OpNodeGetFromID
	OpNodeGetFromTag
	OpNodeGetPosition
	OpNodeGetOrientation
	OpNodeGetCenterOfMass
	OpNodeGetStaticBalance
	OpNodeGetVelocity
	OpNodeSetVelocity
	OpNodeResetPhysics
	OpNodeRestartController
	OpNodeSetVisibility
	OpNodeMoveViewpoint
	OpNodeGetContactPoints
	OpNodeAddForce
	OpNodeAddForceWithOffset
	OpNodeAddTorque
	OpNodeRemoveNode
	OpNodeRegenerated

	OpFieldGetFromName
	OpFieldGetValue
	OpFieldSetValue
	OpFieldInsertValue
	OpFieldRemoveValue
	OpFieldImportNode
	OpFieldImportNodeFromString
)

// Reply tag opcodes the dispatcher switches on (spec.md §4.6). These are
// distinct from the request opcodes above: the simulator replies with
// its own small vocabulary of update notifications rather than echoing
// the request opcode back.
const (
	ReplyNodeDef Opcode = iota + 1
	ReplyNodeValue
	ReplyFieldValue
	ReplyFieldCount
	ReplyNodeRegenerated
	ReplyNodeRemoved
	ReplyContactPoints
	ReplyConfigure
)

// fieldRequestKind mirrors the original controller's FIELD_REQUEST_TYPE
// enum: GET = 1, SET, IMPORT, IMPORT_FROM_STRING, REMOVE, with an
// additional INSERT kind placed after SET. The numbering itself has no
// wire significance in this engine (it is an internal queue
// discriminator, never serialized).
type fieldRequestKind uint8

const (
	requestGet fieldRequestKind = iota + 1
	requestSet
	requestInsert
	requestImport
	requestImportFromString
	requestRemove
)
