package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for supervisor operations, following OpenTelemetry
// semantic convention style: a short dotted namespace per concern.
const (
	// ========================================================================
	// Connection attributes
	// ========================================================================
	AttrRemoteAddr = "net.peer.address"
	AttrSupervisor = "supervisor.controller"

	// ========================================================================
	// Step & wire attributes
	// ========================================================================
	AttrStep      = "supervisor.step"
	AttrOpcode    = "supervisor.opcode"
	AttrDirection = "supervisor.direction"
	AttrStatus    = "supervisor.status"
	AttrStatusMsg = "supervisor.status_msg"

	// ========================================================================
	// Scene graph attributes
	// ========================================================================
	AttrNodeID    = "scene.node_id"
	AttrNodeType  = "scene.node_type"
	AttrDefName   = "scene.def_name"
	AttrFieldID   = "scene.field_id"
	AttrFieldName = "scene.field_name"
	AttrFieldType = "scene.field_type"
	AttrIndex     = "scene.index"

	// ========================================================================
	// World & artifact attributes
	// ========================================================================
	AttrWorldPath    = "world.path"
	AttrArtifactPath = "artifact.path"
	AttrArtifactKind = "artifact.kind"

	// ========================================================================
	// Journal / storage attributes
	// ========================================================================
	AttrJournalKey = "journal.key"
	AttrBucket     = "storage.bucket"
	AttrRegion     = "storage.region"
	AttrStoreType  = "storage.type"
)

// Span names for supervisor operations.
const (
	SpanConnect = "supervisor.connect"
	SpanStep    = "supervisor.step"
	SpanFlush   = "supervisor.flush"
	SpanDispatch = "supervisor.dispatch"

	SpanNodeGet    = "supervisor.node.get"
	SpanNodeRemove = "supervisor.node.remove"
	SpanFieldGet   = "supervisor.field.get"
	SpanFieldSet   = "supervisor.field.set"

	SpanWorldLoad = "supervisor.world.load"
	SpanWorldSave = "supervisor.world.save"

	SpanJournalAppend = "journal.append"
	SpanJournalReplay = "journal.replay"
	SpanArtifactUpload = "artifact.upload"
)

// RemoteAddr returns an attribute for a transport peer address.
func RemoteAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrRemoteAddr, addr)
}

// Supervisor returns an attribute for the claiming controller's name.
func Supervisor(name string) attribute.KeyValue {
	return attribute.String(AttrSupervisor, name)
}

// Step returns an attribute for the simulation step counter.
func Step(n int64) attribute.KeyValue {
	return attribute.Int64(AttrStep, n)
}

// Opcode returns an attribute for a wire opcode.
func Opcode(op uint8) attribute.KeyValue {
	return attribute.Int(AttrOpcode, int(op))
}

// Direction returns an attribute for "request" or "reply".
func Direction(d string) attribute.KeyValue {
	return attribute.String(AttrDirection, d)
}

// Status returns an attribute for an operation status code.
func Status(status int) attribute.KeyValue {
	return attribute.Int(AttrStatus, status)
}

// StatusMsg returns an attribute for a human-readable status message.
func StatusMsg(msg string) attribute.KeyValue {
	return attribute.String(AttrStatusMsg, msg)
}

// NodeID returns an attribute for a scene-graph node id.
func NodeID(id int32) attribute.KeyValue {
	return attribute.Int(AttrNodeID, int(id))
}

// NodeType returns an attribute for a scene-graph node type name.
func NodeType(t string) attribute.KeyValue {
	return attribute.String(AttrNodeType, t)
}

// DefName returns an attribute for a DEF name.
func DefName(name string) attribute.KeyValue {
	return attribute.String(AttrDefName, name)
}

// FieldID returns an attribute for a field id.
func FieldID(id int32) attribute.KeyValue {
	return attribute.Int(AttrFieldID, int(id))
}

// FieldName returns an attribute for a field name.
func FieldName(name string) attribute.KeyValue {
	return attribute.String(AttrFieldName, name)
}

// FieldType returns an attribute for a field type name.
func FieldType(t string) attribute.KeyValue {
	return attribute.String(AttrFieldType, t)
}

// Index returns an attribute for an MF field index.
func Index(i int32) attribute.KeyValue {
	return attribute.Int(AttrIndex, int(i))
}

// WorldPath returns an attribute for a .wbt world file path.
func WorldPath(p string) attribute.KeyValue {
	return attribute.String(AttrWorldPath, p)
}

// ArtifactPath returns an attribute for an exported artifact's path.
func ArtifactPath(p string) attribute.KeyValue {
	return attribute.String(AttrArtifactPath, p)
}

// ArtifactKind returns an attribute for an artifact's kind.
func ArtifactKind(kind string) attribute.KeyValue {
	return attribute.String(AttrArtifactKind, kind)
}

// JournalKey returns an attribute for a journal record key.
func JournalKey(key string) attribute.KeyValue {
	return attribute.String(AttrJournalKey, key)
}

// Bucket returns an attribute for a cloud storage bucket name.
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// Region returns an attribute for a cloud storage region.
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// StoreType returns an attribute for a backing store type.
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// StartStepSpan starts a span covering one flushed simulation step.
func StartStepSpan(ctx context.Context, step int64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Step(step)}, attrs...)
	return StartSpan(ctx, SpanStep, trace.WithAttributes(allAttrs...))
}

// StartNodeSpan starts a span for a node-targeted operation.
func StartNodeSpan(ctx context.Context, name string, nodeID int32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{NodeID(nodeID)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartFieldSpan starts a span for a field-targeted operation.
func StartFieldSpan(ctx context.Context, name string, nodeID, fieldID int32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{NodeID(nodeID), FieldID(fieldID)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartJournalSpan starts a span for a journal append/replay operation.
func StartJournalSpan(ctx context.Context, name, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{JournalKey(key)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartArtifactSpan starts a span for an artifact upload operation.
func StartArtifactSpan(ctx context.Context, bucket, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Bucket(bucket), attribute.String("artifact.key", key)}, attrs...)
	return StartSpan(ctx, SpanArtifactUpload, trace.WithAttributes(allAttrs...))
}
