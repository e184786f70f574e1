package logger

import "log/slog"

// Standard field keys for structured logging, kept consistent across
// every log statement so aggregation and querying don't need per-site
// knowledge of field names.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Step & Protocol
	// ========================================================================
	KeyStep      = "step"      // Simulation step counter
	KeyOpcode    = "opcode"    // Wire opcode of a request or reply frame
	KeyDirection = "direction" // "request" or "reply"
	KeyStatus    = "status"    // Operation status code
	KeyStatusMsg = "status_msg"

	// ========================================================================
	// Scene Graph
	// ========================================================================
	KeyNodeID    = "node_id"
	KeyNodeType  = "node_type"
	KeyDefName   = "def_name"
	KeyFieldID   = "field_id"
	KeyFieldName = "field_name"
	KeyFieldType = "field_type"
	KeyIndex     = "index"

	// ========================================================================
	// Connection & Identity
	// ========================================================================
	KeyRemoteAddr = "remote_addr"
	KeySupervisor = "supervisor" // controller name claiming supervisor privilege
	KeyController = "controller"
	KeySessionID  = "session_id"
	KeyRequestID  = "request_id"

	// ========================================================================
	// World & Artifacts
	// ========================================================================
	KeyWorldPath    = "world_path"
	KeyArtifactPath = "artifact_path"
	KeyArtifactKind = "artifact_kind" // image, movie, animation, world

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeyOperation  = "operation"
	KeyAttempt    = "attempt"
	KeyMaxRetries = "max_retries"

	// ========================================================================
	// Journal & Storage
	// ========================================================================
	KeyJournalKey  = "journal_key"
	KeyBucket      = "bucket"
	KeyRegion      = "region"
	KeyStoreType   = "store_type"
	KeyBytesRead   = "bytes_read"
	KeyBytesWritten = "bytes_written"
)

// ============================================================================
// Field constructors for type safety.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Step returns a slog.Attr for the simulation step counter.
func Step(n int64) slog.Attr { return slog.Int64(KeyStep, n) }

// Opcode returns a slog.Attr for a wire opcode.
func Opcode(op uint8) slog.Attr { return slog.Int(KeyOpcode, int(op)) }

// Direction returns a slog.Attr for "request" or "reply".
func Direction(d string) slog.Attr { return slog.String(KeyDirection, d) }

// Status returns a slog.Attr for an operation status code.
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }

// StatusMsg returns a slog.Attr for a human-readable status message.
func StatusMsg(msg string) slog.Attr { return slog.String(KeyStatusMsg, msg) }

// NodeID returns a slog.Attr for a scene-graph node id.
func NodeID(id int32) slog.Attr { return slog.Int(KeyNodeID, int(id)) }

// NodeType returns a slog.Attr for a scene-graph node type name.
func NodeType(t string) slog.Attr { return slog.String(KeyNodeType, t) }

// DefName returns a slog.Attr for a DEF name.
func DefName(name string) slog.Attr { return slog.String(KeyDefName, name) }

// FieldID returns a slog.Attr for a field id.
func FieldID(id int32) slog.Attr { return slog.Int(KeyFieldID, int(id)) }

// FieldName returns a slog.Attr for a field name.
func FieldName(name string) slog.Attr { return slog.String(KeyFieldName, name) }

// FieldType returns a slog.Attr for a field type name.
func FieldType(t string) slog.Attr { return slog.String(KeyFieldType, t) }

// Index returns a slog.Attr for an MF field index.
func Index(i int32) slog.Attr { return slog.Int(KeyIndex, int(i)) }

// RemoteAddr returns a slog.Attr for the transport's remote address.
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }

// Supervisor returns a slog.Attr for the claiming controller's name.
func Supervisor(name string) slog.Attr { return slog.String(KeySupervisor, name) }

// Controller returns a slog.Attr for a controller name.
func Controller(name string) slog.Attr { return slog.String(KeyController, name) }

// SessionID returns a slog.Attr for a session identifier.
func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }

// RequestID returns a slog.Attr for a request identifier.
func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }

// WorldPath returns a slog.Attr for a .wbt world file path.
func WorldPath(p string) slog.Attr { return slog.String(KeyWorldPath, p) }

// ArtifactPath returns a slog.Attr for an exported artifact's path.
func ArtifactPath(p string) slog.Attr { return slog.String(KeyArtifactPath, p) }

// ArtifactKind returns a slog.Attr for an artifact's kind (image, movie, ...).
func ArtifactKind(kind string) slog.Attr { return slog.String(KeyArtifactKind, kind) }

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error, or a zero Attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code.
func ErrorCode(code int) slog.Attr { return slog.Int(KeyErrorCode, code) }

// Operation returns a slog.Attr for a sub-operation type.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// MaxRetries returns a slog.Attr for the maximum retry attempts.
func MaxRetries(n int) slog.Attr { return slog.Int(KeyMaxRetries, n) }

// JournalKey returns a slog.Attr for a journal record key.
func JournalKey(key string) slog.Attr { return slog.String(KeyJournalKey, key) }

// Bucket returns a slog.Attr for a cloud storage bucket name.
func Bucket(name string) slog.Attr { return slog.String(KeyBucket, name) }

// Region returns a slog.Attr for a cloud storage region.
func Region(r string) slog.Attr { return slog.String(KeyRegion, r) }

// StoreType returns a slog.Attr for a backing store type.
func StoreType(t string) slog.Attr { return slog.String(KeyStoreType, t) }

// BytesRead returns a slog.Attr for bytes read from a store.
func BytesRead(n int) slog.Attr { return slog.Int(KeyBytesRead, n) }

// BytesWritten returns a slog.Attr for bytes written to a store.
func BytesWritten(n int) slog.Attr { return slog.Int(KeyBytesWritten, n) }
