package types

// Frame type discriminants for the worker's stdout stream. Frames are
// msgpack maps with a "type" field; the decoder probes it to pick the
// concrete frame struct.
const (
	// ChunkFrameType tags a payload chunk frame.
	ChunkFrameType = "chunk"
	// ResultFrameType tags the terminal task result frame.
	ResultFrameType = "task_result"
	// LogFrameType tags a worker log frame re-logged by the parent.
	LogFrameType = "log"
)

// PayloadKind says how the reassembled chunk bytes are interpreted.
type PayloadKind string

const (
	// PayloadArtifact means the bytes are an Artifact's Data; the result
	// frame carries the artifact name.
	PayloadArtifact PayloadKind = "artifact"
	// PayloadRecord means the bytes are a msgpack-encoded DumpRecord.
	PayloadRecord PayloadKind = "record"
	// PayloadNone means the task produced no payload (a nil result).
	PayloadNone PayloadKind = "none"
)

// ChunkFrame carries one slice of the task's result payload. Large payloads
// are split so no single frame exceeds the IPC frame ceiling. Seq starts at
// 1 and increases strictly by one; IsLast closes the payload.
type ChunkFrame struct {
	// Type is always ChunkFrameType.
	Type string `msgpack:"type"`
	// Seq is the 1-based chunk sequence number.
	Seq int64 `msgpack:"seq"`
	// IsLast marks the final chunk of the payload.
	IsLast bool `msgpack:"is_last"`
	// Data is the raw payload slice.
	Data []byte `msgpack:"data"`
}

// ResultStatus is the terminal status of a task.
type ResultStatus string

const (
	// ResultOK means the task completed and its payload is valid.
	ResultOK ResultStatus = "ok"
	// ResultError means the task failed; the error fields describe why.
	ResultError ResultStatus = "error"
)

// ResultFrame is the terminal control frame of a worker's stdout stream.
// Exactly one is emitted per task, after all chunk frames.
type ResultFrame struct {
	// Type is always ResultFrameType.
	Type string `msgpack:"type"`
	// Status reports whether the task succeeded.
	Status ResultStatus `msgpack:"status"`
	// Payload says how to interpret the reassembled chunk bytes.
	Payload PayloadKind `msgpack:"payload"`
	// ArtifactName names the artifact when Payload == PayloadArtifact.
	ArtifactName string `msgpack:"artifact_name,omitempty"`
	// ErrKind classifies the failure when Status == ResultError.
	ErrKind FailureKind `msgpack:"err_kind,omitempty"`
	// ErrMessage is the failure description.
	ErrMessage string `msgpack:"err_message,omitempty"`
	// Collision carries the structured collision details when the failure
	// was a seed collision.
	Collision *CollisionInfo `msgpack:"collision,omitempty"`
}

// CollisionInfo is the wire form of a CollisionError.
type CollisionInfo struct {
	Seed   uint32 `msgpack:"seed"`
	First  string `msgpack:"first"`
	Second string `msgpack:"second"`
}

// LogFrame forwards one worker log entry to the parent, which re-logs it.
// Workers emit these for failures whose context would otherwise die with
// the process.
type LogFrame struct {
	// Type is always LogFrameType.
	Type string `msgpack:"type"`
	// Level is the zap level name (debug, info, warn, error).
	Level string `msgpack:"level"`
	// Message is the log message.
	Message string `msgpack:"message"`
	// Fields carries structured context.
	Fields map[string]any `msgpack:"fields,omitempty"`
}
