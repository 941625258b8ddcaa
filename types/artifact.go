// Package types defines core domain types shared by the bailer CLI,
// the pipeline, and the worker binary.
package types

// Artifact is the serialized, boundary-crossable form of an engine result:
// an identifying name plus an opaque binary payload. A nil *Artifact is the
// valid "no result" value. Raw engine results never cross a process
// boundary; only Artifacts do.
type Artifact struct {
	// Name identifies the result object the payload encodes.
	Name string `msgpack:"name" json:"name"`
	// Data is the encoded result payload.
	Data []byte `msgpack:"data" json:"data"`
}

// Size returns the payload length in bytes. Safe on a nil Artifact.
func (a *Artifact) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// Clone returns a deep copy so the receiver can be released independently
// of its transport buffer. Returns nil for a nil Artifact.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Artifact{Name: a.Name, Data: data}
}
