// Package bail runs tasks in disposable worker processes.
//
// Each task is handed to a fresh process that computes, streams its result
// back over stdout, and exits. The engine is assumed to leak; the process
// boundary is what contains it. The pool preserves submission order, so
// results come back in the same sequence the tasks went in regardless of
// which worker finishes first.
package bail

import (
	"bytes"
	"fmt"

	"github.com/gunwale-io/bailer/ipc"
	"github.com/gunwale-io/bailer/types"
)

// MaxPayloadBytes is the maximum reassembled payload size (1 GiB).
const MaxPayloadBytes = 1 * 1024 * 1024 * 1024

// ChunkAssembler reassembles a task payload from its chunk frames.
// A worker emits exactly one payload, so one assembler serves one task.
// Not safe for concurrent use; the ingestion loop is the only writer.
type ChunkAssembler struct {
	buf      bytes.Buffer
	nextSeq  int64
	complete bool
}

// NewChunkAssembler creates an assembler expecting the first chunk at seq 1.
func NewChunkAssembler() *ChunkAssembler {
	return &ChunkAssembler{nextSeq: 1}
}

// Add appends a chunk to the payload.
//
// Returns an error if:
//   - seq is not the expected next sequence (chunks must arrive in order,
//     starting at 1)
//   - a chunk arrives after is_last was seen
//   - chunk data exceeds the max chunk size
//   - the accumulated payload exceeds MaxPayloadBytes
func (a *ChunkAssembler) Add(chunk *types.ChunkFrame) error {
	if a.complete {
		return fmt.Errorf("chunk seq %d received after is_last", chunk.Seq)
	}
	if chunk.Seq != a.nextSeq {
		return fmt.Errorf("expected chunk seq %d, got %d", a.nextSeq, chunk.Seq)
	}
	if len(chunk.Data) > ipc.MaxChunkSize {
		return fmt.Errorf("chunk seq %d: size %d exceeds max %d",
			chunk.Seq, len(chunk.Data), ipc.MaxChunkSize)
	}
	newTotal := int64(a.buf.Len()) + int64(len(chunk.Data))
	if newTotal > MaxPayloadBytes {
		return fmt.Errorf("payload size %d exceeds max %d", newTotal, MaxPayloadBytes)
	}

	a.buf.Write(chunk.Data)
	a.nextSeq++
	if chunk.IsLast {
		a.complete = true
	}
	return nil
}

// Complete reports whether the terminal chunk (is_last) has been seen.
func (a *ChunkAssembler) Complete() bool {
	return a.complete
}

// Bytes returns the reassembled payload.
func (a *ChunkAssembler) Bytes() []byte {
	return a.buf.Bytes()
}

// Size returns the number of payload bytes accumulated so far.
func (a *ChunkAssembler) Size() int64 {
	return int64(a.buf.Len())
}
