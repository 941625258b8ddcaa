package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gunwale-io/bailer/types"
)

// FrameEncoder writes length-prefixed msgpack frames. It is the worker-side
// counterpart of FrameDecoder.
type FrameEncoder struct {
	writer io.Writer
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteFrame marshals v and writes it as one frame. Fails if the encoded
// payload exceeds MaxPayloadSize.
func (e *FrameEncoder) WriteFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("frame payload %d exceeds maximum %d", len(payload), MaxPayloadSize)
	}

	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := e.writer.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := e.writer.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// WritePayload streams data as a sequence of chunk frames, each carrying at
// most MaxChunkSize raw bytes, with Seq starting at 1 and IsLast on the
// final chunk. An empty payload still produces one empty terminal chunk so
// the receiver sees a well-formed sequence.
func (e *FrameEncoder) WritePayload(data []byte) error {
	seq := int64(1)
	for {
		n := len(data)
		if n > MaxChunkSize {
			n = MaxChunkSize
		}
		chunk := &types.ChunkFrame{
			Type:   types.ChunkFrameType,
			Seq:    seq,
			IsLast: n == len(data),
			Data:   data[:n],
		}
		if err := e.WriteFrame(chunk); err != nil {
			return err
		}
		if chunk.IsLast {
			return nil
		}
		data = data[n:]
		seq++
	}
}
