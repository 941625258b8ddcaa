package bail

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gunwale-io/bailer/ipc"
	"github.com/gunwale-io/bailer/log"
	"github.com/gunwale-io/bailer/types"
)

// ingestion reads a worker's stdout stream: chunk frames go into the
// assembler, log frames are relayed to the parent logger, and the terminal
// result frame is held for outcome classification.
type ingestion struct {
	decoder   *ipc.FrameDecoder
	assembler *ChunkAssembler
	logger    *log.Logger
	result    *types.ResultFrame
}

func newIngestion(r io.Reader, logger *log.Logger) *ingestion {
	return &ingestion{
		decoder:   ipc.NewFrameDecoder(r),
		assembler: NewChunkAssembler(),
		logger:    logger,
	}
}

// run reads frames until EOF or a fatal error. A clean EOF returns nil
// whether or not a result frame arrived; the exit code is authoritative for
// the outcome, the frame only supplies detail.
func (in *ingestion) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		payload, err := in.decoder.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			// Once the result frame is in, pipe closure is just the worker
			// exiting, not a stream error.
			if in.result != nil {
				in.logger.Debug("pipe closed after result frame", map[string]any{
					"error": err.Error(),
				})
				return nil
			}

			return fmt.Errorf("frame error: %w", err)
		}

		if err := in.process(payload); err != nil {
			return err
		}
	}
}

// process decodes and routes a single frame.
func (in *ingestion) process(payload []byte) error {
	decoded, err := ipc.DecodeFrame(payload)
	if err != nil {
		// Framing is still intact on a non-fatal decode error, so an
		// unknown frame type from a newer worker is skipped rather than
		// failing the task.
		if !ipc.IsFatalFrameError(err) {
			in.logger.Warn("skipping undecodable frame", map[string]any{
				"error": err.Error(),
			})
			return nil
		}
		return fmt.Errorf("frame decode error: %w", err)
	}

	switch frame := decoded.(type) {
	case *types.ChunkFrame:
		if in.result != nil {
			return fmt.Errorf("chunk seq %d received after result frame", frame.Seq)
		}
		if err := in.assembler.Add(frame); err != nil {
			return fmt.Errorf("payload chunk rejected: %w", err)
		}
		return nil

	case *types.ResultFrame:
		if in.result != nil {
			// First result frame wins; a duplicate is worker misbehavior
			// worth a warning but not a failed task.
			in.logger.Warn("ignoring duplicate result frame", nil)
			return nil
		}
		in.result = frame
		return nil

	case *types.LogFrame:
		in.relayLog(frame)
		return nil

	default:
		return fmt.Errorf("unexpected frame type: %T", decoded)
	}
}

// relayLog re-logs a worker log frame on the parent logger, so context from
// inside the containment boundary survives the process.
func (in *ingestion) relayLog(frame *types.LogFrame) {
	switch frame.Level {
	case "debug":
		in.logger.Debug(frame.Message, frame.Fields)
	case "warn":
		in.logger.Warn(frame.Message, frame.Fields)
	case "error":
		in.logger.Error(frame.Message, frame.Fields)
	default:
		in.logger.Info(frame.Message, frame.Fields)
	}
}
