package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gunwale-io/bailer/engine"
	"github.com/gunwale-io/bailer/ipc"
	"github.com/gunwale-io/bailer/log"
	"github.com/gunwale-io/bailer/types"
)

// Run executes one task end to end: decode stdin, dispatch, stream frames to
// stdout, log to stderr. The return value is the process exit code.
//
// A panic is deliberately not recovered: the runtime's abnormal exit is the
// crash signal the parent classifies on.
func Run(stdin io.Reader, stdout, stderr io.Writer) int {
	encoder := ipc.NewFrameEncoder(stdout)

	var task types.Task
	if err := json.NewDecoder(stdin).Decode(&task); err != nil {
		logger := newLogger(&task, stderr)
		return fail(encoder, logger, &types.TaskError{
			Kind:    types.FailureInput,
			Message: fmt.Sprintf("undecodable task document: %v", err),
		})
	}

	logger := newLogger(&task, stderr)
	logger.Info("task received", map[string]any{
		"kind":     string(task.Kind),
		"protocol": task.Protocol,
	})

	out, err := Dispatch(&task)
	if err != nil {
		return fail(encoder, logger, err)
	}
	return emit(encoder, logger, out)
}

// newLogger builds the worker's stderr logger with whatever run context the
// task carries.
func newLogger(task *types.Task, stderr io.Writer) *log.Logger {
	meta := &types.RunMeta{RunID: task.RunID}
	if task.Params != nil {
		meta.Seed = int(task.Params.Seed)
	}
	return log.NewLogger(meta).WithOutput(stderr)
}

// fail logs a task failure, emits the terminal error frame, and picks the
// exit code. Load failures additionally emit a log frame so the parent's
// log keeps the context that would otherwise die with this process.
func fail(encoder *ipc.FrameEncoder, logger *log.Logger, err error) int {
	frame := failureFrame(err)

	logger.Error("task failed", map[string]any{
		"kind":  string(frame.ErrKind),
		"error": err.Error(),
	})

	var loadErr *engine.LoadError
	if errors.As(err, &loadErr) {
		_ = encoder.WriteFrame(&types.LogFrame{
			Type:    types.LogFrameType,
			Level:   "error",
			Message: "workspace load failed",
			Fields: map[string]any{
				"path":   loadErr.Path,
				"detail": loadErr.Detail,
			},
		})
	}

	if writeErr := encoder.WriteFrame(frame); writeErr != nil {
		logger.Error("failed to emit result frame", map[string]any{
			"error": writeErr.Error(),
		})
		return ipc.ExitCrash
	}

	if frame.ErrKind == types.FailureInput {
		return ipc.ExitInvalidInput
	}
	return ipc.ExitTaskError
}

// failureFrame builds the terminal error frame for an error, preserving the
// typed detail the parent needs for reconstruction.
func failureFrame(err error) *types.ResultFrame {
	frame := &types.ResultFrame{
		Type:       types.ResultFrameType,
		Status:     types.ResultError,
		Payload:    types.PayloadNone,
		ErrKind:    failureKind(err),
		ErrMessage: err.Error(),
	}

	// TaskError messages go over bare; the kind is already in ErrKind and
	// the parent re-wraps on its side.
	var taskErr *types.TaskError
	if errors.As(err, &taskErr) {
		frame.ErrMessage = taskErr.Message
	}

	var collision *types.CollisionError
	if errors.As(err, &collision) {
		frame.Collision = &types.CollisionInfo{
			Seed:   collision.Seed,
			First:  collision.First,
			Second: collision.Second,
		}
	}

	return frame
}

// emit streams a successful task's payload chunks and terminal frame.
func emit(encoder *ipc.FrameEncoder, logger *log.Logger, out *Output) int {
	frame := &types.ResultFrame{
		Type:    types.ResultFrameType,
		Status:  types.ResultOK,
		Payload: types.PayloadNone,
	}

	var payload []byte
	switch {
	case out.Artifact != nil:
		frame.Payload = types.PayloadArtifact
		frame.ArtifactName = out.Artifact.Name
		payload = out.Artifact.Data

	case out.Record != nil:
		encoded, err := engine.EncodeRecord(out.Record)
		if err != nil {
			return fail(encoder, logger, internalError(err))
		}
		frame.Payload = types.PayloadRecord
		payload = encoded
	}

	if frame.Payload != types.PayloadNone {
		if err := encoder.WritePayload(payload); err != nil {
			logger.Error("failed to stream payload", map[string]any{
				"error": err.Error(),
			})
			return ipc.ExitCrash
		}
	}

	if err := encoder.WriteFrame(frame); err != nil {
		logger.Error("failed to emit result frame", map[string]any{
			"error": err.Error(),
		})
		return ipc.ExitCrash
	}

	logger.Info("task completed", map[string]any{
		"payload": string(frame.Payload),
		"bytes":   len(payload),
	})
	return ipc.ExitOK
}
