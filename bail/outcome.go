package bail

import (
	"fmt"

	"github.com/gunwale-io/bailer/ipc"
	"github.com/gunwale-io/bailer/types"
)

// classifyFailure maps a non-zero worker exit to a task error.
//
// Exit codes are authoritative for outcome classification. The result frame
// supplies detail (failure kind, message, collision info) but cannot turn a
// failed exit into a success.
//
// Exit code mapping (see ipc exit constants):
//   - 1: task error (should have an error result frame)
//   - 2: crash
//   - 3: invalid input
func classifyFailure(exitCode int, frame *types.ResultFrame) error {
	switch exitCode {
	case ipc.ExitTaskError:
		if frame != nil && frame.Status == types.ResultError {
			return resultError(frame)
		}
		if frame != nil {
			// Exit 1 with an ok frame = anomaly
			return &types.TaskError{
				Kind:    types.FailureInternal,
				Message: "worker exited with an error code but reported success",
			}
		}
		// Exit 1 without a result frame = anomaly, treat as crash
		return &types.TaskError{
			Kind:    types.FailureInternal,
			Message: "worker exited with an error code without a result frame",
		}

	case ipc.ExitCrash:
		return &types.TaskError{
			Kind:    types.FailureInternal,
			Message: "worker crashed",
		}

	case ipc.ExitInvalidInput:
		message := "worker rejected the task as invalid"
		if frame != nil && frame.ErrMessage != "" {
			message = frame.ErrMessage
		}
		return &types.TaskError{
			Kind:    types.FailureInput,
			Message: message,
		}

	default:
		return &types.TaskError{
			Kind:    types.FailureInternal,
			Message: fmt.Sprintf("worker exited with unexpected code %d", exitCode),
		}
	}
}

// resultError reconstructs the typed error described by an error result
// frame. Seed collisions come back as *types.CollisionError so callers can
// discriminate with errors.As exactly as they would for an in-process
// merge, even though the original error value died with the worker.
func resultError(frame *types.ResultFrame) error {
	if frame.ErrKind == types.FailureCollision && frame.Collision != nil {
		return &types.CollisionError{
			Seed:   frame.Collision.Seed,
			First:  frame.Collision.First,
			Second: frame.Collision.Second,
		}
	}

	kind := frame.ErrKind
	if kind == "" {
		kind = types.FailureInternal
	}
	return &types.TaskError{
		Kind:    kind,
		Message: frame.ErrMessage,
	}
}
