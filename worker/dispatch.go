// Package worker implements the disposable one-task worker process.
//
// A worker reads a single JSON task document from stdin, executes it with
// the engine, streams the result back as length-prefixed msgpack frames on
// stdout, and exits. Everything the engine leaked goes down with the
// process; the parent never calls the engine for toy computation itself.
package worker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gunwale-io/bailer/engine"
	"github.com/gunwale-io/bailer/types"
)

// Output is the payload a dispatched task produced.
type Output struct {
	// Artifact is set by compute and artifact-merge kinds.
	Artifact *types.Artifact
	// Record is set by the record-merge kind.
	Record *types.DumpRecord
}

// Dispatch validates a task and executes it in-process.
//
// Compute kinds load their workspace themselves; the parent only ships a
// reference. Merge kinds fold their inputs pairwise left to right.
func Dispatch(task *types.Task) (*Output, error) {
	if err := checkProtocol(task.Protocol); err != nil {
		return nil, err
	}
	if err := task.Validate(); err != nil {
		return nil, &types.TaskError{Kind: types.FailureInput, Message: err.Error()}
	}

	switch task.Kind {
	case types.TaskInvertPoint:
		ws, err := engine.OpenRef(task.Workspace)
		if err != nil {
			return nil, err
		}
		result, err := engine.RunInversionPoint(ws, task.Params)
		if err != nil {
			return nil, err
		}
		artifact, err := engine.EncodeInversion(result)
		if err != nil {
			return nil, internalError(err)
		}
		return &Output{Artifact: artifact}, nil

	case types.TaskHypoTest:
		ws, err := engine.OpenRef(task.Workspace)
		if err != nil {
			return nil, err
		}
		result, err := engine.RunHypoTest(ws, task.Params)
		if err != nil {
			return nil, err
		}
		artifact, err := engine.EncodeTest(result)
		if err != nil {
			return nil, internalError(err)
		}
		return &Output{Artifact: artifact}, nil

	case types.TaskMergeInversions:
		merged, err := engine.MergeInversionChunk(task.Artifacts)
		if err != nil {
			return nil, err
		}
		return &Output{Artifact: merged}, nil

	case types.TaskMergeTests:
		merged, err := engine.MergeTestChunk(task.Artifacts)
		if err != nil {
			return nil, err
		}
		return &Output{Artifact: merged}, nil

	case types.TaskMergeRecords:
		merged, err := engine.MergeRecordChunk(task.Records)
		if err != nil {
			return nil, err
		}
		return &Output{Record: merged}, nil

	default:
		return nil, &types.TaskError{
			Kind:    types.FailureInput,
			Message: fmt.Sprintf("unknown task kind %q", task.Kind),
		}
	}
}

// checkProtocol rejects task documents whose protocol major version this
// worker does not speak.
func checkProtocol(version string) error {
	if majorOf(version) != majorOf(types.ProtocolVersion) {
		return &types.TaskError{
			Kind:    types.FailureInput,
			Message: fmt.Sprintf("protocol %q not supported (worker speaks %s)", version, types.ProtocolVersion),
		}
	}
	return nil
}

func majorOf(version string) string {
	major, _, _ := strings.Cut(version, ".")
	return major
}

// failureKind maps an error onto the wire classification the parent
// reconstructs from.
func failureKind(err error) types.FailureKind {
	var loadErr *engine.LoadError
	if errors.As(err, &loadErr) {
		return types.FailureLoad
	}
	var collision *types.CollisionError
	if errors.As(err, &collision) {
		return types.FailureCollision
	}
	var taskErr *types.TaskError
	if errors.As(err, &taskErr) {
		return taskErr.Kind
	}
	return types.FailureCompute
}

func internalError(err error) error {
	return &types.TaskError{Kind: types.FailureInternal, Message: err.Error()}
}
