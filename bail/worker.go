package bail

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gunwale-io/bailer/ipc"
	"github.com/gunwale-io/bailer/log"
	"github.com/gunwale-io/bailer/metrics"
	"github.com/gunwale-io/bailer/types"
)

// TaskResult is the outcome of one worker execution.
type TaskResult struct {
	// Artifact is the result payload when the task yields an artifact.
	Artifact *types.Artifact
	// Record is the result payload when the task yields a dump record.
	Record *types.DumpRecord
	// Err is non-nil when the task failed.
	Err error
	// Stderr is the captured worker stderr, kept for diagnostics.
	Stderr []byte
}

// ProcessWorker runs each task in a fresh worker process and classifies the
// outcome from the exit code and the frame stream.
type ProcessWorker struct {
	// Path is the worker binary path.
	Path string
	// Args are extra arguments for the worker binary.
	Args []string
	// Logger receives relayed worker logs. Defaults to a nop logger.
	Logger *log.Logger
	// Collector records worker metrics. Nil-safe.
	Collector *metrics.Collector
	// Factory overrides process creation (for testing). If nil, real
	// processes are launched from Path.
	Factory LauncherFactory
}

// Execute runs one task in a fresh process.
//
// Execution flow:
//  1. Start the worker and write the task to its stdin
//  2. Read the frame stream off stdout until EOF (concurrent)
//  3. Reap the process
//  4. Classify the outcome from the exit code and result frame
func (w *ProcessWorker) Execute(ctx context.Context, task *types.Task) *TaskResult {
	logger := w.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	var launcher Launcher
	if w.Factory != nil {
		launcher = w.Factory(task)
	} else {
		launcher = NewProc(w.Path, w.Args, task)
	}

	if err := launcher.Start(ctx); err != nil {
		logger.Error("failed to start worker", map[string]any{
			"kind":  string(task.Kind),
			"error": err.Error(),
		})
		return &TaskResult{Err: &types.TaskError{
			Kind:    types.FailureInternal,
			Message: fmt.Sprintf("failed to start worker: %v", err),
		}}
	}
	w.Collector.IncWorkerSpawned()

	in := newIngestion(launcher.Stdout(), logger)

	ingestionDone := make(chan error, 1)
	go func() {
		ingestionDone <- in.run(ctx)
	}()

	// Wait for ingestion FIRST. exec.Cmd.Wait() closes the stdout pipe,
	// which would fail the frame loop's reads with "file already closed"
	// even when data is still sitting in the pipe buffer.
	ingErr := <-ingestionDone

	// On any ingestion error the stream can no longer be trusted; kill the
	// worker rather than let it keep emitting.
	if ingErr != nil {
		logger.Warn("killing worker after stream error", map[string]any{
			"error": ingErr.Error(),
		})
		_ = launcher.Kill()
	}

	proc, waitErr := launcher.Wait()
	if waitErr != nil {
		w.Collector.IncWorkerCrash()
		logger.Error("worker wait failed", map[string]any{
			"error": waitErr.Error(),
		})
		return &TaskResult{Err: &types.TaskError{
			Kind:    types.FailureInternal,
			Message: fmt.Sprintf("worker wait failed: %v", waitErr),
		}}
	}

	if ingErr != nil {
		w.Collector.IncWorkerCrash()
		return &TaskResult{
			Err: &types.TaskError{
				Kind:    types.FailureInternal,
				Message: fmt.Sprintf("worker stream error (exit code %d): %v", proc.ExitCode, ingErr),
			},
			Stderr: proc.StderrBytes,
		}
	}

	if proc.ExitCode != ipc.ExitOK {
		if proc.ExitCode != ipc.ExitTaskError && proc.ExitCode != ipc.ExitInvalidInput {
			w.Collector.IncWorkerCrash()
		}
		return &TaskResult{
			Err:    classifyFailure(proc.ExitCode, in.result),
			Stderr: proc.StderrBytes,
		}
	}

	// Exit 0 requires an ok result frame and a complete payload; anything
	// less is an anomaly classified as a crash.
	frame := in.result
	if frame == nil {
		w.Collector.IncWorkerCrash()
		return &TaskResult{
			Err: &types.TaskError{
				Kind:    types.FailureInternal,
				Message: "worker exited cleanly without a result frame",
			},
			Stderr: proc.StderrBytes,
		}
	}
	if frame.Status != types.ResultOK {
		logger.Warn("exit code conflicts with result frame", map[string]any{
			"exit_code": proc.ExitCode,
			"status":    string(frame.Status),
		})
		return &TaskResult{
			Err: &types.TaskError{
				Kind:    types.FailureInternal,
				Message: fmt.Sprintf("worker exited cleanly but reported failure: %s", frame.ErrMessage),
			},
			Stderr: proc.StderrBytes,
		}
	}

	return materialize(frame, in.assembler, proc)
}

// materialize turns a successful frame stream into the task's payload.
func materialize(frame *types.ResultFrame, assembler *ChunkAssembler, proc *ProcResult) *TaskResult {
	switch frame.Payload {
	case types.PayloadNone:
		return &TaskResult{Stderr: proc.StderrBytes}

	case types.PayloadArtifact:
		if !assembler.Complete() {
			return &TaskResult{
				Err: &types.TaskError{
					Kind:    types.FailureInternal,
					Message: "worker exited cleanly with an incomplete payload",
				},
				Stderr: proc.StderrBytes,
			}
		}
		return &TaskResult{
			Artifact: &types.Artifact{Name: frame.ArtifactName, Data: assembler.Bytes()},
			Stderr:   proc.StderrBytes,
		}

	case types.PayloadRecord:
		if !assembler.Complete() {
			return &TaskResult{
				Err: &types.TaskError{
					Kind:    types.FailureInternal,
					Message: "worker exited cleanly with an incomplete payload",
				},
				Stderr: proc.StderrBytes,
			}
		}
		var record types.DumpRecord
		if err := msgpack.Unmarshal(assembler.Bytes(), &record); err != nil {
			return &TaskResult{
				Err: &types.TaskError{
					Kind:    types.FailureInternal,
					Message: fmt.Sprintf("result record decode failed: %v", err),
				},
				Stderr: proc.StderrBytes,
			}
		}
		return &TaskResult{Record: &record, Stderr: proc.StderrBytes}

	default:
		return &TaskResult{
			Err: &types.TaskError{
				Kind:    types.FailureInternal,
				Message: fmt.Sprintf("unknown payload kind %q", frame.Payload),
			},
			Stderr: proc.StderrBytes,
		}
	}
}
