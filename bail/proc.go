package bail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/gunwale-io/bailer/types"
)

// Launcher abstracts worker process lifecycle for testing.
type Launcher interface {
	Start(ctx context.Context) error
	Stdout() io.Reader
	Wait() (*ProcResult, error)
	Kill() error
}

// LauncherFactory creates a Launcher for one task. Used for test injection.
type LauncherFactory func(task *types.Task) Launcher

// ProcResult is the exit state of a worker process.
type ProcResult struct {
	// ExitCode is the process exit code.
	ExitCode int
	// StderrBytes is the captured stderr output.
	StderrBytes []byte
}

// Proc manages one worker process. A process serves exactly one task and is
// reaped when the task ends, so whatever the engine leaked goes with it.
type Proc struct {
	path string
	args []string
	task *types.Task

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

// NewProc creates a process handle for one task.
func NewProc(path string, args []string, task *types.Task) *Proc {
	return &Proc{path: path, args: args, task: task}
}

// Start starts the worker process and hands it the task.
// The process reads one JSON task document from stdin. Stdout carries IPC
// frames; stderr is captured for diagnostics.
func (p *Proc) Start(ctx context.Context) error {
	p.cmd = exec.CommandContext(ctx, p.path, p.args...)

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	p.stdin = stdin

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	p.stdout = stdout

	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	p.stderr = stderr

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	if err := json.NewEncoder(stdin).Encode(p.task); err != nil {
		_ = p.Kill()
		return fmt.Errorf("failed to write task: %w", err)
	}

	// Close stdin to signal input complete
	if err := stdin.Close(); err != nil {
		_ = p.Kill()
		return fmt.Errorf("failed to close stdin: %w", err)
	}

	return nil
}

// Stdout returns the stdout reader for IPC frame reading.
func (p *Proc) Stdout() io.Reader {
	return p.stdout
}

// Wait waits for the worker to exit and returns its exit state.
// Must be called after Start, and only after stdout has been drained.
func (p *Proc) Wait() (*ProcResult, error) {
	if p.cmd == nil {
		return nil, errors.New("worker not started")
	}

	stderrBytes, _ := io.ReadAll(p.stderr)

	err := p.cmd.Wait()

	result := &ProcResult{
		StderrBytes: stderrBytes,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				result.ExitCode = status.ExitStatus()
			} else {
				result.ExitCode = -1
			}
		} else {
			return nil, fmt.Errorf("worker wait failed: %w", err)
		}
	}

	return result, nil
}

// Kill terminates the worker process.
func (p *Proc) Kill() error {
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}
