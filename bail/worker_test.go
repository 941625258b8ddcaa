package bail

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gunwale-io/bailer/ipc"
	"github.com/gunwale-io/bailer/log"
	"github.com/gunwale-io/bailer/metrics"
	"github.com/gunwale-io/bailer/types"
)

// fakeLauncher simulates a worker process with scripted stdout, stderr, and
// exit code.
type fakeLauncher struct {
	mu       sync.Mutex
	stdout   *bytes.Buffer
	stderr   []byte
	exitCode int
	startErr error
	waitErr  error
	killed   bool
}

func newFakeLauncher(stdout []byte, exitCode int) *fakeLauncher {
	return &fakeLauncher{stdout: bytes.NewBuffer(stdout), exitCode: exitCode}
}

func (f *fakeLauncher) Start(_ context.Context) error {
	return f.startErr
}

func (f *fakeLauncher) Stdout() io.Reader {
	return f.stdout
}

func (f *fakeLauncher) Wait() (*ProcResult, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &ProcResult{ExitCode: f.exitCode, StderrBytes: f.stderr}, nil
}

func (f *fakeLauncher) Kill() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = true
	return nil
}

func (f *fakeLauncher) wasKilled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.killed
}

// framed wraps a payload with the big-endian length prefix.
func framed(payload []byte) []byte {
	buf := make([]byte, ipc.LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:ipc.LengthPrefixSize], uint32(len(payload)))
	copy(buf[ipc.LengthPrefixSize:], payload)
	return buf
}

func framedChunk(t *testing.T, seq int64, isLast bool, data []byte) []byte {
	t.Helper()
	payload, err := msgpack.Marshal(&types.ChunkFrame{
		Type:   types.ChunkFrameType,
		Seq:    seq,
		IsLast: isLast,
		Data:   data,
	})
	if err != nil {
		t.Fatalf("marshal chunk frame: %v", err)
	}
	return framed(payload)
}

func framedResult(t *testing.T, frame *types.ResultFrame) []byte {
	t.Helper()
	frame.Type = types.ResultFrameType
	payload, err := msgpack.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal result frame: %v", err)
	}
	return framed(payload)
}

func framedLog(t *testing.T, level, message string) []byte {
	t.Helper()
	payload, err := msgpack.Marshal(&types.LogFrame{
		Type:    types.LogFrameType,
		Level:   level,
		Message: message,
	})
	if err != nil {
		t.Fatalf("marshal log frame: %v", err)
	}
	return framed(payload)
}

func okArtifactStream(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	var stream []byte
	stream = append(stream, framedChunk(t, 1, true, data)...)
	stream = append(stream, framedResult(t, &types.ResultFrame{
		Status:       types.ResultOK,
		Payload:      types.PayloadArtifact,
		ArtifactName: name,
	})...)
	return stream
}

func execTask() *types.Task {
	return &types.Task{
		Protocol: types.ProtocolVersion,
		Kind:     types.TaskInvertPoint,
	}
}

func executeFake(launcher Launcher) *TaskResult {
	w := &ProcessWorker{
		Factory: func(_ *types.Task) Launcher { return launcher },
	}
	return w.Execute(context.Background(), execTask())
}

func TestProcessWorker_ArtifactResult(t *testing.T) {
	var stream []byte
	stream = append(stream, framedChunk(t, 1, false, []byte("abc"))...)
	stream = append(stream, framedChunk(t, 2, true, []byte("def"))...)
	stream = append(stream, framedResult(t, &types.ResultFrame{
		Status:       types.ResultOK,
		Payload:      types.PayloadArtifact,
		ArtifactName: "result_mu_SIG",
	})...)

	tr := executeFake(newFakeLauncher(stream, ipc.ExitOK))
	if tr.Err != nil {
		t.Fatalf("Execute Err = %v", tr.Err)
	}
	if tr.Artifact == nil {
		t.Fatal("Artifact = nil")
	}
	if tr.Artifact.Name != "result_mu_SIG" {
		t.Errorf("Artifact.Name = %q, want %q", tr.Artifact.Name, "result_mu_SIG")
	}
	if !bytes.Equal(tr.Artifact.Data, []byte("abcdef")) {
		t.Errorf("Artifact.Data = %q, want %q", tr.Artifact.Data, "abcdef")
	}
	if tr.Record != nil {
		t.Errorf("Record = %+v, want nil", tr.Record)
	}
}

func TestProcessWorker_RecordResult(t *testing.T) {
	record := types.NewDumpRecord(42, "run-1",
		&types.Artifact{Name: "result_mu_SIG", Data: []byte("blob")}, nil)
	payload, err := msgpack.Marshal(record)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}

	var stream []byte
	stream = append(stream, framedChunk(t, 1, true, payload)...)
	stream = append(stream, framedResult(t, &types.ResultFrame{
		Status:  types.ResultOK,
		Payload: types.PayloadRecord,
	})...)

	tr := executeFake(newFakeLauncher(stream, ipc.ExitOK))
	if tr.Err != nil {
		t.Fatalf("Execute Err = %v", tr.Err)
	}
	if tr.Record == nil {
		t.Fatal("Record = nil")
	}
	if got := tr.Record.Seeds[42]; got != "run-1" {
		t.Errorf("Seeds[42] = %q, want %q", got, "run-1")
	}
	if tr.Record.Invert == nil || tr.Record.Invert.Name != "result_mu_SIG" {
		t.Errorf("Invert = %+v, want artifact result_mu_SIG", tr.Record.Invert)
	}
}

func TestProcessWorker_NoPayload(t *testing.T) {
	stream := framedResult(t, &types.ResultFrame{
		Status:  types.ResultOK,
		Payload: types.PayloadNone,
	})

	tr := executeFake(newFakeLauncher(stream, ipc.ExitOK))
	if tr.Err != nil {
		t.Fatalf("Execute Err = %v", tr.Err)
	}
	if tr.Artifact != nil || tr.Record != nil {
		t.Errorf("payload = (%+v, %+v), want (nil, nil)", tr.Artifact, tr.Record)
	}
}

func TestProcessWorker_TaskError(t *testing.T) {
	stream := framedResult(t, &types.ResultFrame{
		Status:     types.ResultError,
		Payload:    types.PayloadNone,
		ErrKind:    types.FailureCompute,
		ErrMessage: "toys must be positive",
	})

	tr := executeFake(newFakeLauncher(stream, ipc.ExitTaskError))
	if tr.Err == nil {
		t.Fatal("Execute Err = nil, want task error")
	}

	var taskErr *types.TaskError
	if !errors.As(tr.Err, &taskErr) {
		t.Fatalf("Err = %T, want *types.TaskError", tr.Err)
	}
	if taskErr.Kind != types.FailureCompute {
		t.Errorf("Kind = %q, want %q", taskErr.Kind, types.FailureCompute)
	}
	if taskErr.Message != "toys must be positive" {
		t.Errorf("Message = %q, want %q", taskErr.Message, "toys must be positive")
	}
}

func TestProcessWorker_CollisionError(t *testing.T) {
	stream := framedResult(t, &types.ResultFrame{
		Status:     types.ResultError,
		Payload:    types.PayloadNone,
		ErrKind:    types.FailureCollision,
		ErrMessage: "seed collision",
		Collision: &types.CollisionInfo{
			Seed:   65537,
			First:  "a_dump.msgpack",
			Second: "run-2",
		},
	})

	tr := executeFake(newFakeLauncher(stream, ipc.ExitTaskError))

	var collision *types.CollisionError
	if !errors.As(tr.Err, &collision) {
		t.Fatalf("Err = %T (%v), want *types.CollisionError", tr.Err, tr.Err)
	}
	if collision.Seed != 65537 {
		t.Errorf("Seed = %d, want 65537", collision.Seed)
	}
	if collision.First != "a_dump.msgpack" || collision.Second != "run-2" {
		t.Errorf("provenance = (%q, %q), want (a_dump.msgpack, run-2)", collision.First, collision.Second)
	}
}

func TestProcessWorker_CleanExitWithoutResultFrame(t *testing.T) {
	collector := metrics.NewCollector("frequentist", "one-sided-profile-likelihood", "run-anomaly")
	launcher := newFakeLauncher(nil, ipc.ExitOK)
	w := &ProcessWorker{
		Factory:   func(_ *types.Task) Launcher { return launcher },
		Collector: collector,
	}

	tr := w.Execute(context.Background(), execTask())
	if tr.Err == nil {
		t.Fatal("Execute Err = nil, want anomaly error")
	}
	if !strings.Contains(tr.Err.Error(), "without a result frame") {
		t.Errorf("Err = %v, want mention of missing result frame", tr.Err)
	}

	snap := collector.Snapshot()
	if snap.WorkersSpawned != 1 {
		t.Errorf("WorkersSpawned = %d, want 1", snap.WorkersSpawned)
	}
	if snap.WorkerCrashes != 1 {
		t.Errorf("WorkerCrashes = %d, want 1", snap.WorkerCrashes)
	}
}

func TestProcessWorker_Crash(t *testing.T) {
	launcher := newFakeLauncher(framedLog(t, "error", "engine fault"), ipc.ExitCrash)
	launcher.stderr = []byte("panic: runtime error")

	tr := executeFake(launcher)
	if tr.Err == nil {
		t.Fatal("Execute Err = nil, want crash error")
	}
	if !strings.Contains(tr.Err.Error(), "worker crashed") {
		t.Errorf("Err = %v, want crash classification", tr.Err)
	}
	if !bytes.Equal(tr.Stderr, []byte("panic: runtime error")) {
		t.Errorf("Stderr = %q, want captured stderr", tr.Stderr)
	}
}

func TestProcessWorker_InvalidInput(t *testing.T) {
	stream := framedResult(t, &types.ResultFrame{
		Status:     types.ResultError,
		Payload:    types.PayloadNone,
		ErrKind:    types.FailureInput,
		ErrMessage: "unknown task kind \"bisect\"",
	})

	tr := executeFake(newFakeLauncher(stream, ipc.ExitInvalidInput))

	var taskErr *types.TaskError
	if !errors.As(tr.Err, &taskErr) {
		t.Fatalf("Err = %T, want *types.TaskError", tr.Err)
	}
	if taskErr.Kind != types.FailureInput {
		t.Errorf("Kind = %q, want %q", taskErr.Kind, types.FailureInput)
	}
	if !strings.Contains(taskErr.Message, "bisect") {
		t.Errorf("Message = %q, want the frame's message", taskErr.Message)
	}
}

func TestProcessWorker_StreamErrorKillsWorker(t *testing.T) {
	// A truncated frame: the prefix declares 100 bytes, only 3 follow.
	stream := make([]byte, ipc.LengthPrefixSize+3)
	binary.BigEndian.PutUint32(stream[:ipc.LengthPrefixSize], 100)
	copy(stream[ipc.LengthPrefixSize:], "abc")

	launcher := newFakeLauncher(stream, ipc.ExitCrash)
	tr := executeFake(launcher)

	if tr.Err == nil {
		t.Fatal("Execute Err = nil, want stream error")
	}
	if !strings.Contains(tr.Err.Error(), "stream error") {
		t.Errorf("Err = %v, want stream error classification", tr.Err)
	}
	if !launcher.wasKilled() {
		t.Error("worker was not killed after stream error")
	}
}

func TestProcessWorker_ChunkAfterResultFrame(t *testing.T) {
	var stream []byte
	stream = append(stream, framedResult(t, &types.ResultFrame{
		Status:  types.ResultOK,
		Payload: types.PayloadNone,
	})...)
	stream = append(stream, framedChunk(t, 1, true, []byte("late"))...)

	launcher := newFakeLauncher(stream, ipc.ExitOK)
	tr := executeFake(launcher)

	if tr.Err == nil {
		t.Fatal("Execute Err = nil, want stream error")
	}
	if !launcher.wasKilled() {
		t.Error("worker was not killed after stream error")
	}
}

func TestProcessWorker_SkipsUnknownFrameType(t *testing.T) {
	unknown, err := msgpack.Marshal(map[string]any{"type": "heartbeat"})
	if err != nil {
		t.Fatalf("marshal unknown frame: %v", err)
	}

	var stream []byte
	stream = append(stream, framed(unknown)...)
	stream = append(stream, framedResult(t, &types.ResultFrame{
		Status:  types.ResultOK,
		Payload: types.PayloadNone,
	})...)

	tr := executeFake(newFakeLauncher(stream, ipc.ExitOK))
	if tr.Err != nil {
		t.Fatalf("Execute Err = %v, want unknown frame skipped", tr.Err)
	}
}

func TestProcessWorker_ExitCodeConflicts(t *testing.T) {
	t.Run("clean exit with error frame", func(t *testing.T) {
		stream := framedResult(t, &types.ResultFrame{
			Status:     types.ResultError,
			Payload:    types.PayloadNone,
			ErrKind:    types.FailureCompute,
			ErrMessage: "fit did not converge",
		})

		tr := executeFake(newFakeLauncher(stream, ipc.ExitOK))
		if tr.Err == nil {
			t.Fatal("Execute Err = nil, want anomaly error")
		}
		if !strings.Contains(tr.Err.Error(), "fit did not converge") {
			t.Errorf("Err = %v, want frame message carried through", tr.Err)
		}
	})

	t.Run("error exit with ok frame", func(t *testing.T) {
		stream := framedResult(t, &types.ResultFrame{
			Status:  types.ResultOK,
			Payload: types.PayloadNone,
		})

		tr := executeFake(newFakeLauncher(stream, ipc.ExitTaskError))
		if tr.Err == nil {
			t.Fatal("Execute Err = nil, want anomaly error")
		}
		if !strings.Contains(tr.Err.Error(), "reported success") {
			t.Errorf("Err = %v, want conflict classification", tr.Err)
		}
	})
}

func TestProcessWorker_IncompletePayload(t *testing.T) {
	var stream []byte
	stream = append(stream, framedChunk(t, 1, false, []byte("abc"))...)
	stream = append(stream, framedResult(t, &types.ResultFrame{
		Status:       types.ResultOK,
		Payload:      types.PayloadArtifact,
		ArtifactName: "result_mu_SIG",
	})...)

	tr := executeFake(newFakeLauncher(stream, ipc.ExitOK))
	if tr.Err == nil {
		t.Fatal("Execute Err = nil, want incomplete payload error")
	}
	if !strings.Contains(tr.Err.Error(), "incomplete payload") {
		t.Errorf("Err = %v, want incomplete payload classification", tr.Err)
	}
}

func TestProcessWorker_StartFailure(t *testing.T) {
	launcher := newFakeLauncher(nil, ipc.ExitOK)
	launcher.startErr = errors.New("fork/exec: no such file or directory")

	tr := executeFake(launcher)
	if tr.Err == nil {
		t.Fatal("Execute Err = nil, want start error")
	}
	if !strings.Contains(tr.Err.Error(), "failed to start worker") {
		t.Errorf("Err = %v, want start failure classification", tr.Err)
	}
}

func TestProcessWorker_WaitFailure(t *testing.T) {
	stream := framedResult(t, &types.ResultFrame{
		Status:  types.ResultOK,
		Payload: types.PayloadNone,
	})
	launcher := newFakeLauncher(stream, ipc.ExitOK)
	launcher.waitErr = errors.New("waitid: no child processes")

	tr := executeFake(launcher)
	if tr.Err == nil {
		t.Fatal("Execute Err = nil, want wait error")
	}
	if !strings.Contains(tr.Err.Error(), "worker wait failed") {
		t.Errorf("Err = %v, want wait failure classification", tr.Err)
	}
}

func TestProcessWorker_DuplicateResultFrameIgnored(t *testing.T) {
	var stream []byte
	stream = append(stream, framedResult(t, &types.ResultFrame{
		Status:  types.ResultOK,
		Payload: types.PayloadNone,
	})...)
	stream = append(stream, framedResult(t, &types.ResultFrame{
		Status:     types.ResultError,
		Payload:    types.PayloadNone,
		ErrKind:    types.FailureInternal,
		ErrMessage: "second frame",
	})...)

	tr := executeFake(newFakeLauncher(stream, ipc.ExitOK))
	if tr.Err != nil {
		t.Fatalf("Execute Err = %v, want first result frame to win", tr.Err)
	}
}

func TestProcessWorker_RelaysWorkerLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogger(&types.RunMeta{RunID: "run-logs", Seed: 7}).WithOutput(&buf)

	var stream []byte
	stream = append(stream, framedLog(t, "warn", "engine leaked 3 handles")...)
	stream = append(stream, framedResult(t, &types.ResultFrame{
		Status:  types.ResultOK,
		Payload: types.PayloadNone,
	})...)

	launcher := newFakeLauncher(stream, ipc.ExitOK)
	w := &ProcessWorker{
		Factory: func(_ *types.Task) Launcher { return launcher },
		Logger:  logger,
	}
	if tr := w.Execute(context.Background(), execTask()); tr.Err != nil {
		t.Fatalf("Execute Err = %v", tr.Err)
	}

	logged := buf.String()
	if !strings.Contains(logged, "engine leaked 3 handles") {
		t.Errorf("parent log missing relayed message: %s", logged)
	}
	if !strings.Contains(logged, `"level":"warn"`) {
		t.Errorf("parent log missing relayed level: %s", logged)
	}
}
