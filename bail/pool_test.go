package bail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gunwale-io/bailer/metrics"
	"github.com/gunwale-io/bailer/types"
)

// funcWorker adapts a function to the Worker interface.
type funcWorker func(ctx context.Context, task *types.Task) *TaskResult

func (f funcWorker) Execute(ctx context.Context, task *types.Task) *TaskResult {
	return f(ctx, task)
}

// poolTasks builds n tasks whose Point encodes the submission index.
func poolTasks(n int) []*types.Task {
	tasks := make([]*types.Task, n)
	for i := range tasks {
		tasks[i] = &types.Task{
			Protocol: types.ProtocolVersion,
			Kind:     types.TaskInvertPoint,
			Params: &types.ComputeParams{
				Point: float64(i),
				Seed:  uint32(i + 1),
			},
		}
	}
	return tasks
}

// echoFactory returns workers that name their artifact after the task index.
func echoFactory(delay func(index int) time.Duration) WorkerFactory {
	return func() Worker {
		return funcWorker(func(_ context.Context, task *types.Task) *TaskResult {
			index := int(task.Params.Point)
			if delay != nil {
				time.Sleep(delay(index))
			}
			return &TaskResult{Artifact: &types.Artifact{
				Name: fmt.Sprintf("point_%d", index),
				Data: []byte{byte(index)},
			}}
		})
	}
}

func TestPool_PreservesSubmissionOrder(t *testing.T) {
	// The first tasks take longest, so completion order is roughly the
	// reverse of submission order.
	const n = 8
	pool := &Pool{
		Workers: 4,
		Factory: echoFactory(func(index int) time.Duration {
			return time.Duration(n-index) * 5 * time.Millisecond
		}),
	}

	var got []int
	for r := range pool.Map(context.Background(), poolTasks(n)) {
		if r.Err != nil {
			t.Fatalf("task %d failed: %v", r.Index, r.Err)
		}
		got = append(got, r.Index)
		if want := fmt.Sprintf("point_%d", r.Index); r.Artifact.Name != want {
			t.Errorf("result %d carries artifact %q, want %q", r.Index, r.Artifact.Name, want)
		}
	}

	if len(got) != n {
		t.Fatalf("received %d results, want %d", len(got), n)
	}
	for i, index := range got {
		if index != i {
			t.Fatalf("result order = %v, want ascending submission order", got)
		}
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	var inFlight, peak atomic.Int64

	pool := &Pool{
		Workers: workers,
		Factory: func() Worker {
			return funcWorker(func(_ context.Context, _ *types.Task) *TaskResult {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
				return &TaskResult{}
			})
		},
	}

	if _, err := pool.Gather(context.Background(), poolTasks(12)); err != nil {
		t.Fatalf("Gather = %v", err)
	}

	if p := peak.Load(); p > workers {
		t.Errorf("peak concurrent workers = %d, want <= %d", p, workers)
	}
	if p := peak.Load(); p < 2 {
		t.Errorf("peak concurrent workers = %d, want parallelism > 1", p)
	}
}

func TestPool_GatherReturnsEarliestFailure(t *testing.T) {
	factory := func() Worker {
		return funcWorker(func(_ context.Context, task *types.Task) *TaskResult {
			index := int(task.Params.Point)
			if index == 1 || index == 3 {
				return &TaskResult{Err: &types.TaskError{
					Kind:    types.FailureCompute,
					Message: fmt.Sprintf("task %d exploded", index),
				}}
			}
			return &TaskResult{Artifact: &types.Artifact{Name: "ok"}}
		})
	}

	pool := &Pool{Workers: 2, Factory: factory}
	results, err := pool.Gather(context.Background(), poolTasks(5))

	if err == nil {
		t.Fatal("Gather err = nil, want first failure")
	}
	if !strings.Contains(err.Error(), "task 1") {
		t.Errorf("Gather err = %v, want the earliest failed position", err)
	}
	var taskErr *types.TaskError
	if !errors.As(err, &taskErr) {
		t.Errorf("Gather err = %T, want *types.TaskError underneath", err)
	}

	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want all 5 despite failures", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("results[%d].Index = %d, want %d", i, r.Index, i)
		}
	}
	if results[3].Err == nil {
		t.Error("results[3].Err = nil, want second failure present in the slice")
	}
}

func TestPool_CancelStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	started := atomic.Int64{}
	pool := &Pool{
		Workers: 1,
		Factory: func() Worker {
			return funcWorker(func(ctx context.Context, _ *types.Task) *TaskResult {
				started.Add(1)
				select {
				case <-time.After(20 * time.Millisecond):
				case <-ctx.Done():
				}
				return &TaskResult{}
			})
		},
	}

	out := pool.Map(ctx, poolTasks(10))

	// Take one result, then cancel and drain to closure.
	first, ok := <-out
	if !ok {
		t.Fatal("channel closed before first result")
	}
	if first.Index != 0 {
		t.Fatalf("first.Index = %d, want 0", first.Index)
	}
	cancel()

	received := 1
	for range out {
		received++
	}

	if received >= 10 {
		t.Errorf("received %d results after early cancel, want fewer than submitted", received)
	}
	if n := started.Load(); n >= 10 {
		t.Errorf("started %d workers after early cancel, want dispatch to stop", n)
	}
}

func TestPool_GatherReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := &Pool{Workers: 2, Factory: echoFactory(nil)}
	_, err := pool.Gather(ctx, poolTasks(4))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Gather err = %v, want context.Canceled", err)
	}
}

func TestPool_Run(t *testing.T) {
	pool := &Pool{Workers: 1, Factory: echoFactory(nil)}

	r, err := pool.Run(context.Background(), poolTasks(1)[0])
	if err != nil {
		t.Fatalf("Run = %v", err)
	}
	if r.Artifact == nil || r.Artifact.Name != "point_0" {
		t.Errorf("Run artifact = %+v, want point_0", r.Artifact)
	}

	failing := &Pool{Workers: 1, Factory: func() Worker {
		return funcWorker(func(_ context.Context, _ *types.Task) *TaskResult {
			return &TaskResult{Err: &types.TaskError{Kind: types.FailureLoad, Message: "no such workspace"}}
		})
	}}

	_, err = failing.Run(context.Background(), poolTasks(1)[0])
	var taskErr *types.TaskError
	if !errors.As(err, &taskErr) || taskErr.Kind != types.FailureLoad {
		t.Errorf("Run err = %v, want the worker's load failure", err)
	}
}

func TestPool_DefaultWorkerCount(t *testing.T) {
	pool := &Pool{Factory: echoFactory(nil)}

	results, err := pool.Gather(context.Background(), poolTasks(3))
	if err != nil {
		t.Fatalf("Gather = %v", err)
	}
	if len(results) != 3 {
		t.Errorf("len(results) = %d, want 3", len(results))
	}
}

func TestPool_RecordsMetrics(t *testing.T) {
	collector := metrics.NewCollector("frequentist", "one-sided-profile-likelihood", "run-pool")

	factory := func() Worker {
		return funcWorker(func(_ context.Context, task *types.Task) *TaskResult {
			if int(task.Params.Point) == 2 {
				return &TaskResult{Err: &types.TaskError{Kind: types.FailureCompute, Message: "boom"}}
			}
			return &TaskResult{Artifact: &types.Artifact{Name: "a", Data: make([]byte, 100)}}
		})
	}

	pool := &Pool{Workers: 2, Factory: factory, Collector: collector}
	if _, err := pool.Gather(context.Background(), poolTasks(4)); err == nil {
		t.Fatal("Gather err = nil, want the planted failure")
	}

	snap := collector.Snapshot()
	if snap.TasksStarted != 4 {
		t.Errorf("TasksStarted = %d, want 4", snap.TasksStarted)
	}
	if snap.TasksSucceeded != 3 {
		t.Errorf("TasksSucceeded = %d, want 3", snap.TasksSucceeded)
	}
	if snap.TasksFailed != 1 {
		t.Errorf("TasksFailed = %d, want 1", snap.TasksFailed)
	}
	if snap.ArtifactBytes != 300 {
		t.Errorf("ArtifactBytes = %d, want 300", snap.ArtifactBytes)
	}
}
