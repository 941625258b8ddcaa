package bail

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gunwale-io/bailer/log"
	"github.com/gunwale-io/bailer/metrics"
	"github.com/gunwale-io/bailer/types"
)

// Worker executes one task and reports its outcome.
type Worker interface {
	Execute(ctx context.Context, task *types.Task) *TaskResult
}

// WorkerFactory creates a Worker for one task. Used for test injection;
// production pools hand out ProcessWorkers.
type WorkerFactory func() Worker

// Result pairs a task with its outcome, tagged by submission index.
type Result struct {
	// Index is the task's position in the submitted slice.
	Index int
	// Task is the submitted task.
	Task *types.Task
	// Artifact is the task's artifact payload, if it produced one.
	Artifact *types.Artifact
	// Record is the task's dump record payload, if it produced one.
	Record *types.DumpRecord
	// Err is non-nil when the task failed.
	Err error
}

// stderrTailBytes caps how much captured worker stderr a failure log carries.
const stderrTailBytes = 4096

// Pool runs tasks across disposable workers with bounded parallelism.
//
// Output order matches submission order regardless of which worker finishes
// first, so a caller can zip results back onto the inputs that produced
// them. The price is bounded read-ahead: a slow task holds back emission of
// the faster tasks behind it, and at most Workers+1 completed results are
// held in flight at once.
type Pool struct {
	// Workers caps concurrent worker processes. Zero or negative means
	// runtime.NumCPU().
	Workers int
	// Factory creates one Worker per task. Must be set.
	Factory WorkerFactory
	// Logger receives task failure logs. Defaults to a nop logger.
	Logger *log.Logger
	// Collector records task metrics. Nil-safe.
	Collector *metrics.Collector
}

// Map runs the tasks and streams results in submission order.
//
// The returned channel closes after the last result, or early if ctx is
// canceled. The caller owns draining it; an abandoned channel strands the
// emitter goroutine until cancellation.
func (p *Pool) Map(ctx context.Context, tasks []*types.Task) <-chan Result {
	workers := p.workerCount()

	out := make(chan Result)
	queue := make(chan chan Result, workers+1)

	// Dispatcher. The semaphore bounds live workers; the slot queue hands
	// the emitter one result channel per task in submission order.
	sem := make(chan struct{}, workers)
	go func() {
		defer close(queue)
		for i, task := range tasks {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			slot := make(chan Result, 1)
			select {
			case queue <- slot:
			case <-ctx.Done():
				<-sem
				return
			}

			go func(index int, task *types.Task) {
				defer func() { <-sem }()
				// The slot is buffered, so the send never blocks and the
				// worker goroutine always exits even if nobody reads it.
				slot <- p.execute(ctx, index, task)
			}(i, task)
		}
	}()

	// Emitter. Slots come off the queue in submission order, so results are
	// emitted in submission order no matter the completion order.
	go func() {
		defer close(out)
		for slot := range queue {
			r := <-slot
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Gather runs all tasks and collects the results in submission order.
// If any task failed, the error of the earliest failed position is returned
// alongside the full result slice; later results are still collected so
// every worker winds down before Gather returns.
func (p *Pool) Gather(ctx context.Context, tasks []*types.Task) ([]Result, error) {
	results := make([]Result, 0, len(tasks))
	var firstErr error
	for r := range p.Map(ctx, tasks) {
		if r.Err != nil && firstErr == nil {
			firstErr = fmt.Errorf("task %d (%s): %w", r.Index, r.Task.Kind, r.Err)
		}
		results = append(results, r)
	}
	if firstErr != nil {
		return results, firstErr
	}
	// Map only stops short when the context goes away.
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Run executes a single task through the pool. Merge steps use this: they
// still need process containment, just not parallelism.
func (p *Pool) Run(ctx context.Context, task *types.Task) (Result, error) {
	for r := range p.Map(ctx, []*types.Task{task}) {
		return r, r.Err
	}
	return Result{Task: task}, ctx.Err()
}

func (p *Pool) workerCount() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

func (p *Pool) execute(ctx context.Context, index int, task *types.Task) Result {
	p.Collector.IncTaskStarted()

	tr := p.Factory().Execute(ctx, task)

	r := Result{
		Index:    index,
		Task:     task,
		Artifact: tr.Artifact,
		Record:   tr.Record,
		Err:      tr.Err,
	}
	if tr.Err != nil {
		p.Collector.IncTaskFailed()
		p.logFailure(index, task, tr)
		return r
	}

	p.Collector.IncTaskSucceeded()
	p.Collector.AddArtifactBytes(tr.Artifact.Size())
	return r
}

func (p *Pool) logFailure(index int, task *types.Task, tr *TaskResult) {
	logger := p.Logger
	if logger == nil {
		return
	}

	fields := map[string]any{
		"index": index,
		"kind":  string(task.Kind),
		"error": tr.Err.Error(),
	}
	if len(tr.Stderr) > 0 {
		fields["stderr"] = string(tail(tr.Stderr, stderrTailBytes))
	}
	logger.Error("task failed", fields)
}

// tail returns the last n bytes of b.
func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
