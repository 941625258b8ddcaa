// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single run. It is a leaf
// package with no internal dependencies. The pool, pipeline, and report
// record into it live; the CLI logs a snapshot at run end.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Task lifecycle
	TasksStarted   int64
	TasksSucceeded int64
	TasksFailed    int64

	// Worker processes
	WorkersSpawned int64
	WorkerCrashes  int64

	// Merging
	MergeTasks    int64
	CascadeRounds int64

	// Artifact volume handed back across the worker boundary
	ArtifactBytes int64

	// Report warnings and hard merge errors
	RangeWarnings  int64
	SeedCollisions int64

	// Dimensions (informational, set at construction)
	Calculator string
	Statistic  string
	RunID      string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	tasksStarted   int64
	tasksSucceeded int64
	tasksFailed    int64

	workersSpawned int64
	workerCrashes  int64

	mergeTasks    int64
	cascadeRounds int64

	artifactBytes int64

	rangeWarnings  int64
	seedCollisions int64

	calculator string
	statistic  string
	runID      string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(calculator, statistic, runID string) *Collector {
	return &Collector{
		calculator: calculator,
		statistic:  statistic,
		runID:      runID,
	}
}

// --- Task lifecycle ---

// IncTaskStarted records a task handed to the pool's dispatcher.
func (c *Collector) IncTaskStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.tasksStarted++
	c.mu.Unlock()
}

// IncTaskSucceeded records a task whose result came back clean.
func (c *Collector) IncTaskSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.tasksSucceeded++
	c.mu.Unlock()
}

// IncTaskFailed records a task surfaced as an error.
func (c *Collector) IncTaskFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.tasksFailed++
	c.mu.Unlock()
}

// --- Worker processes ---

// IncWorkerSpawned records one worker process launch.
func (c *Collector) IncWorkerSpawned() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.workersSpawned++
	c.mu.Unlock()
}

// IncWorkerCrash records a worker that died without a terminal result frame
// or with a crash exit code.
func (c *Collector) IncWorkerCrash() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.workerCrashes++
	c.mu.Unlock()
}

// --- Merging ---

// IncMergeTask records one merge task submitted to the pool.
func (c *Collector) IncMergeTask() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mergeTasks++
	c.mu.Unlock()
}

// IncCascadeRound records one pairwise combine inside the cascade reduce.
func (c *Collector) IncCascadeRound() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.cascadeRounds++
	c.mu.Unlock()
}

// --- Artifact volume ---

// AddArtifactBytes records payload bytes handed back by a worker.
func (c *Collector) AddArtifactBytes(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.artifactBytes += n
	c.mu.Unlock()
}

// --- Warnings and hard errors ---

// IncRangeWarning records an interpolation that fell outside the scanned
// range and was answered with the fallback value.
func (c *Collector) IncRangeWarning() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rangeWarnings++
	c.mu.Unlock()
}

// IncSeedCollision records a rejected record merge caused by a duplicated
// seed.
func (c *Collector) IncSeedCollision() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.seedCollisions++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		TasksStarted:   c.tasksStarted,
		TasksSucceeded: c.tasksSucceeded,
		TasksFailed:    c.tasksFailed,

		WorkersSpawned: c.workersSpawned,
		WorkerCrashes:  c.workerCrashes,

		MergeTasks:    c.mergeTasks,
		CascadeRounds: c.cascadeRounds,

		ArtifactBytes: c.artifactBytes,

		RangeWarnings:  c.rangeWarnings,
		SeedCollisions: c.seedCollisions,

		Calculator: c.calculator,
		Statistic:  c.statistic,
		RunID:      c.runID,
	}
}
