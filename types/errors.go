package types

import "fmt"

// FailureKind classifies a task failure for transport across the worker
// boundary. The worker maps its typed errors onto a kind string; the parent
// reconstructs a typed error from it so callers can discriminate with
// errors.As even though the original value died with the worker process.
type FailureKind string

const (
	// FailureLoad means the workspace file, named workspace, or parameter
	// of interest could not be loaded.
	FailureLoad FailureKind = "load"
	// FailureCollision means two merged records claimed the same seed.
	FailureCollision FailureKind = "collision"
	// FailureCompute means the engine rejected or failed the computation.
	FailureCompute FailureKind = "compute"
	// FailureInput means the task document itself was malformed.
	FailureInput FailureKind = "input"
	// FailureInternal covers everything else.
	FailureInternal FailureKind = "internal"
)

// TaskError is a task failure surfaced at the task's ordinal position in
// the pool's output sequence.
type TaskError struct {
	Kind    FailureKind
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task failed (%s): %s", e.Kind, e.Message)
}

// CollisionError reports a duplicated seed across merged records, naming
// both provenance labels so the operator can find the double-counted dump.
type CollisionError struct {
	Seed   uint32
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("seed %d appears in both %q and %q: the same random stream would be double-counted", e.Seed, e.First, e.Second)
}
