package types

import "fmt"

// TaskKind discriminates the operation a worker performs.
type TaskKind string

const (
	// TaskInvertPoint computes one batch of inversion toys at one scan point.
	TaskInvertPoint TaskKind = "invert_point"
	// TaskHypoTest computes one batch of hypothesis-test toys.
	TaskHypoTest TaskKind = "hypo_test"
	// TaskMergeInversions merges a chunk of inversion artifacts into one.
	TaskMergeInversions TaskKind = "merge_inversions"
	// TaskMergeTests merges a chunk of hypothesis-test artifacts into one.
	TaskMergeTests TaskKind = "merge_tests"
	// TaskMergeRecords merges a chunk of dump records into one, enforcing
	// seed disjointness.
	TaskMergeRecords TaskKind = "merge_records"
)

// WorkspaceRef names the model a compute task loads inside its worker.
// Workers load the workspace themselves; handles never cross the boundary.
type WorkspaceRef struct {
	// File is the path to the workspace file.
	File string `json:"file" msgpack:"file"`
	// Workspace is the named workspace inside the file.
	Workspace string `json:"workspace" msgpack:"workspace"`
	// POI is the parameter of interest the scan varies.
	POI string `json:"poi" msgpack:"poi"`
}

// ComputeParams carries the fixed parameters of a compute task.
type ComputeParams struct {
	Calculator Calculator `json:"calculator" msgpack:"calculator"`
	Statistic  Statistic  `json:"statistic" msgpack:"statistic"`
	Fit        Fit        `json:"fit,omitempty" msgpack:"fit,omitempty"`
	// CL is the confidence level the scan is requested at, recorded in the
	// result so dump files stay self-describing.
	CL float64 `json:"cl,omitempty" msgpack:"cl,omitempty"`
	// Point is the scan point an inversion task evaluates.
	Point float64 `json:"point" msgpack:"point"`
	// Toys is the number of randomized trials in this batch.
	Toys int `json:"toys" msgpack:"toys"`
	// Seed is the derived 32-bit seed for this task's random stream.
	Seed uint32 `json:"seed" msgpack:"seed"`
}

// Task is the unit of work handed to one disposable worker process. It is
// immutable once constructed and owned solely by the worker that executes
// it. The parent serializes it as a single JSON document onto the worker's
// stdin.
type Task struct {
	// Protocol is the wire protocol version; the worker rejects documents
	// whose major version it does not speak.
	Protocol string `json:"protocol" msgpack:"protocol"`
	// RunID ties worker logs back to the parent run.
	RunID string `json:"run_id,omitempty" msgpack:"run_id,omitempty"`
	// Kind selects the operation.
	Kind TaskKind `json:"kind" msgpack:"kind"`
	// Workspace is set for compute kinds.
	Workspace *WorkspaceRef `json:"workspace,omitempty" msgpack:"workspace,omitempty"`
	// Params is set for compute kinds.
	Params *ComputeParams `json:"params,omitempty" msgpack:"params,omitempty"`
	// Artifacts are the inputs of artifact-merge kinds, in merge order.
	Artifacts []*Artifact `json:"artifacts,omitempty" msgpack:"artifacts,omitempty"`
	// Records are the inputs of the record-merge kind, in merge order.
	Records []*DumpRecord `json:"records,omitempty" msgpack:"records,omitempty"`
}

// Validate checks the structural shape of a task before execution.
func (t *Task) Validate() error {
	switch t.Kind {
	case TaskInvertPoint, TaskHypoTest:
		if t.Workspace == nil || t.Params == nil {
			return fmt.Errorf("task %s: missing workspace or params", t.Kind)
		}
	case TaskMergeInversions, TaskMergeTests:
		if len(t.Artifacts) == 0 {
			return fmt.Errorf("task %s: no input artifacts", t.Kind)
		}
	case TaskMergeRecords:
		if len(t.Records) == 0 {
			return fmt.Errorf("task %s: no input records", t.Kind)
		}
	default:
		return fmt.Errorf("unknown task kind %q", string(t.Kind))
	}
	return nil
}
