package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoRunEvents is returned when a run left nothing in the journal.
var ErrNoRunEvents = errors.New("no journal events for run")

// RunSummary aggregates one run's journal events.
type RunSummary struct {
	RunID          string         `json:"run_id"`
	Events         int            `json:"events"`
	Tasks          int            `json:"tasks"`
	TaskFailures   int            `json:"task_failures"`
	Merges         int            `json:"merges"`
	MergeFailures  int            `json:"merge_failures"`
	Collisions     int            `json:"collisions"`
	Warnings       int            `json:"warnings"`
	Started        string         `json:"started,omitempty"`
	Completed      string         `json:"completed,omitempty"`
	Outcome        string         `json:"outcome,omitempty"`
	EventsByType   map[string]int `json:"events_by_type"`
}

// Summarize reads every journal event of a run and folds the counts.
// Snapshot file paths are a coarse pre-filter; the record's own run_id is
// authoritative.
func Summarize(ctx context.Context, ds lode.Dataset, runID string) (*RunSummary, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, "snapshots")
	}

	summary := &RunSummary{
		RunID:        runID,
		EventsByType: make(map[string]int),
	}

	for _, snap := range snapshots {
		if !snapshotMatchesRun(snap, runID) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("snapshot/%s", snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != recordKindEvent {
				continue
			}
			if runID != "" && asString(record["run_id"]) != runID {
				continue
			}
			fold(summary, record)
		}
	}

	if summary.Events == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoRunEvents, runID)
	}
	return summary, nil
}

func fold(summary *RunSummary, record map[string]any) {
	eventType := asString(record["event_type"])
	summary.Events++
	summary.EventsByType[eventType]++

	switch eventType {
	case "task_completed":
		summary.Tasks++
	case "task_failed":
		summary.Tasks++
		summary.TaskFailures++
	case "merge_completed":
		summary.Merges++
	case "merge_failed":
		summary.Merges++
		summary.MergeFailures++
	case "collision":
		summary.Collisions++
	case "warning":
		summary.Warnings++
	case "run_started":
		summary.Started = asString(record["ts"])
	case "run_completed":
		summary.Completed = asString(record["ts"])
		if payload, ok := record["payload"].(map[string]any); ok {
			summary.Outcome = asString(payload["outcome"])
		}
	}
}

// EventTypes returns the summary's event types in stable order, for
// rendering.
func (s *RunSummary) EventTypes() []string {
	out := make([]string, 0, len(s.EventsByType))
	for t := range s.EventsByType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// snapshotMatchesRun checks the snapshot's file paths for an exact
// run_id=<id> partition segment. Exact segment matching avoids prefix
// false positives between run ids.
func snapshotMatchesRun(snap *lode.DatasetSnapshot, runID string) bool {
	if runID == "" {
		return true
	}
	segment := "run_id=" + runID
	for _, f := range snap.Manifest.Files {
		for _, part := range strings.Split(f.Path, "/") {
			if part == segment {
				return true
			}
		}
	}
	return false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
