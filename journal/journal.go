// Package journal appends run events to a lode dataset, Hive-partitioned
// by source, day, run id, and event type. The journal is strictly optional
// bookkeeping: the pipeline treats a failed append as a warning, never as a
// run failure.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/justapithecus/lode/lode"
)

// recordKindEvent discriminates journal records on disk.
const recordKindEvent = "event"

// Config holds the journal's partition keys and buffering.
type Config struct {
	// Dataset is the lode dataset id.
	Dataset string
	// Source partitions runs by origin (host, site, analysis group).
	Source string
	// Day is the partition day, derived from the run start time.
	Day string
	// RunID partitions one invocation's events.
	RunID string
	// BufferEvents batches appends: events accumulate until the buffer
	// holds this many, then flush as one write. Zero writes through.
	BufferEvents int
}

// DeriveDay formats the partition day for a run start time, UTC.
func DeriveDay(start time.Time) string {
	return start.UTC().Format("2006-01-02")
}

// Journal records run events. Safe for concurrent use.
type Journal struct {
	dataset lode.Dataset
	cfg     Config

	mu  sync.Mutex
	buf []any
	seq int64
}

// New builds a journal over a store factory. Use NewFSDataset,
// NewS3Dataset, or lode.NewMemoryFactory to supply the backend.
func New(cfg Config, factory lode.StoreFactory) (*Journal, error) {
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &Journal{dataset: ds, cfg: cfg}, nil
}

// NewWithDataset builds a journal over an already opened dataset, as
// returned by NewFSDataset or NewS3Dataset.
func NewWithDataset(cfg Config, ds lode.Dataset) *Journal {
	return &Journal{dataset: ds, cfg: cfg}
}

// Record appends one event. The event sequence number is assigned here, so
// record order within a run is total even under concurrent callers.
func (j *Journal) Record(ctx context.Context, eventType string, payload map[string]any) error {
	j.mu.Lock()
	j.seq++
	record := map[string]any{
		"record_kind": recordKindEvent,
		"event_id":    uuid.NewString(),
		"run_id":      j.cfg.RunID,
		"seq":         j.seq,
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
		"payload":     payload,

		// Partition keys, repeated in the record so a reader can filter
		// without parsing paths.
		"source":     j.cfg.Source,
		"day":        j.cfg.Day,
		"event_type": eventType,
	}

	if j.cfg.BufferEvents > 0 {
		j.buf = append(j.buf, record)
		if len(j.buf) < j.cfg.BufferEvents {
			j.mu.Unlock()
			return nil
		}
		pending := j.buf
		j.buf = nil
		j.mu.Unlock()
		return j.write(ctx, pending)
	}
	j.mu.Unlock()
	return j.write(ctx, []any{record})
}

// Flush writes out any buffered events.
func (j *Journal) Flush(ctx context.Context) error {
	j.mu.Lock()
	pending := j.buf
	j.buf = nil
	j.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}
	return j.write(ctx, pending)
}

// Close flushes and releases the journal.
func (j *Journal) Close(ctx context.Context) error {
	return j.Flush(ctx)
}

// Dataset exposes the underlying dataset for the stats reader.
func (j *Journal) Dataset() lode.Dataset {
	return j.dataset
}

func (j *Journal) write(ctx context.Context, records []any) error {
	_, err := j.dataset.Write(ctx, records, lode.Metadata{})
	return WrapWriteError(err, j.cfg.Dataset+"/"+j.cfg.RunID)
}
