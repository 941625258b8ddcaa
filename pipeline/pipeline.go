// Package pipeline composes the scan workflows: expand a request into
// seeded tasks, run them through the containment pool, fold the partial
// artifacts back together, and reduce to one final artifact per request.
//
// Every stage that touches the engine runs inside a disposable worker
// process, the merges included; the pipeline itself never calls the leaky
// compute routines except on the direct path for calculators that draw no
// toys.
package pipeline

import (
	"context"
	"fmt"

	"github.com/gunwale-io/bailer/bail"
	"github.com/gunwale-io/bailer/log"
	"github.com/gunwale-io/bailer/metrics"
	"github.com/gunwale-io/bailer/seed"
	"github.com/gunwale-io/bailer/types"
)

// testSeedMask is XORed into the base seed of the test workflow so the
// invert and test random streams of one run never coincide.
const testSeedMask = 0b101101

// ConfigError reports an invalid request, rejected before any worker is
// spawned.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// Recorder receives pipeline events for the run journal. A nil Recorder
// discards everything.
type Recorder interface {
	Record(ctx context.Context, eventType string, payload map[string]any) error
}

// Config describes one logical request.
type Config struct {
	// Workspace names the model every compute task loads.
	Workspace types.WorkspaceRef
	// Calculator, Statistic, and Fit select the computation.
	Calculator types.Calculator
	Statistic  types.Statistic
	Fit        types.Fit
	// CL is the requested confidence level, in (0, 1).
	CL float64
	// ScanMin, ScanMax, and ScanPoints describe the inversion scan range.
	ScanMin    float64
	ScanMax    float64
	ScanPoints int
	// Toys is the total number of randomized trials per scan point (and
	// per hypothesis test). Ignored by no-toys calculators.
	Toys int
	// BatchSize caps the trials per worker task and the artifacts per
	// chunk-merge task.
	BatchSize int
	// BaseSeed is the 16-bit base seed every task seed derives from.
	BaseSeed int
	// RunID ties tasks and journal events back to the invocation.
	RunID string
}

// Validate rejects a bad request before any work starts.
func (c *Config) Validate() error {
	if err := c.Calculator.Validate(); err != nil {
		return &ConfigError{Reason: err.Error()}
	}
	if err := c.Statistic.Validate(); err != nil {
		return &ConfigError{Reason: err.Error()}
	}
	if c.Fit != "" {
		if err := c.Fit.Validate(); err != nil {
			return &ConfigError{Reason: err.Error()}
		}
	}
	if c.CL <= 0 || c.CL >= 1 {
		return configErrorf("confidence level %v outside (0, 1)", c.CL)
	}
	if c.ScanPoints <= 0 {
		return configErrorf("scan point count %d is not positive", c.ScanPoints)
	}
	if c.ScanMax < c.ScanMin {
		return configErrorf("scan range [%v, %v] is inverted", c.ScanMin, c.ScanMax)
	}
	if c.Calculator.UsesToys() && c.Toys <= 0 {
		return configErrorf("toy count %d is not positive", c.Toys)
	}
	if c.BatchSize <= 0 {
		return configErrorf("batch size %d is not positive", c.BatchSize)
	}
	if c.BaseSeed < 0 || c.BaseSeed >= seed.MaxBase {
		return configErrorf("base seed %d outside [0, %d)", c.BaseSeed, seed.MaxBase)
	}
	return nil
}

// Pipeline runs requests against one containment pool.
type Pipeline struct {
	cfg       Config
	pool      *bail.Pool
	logger    *log.Logger
	collector *metrics.Collector
	recorder  Recorder
}

// Option adjusts a Pipeline at construction.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger. Defaults to a nop logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithCollector sets the metrics collector. Nil is safe.
func WithCollector(collector *metrics.Collector) Option {
	return func(p *Pipeline) { p.collector = collector }
}

// WithRecorder sets the journal recorder. Nil discards events.
func WithRecorder(recorder Recorder) Option {
	return func(p *Pipeline) { p.recorder = recorder }
}

// New validates the request and binds it to a pool.
func New(cfg Config, pool *bail.Pool, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, &ConfigError{Reason: "no worker pool"}
	}
	p := &Pipeline{
		cfg:    cfg,
		pool:   pool,
		logger: log.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// record appends one event to the run journal, if one is attached. Journal
// failures are logged and swallowed: bookkeeping must never fail a run.
func (p *Pipeline) record(ctx context.Context, eventType string, payload map[string]any) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, eventType, payload); err != nil {
		p.logger.Warn("journal write failed", map[string]any{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

// computeParams builds the fixed parameters of a compute task.
func (p *Pipeline) computeParams(stat types.Statistic, point float64, toys int, s uint32) *types.ComputeParams {
	return &types.ComputeParams{
		Calculator: p.cfg.Calculator,
		Statistic:  stat,
		Fit:        p.cfg.Fit,
		CL:         p.cfg.CL,
		Point:      point,
		Toys:       toys,
		Seed:       s,
	}
}

// computeTask wraps params into a task document.
func (p *Pipeline) computeTask(kind types.TaskKind, params *types.ComputeParams) *types.Task {
	return &types.Task{
		Protocol:  types.ProtocolVersion,
		RunID:     p.cfg.RunID,
		Kind:      kind,
		Workspace: &p.cfg.Workspace,
		Params:    params,
	}
}

// gatherArtifacts runs compute tasks and collects their artifacts in
// submission order, recording per-task journal events.
func (p *Pipeline) gatherArtifacts(ctx context.Context, tasks []*types.Task) ([]*types.Artifact, error) {
	artifacts := make([]*types.Artifact, 0, len(tasks))
	for r := range p.pool.Map(ctx, tasks) {
		if r.Err != nil {
			p.record(ctx, "task_failed", map[string]any{
				"index": r.Index,
				"kind":  string(r.Task.Kind),
				"error": r.Err.Error(),
			})
			return nil, fmt.Errorf("task %d (%s): %w", r.Index, r.Task.Kind, r.Err)
		}
		p.record(ctx, "task_completed", map[string]any{
			"index": r.Index,
			"kind":  string(r.Task.Kind),
			"seed":  taskSeed(r.Task),
			"bytes": r.Artifact.Size(),
		})
		artifacts = append(artifacts, r.Artifact)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func taskSeed(task *types.Task) uint32 {
	if task.Params == nil {
		return 0
	}
	return task.Params.Seed
}
