package pipeline

import (
	"context"

	"github.com/gunwale-io/bailer/batch"
	"github.com/gunwale-io/bailer/engine"
	"github.com/gunwale-io/bailer/seed"
	"github.com/gunwale-io/bailer/types"
)

// Invert runs the confidence-interval inversion workflow: one scan over
// ScanPoints evenly spaced signal strengths, Toys trials per point, reduced
// to a single artifact.
//
// Toy calculators expand into ScanPoints × ceil(Toys/BatchSize) tasks, each
// with its own derived seed; no-toys calculators take the direct path, one
// in-process engine call over the whole scan.
func (p *Pipeline) Invert(ctx context.Context) (*types.Artifact, error) {
	points, err := batch.Linspace(p.cfg.ScanMin, p.cfg.ScanMax, p.cfg.ScanPoints)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	if !p.cfg.Calculator.UsesToys() {
		return p.invertDirect(points)
	}

	chunks, err := batch.Split(p.cfg.Toys, p.cfg.BatchSize)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	tasks := make([]*types.Task, 0, len(points)*len(chunks))
	for _, x := range points {
		for _, toys := range chunks {
			s, err := seed.Derive(p.cfg.BaseSeed, len(tasks))
			if err != nil {
				return nil, &ConfigError{Reason: err.Error()}
			}
			tasks = append(tasks, p.computeTask(types.TaskInvertPoint,
				p.computeParams(p.cfg.Statistic, x, toys, s)))
		}
	}

	p.logger.Info("inversion scan expanded", map[string]any{
		"points":  len(points),
		"batches": len(chunks),
		"tasks":   len(tasks),
	})

	artifacts, err := p.gatherArtifacts(ctx, tasks)
	if err != nil {
		return nil, err
	}
	return p.reduceArtifacts(ctx, types.TaskMergeInversions, artifacts)
}

// invertDirect computes a no-toys scan with a single engine call. There is
// nothing to contain: closed-form evaluation allocates nothing the engine
// keeps.
func (p *Pipeline) invertDirect(points []float64) (*types.Artifact, error) {
	ws, err := engine.OpenRef(&p.cfg.Workspace)
	if err != nil {
		return nil, err
	}
	s, err := seed.Derive(p.cfg.BaseSeed, 0)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	result, err := engine.RunInversionScan(ws, p.computeParams(p.cfg.Statistic, 0, 0, s), points)
	if err != nil {
		return nil, err
	}
	return engine.EncodeInversion(result)
}
