package pipeline

import (
	"context"

	"github.com/gunwale-io/bailer/batch"
	"github.com/gunwale-io/bailer/engine"
	"github.com/gunwale-io/bailer/seed"
	"github.com/gunwale-io/bailer/types"
)

// Test runs the hypothesis-test workflow: Toys trials split into batched
// tasks, reduced to a single artifact. The workflow derives its seeds from
// BaseSeed XOR a fixed mask, so a run that performs both workflows never
// reuses a random stream between them.
//
// Discovery fits switch the one-sided profile likelihood to its two-sided
// variant: zeroing signal-like excesses is exactly wrong when the excess is
// the thing being tested.
func (p *Pipeline) Test(ctx context.Context) (*types.Artifact, error) {
	stat := p.testStatistic()
	base := p.cfg.BaseSeed ^ testSeedMask

	if !p.cfg.Calculator.UsesToys() {
		return p.testDirect(stat, base)
	}

	chunks, err := batch.Split(p.cfg.Toys, p.cfg.BatchSize)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	tasks := make([]*types.Task, 0, len(chunks))
	for _, toys := range chunks {
		s, err := seed.Derive(base, len(tasks))
		if err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
		tasks = append(tasks, p.computeTask(types.TaskHypoTest,
			p.computeParams(stat, 0, toys, s)))
	}

	p.logger.Info("hypothesis test expanded", map[string]any{
		"batches": len(chunks),
		"tasks":   len(tasks),
	})

	artifacts, err := p.gatherArtifacts(ctx, tasks)
	if err != nil {
		return nil, err
	}
	return p.reduceArtifacts(ctx, types.TaskMergeTests, artifacts)
}

// testDirect computes a no-toys hypothesis test with a single engine call.
func (p *Pipeline) testDirect(stat types.Statistic, base int) (*types.Artifact, error) {
	ws, err := engine.OpenRef(&p.cfg.Workspace)
	if err != nil {
		return nil, err
	}
	s, err := seed.Derive(base, 0)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	result, err := engine.RunHypoTest(ws, p.computeParams(stat, 0, 0, s))
	if err != nil {
		return nil, err
	}
	return engine.EncodeTest(result)
}

func (p *Pipeline) testStatistic() types.Statistic {
	if p.cfg.Fit == types.FitDiscovery && p.cfg.Statistic == types.StatisticOneSidedProfileLikelihood {
		return types.StatisticProfileLikelihood
	}
	return p.cfg.Statistic
}
