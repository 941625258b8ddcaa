package pipeline

import (
	"context"
	"fmt"

	"github.com/gunwale-io/bailer/batch"
	"github.com/gunwale-io/bailer/cascade"
	"github.com/gunwale-io/bailer/types"
)

// reduceArtifacts folds many partial artifacts into one. Artifacts are
// first grouped into chunks of at most BatchSize and each chunk is folded
// by one worker; the chunk results are then cascade-reduced with a pairwise
// combine that also runs inside a worker. The merge operation on the engine
// result type leaks like the compute does, so no fold ever happens in this
// process.
func (p *Pipeline) reduceArtifacts(ctx context.Context, kind types.TaskKind, artifacts []*types.Artifact) (*types.Artifact, error) {
	switch len(artifacts) {
	case 0:
		return nil, fmt.Errorf("no artifacts to reduce")
	case 1:
		return artifacts[0], nil
	}

	chunked, err := p.mergeChunks(ctx, kind, artifacts)
	if err != nil {
		return nil, err
	}

	return cascade.Reduce(func(a, b *types.Artifact) (*types.Artifact, error) {
		p.collector.IncCascadeRound()
		return p.mergeOnce(ctx, kind, []*types.Artifact{a, b})
	}, chunked)
}

// mergeChunks folds BatchSize-bounded groups of artifacts, one worker task
// per group, preserving order.
func (p *Pipeline) mergeChunks(ctx context.Context, kind types.TaskKind, artifacts []*types.Artifact) ([]*types.Artifact, error) {
	sizes, err := batch.Split(len(artifacts), p.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	if len(sizes) == 1 {
		// A single chunk would just defer the work to the cascade.
		return artifacts, nil
	}

	tasks := make([]*types.Task, 0, len(sizes))
	next := 0
	for _, size := range sizes {
		tasks = append(tasks, &types.Task{
			Protocol:  types.ProtocolVersion,
			RunID:     p.cfg.RunID,
			Kind:      kind,
			Artifacts: artifacts[next : next+size],
		})
		next += size
	}

	merged := make([]*types.Artifact, 0, len(tasks))
	for r := range p.pool.Map(ctx, tasks) {
		if r.Err != nil {
			p.record(ctx, "merge_failed", map[string]any{
				"index": r.Index,
				"kind":  string(kind),
				"error": r.Err.Error(),
			})
			return nil, fmt.Errorf("chunk merge %d (%s): %w", r.Index, kind, r.Err)
		}
		p.collector.IncMergeTask()
		p.record(ctx, "merge_completed", map[string]any{
			"index":  r.Index,
			"kind":   string(kind),
			"inputs": len(r.Task.Artifacts),
			"bytes":  r.Artifact.Size(),
		})
		merged = append(merged, r.Artifact)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return merged, nil
}

// mergeOnce folds one group of artifacts in a single worker.
func (p *Pipeline) mergeOnce(ctx context.Context, kind types.TaskKind, artifacts []*types.Artifact) (*types.Artifact, error) {
	r, err := p.pool.Run(ctx, &types.Task{
		Protocol:  types.ProtocolVersion,
		RunID:     p.cfg.RunID,
		Kind:      kind,
		Artifacts: artifacts,
	})
	if err != nil {
		p.record(ctx, "merge_failed", map[string]any{
			"kind":  string(kind),
			"error": err.Error(),
		})
		return nil, fmt.Errorf("pairwise merge (%s): %w", kind, err)
	}
	p.collector.IncMergeTask()
	return r.Artifact, nil
}
