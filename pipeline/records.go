package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/gunwale-io/bailer/cascade"
	"github.com/gunwale-io/bailer/types"
)

// ReduceRecords folds dump records into one, each pairwise combine run in a
// worker. A seed appearing in two records is a hard error: it means the
// same random stream was persisted twice and its trials would be counted
// double.
func (p *Pipeline) ReduceRecords(ctx context.Context, records []*types.DumpRecord) (*types.DumpRecord, error) {
	switch len(records) {
	case 0:
		return nil, fmt.Errorf("no records to reduce")
	case 1:
		return records[0], nil
	}

	return cascade.Reduce(func(a, b *types.DumpRecord) (*types.DumpRecord, error) {
		p.collector.IncCascadeRound()
		return p.mergeRecordPair(ctx, a, b)
	}, records)
}

func (p *Pipeline) mergeRecordPair(ctx context.Context, a, b *types.DumpRecord) (*types.DumpRecord, error) {
	r, err := p.pool.Run(ctx, &types.Task{
		Protocol: types.ProtocolVersion,
		RunID:    p.cfg.RunID,
		Kind:     types.TaskMergeRecords,
		Records:  []*types.DumpRecord{a, b},
	})
	if err != nil {
		var collision *types.CollisionError
		if errors.As(err, &collision) {
			p.collector.IncSeedCollision()
			p.record(ctx, "collision", map[string]any{
				"seed":   collision.Seed,
				"first":  collision.First,
				"second": collision.Second,
			})
			return nil, err
		}
		p.record(ctx, "merge_failed", map[string]any{
			"kind":  string(types.TaskMergeRecords),
			"error": err.Error(),
		})
		return nil, fmt.Errorf("record merge: %w", err)
	}
	p.collector.IncMergeTask()
	p.record(ctx, "merge_completed", map[string]any{
		"kind":  string(types.TaskMergeRecords),
		"seeds": len(r.Record.Seeds),
	})
	return r.Record, nil
}
