package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/gunwale-io/bailer/cli/render"
	"github.com/gunwale-io/bailer/journal"
)

// StatsCommand returns the stats command.
// Stats aggregates a run's journal events into derived facts.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated run statistics from the journal",
		Flags: append(TUIReadOnlyFlags(),
			&cli.StringFlag{Name: "run-id", Usage: "Run ID to summarize", Required: true},
			&cli.StringFlag{Name: "journal-backend", Usage: "Journal backend: fs or s3", Value: "fs"},
			&cli.StringFlag{Name: "journal-path", Usage: "Journal path (fs: directory, s3: bucket/prefix)", Required: true},
			&cli.StringFlag{Name: "journal-dataset", Usage: "Journal dataset id", Value: "bailer"},
			&cli.StringFlag{Name: "journal-region", Usage: "AWS region for the s3 journal backend"},
			&cli.StringFlag{Name: "journal-endpoint", Usage: "S3-compatible endpoint override"},
			&cli.BoolFlag{Name: "journal-path-style", Usage: "Use path-style S3 addressing"},
		),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ds, err := openStatsDataset(ctx, c)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	summary, err := journal.Summarize(ctx, ds, c.String("run-id"))
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_run", summary)
	}

	return r.Render(summary)
}

func openStatsDataset(ctx context.Context, c *cli.Context) (lode.Dataset, error) {
	dataset := c.String("journal-dataset")
	path := c.String("journal-path")

	switch backend := c.String("journal-backend"); backend {
	case "fs":
		return journal.NewFSDataset(dataset, path)
	case "s3":
		bucket, prefix := journal.ParseS3Path(path)
		return journal.NewS3Dataset(ctx, dataset, journal.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       c.String("journal-region"),
			Endpoint:     c.String("journal-endpoint"),
			UsePathStyle: c.Bool("journal-path-style"),
		})
	default:
		return nil, fmt.Errorf("unsupported journal-backend: %s (must be fs or s3)", backend)
	}
}
