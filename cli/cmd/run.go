package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/gunwale-io/bailer/bail"
	"github.com/gunwale-io/bailer/cli/config"
	"github.com/gunwale-io/bailer/engine"
	"github.com/gunwale-io/bailer/journal"
	"github.com/gunwale-io/bailer/log"
	"github.com/gunwale-io/bailer/metrics"
	"github.com/gunwale-io/bailer/notify"
	notifyredis "github.com/gunwale-io/bailer/notify/redis"
	"github.com/gunwale-io/bailer/notify/webhook"
	"github.com/gunwale-io/bailer/pipeline"
	"github.com/gunwale-io/bailer/report"
	"github.com/gunwale-io/bailer/seed"
	"github.com/gunwale-io/bailer/store"
	"github.com/gunwale-io/bailer/types"
)

// Exit codes for bailer run.
const (
	exitSuccess   = 0
	exitTaskError = 1
	exitCrash     = 2
	exitBadInput  = 3
)

// operation is one positional workflow selector of bailer run.
type operation string

const (
	opInvert operation = "invert"
	opTest   operation = "test"
	opDump   operation = "dump"
	opOutput operation = "output"
)

// defaultConfigFile is loaded when present and --config is unset.
const defaultConfigFile = "bailer.yaml"

// RunCommand returns the run command.
// This is the only command that executes work.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Execute scan operations (the only execution entrypoint)",
		ArgsUsage: "<invert|test|dump|output>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to bailer.yaml config file",
			},
			// Model flags
			&cli.StringFlag{
				Name:  "workspace",
				Usage: "Path to workspace file",
			},
			&cli.StringFlag{
				Name:  "workspace-name",
				Usage: "Named workspace inside the file",
			},
			&cli.StringFlag{
				Name:  "poi",
				Usage: "Parameter of interest to scan",
			},
			// Computation flags
			&cli.StringFlag{
				Name:  "calculator",
				Usage: "Calculator: frequentist, hybrid, asymptotic, asimov",
				Value: "frequentist",
			},
			&cli.StringFlag{
				Name:  "statistic",
				Usage: "Test statistic: simple-lr, profile-lr, profile-likelihood, one-sided-profile-likelihood, max-likelihood",
				Value: "one-sided-profile-likelihood",
			},
			&cli.StringFlag{
				Name:  "fit",
				Usage: "Fit kind: exclusion or discovery",
				Value: "exclusion",
			},
			&cli.Float64Flag{
				Name:  "cl",
				Usage: "Confidence level",
				Value: 0.95,
			},
			// Scan flags
			&cli.Float64Flag{
				Name:  "scan-min",
				Usage: "Scan range lower edge",
				Value: 0,
			},
			&cli.Float64Flag{
				Name:  "scan-max",
				Usage: "Scan range upper edge",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "scan-points",
				Usage: "Number of evenly spaced scan points",
				Value: 11,
			},
			&cli.IntFlag{
				Name:  "toys",
				Usage: "Randomized trials per scan point",
				Value: 1000,
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Max trials per worker task (and artifacts per merge task)",
				Value: 500,
			},
			// Execution flags
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Max concurrent worker processes (0 = host parallelism)",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Base seed in [0, 65536); -1 derives one from pid and clock",
				Value: -1,
			},
			&cli.StringFlag{
				Name:  "worker-bin",
				Usage: "Path to worker binary",
				Value: "bailer-worker",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Output file prefix for dump and output operations",
				Value: "bailer",
			},
			&cli.StringSliceFlag{
				Name:  "load",
				Usage: "Prior dump file to merge in (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
			// Journal flags
			&cli.StringFlag{
				Name:  "journal-backend",
				Usage: "Journal backend: fs or s3",
				Value: "fs",
			},
			&cli.StringFlag{
				Name:  "journal-path",
				Usage: "Journal path (fs: directory, s3: bucket/prefix); empty disables",
			},
			&cli.StringFlag{
				Name:  "journal-dataset",
				Usage: "Journal dataset id",
				Value: "bailer",
			},
			&cli.StringFlag{
				Name:  "journal-source",
				Usage: "Source identifier for journal partitioning",
				Value: "default",
			},
			&cli.StringFlag{
				Name:  "journal-region",
				Usage: "AWS region for the s3 journal backend",
			},
			&cli.StringFlag{
				Name:  "journal-endpoint",
				Usage: "S3-compatible endpoint override for the s3 journal backend",
			},
			&cli.BoolFlag{
				Name:  "journal-path-style",
				Usage: "Use path-style S3 addressing",
			},
			&cli.IntFlag{
				Name:  "journal-buffer",
				Usage: "Buffered journal events per write (0 = write-through)",
			},
			// Notification flags
			&cli.StringFlag{
				Name:  "notify-type",
				Usage: "Completion notifier: webhook or redis; empty disables",
			},
			&cli.StringFlag{
				Name:  "notify-url",
				Usage: "Notifier endpoint URL",
			},
			&cli.StringFlag{
				Name:  "notify-channel",
				Usage: "Redis pub/sub channel",
			},
		},
		Action: runAction,
	}
}

// runSettings is the fully resolved run configuration: config file values
// overridden by flags.
type runSettings struct {
	ops        map[operation]bool
	workspace  types.WorkspaceRef
	calculator types.Calculator
	statistic  types.Statistic
	fit        types.Fit
	cl         float64
	scanMin    float64
	scanMax    float64
	scanPoints int
	toys       int
	batchSize  int
	workers    int
	seed       int
	workerBin  string
	prefix     string
	loads      []string
	quiet      bool
	journal    config.JournalConfig
	notify     config.NotifyConfig
}

// runOutput collects what a run leaves behind for reporting and
// notification.
type runOutput struct {
	record       *types.DumpRecord
	report       *report.Report
	significance *float64
}

func parseOperations(args []string) (map[operation]bool, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no operations given; choose from invert, test, dump, output")
	}
	ops := make(map[operation]bool, len(args))
	for _, arg := range args {
		op := operation(arg)
		switch op {
		case opInvert, opTest, opDump, opOutput:
			ops[op] = true
		default:
			return nil, fmt.Errorf("unknown operation %q; choose from invert, test, dump, output", arg)
		}
	}
	return ops, nil
}

// resolveSettings layers flag values over the config file. A flag the user
// set always wins; otherwise a config file value beats the flag default.
func resolveSettings(c *cli.Context) (*runSettings, error) {
	s := &runSettings{
		workspace: types.WorkspaceRef{
			File:      c.String("workspace"),
			Workspace: c.String("workspace-name"),
			POI:       c.String("poi"),
		},
		calculator: types.Calculator(c.String("calculator")),
		statistic:  types.Statistic(c.String("statistic")),
		fit:        types.Fit(c.String("fit")),
		cl:         c.Float64("cl"),
		scanMin:    c.Float64("scan-min"),
		scanMax:    c.Float64("scan-max"),
		scanPoints: c.Int("scan-points"),
		toys:       c.Int("toys"),
		batchSize:  c.Int("batch-size"),
		workers:    c.Int("workers"),
		seed:       c.Int("seed"),
		workerBin:  c.String("worker-bin"),
		prefix:     c.String("prefix"),
		loads:      c.StringSlice("load"),
		quiet:      c.Bool("quiet"),
		journal: config.JournalConfig{
			Backend:      c.String("journal-backend"),
			Path:         c.String("journal-path"),
			Dataset:      c.String("journal-dataset"),
			Source:       c.String("journal-source"),
			Region:       c.String("journal-region"),
			Endpoint:     c.String("journal-endpoint"),
			S3PathStyle:  c.Bool("journal-path-style"),
			BufferEvents: c.Int("journal-buffer"),
		},
		notify: config.NotifyConfig{
			Type:    c.String("notify-type"),
			URL:     c.String("notify-url"),
			Channel: c.String("notify-channel"),
		},
	}

	cfg, err := loadConfigFile(c)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		applyConfig(c, s, cfg)
	}

	if s.workers < 0 {
		return nil, fmt.Errorf("worker count %d is negative", s.workers)
	}
	return s, nil
}

func loadConfigFile(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultConfigFile); err != nil {
		return nil, nil
	}
	return config.Load(defaultConfigFile)
}

// applyConfig fills settings from the config file for every flag the user
// left at its default.
func applyConfig(c *cli.Context, s *runSettings, cfg *config.Config) {
	if !c.IsSet("workspace") && cfg.Workspace.File != "" {
		s.workspace.File = cfg.Workspace.File
	}
	if !c.IsSet("workspace-name") && cfg.Workspace.Name != "" {
		s.workspace.Workspace = cfg.Workspace.Name
	}
	if !c.IsSet("poi") && cfg.Workspace.POI != "" {
		s.workspace.POI = cfg.Workspace.POI
	}
	if !c.IsSet("calculator") && cfg.Calculator != "" {
		s.calculator = types.Calculator(cfg.Calculator)
	}
	if !c.IsSet("statistic") && cfg.Statistic != "" {
		s.statistic = types.Statistic(cfg.Statistic)
	}
	if !c.IsSet("fit") && cfg.Fit != "" {
		s.fit = types.Fit(cfg.Fit)
	}
	if !c.IsSet("cl") && cfg.CL != 0 {
		s.cl = cfg.CL
	}
	if !c.IsSet("scan-min") && cfg.Scan.Min != 0 {
		s.scanMin = cfg.Scan.Min
	}
	if !c.IsSet("scan-max") && cfg.Scan.Max != 0 {
		s.scanMax = cfg.Scan.Max
	}
	if !c.IsSet("scan-points") && cfg.Scan.Points != 0 {
		s.scanPoints = cfg.Scan.Points
	}
	if !c.IsSet("toys") && cfg.Toys != 0 {
		s.toys = cfg.Toys
	}
	if !c.IsSet("batch-size") && cfg.BatchSize != 0 {
		s.batchSize = cfg.BatchSize
	}
	if !c.IsSet("workers") && cfg.Workers != 0 {
		s.workers = cfg.Workers
	}
	if !c.IsSet("seed") && cfg.Seed != nil {
		s.seed = *cfg.Seed
	}
	if !c.IsSet("worker-bin") && cfg.WorkerBin != "" {
		s.workerBin = cfg.WorkerBin
	}
	if !c.IsSet("prefix") && cfg.Prefix != "" {
		s.prefix = cfg.Prefix
	}
	if !c.IsSet("journal-backend") && cfg.Journal.Backend != "" {
		s.journal.Backend = cfg.Journal.Backend
	}
	if !c.IsSet("journal-path") && cfg.Journal.Path != "" {
		s.journal.Path = cfg.Journal.Path
	}
	if !c.IsSet("journal-dataset") && cfg.Journal.Dataset != "" {
		s.journal.Dataset = cfg.Journal.Dataset
	}
	if !c.IsSet("journal-source") && cfg.Journal.Source != "" {
		s.journal.Source = cfg.Journal.Source
	}
	if !c.IsSet("journal-region") && cfg.Journal.Region != "" {
		s.journal.Region = cfg.Journal.Region
	}
	if !c.IsSet("journal-endpoint") && cfg.Journal.Endpoint != "" {
		s.journal.Endpoint = cfg.Journal.Endpoint
	}
	if !c.IsSet("journal-path-style") && cfg.Journal.S3PathStyle {
		s.journal.S3PathStyle = true
	}
	if !c.IsSet("journal-buffer") && cfg.Journal.BufferEvents != 0 {
		s.journal.BufferEvents = cfg.Journal.BufferEvents
	}
	if !c.IsSet("notify-type") && cfg.Notify.Type != "" {
		s.notify.Type = cfg.Notify.Type
	}
	if !c.IsSet("notify-url") && cfg.Notify.URL != "" {
		s.notify.URL = cfg.Notify.URL
	}
	if !c.IsSet("notify-channel") && cfg.Notify.Channel != "" {
		s.notify.Channel = cfg.Notify.Channel
	}
	if cfg.Notify.Timeout.Duration != 0 {
		s.notify.Timeout = cfg.Notify.Timeout
	}
	if cfg.Notify.Retries != nil {
		s.notify.Retries = cfg.Notify.Retries
	}
	if len(cfg.Notify.Headers) > 0 {
		s.notify.Headers = cfg.Notify.Headers
	}
}

func runAction(c *cli.Context) error {
	ops, err := parseOperations(c.Args().Slice())
	if err != nil {
		return cli.Exit(err.Error(), exitBadInput)
	}
	settings, err := resolveSettings(c)
	if err != nil {
		return cli.Exit(err.Error(), exitBadInput)
	}
	settings.ops = ops

	baseSeed := settings.seed
	autoSeed := baseSeed < 0
	if autoSeed {
		baseSeed = seed.Auto()
	}

	runID := uuid.NewString()
	runMeta := &types.RunMeta{RunID: runID, Seed: baseSeed}
	logger := log.NewLogger(runMeta)
	collector := metrics.NewCollector(string(settings.calculator), string(settings.statistic), runID)
	if autoSeed {
		logger.Info("base seed auto-derived", map[string]any{"seed": baseSeed})
	}

	pcfg := pipeline.Config{
		Workspace:  settings.workspace,
		Calculator: settings.calculator,
		Statistic:  settings.statistic,
		Fit:        settings.fit,
		CL:         settings.cl,
		ScanMin:    settings.scanMin,
		ScanMax:    settings.scanMax,
		ScanPoints: settings.scanPoints,
		Toys:       settings.toys,
		BatchSize:  settings.batchSize,
		BaseSeed:   baseSeed,
		RunID:      runID,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	startTime := time.Now()

	jnl, err := buildJournal(ctx, settings, runID, startTime)
	if err != nil {
		return cli.Exit(fmt.Sprintf("journal init failed: %v", err), exitBadInput)
	}

	pool := &bail.Pool{
		Workers:   settings.workers,
		Logger:    logger,
		Collector: collector,
		Factory: func() bail.Worker {
			return &bail.ProcessWorker{
				Path:      settings.workerBin,
				Logger:    logger,
				Collector: collector,
			}
		},
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithCollector(collector),
	}
	if jnl != nil {
		opts = append(opts, pipeline.WithRecorder(jnl))
	}
	pipe, err := pipeline.New(pcfg, pool, opts...)
	if err != nil {
		return cli.Exit(err.Error(), exitCodeFor(err))
	}

	if jnl != nil {
		recordEvent(ctx, jnl, logger, "run_started", map[string]any{
			"seed":       baseSeed,
			"operations": operationNames(ops),
		})
	}

	out, runErr := executeRun(ctx, pipe, settings, baseSeed, runID, logger, collector)
	duration := time.Since(startTime)

	outcome := "success"
	if runErr != nil {
		outcome = "error"
	}

	if jnl != nil {
		recordEvent(ctx, jnl, logger, "run_completed", map[string]any{
			"outcome":     outcome,
			"duration_ms": duration.Milliseconds(),
		})
		if err := jnl.Close(ctx); err != nil {
			logger.Warn("journal close failed", map[string]any{"error": err.Error()})
		}
	}

	if settings.notify.Type != "" {
		publishCompletion(ctx, settings, runMeta, ops, outcome, out, duration, logger)
	}

	snap := collector.Snapshot()
	logger.Info("run finished", map[string]any{
		"outcome":         outcome,
		"duration_ms":     duration.Milliseconds(),
		"tasks_started":   snap.TasksStarted,
		"tasks_succeeded": snap.TasksSucceeded,
		"tasks_failed":    snap.TasksFailed,
		"workers_spawned": snap.WorkersSpawned,
		"worker_crashes":  snap.WorkerCrashes,
		"merge_tasks":     snap.MergeTasks,
		"cascade_rounds":  snap.CascadeRounds,
		"artifact_bytes":  snap.ArtifactBytes,
		"range_warnings":  snap.RangeWarnings,
		"seed_collisions": snap.SeedCollisions,
	})

	if runErr != nil {
		return cli.Exit(runErr.Error(), exitCodeFor(runErr))
	}

	if !settings.quiet {
		printRunResult(runMeta, out, duration)
	}
	return nil
}

// executeRun performs the requested operations in their fixed order:
// compute, merge in prior dumps, persist, report.
func executeRun(
	ctx context.Context,
	pipe *pipeline.Pipeline,
	settings *runSettings,
	baseSeed int,
	runID string,
	logger *log.Logger,
	collector *metrics.Collector,
) (*runOutput, error) {
	out := &runOutput{}

	var invertArt, testArt *types.Artifact
	var err error
	if settings.ops[opInvert] {
		if invertArt, err = pipe.Invert(ctx); err != nil {
			return out, err
		}
	}
	if settings.ops[opTest] {
		if testArt, err = pipe.Test(ctx); err != nil {
			return out, err
		}
	}

	var records []*types.DumpRecord
	for _, path := range settings.loads {
		record, err := store.Load(path)
		if err != nil {
			return out, err
		}
		records = append(records, record)
	}
	if invertArt != nil || testArt != nil {
		records = append(records, types.NewDumpRecord(uint32(baseSeed), runID, invertArt, testArt))
	}

	switch len(records) {
	case 0:
		if settings.ops[opDump] || settings.ops[opOutput] {
			return out, &pipeline.ConfigError{
				Reason: "dump or output requested without invert, test, or --load",
			}
		}
		return out, nil
	case 1:
		out.record = records[0]
	default:
		if out.record, err = pipe.ReduceRecords(ctx, records); err != nil {
			return out, err
		}
	}

	if settings.ops[opDump] {
		path := store.PathFor(settings.prefix)
		if err := store.Save(path, out.record); err != nil {
			return out, err
		}
		logger.Info("dump written", map[string]any{
			"path":  path,
			"seeds": len(out.record.Seeds),
		})
	}

	if settings.ops[opOutput] {
		if err := buildOutput(settings, out, logger, collector); err != nil {
			return out, err
		}
	}
	return out, nil
}

// buildOutput decodes the merged artifacts and writes the LaTeX table and
// the CSV scan next to the dump.
func buildOutput(settings *runSettings, out *runOutput, logger *log.Logger, collector *metrics.Collector) error {
	if out.record.Invert == nil {
		return &pipeline.ConfigError{Reason: "output requested but no inversion result is available"}
	}

	result, err := engine.DecodeInversion(out.record.Invert)
	if err != nil {
		return err
	}
	rep, err := report.Build(result, logger, collector)
	if err != nil {
		return err
	}
	out.report = rep

	table, err := report.LatexTable(rep)
	if err != nil {
		return err
	}
	tablePath := settings.prefix + "_limit.tex"
	if err := os.WriteFile(tablePath, []byte(table), 0o644); err != nil {
		return fmt.Errorf("write table %s: %w", tablePath, err)
	}

	csvPath := settings.prefix + "_scan.csv"
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("write csv %s: %w", csvPath, err)
	}
	if err := report.WriteCSV(csvFile, rep); err != nil {
		_ = csvFile.Close()
		return fmt.Errorf("write csv %s: %w", csvPath, err)
	}
	if err := csvFile.Close(); err != nil {
		return fmt.Errorf("write csv %s: %w", csvPath, err)
	}
	logger.Info("report written", map[string]any{
		"table": tablePath,
		"csv":   csvPath,
	})

	if out.record.Test != nil {
		test, err := engine.DecodeTest(out.record.Test)
		if err != nil {
			return err
		}
		sig := test.Significance()
		out.significance = &sig
	}
	return nil
}

// buildJournal opens the run journal, or returns nil when no path is
// configured.
func buildJournal(ctx context.Context, settings *runSettings, runID string, startTime time.Time) (*journal.Journal, error) {
	if settings.journal.Path == "" {
		return nil, nil
	}

	cfg := journal.Config{
		Dataset:      settings.journal.Dataset,
		Source:       settings.journal.Source,
		Day:          journal.DeriveDay(startTime),
		RunID:        runID,
		BufferEvents: settings.journal.BufferEvents,
	}

	switch settings.journal.Backend {
	case "fs", "":
		ds, err := journal.NewFSDataset(cfg.Dataset, settings.journal.Path)
		if err != nil {
			return nil, err
		}
		return journal.NewWithDataset(cfg, ds), nil
	case "s3":
		bucket, prefix := journal.ParseS3Path(settings.journal.Path)
		ds, err := journal.NewS3Dataset(ctx, cfg.Dataset, journal.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       settings.journal.Region,
			Endpoint:     settings.journal.Endpoint,
			UsePathStyle: settings.journal.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return journal.NewWithDataset(cfg, ds), nil
	default:
		return nil, fmt.Errorf("unknown journal-backend: %s (must be fs or s3)", settings.journal.Backend)
	}
}

// recordEvent writes one run-level journal event, logging failures.
func recordEvent(ctx context.Context, jnl *journal.Journal, logger *log.Logger, eventType string, payload map[string]any) {
	if err := jnl.Record(ctx, eventType, payload); err != nil {
		logger.Warn("journal write failed", map[string]any{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

// publishCompletion sends the run-completed notification. Delivery failure
// is logged, never fatal.
func publishCompletion(
	ctx context.Context,
	settings *runSettings,
	runMeta *types.RunMeta,
	ops map[operation]bool,
	outcome string,
	out *runOutput,
	duration time.Duration,
	logger *log.Logger,
) {
	notifier, err := buildNotifier(settings)
	if err != nil {
		logger.Warn("notifier init failed", map[string]any{"error": err.Error()})
		return
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("notifier close failed", map[string]any{"error": err.Error()})
		}
	}()

	event := &notify.RunCompletedEvent{
		EventType:  "run_completed",
		RunID:      runMeta.RunID,
		Seed:       runMeta.Seed,
		Operations: operationNames(ops),
		Outcome:    outcome,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if out.report != nil {
		limit := out.report.ObservedLimit
		event.UpperLimit = &limit
	}
	event.Significance = out.significance

	if err := notifier.Publish(ctx, event); err != nil {
		logger.Warn("notification delivery failed", map[string]any{"error": err.Error()})
		return
	}
	logger.Info("notification delivered", map[string]any{"type": settings.notify.Type})
}

func buildNotifier(settings *runSettings) (notify.Notifier, error) {
	retries := -1
	if settings.notify.Retries != nil {
		retries = *settings.notify.Retries
	}

	switch settings.notify.Type {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     settings.notify.URL,
			Headers: settings.notify.Headers,
			Timeout: settings.notify.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return notifyredis.New(notifyredis.Config{
			URL:     settings.notify.URL,
			Channel: settings.notify.Channel,
			Timeout: settings.notify.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown notify-type: %s (must be webhook or redis)", settings.notify.Type)
	}
}

// exitCodeFor maps an error onto the run command's exit codes:
// malformed requests exit 3, worker crashes and internal failures exit 2,
// everything else that failed the computation exits 1.
func exitCodeFor(err error) int {
	var configErr *pipeline.ConfigError
	if errors.As(err, &configErr) {
		return exitBadInput
	}
	var taskErr *types.TaskError
	if errors.As(err, &taskErr) {
		switch taskErr.Kind {
		case types.FailureInput:
			return exitBadInput
		case types.FailureInternal:
			return exitCrash
		default:
			return exitTaskError
		}
	}
	var collision *types.CollisionError
	if errors.As(err, &collision) {
		return exitTaskError
	}
	var loadErr *engine.LoadError
	if errors.As(err, &loadErr) {
		return exitTaskError
	}
	if errors.Is(err, context.Canceled) {
		return exitTaskError
	}
	return exitCrash
}

func operationNames(ops map[operation]bool) []string {
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, string(op))
	}
	sort.Strings(names)
	return names
}

func printRunResult(runMeta *types.RunMeta, out *runOutput, duration time.Duration) {
	fmt.Printf("\nrun_id=%s, seed=%d, duration=%s\n",
		runMeta.RunID, runMeta.Seed, duration.Round(time.Millisecond))

	if out.record != nil {
		fmt.Printf("seeds merged: %d\n", len(out.record.Seeds))
	}
	if out.report != nil {
		rep := out.report
		fmt.Printf("\n=== Limits (%s at %.0f%% CL) ===\n", rep.POI, rep.CL*100)
		fmt.Printf("Observed:     %.4g\n", rep.ObservedLimit)
		fmt.Printf("Expected:     %.4g  (+1σ %.4g / -1σ %.4g)\n",
			rep.ExpectedLimit.Median, rep.ExpectedLimit.Up, rep.ExpectedLimit.Down)
		fmt.Printf("CLb at limit: %.4f\n", rep.CLbAtLimit)
	}
	if out.significance != nil {
		fmt.Printf("\n=== Hypothesis Test ===\n")
		fmt.Printf("Significance: %.3f sigma\n", *out.significance)
	}
}
