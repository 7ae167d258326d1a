package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hejijunhao/oktify/internal/config"
	"github.com/hejijunhao/oktify/internal/connector"
	"github.com/hejijunhao/oktify/internal/engine"
	"github.com/hejijunhao/oktify/internal/logging"
	"github.com/hejijunhao/oktify/internal/model"
	"github.com/hejijunhao/oktify/internal/observability"
	"github.com/hejijunhao/oktify/internal/output"
	"github.com/hejijunhao/oktify/internal/output/file"
	"github.com/hejijunhao/oktify/internal/output/multi"
	"github.com/hejijunhao/oktify/internal/output/stdout"
	"github.com/hejijunhao/oktify/internal/pipeline"
)

type auditFlags struct {
	start, end  string
	output      string
	show        bool
	noCSV       bool
	source      string
	replayFile  string
	logLevel    string
	metricsFile string
	envFile     string
}

func (a *app) auditCmd(c model.Category) *cobra.Command {
	var f auditFlags
	cmd := &cobra.Command{
		Use:   c.Command(),
		Short: fmt.Sprintf("Report %s", c.Noun()),
		Example: fmt.Sprintf("  oktify %s --start 2024-05-01 --end 2024-05-31 --show\n"+
			"  oktify %s --start 2024-05-01 --end 2024-05-01 --output audit.csv", c.Command(), c.Command()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			return a.audit(cmd, c, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.start, "start", "", "first day of the window, YYYY-MM-DD (required)")
	fl.StringVar(&f.end, "end", "", "last day of the window, YYYY-MM-DD, inclusive (required)")
	fl.StringVarP(&f.output, "output", "o", "", "CSV path (default "+c.ReportName()+"_YYYYMMDD_HHMMSS.csv)")
	fl.BoolVar(&f.show, "show", false, "print the results as a table")
	fl.BoolVar(&f.noCSV, "no-csv", false, "do not write a CSV report")
	fl.StringVar(&f.source, "source", "", "event source: okta or replay (env OKTIFY_SOURCE)")
	fl.StringVar(&f.replayFile, "replay-file", "", "exported System Log file for --source replay (env OKTIFY_REPLAY_FILE)")
	fl.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (env OKTIFY_LOG_LEVEL)")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format (env OKTIFY_METRICS_FILE)")
	fl.StringVar(&f.envFile, "env-file", ".env", "dotenv file with credentials; ignored when missing")
	return cmd
}

func (a *app) audit(cmd *cobra.Command, c model.Category, f auditFlags) error {
	if f.start == "" || f.end == "" {
		return usageErrorf("--start and --end are required")
	}
	if f.noCSV && !f.show {
		return usageErrorf("--no-csv without --show produces no output")
	}
	if f.noCSV && f.output != "" {
		return usageErrorf("--output and --no-csv are mutually exclusive")
	}
	window, err := model.ParseTimeWindow(f.start, f.end)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.envFile)
	if err != nil {
		return usageError{err}
	}
	applyFlags(&cfg, f)
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}

	base := logging.NewLogger(a.stderr, cfg.LogLevel, f.show)
	defer base.Sync()
	log, runID := logging.RunLogger(base, c.String())
	log.Debug("configuration", cfg.Fields()...)

	ctor, err := connector.Get(cfg.Source)
	if err != nil {
		return usageError{err}
	}
	eng, err := engine.New(c, log)
	if err != nil {
		return err
	}

	var (
		outs   []output.Output
		report *file.Output
	)
	if !f.noCSV {
		path := f.output
		if path == "" {
			path = file.DefaultFilename(c, time.Now())
		}
		report, err = file.New(path, c)
		if err != nil {
			return err
		}
		outs = append(outs, report)
	}
	if f.show {
		outs = append(outs, stdout.New(c, stdout.WithWriter(a.stdout)))
	}

	metrics := observability.New()
	p := pipeline.New(ctor(), eng, multi.New(outs...),
		pipeline.WithLogger(log),
		pipeline.WithRowObserver(metrics))

	log.Info("query started",
		zap.String("window", window.String()),
		zap.String("source", cfg.Source))
	started := time.Now()
	res, runErr := p.Query(cmd.Context(), cfg.Connector(log, metrics), connector.QueryParams{
		Window: window,
		Limit:  cfg.PageSize,
	})
	metrics.RunFinished(time.Since(started), runErr == nil, time.Now())
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("write metrics file", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}

	if runErr != nil {
		if report != nil {
			fmt.Fprintf(a.stderr, "Partial report kept at %s\n", report.PartialPath())
		}
		var rex *model.RetryExhaustedError
		if errors.As(runErr, &rex) && rex.LastCursor != "" {
			fmt.Fprintf(a.stderr, "Last consumed page: %s\n", rex.LastCursor)
		}
		return runErr
	}

	a.summarize(c, res, report, f.show, runID)
	return nil
}

// applyFlags lets explicit flags override the environment.
func applyFlags(cfg *config.Config, f auditFlags) {
	if f.source != "" {
		cfg.Source = f.source
	}
	if f.replayFile != "" {
		cfg.ReplayFile = f.replayFile
		if f.source == "" {
			cfg.Source = "replay"
		}
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.metricsFile != "" {
		cfg.MetricsFile = f.metricsFile
	}
}

func (a *app) summarize(c model.Category, res pipeline.Result, report *file.Output, show bool, runID string) {
	if res.Rows == 0 && !show {
		fmt.Fprintf(a.stdout, "No %s found in the given time period.\n", c.Noun())
	} else if !show {
		fmt.Fprintf(a.stdout, "Found %d %s.\n", res.Rows, c.Noun())
	}
	if report != nil {
		fmt.Fprintf(a.stdout, "Report written to %s\n", report.Path())
	}
	if res.OutOfOrder > 0 {
		fmt.Fprintf(a.stderr, "WARNING: dropped %d event(s) the source returned out of timestamp order; the report may be incomplete (run %s).\n",
			res.OutOfOrder, runID)
	}
	if res.OutOfWindow > 0 {
		fmt.Fprintf(a.stderr, "Dropped %d event(s) outside the requested window.\n", res.OutOfWindow)
	}
	if res.Skipped > 0 {
		fmt.Fprintf(a.stderr, "Skipped %d malformed event(s); see log for details (run %s).\n", res.Skipped, runID)
	}
}
