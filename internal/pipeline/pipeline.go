package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/hejijunhao/oktify/internal/connector"
	"github.com/hejijunhao/oktify/internal/engine"
	"github.com/hejijunhao/oktify/internal/engine/classifier"
	"github.com/hejijunhao/oktify/internal/engine/dedup"
	"github.com/hejijunhao/oktify/internal/model"
	"github.com/hejijunhao/oktify/internal/observability"
	"github.com/hejijunhao/oktify/internal/output"
)

// RowObserver receives per-outcome event totals at the end of a run.
type RowObserver interface {
	ObserveRows(category, outcome string, n int)
}

// Result summarizes one run.
type Result struct {
	Pages       int
	Events      int
	Rows        int
	Irrelevant  int
	Skipped     int
	Duplicates  int
	OutOfWindow int
	OutOfOrder  int
	Retries     int
	Cursor      string // last consumed page reference
	Duration    time.Duration
}

// Fields returns the result as log fields.
func (r Result) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("pages", r.Pages),
		zap.Int("events", r.Events),
		zap.Int("rows", r.Rows),
		zap.Int("irrelevant", r.Irrelevant),
		zap.Int("skipped", r.Skipped),
		zap.Int("duplicates", r.Duplicates),
		zap.Int("out_of_window", r.OutOfWindow),
		zap.Int("out_of_order", r.OutOfOrder),
		zap.Int("retries", r.Retries),
		zap.Duration("duration", r.Duration),
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the run logger. Default: no-op.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithRowObserver reports row outcome totals, e.g. to run metrics.
func WithRowObserver(o RowObserver) Option {
	return func(p *Pipeline) { p.rows = o }
}

// Pipeline connects a connector, engine, deduplicator and output for a
// single forward pass over one window. A Pipeline runs once.
type Pipeline struct {
	connector connector.Connector
	engine    *engine.Engine
	dedup     *dedup.Deduplicator
	output    output.Output
	log       *zap.Logger
	rows      RowObserver
	result    Result
	ran       bool
}

// New creates a Pipeline from the given components. out may be nil when
// only Rows is used.
func New(conn connector.Connector, eng *engine.Engine, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		connector: conn,
		engine:    eng,
		dedup:     dedup.New(),
		output:    out,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rows lazily yields deduplicated report rows in source order. Iteration
// stops at the first page-level error, which is yielded once. Malformed and
// irrelevant events are counted, not yielded. Result is complete once the
// sequence ends.
func (p *Pipeline) Rows(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) iter.Seq2[model.ReportRow, error] {
	return func(yield func(model.ReportRow, error) bool) {
		if p.ran {
			yield(model.ReportRow{}, errors.New("pipeline: already ran"))
			return
		}
		p.ran = true
		start := time.Now()

		if len(params.EventTypes) == 0 {
			params.EventTypes = classifier.EventTypes(p.engine.Category())
		}
		pager, err := p.connector.Query(ctx, cfg, params)
		if err != nil {
			yield(model.ReportRow{}, fmt.Errorf("pipeline query: %w", err))
			return
		}
		defer func() { p.collect(pager, time.Since(start)) }()

		for ev, err := range connector.Events(ctx, pager) {
			if err != nil {
				yield(model.ReportRow{}, fmt.Errorf("pipeline query: %w", err))
				return
			}
			row, ok, err := p.engine.Process(ev)
			if err != nil {
				yield(model.ReportRow{}, fmt.Errorf("pipeline process: %w", err))
				return
			}
			if !ok {
				continue
			}
			if !p.dedup.Keep(row) {
				p.log.Debug("dropping duplicate event", zap.String("event_id", row.EventID))
				continue
			}
			p.result.Rows++
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Query runs the pipeline and writes every row to the output. On success the
// output is closed; on any error it is aborted with the error as reason.
func (p *Pipeline) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) (Result, error) {
	var runErr error
	for row, err := range p.Rows(ctx, cfg, params) {
		if err != nil {
			runErr = err
			break
		}
		if err := p.output.Write(ctx, row); err != nil {
			runErr = fmt.Errorf("pipeline output: %w", err)
			break
		}
	}

	if runErr != nil {
		p.log.Error("query aborted", append(p.result.Fields(),
			zap.String("last_cursor", p.result.Cursor), zap.Error(runErr))...)
		if err := output.Abort(p.output, runErr.Error()); err != nil {
			p.log.Warn("abort output", zap.Error(err))
		}
		return p.result, runErr
	}

	if err := p.output.Close(); err != nil {
		return p.result, fmt.Errorf("pipeline output: %w", err)
	}
	p.log.Info("query complete", p.result.Fields()...)
	return p.result, nil
}

// Result returns the counters of the run so far.
func (p *Pipeline) Result() Result { return p.result }

func (p *Pipeline) collect(pager connector.Pager, d time.Duration) {
	ps := pager.Stats()
	es := p.engine.Stats()
	p.result.Pages = ps.Pages
	p.result.Events = ps.Events
	p.result.Retries = ps.Retries
	p.result.OutOfWindow = ps.OutOfWindow
	p.result.OutOfOrder = ps.OutOfOrder
	p.result.Cursor = pager.Cursor()
	p.result.Irrelevant = es.Irrelevant
	p.result.Skipped = es.Skipped
	p.result.Duplicates = p.dedup.Dropped()
	p.result.Duration = d

	if p.rows != nil {
		c := p.engine.Category().String()
		p.rows.ObserveRows(c, observability.RowEmitted, p.result.Rows)
		p.rows.ObserveRows(c, observability.RowSkipped, p.result.Skipped)
		p.rows.ObserveRows(c, observability.RowDuplicate, p.result.Duplicates)
		p.rows.ObserveRows(c, observability.RowIrrelevant, p.result.Irrelevant)
	}
}
