package oktify

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/hejijunhao/oktify/internal/connector"
	_ "github.com/hejijunhao/oktify/internal/connector/okta"
	_ "github.com/hejijunhao/oktify/internal/connector/replay"
	"github.com/hejijunhao/oktify/internal/engine"
	"github.com/hejijunhao/oktify/internal/pipeline"
)

// Client audits one tenant or replay file. Safe for concurrent use; every
// call runs its own pagination, dedup set and HTTP client.
type Client struct {
	opts options
}

// Stats summarizes one audit.
type Stats struct {
	Pages       int
	Events      int
	Rows        int
	Irrelevant  int
	Skipped     int // malformed events
	Duplicates  int
	OutOfWindow int
	OutOfOrder  int
	Retries     int
	Duration    time.Duration
}

// New creates a Client. Either a domain and token or a replay file is required.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.replayFile == "" {
		if o.domain == "" {
			return nil, errors.New("oktify: domain is required")
		}
		if o.token == "" {
			return nil, errors.New("oktify: token is required")
		}
	}
	return &Client{opts: o}, nil
}

// Audit is a single lazy query. Rows may be ranged over once; Stats is
// complete after the range ends.
type Audit struct {
	p      *pipeline.Pipeline
	cfg    connector.ConnectorConfig
	params connector.QueryParams
}

// Audit prepares a query for one category over w. No request is made
// until Rows is ranged over.
func (c *Client) Audit(category Category, w Window) (*Audit, error) {
	mc, err := category.internal()
	if err != nil {
		return nil, fmt.Errorf("oktify: %w", err)
	}
	eng, err := engine.New(mc, c.opts.logger)
	if err != nil {
		return nil, fmt.Errorf("oktify: %w", err)
	}
	provider, extra := "okta", map[string]string(nil)
	if c.opts.replayFile != "" {
		provider, extra = "replay", map[string]string{"file": c.opts.replayFile}
	}
	ctor, err := connector.Get(provider)
	if err != nil {
		return nil, fmt.Errorf("oktify: %w", err)
	}

	return &Audit{
		p: pipeline.New(ctor(), eng, nil, pipeline.WithLogger(c.opts.logger)),
		cfg: connector.ConnectorConfig{
			Provider:   provider,
			APIKey:     c.opts.token,
			AuthScheme: c.opts.authScheme,
			Endpoint:   c.opts.domain,
			Timeout:    c.opts.timeout,
			Retry:      c.opts.retry,
			Extra:      extra,
			Logger:     c.opts.logger,
			Observer:   c.opts.observer,
		},
		params: connector.QueryParams{Window: w, Limit: c.opts.pageSize},
	}, nil
}

// Rows yields the audit's rows in source order. The first error ends the
// sequence.
func (a *Audit) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for r, err := range a.p.Rows(ctx, a.cfg, a.params) {
			if err != nil {
				yield(Row{}, err)
				return
			}
			if !yield(rowFromReport(r), nil) {
				return
			}
		}
	}
}

// Stats returns the counters of the audit so far.
func (a *Audit) Stats() Stats {
	r := a.p.Result()
	return Stats{
		Pages:       r.Pages,
		Events:      r.Events,
		Rows:        r.Rows,
		Irrelevant:  r.Irrelevant,
		Skipped:     r.Skipped,
		Duplicates:  r.Duplicates,
		OutOfWindow: r.OutOfWindow,
		OutOfOrder:  r.OutOfOrder,
		Retries:     r.Retries,
		Duration:    r.Duration,
	}
}

// Rows is a shorthand for Audit followed by Audit.Rows.
func (c *Client) Rows(ctx context.Context, category Category, w Window) iter.Seq2[Row, error] {
	a, err := c.Audit(category, w)
	if err != nil {
		return func(yield func(Row, error) bool) { yield(Row{}, err) }
	}
	return a.Rows(ctx)
}

// Collect runs an audit to completion and returns all rows.
func (c *Client) Collect(ctx context.Context, category Category, w Window) ([]Row, Stats, error) {
	a, err := c.Audit(category, w)
	if err != nil {
		return nil, Stats{}, err
	}
	var rows []Row
	for r, err := range a.Rows(ctx) {
		if err != nil {
			return rows, a.Stats(), err
		}
		rows = append(rows, r)
	}
	return rows, a.Stats(), nil
}
