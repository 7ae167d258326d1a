package connector

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/hejijunhao/oktify/internal/model"
)

// Connector opens paginated queries against an audit log source.
type Connector interface {
	// Query prepares a lazy page sequence over params.Window. No request is
	// issued until the first NextPage call.
	Query(ctx context.Context, cfg ConnectorConfig, params QueryParams) (Pager, error)
}

// Pager yields one page of raw events per call, in ascending timestamp order.
// It returns io.EOF once the window is exhausted. A Pager serves a single
// invocation and is not safe for concurrent use.
type Pager interface {
	NextPage(ctx context.Context) ([]model.RawEvent, error)
	// Cursor is the last successfully consumed page reference.
	Cursor() string
	Stats() PageStats
}

// ConnectorConfig is the channel descriptor for one invocation.
type ConnectorConfig struct {
	Provider   string
	APIKey     string
	AuthScheme string // "SSWS" for Okta API tokens, "Bearer" for OAuth access tokens
	Endpoint   string
	Timeout    time.Duration
	Retry      RetryPolicy
	Extra      map[string]string

	Logger   *zap.Logger
	Observer Observer
}

// QueryParams defines the window and discriminators of a log query.
type QueryParams struct {
	Window     model.TimeWindow
	EventTypes []string // server-side filter; empty means all types
	Limit      int      // page size
}

// RetryPolicy bounds retries of a single page request.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries 5 times with 1s, 2s, 4s, 8s, 16s waits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Minute}
}

// Delay returns the wait before retry attempt n (1-based). A positive
// serverHint always wins over the exponential schedule.
func (r RetryPolicy) Delay(n int, serverHint time.Duration) time.Duration {
	if serverHint > 0 {
		return serverHint
	}
	if n < 1 {
		n = 1
	}
	d := r.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if r.MaxDelay > 0 && d >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	if r.MaxDelay > 0 && d > r.MaxDelay {
		return r.MaxDelay
	}
	return d
}

// PageStats counts what a Pager fetched and filtered.
type PageStats struct {
	Pages       int
	Events      int
	Retries     int
	OutOfWindow int
	OutOfOrder  int
}

// Observer receives pagination progress, e.g. for metrics.
type Observer interface {
	PageFetched(events int)
	RetryScheduled(reason string, wait time.Duration)
	EventDropped(reason string)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) PageFetched(int)                     {}
func (NopObserver) RetryScheduled(string, time.Duration) {}
func (NopObserver) EventDropped(string)                  {}

// Events flattens a Pager into a single lazy event sequence. Iteration stops
// after the first error; io.EOF is not reported. Cancellation is observed
// between pages.
func Events(ctx context.Context, p Pager) iter.Seq2[model.RawEvent, error] {
	return func(yield func(model.RawEvent, error) bool) {
		for {
			page, err := p.NextPage(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(model.RawEvent{}, err)
				return
			}
			for _, ev := range page {
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}
