package okta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/hejijunhao/oktify/internal/connector"
	"github.com/hejijunhao/oktify/internal/connector/httpclient"
	"github.com/hejijunhao/oktify/internal/model"
)

// State is the paginator's position in its request cycle.
type State int

const (
	Requesting State = iota
	Backoff
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Requesting:
		return "requesting"
	case Backoff:
		return "backoff"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Paginator walks a windowed System Log query page by page, following
// rel="next" links and retrying rate-limited or failed page requests.
type Paginator struct {
	client *httpclient.Client
	window model.TimeWindow
	retry  connector.RetryPolicy
	log    *zap.Logger
	obs    connector.Observer
	sleep  func(ctx context.Context, d time.Duration) error

	state     State
	err       error
	next      string // page to request
	cursor    string // last consumed page
	requested map[string]bool
	last      time.Time // timestamp of the last yielded event
	stats     connector.PageStats
}

// NewPaginator prepares a paginator whose first request is firstURL.
func NewPaginator(client *httpclient.Client, firstURL string, window model.TimeWindow, retry connector.RetryPolicy, log *zap.Logger, obs connector.Observer) *Paginator {
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = connector.NopObserver{}
	}
	return &Paginator{
		client:    client,
		window:    window,
		retry:     retry,
		log:       log,
		obs:       obs,
		sleep:     sleepCtx,
		next:      firstURL,
		requested: make(map[string]bool),
	}
}

// State returns the current state.
func (p *Paginator) State() State { return p.state }

// Cursor returns the last successfully consumed page URL.
func (p *Paginator) Cursor() string { return p.cursor }

// Stats returns the running page counters.
func (p *Paginator) Stats() connector.PageStats { return p.stats }

// NextPage fetches the next page and returns its in-window events. It returns
// io.EOF once the query is exhausted. After a failure the paginator is
// Aborted and keeps returning the same error.
func (p *Paginator) NextPage(ctx context.Context) ([]model.RawEvent, error) {
	switch p.state {
	case Done:
		return nil, io.EOF
	case Aborted:
		return nil, p.err
	}
	if err := ctx.Err(); err != nil {
		return nil, p.abort(err)
	}

	url := p.next
	p.requested[url] = true
	raw, next, err := p.fetch(ctx, url)
	if err != nil {
		return nil, p.abort(err)
	}

	p.cursor = url
	p.stats.Pages++
	p.obs.PageFetched(len(raw))

	events := p.admit(raw)

	switch {
	case len(raw) == 0, next == "":
		p.state = Done
	case p.requested[next]:
		p.log.Warn("next link repeats an already requested page, stopping",
			zap.String("next", next))
		p.state = Done
	default:
		p.next = next
		p.state = Requesting
	}

	if len(events) == 0 && p.state == Done {
		return nil, io.EOF
	}
	return events, nil
}

// admit drops events that fall outside the window or go back in time. Events
// without a timestamp are passed on so extraction can reject them as
// malformed; they do not move the ordering mark.
func (p *Paginator) admit(raw []model.RawEvent) []model.RawEvent {
	events := make([]model.RawEvent, 0, len(raw))
	for _, ev := range raw {
		if ev.Published.IsZero() {
			events = append(events, ev)
			continue
		}
		if !p.window.Contains(ev.Published) {
			p.stats.OutOfWindow++
			p.obs.EventDropped("out_of_window")
			p.log.Warn("dropping event outside query window",
				zap.String("uuid", ev.UUID), zap.Time("published", ev.Published),
				zap.Stringer("window", p.window))
			continue
		}
		if ev.Published.Before(p.last) {
			p.stats.OutOfOrder++
			p.obs.EventDropped("out_of_order")
			p.log.Warn("dropping event older than its predecessor",
				zap.String("uuid", ev.UUID), zap.Time("published", ev.Published),
				zap.Time("previous", p.last))
			continue
		}
		p.last = ev.Published
		events = append(events, ev)
	}
	p.stats.Events += len(events)
	return events
}

// fetch requests url until it succeeds, fails fatally, or runs out of retries.
func (p *Paginator) fetch(ctx context.Context, url string) ([]model.RawEvent, string, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if attempt > p.retry.MaxRetries {
				return nil, "", &model.RetryExhaustedError{
					Window:     p.window,
					LastCursor: p.cursor,
					Attempts:   attempt,
					Cause:      lastErr,
				}
			}
			wait := p.retry.Delay(attempt, serverHint(lastErr))
			reason := retryReason(lastErr)
			p.state = Backoff
			p.stats.Retries++
			p.obs.RetryScheduled(reason, wait)
			p.log.Info("retrying page request",
				zap.String("reason", reason), zap.Int("attempt", attempt),
				zap.Duration("wait", wait), zap.Error(lastErr))
			if err := p.sleep(ctx, wait); err != nil {
				return nil, "", err
			}
		}
		p.state = Requesting

		resp, err := p.client.Get(ctx, url)
		if err == nil {
			events, derr := DecodeEvents(resp.Body)
			if derr == nil {
				return events, resp.Next, nil
			}
			err = &httpclient.TransportError{Err: derr}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		if !httpclient.Retryable(err) {
			return nil, "", fmt.Errorf("okta connector: %w", err)
		}
		lastErr = err
	}
}

func (p *Paginator) abort(err error) error {
	p.state = Aborted
	p.err = err
	return err
}

func serverHint(err error) time.Duration {
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

func retryReason(err error) string {
	if errors.Is(err, model.ErrRateLimited) {
		return "rate_limited"
	}
	return "transport"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
