package oktify

import (
	"time"

	"go.uber.org/zap"

	"github.com/hejijunhao/oktify/internal/connector"
)

type options struct {
	domain     string
	token      string
	authScheme string
	replayFile string
	pageSize   int
	retry      connector.RetryPolicy
	timeout    time.Duration
	logger     *zap.Logger
	observer   connector.Observer
}

// Option configures a Client.
type Option func(*options)

// WithDomain sets the tenant base URL, e.g. "https://acme.okta.com".
func WithDomain(domain string) Option {
	return func(o *options) { o.domain = domain }
}

// WithToken sets the API token.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithAuthScheme sets the Authorization scheme: "SSWS" (default) for API
// tokens or "Bearer" for OAuth access tokens.
func WithAuthScheme(scheme string) Option {
	return func(o *options) { o.authScheme = scheme }
}

// WithReplayFile reads events from an exported System Log file (JSON array
// or NDJSON) instead of the API. Domain and token are then not needed.
func WithReplayFile(path string) Option {
	return func(o *options) { o.replayFile = path }
}

// WithPageSize sets the number of events per page, at most 1000. Default: 1000.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithRetry bounds retries of a single page. Default: 5 retries, 1s base
// delay doubling up to 1m.
func WithRetry(maxRetries int, base, maxDelay time.Duration) Option {
	return func(o *options) {
		o.retry = connector.RetryPolicy{MaxRetries: maxRetries, BaseDelay: base, MaxDelay: maxDelay}
	}
}

// WithTimeout sets the per-request HTTP timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger. Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver receives page, retry and drop notifications.
func WithObserver(obs connector.Observer) Option {
	return func(o *options) { o.observer = obs }
}

func defaultOptions() options {
	return options{
		authScheme: "SSWS",
		retry:      connector.DefaultRetryPolicy(),
		logger:     zap.NewNop(),
	}
}
