package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/hejijunhao/oktify/internal/connector"
	"github.com/hejijunhao/oktify/internal/connector/okta"
	"github.com/hejijunhao/oktify/internal/model"
)

const defaultPageSize = 1000

func init() {
	connector.Register("replay", func() connector.Connector {
		return &Connector{}
	})
}

// Connector serves a System Log export (JSON array or NDJSON) as if it were
// the live API: filtered to the window and event types, sorted ascending,
// and split into pages.
type Connector struct{}

func (c *Connector) Query(_ context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) (connector.Pager, error) {
	path := cfg.Extra["file"]
	if path == "" {
		return nil, fmt.Errorf("replay connector: missing required config key \"file\" in Extra")
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay connector: %w", err)
	}

	events, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("replay connector: %s: %w", path, err)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = connector.NopObserver{}
	}

	wanted := make(map[string]bool, len(params.EventTypes))
	for _, t := range params.EventTypes {
		wanted[t] = true
	}

	p := &Pager{log: log, obs: obs, pageSize: params.Limit}
	if p.pageSize <= 0 {
		p.pageSize = defaultPageSize
	}
	for _, ev := range events {
		if len(wanted) > 0 && !wanted[ev.EventType] {
			continue
		}
		if !ev.Published.IsZero() && !params.Window.Contains(ev.Published) {
			p.stats.OutOfWindow++
			obs.EventDropped("out_of_window")
			continue
		}
		p.events = append(p.events, ev)
	}
	slices.SortStableFunc(p.events, func(a, b model.RawEvent) int {
		return a.Published.Compare(b.Published)
	})

	log.Debug("replay file loaded", zap.String("file", path),
		zap.Int("events", len(events)), zap.Int("selected", len(p.events)))
	return p, nil
}

func decode(body []byte) ([]model.RawEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return okta.DecodeEvents(trimmed)
	}
	return okta.DecodeNDJSON(trimmed)
}

// Pager pages through the selected events of a replay file.
type Pager struct {
	log      *zap.Logger
	obs      connector.Observer
	events   []model.RawEvent
	pageSize int
	offset   int
	cursor   string
	stats    connector.PageStats
}

func (p *Pager) NextPage(ctx context.Context) ([]model.RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.offset >= len(p.events) {
		return nil, io.EOF
	}
	end := min(p.offset+p.pageSize, len(p.events))
	page := p.events[p.offset:end]
	p.cursor = "offset=" + strconv.Itoa(p.offset)
	p.offset = end

	p.stats.Pages++
	p.stats.Events += len(page)
	p.obs.PageFetched(len(page))
	return page, nil
}

func (p *Pager) Cursor() string { return p.cursor }

func (p *Pager) Stats() connector.PageStats { return p.stats }
