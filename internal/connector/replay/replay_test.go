package replay

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/oktify/internal/connector"
	"github.com/hejijunhao/oktify/internal/model"
)

const export = `[
  {"uuid":"3","eventType":"group.user_membership.add","published":"2024-05-03T00:00:00.000Z"},
  {"uuid":"1","eventType":"group.user_membership.add","published":"2024-05-01T00:00:00.000Z"},
  {"uuid":"x","eventType":"user.session.start","published":"2024-05-02T00:00:00.000Z"},
  {"uuid":"2","eventType":"group.user_membership.remove","published":"2024-05-02T00:00:00.000Z"},
  {"uuid":"old","eventType":"group.user_membership.add","published":"2023-05-02T00:00:00.000Z"},
  {"uuid":"undated","eventType":"group.user_membership.add"}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func window(t *testing.T) model.TimeWindow {
	t.Helper()
	w, err := model.ParseTimeWindow("2024-05-01", "2024-05-31")
	require.NoError(t, err)
	return w
}

func TestQuery_FiltersSortsAndPages(t *testing.T) {
	c := &Connector{}
	pager, err := c.Query(context.Background(), connector.ConnectorConfig{
		Extra: map[string]string{"file": writeFile(t, "export.json", export)},
	}, connector.QueryParams{
		Window:     window(t),
		EventTypes: []string{"group.user_membership.add", "group.user_membership.remove"},
		Limit:      2,
	})
	require.NoError(t, err)

	var pages [][]string
	for {
		page, err := pager.NextPage(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		var ids []string
		for _, ev := range page {
			ids = append(ids, ev.UUID)
		}
		pages = append(pages, ids)
	}

	// Undated events sort first and are left for extraction to reject.
	assert.Equal(t, [][]string{{"undated", "1"}, {"2", "3"}}, pages)
	assert.Equal(t, "offset=2", pager.Cursor())
	assert.Equal(t, connector.PageStats{Pages: 2, Events: 4, OutOfWindow: 1}, pager.Stats())
}

func TestQuery_NDJSON(t *testing.T) {
	c := &Connector{}
	body := `{"uuid":"1","eventType":"user.lifecycle.create","published":"2024-05-01T00:00:00.000Z"}
{"uuid":"2","eventType":"user.lifecycle.suspend","published":"2024-05-02T00:00:00.000Z"}
`
	pager, err := c.Query(context.Background(), connector.ConnectorConfig{
		Extra: map[string]string{"file": writeFile(t, "export.ndjson", body)},
	}, connector.QueryParams{Window: window(t)})
	require.NoError(t, err)

	page, err := pager.NextPage(context.Background())
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestQuery_EmptyFile(t *testing.T) {
	c := &Connector{}
	pager, err := c.Query(context.Background(), connector.ConnectorConfig{
		Extra: map[string]string{"file": writeFile(t, "empty.json", "  \n")},
	}, connector.QueryParams{Window: window(t)})
	require.NoError(t, err)

	_, err = pager.NextPage(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestQuery_Errors(t *testing.T) {
	c := &Connector{}
	_, err := c.Query(context.Background(), connector.ConnectorConfig{}, connector.QueryParams{})
	assert.ErrorContains(t, err, `missing required config key "file"`)

	_, err = c.Query(context.Background(), connector.ConnectorConfig{
		Extra: map[string]string{"file": filepath.Join(t.TempDir(), "nope.json")},
	}, connector.QueryParams{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = c.Query(context.Background(), connector.ConnectorConfig{
		Extra: map[string]string{"file": writeFile(t, "bad.json", "[{")},
	}, connector.QueryParams{})
	assert.Error(t, err)
}

func TestNextPage_Cancelled(t *testing.T) {
	c := &Connector{}
	pager, err := c.Query(context.Background(), connector.ConnectorConfig{
		Extra: map[string]string{"file": writeFile(t, "export.json", export)},
	}, connector.QueryParams{Window: window(t)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pager.NextPage(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
