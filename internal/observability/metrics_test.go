package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverCounts(t *testing.T) {
	m := New()
	m.PageFetched(100)
	m.PageFetched(40)
	m.RetryScheduled("rate_limited", 3*time.Second)
	m.RetryScheduled("transport", time.Second)
	m.RetryScheduled("rate_limited", 3*time.Second)
	m.EventDropped("out_of_window")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesTotal))
	assert.Equal(t, 140.0, testutil.ToFloat64(m.EventsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetryTotal.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetryTotal.WithLabelValues("transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedTotal.WithLabelValues("out_of_window")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RetryWait))
}

func TestRowsAndRun(t *testing.T) {
	m := New()
	m.ObserveRows("Group", RowEmitted, 2)
	m.ObserveRows("Group", RowSkipped, 1)
	m.RunFinished(1500*time.Millisecond, true, time.Unix(1700000000, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsTotal.WithLabelValues("Group", RowEmitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsTotal.WithLabelValues("Group", RowSkipped)))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.RunDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunSuccess))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastRunUnixTS))

	m.RunFinished(time.Second, false, time.Unix(1700000001, 0))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunSuccess))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.PageFetched(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PagesTotal))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.PageFetched(5)
	m.ObserveRows("Role", RowEmitted, 1)

	path := filepath.Join(t.TempDir(), "oktify.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "oktify_pages_fetched_total 1"), text)
	assert.True(t, strings.Contains(text, `oktify_rows_total{category="Role",outcome="emitted"} 1`), text)

	expected := `
# HELP oktify_events_fetched_total Raw events received
# TYPE oktify_events_fetched_total counter
oktify_events_fetched_total 5
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "oktify_events_fetched_total"))
}
