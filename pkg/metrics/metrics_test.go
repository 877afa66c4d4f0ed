package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Session("exhausted")
	m.Session("auth_failed")
	m.Session("auth_failed")
	m.Fetch(FetchOK)
	m.Fetch(FetchFailed)
	m.Publish("telegram", nil)
	m.Publish("s3", errors.New("denied"))
	m.Archive(25, 4)
	m.Ledger(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("auth_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchesTotal.WithLabelValues(FetchOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishesTotal.WithLabelValues("s3", "failed")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.ArchiveFiles))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ArchiveGroups))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.LedgerSize))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Session("x")
	m.Fetch(FetchOK)
	m.Publish("log", nil)
	m.Archive(1, 1)
	m.Ledger(1)
	m.RunFinished("exhausted")
	assert.NoError(t, m.WriteTextfile("/nonexistent/file.prom"))
	assert.Nil(t, m.Registry())
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Fetch(FetchOK)
	m.RunFinished("exhausted")

	path := filepath.Join(t.TempDir(), "textfile", "wgharvest.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `wgharvest_fetches_total{result="ok"} 1`))
	assert.Contains(t, string(data), "wgharvest_last_run_timestamp_seconds")
}
