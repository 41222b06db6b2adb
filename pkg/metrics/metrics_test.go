package metrics_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/reap/pkg/metrics"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	reg := metrics.NewRegistry()

	metrics.EvaluationsTotal.WithLabelValues("textfile-test", "expression", "success").Inc()

	path := filepath.Join(t.TempDir(), "reap.prom")
	require.NoError(t, metrics.WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data),
		`reap_strategy_evaluations_total{path="expression",result="success",strategy="textfile-test"} 1`)
	assert.Contains(t, string(data), "# HELP reap_hnr_request_duration_seconds")
}

func TestWriteTextfile_BadPath(t *testing.T) {
	t.Parallel()

	err := metrics.WriteTextfile(filepath.Join(t.TempDir(), "missing", "reap.prom"), metrics.NewRegistry())
	require.ErrorContains(t, err, "write metrics")
}
