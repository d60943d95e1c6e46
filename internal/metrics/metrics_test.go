package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/tnunamak/usagemeter/internal/metrics"
)

func TestCollectorsRegistered(t *testing.T) {
	metrics.ProbeTotal.WithLabelValues("metrics-test", "ok").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ProbeTotal.WithLabelValues("metrics-test", "ok")))

	metrics.LineUsed.WithLabelValues("metrics-test", "Session").Set(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(metrics.LineUsed.WithLabelValues("metrics-test", "Session")))

	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.LineUsed, "usagemeter_line_used"), 1)
}
