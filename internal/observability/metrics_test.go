package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRecordExtraction(t *testing.T) {
	beforeExtracted := testutil.ToFloat64(workoutsExtracted)
	beforeSkipped := testutil.ToFloat64(blocksSkipped)

	RecordExtraction(3, 1)

	require.Equal(t, beforeExtracted+3, testutil.ToFloat64(workoutsExtracted))
	require.Equal(t, beforeSkipped+1, testutil.ToFloat64(blocksSkipped))
}

func TestRecordHistorySize(t *testing.T) {
	RecordHistorySize(42)
	require.Equal(t, 42.0, testutil.ToFloat64(historyRows))
}

func TestRecordImportCompleted(t *testing.T) {
	ts := time.Date(2026, time.January, 2, 12, 0, 0, 0, time.UTC)
	RecordImportCompleted(ts)
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(lastImportGauge))

	// A zero timestamp must not clobber the watermark.
	RecordImportCompleted(time.Time{})
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(lastImportGauge))
}

func TestImportLatencyRegistered(t *testing.T) {
	ImportLatency.WithLabelValues("upload").Observe(0.25)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "schwinn_file_import_duration_seconds" {
			found = mf
			break
		}
	}
	require.NotNil(t, found, "import latency histogram must be registered on the default registry")
	require.Equal(t, dto.MetricType_HISTOGRAM, found.GetType())

	var samples uint64
	for _, m := range found.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	require.GreaterOrEqual(t, samples, uint64(1))
}
