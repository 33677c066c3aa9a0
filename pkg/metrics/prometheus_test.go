package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordUnits("price_trend", 3, 1)
	r.RecordUnits("price_trend", 2, 0)
	r.RecordFlagged("volume", 4)
	r.RecordError("collect")
	r.RecordCompositePeak(1.25)
	r.ObserveStage("fusion", 0.01)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.units.WithLabelValues("price_trend", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.units.WithLabelValues("price_trend", "skipped")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.flagged.WithLabelValues("volume")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("collect")))
	assert.Equal(t, 1.25, testutil.ToFloat64(r.compositePeak))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageDuration))
}
