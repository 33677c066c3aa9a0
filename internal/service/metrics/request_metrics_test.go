package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(AnalysisRequests.WithLabelValues(OriginHTTP, "ok"))
	ObserveRequest(OriginHTTP, "ok", time.Now().Add(-time.Second))
	after := testutil.ToFloat64(AnalysisRequests.WithLabelValues(OriginHTTP, "ok"))

	assert.Equal(t, before+1, after)
}
