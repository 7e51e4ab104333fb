package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
	})
}

func TestIncBooking(t *testing.T) {
	before := counterValue(t, bookings.WithLabelValues("savvycal", "success"))
	IncBooking("savvycal", "success")
	assert.Equal(t, before+1, counterValue(t, bookings.WithLabelValues("savvycal", "success")))
}

func TestObserveUpstream(t *testing.T) {
	before := counterValue(t, upstreamRequests.WithLabelValues("calcom", "create_booking", "error"))
	ObserveUpstream("calcom", "create_booking", 0, 10*time.Millisecond)
	assert.Equal(t, before+1, counterValue(t, upstreamRequests.WithLabelValues("calcom", "create_booking", "error")))

	before = counterValue(t, upstreamRequests.WithLabelValues("calcom", "create_booking", "201"))
	ObserveUpstream("calcom", "create_booking", 201, time.Millisecond)
	assert.Equal(t, before+1, counterValue(t, upstreamRequests.WithLabelValues("calcom", "create_booking", "201")))
}
