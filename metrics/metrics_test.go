package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-educonnect"
	"github.com/goliatone/go-educonnect/metrics"
)

func TestSinkCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg)
	sink := collectors.Sink()
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, educonnect.ActivityEvent{
		EventType: educonnect.ActivityEventSigninSuccess,
		Role:      educonnect.RoleEducator,
	}))
	require.NoError(t, sink.Record(ctx, educonnect.ActivityEvent{
		EventType: educonnect.ActivityEventSigninSuccess,
		Role:      educonnect.RoleEducator,
	}))
	require.NoError(t, sink.Record(ctx, educonnect.ActivityEvent{
		EventType: educonnect.ActivityEventSignout,
	}))

	assert.Equal(t, 2.0, testutil.ToFloat64(collectors.AuthEvents.WithLabelValues(string(educonnect.ActivityEventSigninSuccess), "educator")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.AuthEvents.WithLabelValues(string(educonnect.ActivityEventSignout), "none")))
}

func TestInstancesGauge(t *testing.T) {
	collectors := metrics.New(prometheus.NewRegistry())

	collectors.Record(educonnect.ActivityEvent{EventType: educonnect.ActivityEventInstanceCreated})
	collectors.Record(educonnect.ActivityEvent{EventType: educonnect.ActivityEventInstanceCreated})
	collectors.Record(educonnect.ActivityEvent{EventType: educonnect.ActivityEventInstanceClosed})

	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.Instances))
}

func TestBootstrapDuration(t *testing.T) {
	collectors := metrics.New(prometheus.NewRegistry())

	collectors.Record(educonnect.ActivityEvent{
		EventType: educonnect.ActivityEventBootstrapComplete,
		Metadata:  map[string]any{"elapsed": 0.02},
	})
	collectors.Record(educonnect.ActivityEvent{
		EventType: educonnect.ActivityEventBootstrapFailure,
		Metadata:  map[string]any{"elapsed": 1.5},
	})
	collectors.Record(educonnect.ActivityEvent{
		EventType: educonnect.ActivityEventBootstrapFailure,
	})

	assert.Equal(t, 2, testutil.CollectAndCount(collectors.BootstrapDuration))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg)
	collectors.Record(educonnect.ActivityEvent{EventType: educonnect.ActivityEventInstanceCreated})

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "educonnect_instances 1")
	assert.Contains(t, rec.Body.String(), "educonnect_auth_events_total")
}
