package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mw, err := HTTPMetrics(provider.Meter("test"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.POST("/orders/:id/freeze", func(c *gin.Context) {
		SetErrorCode(c, "QUOTA_EXCEEDED")
		c.Status(http.StatusUnprocessableEntity)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders/42/freeze", nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var found bool
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != "http_server_request_total" {
			continue
		}
		found = true
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		dp := sum.DataPoints[0]
		assert.Equal(t, int64(2), dp.Value)
		route, _ := dp.Attributes.Value(attribute.Key("http.route"))
		assert.Equal(t, "/orders/:id/freeze", route.AsString())
		code, _ := dp.Attributes.Value(attribute.Key("error.code"))
		assert.Equal(t, "QUOTA_EXCEEDED", code.AsString())
		group, _ := dp.Attributes.Value(attribute.Key("http.status_group"))
		assert.Equal(t, "4xx", group.AsString())
	}
	assert.True(t, found)
}

func TestStatusGroup(t *testing.T) {
	assert.Equal(t, "2xx", StatusGroup(http.StatusCreated))
	assert.Equal(t, "5xx", StatusGroup(http.StatusServiceUnavailable))
	assert.Equal(t, "unknown", StatusGroup(0))
}
