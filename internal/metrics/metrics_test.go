package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheOpCounts(t *testing.T) {
	c := NewCollector()
	c.CacheOp("get", ResultHit)
	c.CacheOp("get", ResultHit)
	c.CacheOp("get", ResultMiss)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheOps.WithLabelValues("get", ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheOps.WithLabelValues("get", ResultMiss)))
}

func TestObserveRequestDefaultsRoute(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest(http.MethodGet, "", http.StatusNotFound, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest(http.MethodGet, "GET /products", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "catalog_http_requests_total"))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.CacheOp("set", ResultOK)
	c.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
