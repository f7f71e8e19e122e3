package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/appworld/pkg/store"
	"github.com/psantana5/appworld/pkg/world"
)

type fakeSource struct {
	stats world.Stats
}

func (f fakeSource) Stats() world.Stats { return f.stats }

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestWorldCollector(t *testing.T) {
	source := fakeSource{stats: world.Stats{
		Handles:  3,
		Readers:  2,
		Mutating: false,
		Poisoned: true,
		Reads:    42,
		Msgs:     7,
	}}

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewWorldCollector(source)))

	body := scrape(t, reg)

	assert.Contains(t, body, "appworld_handles 3")
	assert.Contains(t, body, "appworld_readers_active 2")
	assert.Contains(t, body, "appworld_mutating 0")
	assert.Contains(t, body, "appworld_poisoned 1")
	assert.Contains(t, body, "appworld_reads_total 42")
	assert.Contains(t, body, "appworld_msgs_total 7")
}

func TestWorldCollectorTracksLiveWrapper(t *testing.T) {
	// The collector must observe real wrapper activity, not a cached copy
	wr := world.New[struct{}](&nullWorld{})
	defer wr.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewWorldCollector(wr)))

	require.NoError(t, wr.Msg(struct{}{}))
	require.NoError(t, wr.Read(func(*nullWorld) {}))
	require.NoError(t, wr.Read(func(*nullWorld) {}))

	body := scrape(t, reg)
	assert.Contains(t, body, "appworld_msgs_total 1")
	assert.Contains(t, body, "appworld_reads_total 2")
	assert.Contains(t, body, "appworld_handles 1")
}

type nullWorld struct{}

func (n *nullWorld) Apply(struct{}) {}

func TestExporter(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.SaveSnapshot(store.NewSnapshot("shop", []byte(`{"revision":3}`))))
	require.NoError(t, st.SaveSnapshot(store.NewSnapshot("shop", []byte(`{"revision":4}`))))

	exp := NewExporter(st, "shop", "1.0.0")

	rr := httptest.NewRecorder()
	exp.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "shopd_uptime_seconds")
	assert.Contains(t, body, `shopd_build_info{version="1.0.0"} 1`)
	assert.Contains(t, body, "shopd_store_up 1")
	assert.Contains(t, body, "shopd_snapshots_stored 2")
	assert.Contains(t, body, "shopd_snapshot_latest_seq 2")
}

func TestExporterEmptyStore(t *testing.T) {
	exp := NewExporter(store.NewMemoryStore(), "shop", "dev")

	rr := httptest.NewRecorder()
	exp.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "shopd_snapshots_stored 0")
	// No snapshot yet, so the latest-seq section is absent
	assert.NotContains(t, body, "shopd_snapshot_latest_seq")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	router := mux.NewRouter()
	router.Use(m.Middleware)
	router.HandleFunc("/api/cart/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods("DELETE")
	router.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"revision":1}`))
	}).Methods("GET")

	for _, id := range []string{"sku-1", "sku-2"} {
		req := httptest.NewRequest("DELETE", "/api/cart/items/"+id, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNoContent, rr.Code)
	}

	req := httptest.NewRequest("GET", "/api/state", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	body := scrape(t, reg)

	// Path parameters collapse into the route template
	assert.Contains(t, body,
		`appworld_http_requests_total{method="DELETE",route="/api/cart/items/{id}",status="204"} 2`)
	assert.Contains(t, body,
		`appworld_http_requests_total{method="GET",route="/api/state",status="200"} 1`)
	assert.Contains(t, body, `appworld_http_request_duration_seconds_count{method="GET",route="/api/state"} 1`)
	assert.Contains(t, body, `appworld_http_response_size_bytes_count{method="GET",route="/api/state"} 1`)
}
