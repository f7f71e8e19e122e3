package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/psantana5/appworld/pkg/store"
)

// Exporter serves the daemon-level /metrics endpoint. It writes the
// store-derived gauges by hand, then appends everything registered
// with the default Prometheus registry (world collector, HTTP
// middleware) in one response.
type Exporter struct {
	store     store.Store
	worldID   string
	version   string
	startTime time.Time
}

// NewExporter creates the /metrics handler for one world
func NewExporter(s store.Store, worldID, version string) *Exporter {
	return &Exporter{
		store:     s,
		worldID:   worldID,
		version:   version,
		startTime: time.Now(),
	}
}

// ServeHTTP serves Prometheus-compatible metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP shopd_uptime_seconds Daemon uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE shopd_uptime_seconds gauge\n")
	fmt.Fprintf(w, "shopd_uptime_seconds %.0f\n", time.Since(e.startTime).Seconds())

	fmt.Fprintf(w, "\n# HELP shopd_build_info Build information\n")
	fmt.Fprintf(w, "# TYPE shopd_build_info gauge\n")
	fmt.Fprintf(w, "shopd_build_info{version=%q} 1\n", e.version)

	storeUp := 1
	if err := e.store.HealthCheck(); err != nil {
		storeUp = 0
	}
	fmt.Fprintf(w, "\n# HELP shopd_store_up Whether the snapshot store answers health checks\n")
	fmt.Fprintf(w, "# TYPE shopd_store_up gauge\n")
	fmt.Fprintf(w, "shopd_store_up %d\n", storeUp)

	if snaps, err := e.store.ListSnapshots(e.worldID, 0); err == nil {
		fmt.Fprintf(w, "\n# HELP shopd_snapshots_stored Snapshots currently persisted for this world\n")
		fmt.Fprintf(w, "# TYPE shopd_snapshots_stored gauge\n")
		fmt.Fprintf(w, "shopd_snapshots_stored %d\n", len(snaps))
	}

	if latest, err := e.store.LatestSnapshot(e.worldID); err == nil {
		fmt.Fprintf(w, "\n# HELP shopd_snapshot_latest_seq Sequence number of the newest snapshot\n")
		fmt.Fprintf(w, "# TYPE shopd_snapshot_latest_seq gauge\n")
		fmt.Fprintf(w, "shopd_snapshot_latest_seq %d\n", latest.Seq)

		fmt.Fprintf(w, "\n# HELP shopd_snapshot_latest_age_seconds Age of the newest snapshot\n")
		fmt.Fprintf(w, "# TYPE shopd_snapshot_latest_age_seconds gauge\n")
		fmt.Fprintf(w, "shopd_snapshot_latest_age_seconds %.0f\n", time.Since(latest.TakenAt).Seconds())
	}

	// Append everything from the default registry: appworld_* world
	// gauges and the appworld_http_* middleware series.
	fmt.Fprintf(w, "\n")

	metricFamilies, err := promclient.DefaultGatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering Prometheus metrics: %v\n", err)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metricFamilies {
		// The registry never carries shopd_* names; skip any that
		// appear so the hand-written section stays authoritative.
		if strings.HasPrefix(mf.GetName(), "shopd_") {
			continue
		}
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}

	w.Write(buf.Bytes())
}
