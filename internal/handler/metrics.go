package handler

import (
	"fmt"
	"net/http"

	"github.com/swyw/swyw/internal/metrics"
	"github.com/swyw/swyw/internal/store"
)

// StatsProvider exposes store-wide counts.
type StatsProvider interface {
	Stats() store.Stats
}

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
	stats       StatsProvider
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter, stats StatsProvider) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter, stats: stats}
}

// Metrics returns metrics in Prometheus exposition format.
//
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "swyw_entity_operations_total{op=\"create\"} %d\n", snap.EntitiesCreated)
	writeMetric(w, "swyw_entity_operations_total{op=\"update\"} %d\n", snap.EntitiesUpdated)
	writeMetric(w, "swyw_entity_operations_total{op=\"delete\"} %d\n", snap.EntitiesDeleted)
	writeMetric(w, "swyw_collections_cleared_total %d\n", snap.CollectionsCleared)
	writeMetric(w, "swyw_users_deleted_total %d\n", snap.UsersDeleted)

	writeMetric(w, "swyw_rejected_operations_total{reason=\"conflict\"} %d\n", snap.Conflicts)
	writeMetric(w, "swyw_rejected_operations_total{reason=\"not_found\"} %d\n", snap.NotFound)

	if h.stats != nil {
		st := h.stats.Stats()
		writeMetric(w, "swyw_users %d\n", st.Users)
		writeMetric(w, "swyw_entities %d\n", st.Entities)
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
