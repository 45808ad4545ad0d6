// Package metrics exposes the pipeline's run counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the exposition endpoint for the run counters. The CLI
// serves it for the duration of a sync run when metrics_addr is configured.
func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	// Discovered counts upstream candidates seen during planning, per family.
	Discovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_mirror_discovered_total",
		Help: "Upstream candidates discovered during planning",
	}, []string{"family"})

	// SkippedStale counts candidates excluded by the freshness window.
	SkippedStale = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_mirror_skipped_stale_total",
		Help: "Candidates skipped because their watermark is fresh",
	}, []string{"family"})

	// Fetched counts detail records fetched from the upstream.
	Fetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_mirror_fetched_total",
		Help: "Detail records fetched",
	}, []string{"family"})

	// Written counts top-level entities committed to storage.
	Written = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_mirror_written_total",
		Help: "Top-level entities committed",
	}, []string{"family"})

	// Failed counts entities in batches that rolled back or records whose
	// detail fetch failed.
	Failed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_mirror_failed_total",
		Help: "Entities that failed to fetch or commit",
	}, []string{"family"})

	// Cooldowns counts whole-batch rate-limit pauses.
	Cooldowns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_mirror_cooldowns_total",
		Help: "Batch-wide rate limit cooldowns",
	}, []string{"family"})
)
