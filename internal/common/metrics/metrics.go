package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	TopPickScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "toppick_winner_score",
			Help: "Score of the most recently selected top pick",
		},
		[]string{"brand"},
	)

	TopPickCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toppick_candidates",
			Help:    "Number of candidates ranked per selection",
			Buckets: []float64{0, 1, 2, 5, 10, 15, 20},
		},
		[]string{"brand"},
	)

	CatalogCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_requests_total",
			Help: "Candidate cache lookups by result",
		},
		[]string{"result"},
	)
)

// BrandLabel keeps the unfiltered catalog distinguishable from a brand.
func BrandLabel(brand string) string {
	if brand == "" {
		return "all"
	}
	return brand
}
