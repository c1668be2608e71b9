package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigmatch_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sigmatch_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route", "method"})

	cohortAssemblies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigmatch_cohort_assemblies_total",
		Help: "Cohort assemblies by outcome (matched, empty, missing_corpus).",
	}, []string{"outcome"})

	cohortMatched = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sigmatch_cohort_matched_patients",
		Help:    "Patients matched per cohort assembly.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	cohortAssemblyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sigmatch_cohort_assembly_duration_seconds",
		Help:    "Time spent filtering a corpus.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	configSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigmatch_config_saves_total",
		Help: "Active configuration writes by trigger (save, repair).",
	}, []string{"trigger"})

	pipelineStaged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigmatch_pipeline_runs_staged_total",
		Help: "Pipeline commands rendered for the external orchestrator.",
	})

	corpusCacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigmatch_corpus_cache_events_total",
		Help: "Corpus cache hits, misses and invalidations.",
	}, []string{"event"})
)

func ObserveRequest(route, method string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func ObserveAssembly(outcome string, matched int, elapsed time.Duration) {
	cohortAssemblies.WithLabelValues(outcome).Inc()
	cohortMatched.Observe(float64(matched))
	cohortAssemblyLatency.Observe(elapsed.Seconds())
}

func ObserveConfigSave(trigger string) {
	configSaves.WithLabelValues(trigger).Inc()
}

func ObservePipelineStaged() {
	pipelineStaged.Inc()
}

func ObserveCorpusCache(event string) {
	corpusCacheEvents.WithLabelValues(event).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
