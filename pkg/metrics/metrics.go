// Package metrics exposes Prometheus collectors for the family view pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mananjary-mi/family-portal/pkg/genealogy"
)

const namespace = "family_portal"

// Metrics holds every collector registered by the portal.
type Metrics struct {
	// BuildsTotal counts family view builds.
	// Labels: outcome (view, no_root)
	BuildsTotal *prometheus.CounterVec

	// SkippedRelationsTotal counts relations ignored as malformed.
	// Labels: reason (self_relation, unknown_person, unknown_kind)
	SkippedRelationsTotal *prometheus.CounterVec

	// ReachablePersons is the size of the root's connected component.
	ReachablePersons prometheus.Histogram

	// BackendRequestSeconds measures calls to the community backend.
	// Labels: operation, status (HTTP status code or "error")
	BackendRequestSeconds *prometheus.HistogramVec

	// SupersededFetchesTotal counts fetches replaced by a newer request for the same view.
	// Labels: view
	SupersededFetchesTotal *prometheus.CounterVec

	// HTTPRequestSeconds measures portal API requests.
	// Labels: route (mux pattern), status
	HTTPRequestSeconds *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

var _ genealogy.Recorder = (*Metrics)(nil)

// New registers the collectors with reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "genealogy",
			Name:      "builds_total",
			Help:      "Family view builds by outcome",
		}, []string{"outcome"}),

		SkippedRelationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "genealogy",
			Name:      "skipped_relations_total",
			Help:      "Malformed relations ignored while building views",
		}, []string{"reason"}),

		ReachablePersons: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "genealogy",
			Name:      "reachable_persons",
			Help:      "Persons in the connected component of the view root",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		BackendRequestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Community backend request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),

		SupersededFetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewfetch",
			Name:      "superseded_total",
			Help:      "In-flight fetches cancelled by a newer request for the same view",
		}, []string{"view"}),

		HTTPRequestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Portal API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),

		gatherer: reg,
	}
}

// ObserveBuild implements genealogy.Recorder.
func (m *Metrics) ObserveBuild(outcome string, reachable int) {
	m.BuildsTotal.WithLabelValues(outcome).Inc()
	if outcome == genealogy.OutcomeView {
		m.ReachablePersons.Observe(float64(reachable))
	}
}

// RelationSkipped implements genealogy.Recorder.
func (m *Metrics) RelationSkipped(reason genealogy.SkipReason) {
	m.SkippedRelationsTotal.WithLabelValues(string(reason)).Inc()
}

// ObserveBackendRequest records one backend call. status is 0 when no response was received.
func (m *Metrics) ObserveBackendRequest(operation string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.BackendRequestSeconds.WithLabelValues(operation, label).Observe(elapsed.Seconds())
}

// FetchSuperseded records a cancelled in-flight fetch.
func (m *Metrics) FetchSuperseded(view string) {
	m.SupersededFetchesTotal.WithLabelValues(view).Inc()
}

// ObserveHTTPRequest records one served API request.
func (m *Metrics) ObserveHTTPRequest(route string, status int, elapsed time.Duration) {
	m.HTTPRequestSeconds.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
