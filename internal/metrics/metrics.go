// Package metrics holds the Prometheus collectors for the spotting
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes.
const (
	OutcomeResolved   = "resolved"
	OutcomeUnresolved = "unresolved"
	OutcomeNoCallsign = "no_callsign"
)

// Metrics is the set of pipeline counters, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	Datagrams       prometheus.Counter
	DecodeFailures  *prometheus.CounterVec
	Resolutions     *prometheus.CounterVec
	Classifications *prometheus.CounterVec
	LogbookRetries  *prometheus.CounterVec
	TableEntries    *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Datagrams: factory.NewCounter(prometheus.CounterOpts{
			Name: "ft8spotter_datagrams_total",
			Help: "UDP datagrams received from WSJT-X",
		}),
		DecodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ft8spotter_decode_failures_total",
			Help: "Datagrams that could not be decoded, by reason",
		}, []string{"reason"}),
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ft8spotter_resolutions_total",
			Help: "Decode events by entity resolution outcome",
		}, []string{"outcome"}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ft8spotter_classifications_total",
			Help: "Classified spots by need label",
		}, []string{"label"}),
		LogbookRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ft8spotter_logbook_retries_total",
			Help: "Failed logbook queries that were retried, by scope kind",
		}, []string{"kind"}),
		TableEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ft8spotter_cty_records",
			Help: "Records in the loaded country table, by list",
		}, []string{"list"}),
	}
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
