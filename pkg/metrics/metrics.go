// Package metrics exposes the tree's operational counters over Prometheus,
// the same client library already pulled in by the teacher's go.mod for
// its own /metrics surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups every metric this service exports. Construct once per
// process with NewCollectors and register it with a registry (or use the
// default one, as Handler does).
type Collectors struct {
	Inserts        *prometheus.CounterVec
	Forgets        prometheus.Counter
	EndBlocks      prometheus.Counter
	EndEpochs      prometheus.Counter
	TreePosition   prometheus.Gauge
	ForgottenCount prometheus.Gauge
	InsertFailures *prometheus.CounterVec
}

// NewCollectors builds and registers the metric set against reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tct",
			Name:      "inserts_total",
			Help:      "Commitments inserted, labeled by witness marker (keep/forget).",
		}, []string{"marker"}),
		Forgets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tct",
			Name:      "forgets_total",
			Help:      "Commitments successfully forgotten.",
		}),
		EndBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tct",
			Name:      "end_block_total",
			Help:      "Number of EndBlock calls.",
		}),
		EndEpochs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tct",
			Name:      "end_epoch_total",
			Help:      "Number of EndEpoch calls.",
		}),
		TreePosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tct",
			Name:      "position",
			Help:      "The tree's current dense position counter.",
		}),
		ForgottenCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tct",
			Name:      "forgotten_count",
			Help:      "Number of commitments forgotten so far.",
		}),
		InsertFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tct",
			Name:      "insert_failures_total",
			Help:      "Insert calls that returned an error, labeled by error.",
		}, []string{"reason"}),
	}
	reg.MustRegister(c.Inserts, c.Forgets, c.EndBlocks, c.EndEpochs,
		c.TreePosition, c.ForgottenCount, c.InsertFailures)
	return c
}

// Handler returns an http.Handler serving the default Prometheus registry,
// suitable for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
