package registry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Remote operation labels.
const (
	opBranchHead  = "branch_head"
	opTree        = "tree"
	opFileContent = "file_content"
)

type metrics struct {
	remoteTotal    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	inflight       prometheus.Gauge
	treeCache      *prometheus.CounterVec
	rejected       *prometheus.CounterVec
}

// newMetrics creates the registry metrics. A nil registerer leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		remoteTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scm",
			Subsystem: "registry",
			Name:      "remote_requests_total",
			Help:      "Remote repository requests by operation and outcome",
		}, []string{"op", "outcome"}),

		remoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scm",
			Subsystem: "registry",
			Name:      "remote_request_duration_seconds",
			Help:      "Remote repository request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),

		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "scm",
			Subsystem: "registry",
			Name:      "remote_requests_in_flight",
			Help:      "Remote repository requests currently in flight",
		}),

		treeCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scm",
			Subsystem: "registry",
			Name:      "tree_cache_total",
			Help:      "Component tree cache lookups by result",
		}, []string{"result"}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scm",
			Subsystem: "registry",
			Name:      "metadata_rejected_total",
			Help:      "registry.json files that could not be used, by reason",
		}, []string{"reason"}),
	}
}

func (m *metrics) observe(op string, d time.Duration, err error) {
	m.remoteDuration.WithLabelValues(op).Observe(d.Seconds())
	m.remoteTotal.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRemoteNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNoComponentData):
		return "no_component_data"
	case errors.Is(err, ErrInvalidMetadata):
		return "schema"
	case errors.Is(err, ErrRemoteNotFound):
		return "not_found"
	default:
		return "fetch"
	}
}
