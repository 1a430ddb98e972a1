package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	Violations     *prometheus.CounterVec
	Suppressed     *prometheus.CounterVec
	FinalScore     prometheus.Histogram
	WSMessages     *prometheus.CounterVec
	PersistErrors  prometheus.Counter
	PersistDrops   prometheus.Counter

	// Pipeline holds the rolling latency window behind the perf endpoint.
	Pipeline *StageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of interview sessions currently monitored.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		Violations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Recorded integrity violations by kind.",
		}, []string{"kind"}),
		Suppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_suppressed_total",
			Help:      "Violations suppressed by the debounce window, by kind.",
		}, []string{"kind"}),
		FinalScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_score",
			Help:      "Final integrity score distribution at session end.",
			Buckets:   []float64{0, 10, 25, 50, 65, 75, 85, 95, 100},
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "Live feed websocket messages by direction and type.",
		}, []string{"direction", "type"}),
		PersistErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Write-behind persistence jobs that exhausted retries.",
		}),
		PersistDrops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_drops_total",
			Help:      "Write-behind persistence jobs dropped on a full queue.",
		}),
		Pipeline: NewStageWindow(512),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
