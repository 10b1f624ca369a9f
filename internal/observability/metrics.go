package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	InterviewTurns   *prometheus.CounterVec
	PhaseTransitions *prometheus.CounterVec
	GatewayErrors    *prometheus.CounterVec
	VisionSaves      *prometheus.CounterVec
	DraftOps         *prometheus.CounterVec
	FeedbackEvents   *prometheus.CounterVec
	TurnLatency      prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		InterviewTurns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interview_turns_total",
			Help:      "Interview turns by outcome.",
		}, []string{"outcome"}),
		PhaseTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interview_phase_transitions_total",
			Help:      "Phase transitions by target phase.",
		}, []string{"phase"}),
		GatewayErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_gateway_errors_total",
			Help:      "AI gateway failures by kind.",
		}, []string{"kind"}),
		VisionSaves: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_saves_total",
			Help:      "Vision persistence attempts by result.",
		}, []string{"result"}),
		DraftOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "onboarding_draft_ops_total",
			Help:      "Onboarding draft cache operations by op and hit/miss.",
		}, []string{"op", "result"}),
		FeedbackEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_events_total",
			Help:      "Feedback link events by type.",
		}, []string{"event"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interview_turn_latency_ms",
			Help:      "End-to-end latency of one interview turn in milliseconds.",
			Buckets:   []float64{200, 500, 1000, 2000, 4000, 8000, 16000, 30000},
		}),
	}
}

func (m *Metrics) ObserveTurnLatency(d time.Duration) {
	m.TurnLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
