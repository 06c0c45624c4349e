package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RemoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "study_remote_requests_total",
			Help: "Calls made to the answering service",
		},
		[]string{"op", "outcome"},
	)

	RemoteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "study_remote_request_duration_seconds",
			Help:    "Duration of answering service calls",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30},
		},
		[]string{"op"},
	)

	QuizzesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "study_quizzes_completed_total",
			Help: "Quizzes finished and written to the ledger",
		},
	)

	LedgerWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "study_ledger_writes_total",
			Help: "Ledger write attempts",
		},
		[]string{"op", "outcome"},
	)

	ChatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "study_chat_messages_total",
			Help: "Chat messages appended to transcripts",
		},
		[]string{"sender", "error"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "study_active_sessions",
			Help: "Open websocket study sessions",
		},
	)
)

// Registry holds the collectors above; it is exposed by Handler.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(RemoteRequests, RemoteDuration, QuizzesCompleted, LedgerWrites, ChatMessages, ActiveSessions)
}

// Outcome maps an error to a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
