// Package metrics registers the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total number of billing webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	ChatQuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_questions_total",
			Help: "Total number of chat questions by result",
		},
		[]string{"result"},
	)

	ChatQuestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "chat_question_duration_seconds",
			Help: "Duration of chat question processing in seconds",
		},
	)
)
