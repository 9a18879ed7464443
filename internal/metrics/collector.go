// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the deliberation and provider metrics.
type Collector struct {
	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec
	providerTokensUsed      *prometheus.CounterVec
	providerRetriesTotal    *prometheus.CounterVec

	roundsTotal       *prometheus.CounterVec
	abstentionsTotal  *prometheus.CounterVec
	eliminationsTotal prometheus.Counter
	sessionsTotal     *prometheus.CounterVec
	sessionRounds     prometheus.Histogram
	focusScore        prometheus.Histogram
}

// NewCollector registers the metric families on reg. A nil reg uses the
// default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		providerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of LLM provider requests",
			},
			[]string{"provider", "model", "status"},
		),
		providerRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "LLM provider request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		providerTokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_tokens_used_total",
				Help:      "Total number of tokens used",
			},
			[]string{"provider", "model", "type"}, // type: prompt, completion
		),
		providerRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_retries_total",
				Help:      "Total number of provider request retries",
			},
			[]string{"provider"},
		),
		roundsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliberation_rounds_total",
				Help:      "Total number of deliberation rounds executed",
			},
			[]string{"phase"},
		),
		abstentionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "abstentions_total",
				Help:      "Total number of abstention fallbacks",
			},
			[]string{"kind"}, // kind: argument, vote
		),
		eliminationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "eliminations_total",
				Help:      "Total number of participant eliminations",
			},
		),
		sessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of completed sessions",
			},
			[]string{"outcome"},
		),
		sessionRounds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_rounds",
				Help:      "Rounds per completed session",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
		),
		focusScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "focus_score",
				Help:      "Distribution of focus scores",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
	}
}

// RecordProviderRequest records one provider call.
func (c *Collector) RecordProviderRequest(provider, model, status string, duration time.Duration) {
	c.providerRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.providerRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordTokens records token usage for a provider call.
func (c *Collector) RecordTokens(provider, model string, promptTokens, completionTokens int) {
	c.providerTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.providerTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// RecordRetry records one retry attempt against a provider.
func (c *Collector) RecordRetry(provider string) {
	c.providerRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordRound records one executed phase of a round.
func (c *Collector) RecordRound(phase string) {
	c.roundsTotal.WithLabelValues(phase).Inc()
}

// RecordAbstention records an abstention fallback of the given kind.
func (c *Collector) RecordAbstention(kind string) {
	c.abstentionsTotal.WithLabelValues(kind).Inc()
}

// RecordElimination records a participant elimination.
func (c *Collector) RecordElimination() {
	c.eliminationsTotal.Inc()
}

// RecordSession records a finished session and its round count.
func (c *Collector) RecordSession(outcome string, rounds int) {
	c.sessionsTotal.WithLabelValues(outcome).Inc()
	c.sessionRounds.Observe(float64(rounds))
}

// RecordFocusScore records one focus evaluation.
func (c *Collector) RecordFocusScore(score float64) {
	c.focusScore.Observe(score)
}
