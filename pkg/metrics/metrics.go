// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// AIRequestsTotal tracks AI provider calls by outcome.
	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total AI provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// AIRequestDuration tracks AI provider call duration.
	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI provider request duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"provider", "model"},
	)

	// AITokensTotal tracks tokens processed per provider and direction.
	AITokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Total AI tokens processed",
		},
		[]string{"provider", "model", "direction"},
	)

	// RetrievalQueriesTotal tracks knowledge retrieval queries by mode.
	RetrievalQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_queries_total",
			Help: "Knowledge retrieval queries by mode (vector, keyword, full_content)",
		},
		[]string{"mode"},
	)

	// CoalescerOutcomesTotal tracks scheduled-response terminal states.
	CoalescerOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coalescer_outcomes_total",
			Help: "Terminal states of scheduled AI responses",
		},
		[]string{"outcome"},
	)

	// DispatchSendsTotal tracks platform sends by kind and status.
	DispatchSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_sends_total",
			Help: "Platform sends by kind and status",
		},
		[]string{"platform", "kind", "status"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
		[]string{"company_id"},
	)

	// MessagesTotal tracks total messages stored.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages stored",
		},
		[]string{"company_id", "sender"},
	)

	// ResponseCacheTotal tracks response cache hits and misses.
	ResponseCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordAIRequest records metrics for one AI provider call.
func RecordAIRequest(provider, model, status string, duration float64, tokensIn, tokensOut int) {
	AIRequestsTotal.WithLabelValues(provider, model, status).Inc()
	AIRequestDuration.WithLabelValues(provider, model).Observe(duration)
	AITokensTotal.WithLabelValues(provider, model, "in").Add(float64(tokensIn))
	AITokensTotal.WithLabelValues(provider, model, "out").Add(float64(tokensOut))
}

// RecordRetrieval records one knowledge retrieval query.
func RecordRetrieval(mode string) {
	RetrievalQueriesTotal.WithLabelValues(mode).Inc()
}

// RecordCoalescerOutcome records the terminal state of a scheduled response.
func RecordCoalescerOutcome(outcome string) {
	CoalescerOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordDispatchSend records one platform send attempt.
func RecordDispatchSend(platform, kind, status string) {
	DispatchSendsTotal.WithLabelValues(platform, kind, status).Inc()
}

// RecordCacheLookup records a response cache hit or miss.
func RecordCacheLookup(result string) {
	ResponseCacheTotal.WithLabelValues(result).Inc()
}
