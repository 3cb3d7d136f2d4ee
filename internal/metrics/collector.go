// Package metrics counts what the engine does: runs, node executions by
// kind and outcome, LLM completions and token spend, agent tool calls, and
// status publishes. Everything is exported through the Prometheus default
// registry and served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the engine's Prometheus metrics. A nil *Collector is
// valid and records nothing, so wiring metrics stays optional.
type Collector struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	nodesTotal   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec

	llmCallsTotal  *prometheus.CounterVec
	llmTokensTotal *prometheus.CounterVec

	toolCallsTotal *prometheus.CounterVec

	statusPublishesTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a collector registered with the default registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of workflow runs",
		},
		[]string{"status"},
	)
	c.runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Workflow run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	c.nodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_executions_total",
			Help:      "Total number of node executions",
		},
		[]string{"kind", "status"},
	)
	c.nodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Node execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	c.llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Total number of LLM completions",
		},
		[]string{"provider", "status"},
	)
	c.llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"provider", "type"},
	)

	c.toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of agent tool calls",
		},
		[]string{"tool", "status"},
	)

	c.statusPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_publishes_total",
			Help:      "Total number of status events published",
		},
		[]string{"status"},
	)

	return c
}

// ObserveRun records one completed run.
func (c *Collector) ObserveRun(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveNode records one node execution.
func (c *Collector) ObserveNode(kind, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.nodesTotal.WithLabelValues(kind, status).Inc()
	c.nodeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveLLM records one LLM completion.
func (c *Collector) ObserveLLM(provider, status string, promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	c.llmCallsTotal.WithLabelValues(provider, status).Inc()
	if promptTokens > 0 {
		c.llmTokensTotal.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.llmTokensTotal.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	}
}

// ObserveTool records one agent tool call.
func (c *Collector) ObserveTool(tool, status string) {
	if c == nil {
		return
	}
	c.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// ObservePublish records one status event publish.
func (c *Collector) ObservePublish(status string) {
	if c == nil {
		return
	}
	c.statusPublishesTotal.WithLabelValues(status).Inc()
}
