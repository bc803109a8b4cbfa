package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "financebot"

// Conversation outcomes.
const (
	Started   = "started"
	Completed = "completed"
	Cancelled = "cancelled"
	Failed    = "failed"
)

// Collector holds the bot's Prometheus metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	Conversations  *prometheus.CounterVec
	GateRefusals   prometheus.Counter
	BroadcastSends *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Conversations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_total",
			Help:      "Conversation lifecycle events by flow and outcome.",
		}, []string{"flow", "outcome"}),
		GateRefusals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_refusals_total",
			Help:      "Add-transaction entries refused by the tier limit.",
		}),
		BroadcastSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_sends_total",
			Help:      "Broadcast deliveries by result.",
		}, []string{"result"}),
	}
	c.registry.MustRegister(c.Conversations, c.GateRefusals, c.BroadcastSends)
	return c
}

func (c *Collector) Conversation(flow, outcome string) {
	if c == nil {
		return
	}
	c.Conversations.WithLabelValues(flow, outcome).Inc()
}

func (c *Collector) GateRefused() {
	if c == nil {
		return
	}
	c.GateRefusals.Inc()
}

func (c *Collector) BroadcastResult(ok bool) {
	if c == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	c.BroadcastSends.WithLabelValues(result).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
