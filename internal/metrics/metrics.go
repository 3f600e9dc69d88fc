// Package metrics holds the prometheus collectors shared by the services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "labassist"

var (
	BackoffRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backoff",
		Name:      "retries_total",
		Help:      "Retries scheduled after a rate-limited attempt.",
	}, []string{"limiter"})

	BackoffGiveUps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backoff",
		Name:      "giveups_total",
		Help:      "Operations abandoned by a limiter, by reason.",
	}, []string{"limiter", "reason"})

	AuditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "entries_total",
		Help:      "Audit entries by fate (buffered, dropped, flushed, requeued).",
	}, []string{"fate"})

	AuditBufferSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "buffer_size",
		Help:      "Audit entries waiting to be flushed.",
	})

	AuthzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authz",
		Name:      "decisions_total",
		Help:      "Authorization decisions by outcome and source.",
	}, []string{"allowed", "source"})

	ChatMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chat",
		Name:      "messages_total",
		Help:      "Messages added to threads, by role and sensitivity.",
	}, []string{"role", "sensitivity"})

	ChatThreads = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chat",
		Name:      "threads",
		Help:      "Threads currently held in memory.",
	})

	HTTPRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected with 429.",
	})
)
