// Package metrics defines the Prometheus instrumentation the buffer
// pool and lock manager publish: plain client_golang counters/gauges
// registered once at construction.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// BufferPool holds the counters and gauges a BufferPool reports.
type BufferPool struct {
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	Evictions     prometheus.Counter
	NoEvictable   prometheus.Counter
	LockGrants    prometheus.Counter
	LockWaits     prometheus.Counter
	LockTimeouts  prometheus.Counter
	Commits       prometheus.Counter
	Aborts        prometheus.Counter
	ResidentPages prometheus.Gauge
	DirtyPages    prometheus.Gauge
}

// NewBufferPool constructs and registers buffer-pool metrics on the
// given registerer. Pass prometheus.NewRegistry() in tests to avoid
// colliding with the global default registry across parallel test
// packages.
func NewBufferPool(reg prometheus.Registerer, namespace string) *BufferPool {
	m := &BufferPool{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Page cache lookups that found a resident page.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Page cache lookups that required a disk read.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "evictions_total",
			Help: "Clean pages evicted to make room for a new page.",
		}),
		NoEvictable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "no_evictable_total",
			Help: "Page loads that failed because every resident page was dirty.",
		}),
		LockGrants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "grants_total",
			Help: "Lock acquisitions granted (including upgrades and no-ops).",
		}),
		LockWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "waits_total",
			Help: "Times a lock request suspended before retrying.",
		}),
		LockTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "timeouts_total",
			Help: "Lock acquisitions that exhausted the retry budget.",
		}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "txn", Name: "commits_total",
			Help: "Transactions that completed with commit.",
		}),
		Aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "txn", Name: "aborts_total",
			Help: "Transactions that completed with abort.",
		}),
		ResidentPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "resident_pages",
			Help: "Pages currently resident in the buffer pool.",
		}),
		DirtyPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "dirty_pages",
			Help: "Resident pages with a non-nil dirty owner.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CacheHits, m.CacheMisses, m.Evictions, m.NoEvictable,
			m.LockGrants, m.LockWaits, m.LockTimeouts,
			m.Commits, m.Aborts, m.ResidentPages, m.DirtyPages,
		)
	}
	return m
}
