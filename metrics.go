package credgate

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts authenticated logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins (unknown identity,
	// inactive account, or wrong secret).
	MetricLoginFailure
	// MetricLoginLocked counts attempts refused by an active lockout.
	MetricLoginLocked
	// MetricLoginRateLimited counts attempts denied by the login budget.
	MetricLoginRateLimited
	// MetricLockoutTriggered counts failures that reached the threshold.
	MetricLockoutTriggered
	// MetricMigrationCompleted counts legacy→secure migration writes won.
	MetricMigrationCompleted
	// MetricMigrationRaceLost counts migration writes lost to a concurrent
	// login; the login still succeeds.
	MetricMigrationRaceLost
	// MetricRehashUpgraded counts secure hashes re-derived with stronger
	// parameters on login.
	MetricRehashUpgraded
	// MetricRegistrationSuccess counts created accounts.
	MetricRegistrationSuccess
	// MetricRegistrationRejected counts registrations refused by policy or
	// uniqueness.
	MetricRegistrationRejected
	// MetricRegistrationRateLimited counts registrations denied by budget.
	MetricRegistrationRateLimited
	// MetricGeneralRateLimited counts general-class denials.
	MetricGeneralRateLimited
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds cache-line-padded atomic counters. A disabled instance is a
// no-op on every path.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a [Metrics] instance; when cfg.Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being collected.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot deep-copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
