package credgate

import (
	"sync"
	"testing"
)

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricMigrationCompleted)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Errorf("login success = %d, want 2", got)
	}

	snapshot := m.Snapshot()
	if snapshot.Counters[MetricLoginSuccess] != 2 {
		t.Errorf("snapshot login success = %d", snapshot.Counters[MetricLoginSuccess])
	}
	if snapshot.Counters[MetricMigrationCompleted] != 1 {
		t.Errorf("snapshot migration = %d", snapshot.Counters[MetricMigrationCompleted])
	}

	// The snapshot is a copy; later increments must not leak into it.
	m.Inc(MetricLoginSuccess)
	if snapshot.Counters[MetricLoginSuccess] != 2 {
		t.Error("snapshot mutated after Inc")
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Errorf("disabled metrics counted: %d", got)
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Error("disabled snapshot not empty")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess) // must not panic
	if nilMetrics.Enabled() {
		t.Error("nil metrics reports enabled")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricLoginFailure)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginFailure); got != workers*perWorker {
		t.Errorf("counter = %d, want %d", got, workers*perWorker)
	}
}
