package otel

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	credgate "github.com/varkas/credgate"
)

type fakeSource struct {
	snapshot credgate.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() credgate.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestExporterObservesCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	source := &fakeSource{
		snapshot: credgate.MetricsSnapshot{Counters: map[credgate.MetricID]uint64{
			credgate.MetricLoginSuccess:       5,
			credgate.MetricMigrationCompleted: 2,
		}},
		dropped: 1,
	}

	exporter, err := NewExporterFromSource(provider.Meter("test"), source)
	if err != nil {
		t.Fatalf("NewExporterFromSource: %v", err)
	}
	t.Cleanup(func() { _ = exporter.Close() })

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	values := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				values[m.Name] = dp.Value
			}
		}
	}

	if values["credgate_login_success_total"] != 5 {
		t.Errorf("login success = %d, want 5", values["credgate_login_success_total"])
	}
	if values["credgate_migration_completed_total"] != 2 {
		t.Errorf("migration completed = %d, want 2", values["credgate_migration_completed_total"])
	}
	if values["credgate_audit_dropped_total"] != 1 {
		t.Errorf("audit dropped = %d, want 1", values["credgate_audit_dropped_total"])
	}
}

func TestExporterValidation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Errorf("nil meter: got %v", err)
	}
	if _, err := NewExporterFromSource(provider.Meter("test"), nil); err != ErrNilSource {
		t.Errorf("nil source: got %v", err)
	}
}
