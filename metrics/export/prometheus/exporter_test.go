package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"

	credgate "github.com/varkas/credgate"
)

type fakeSource struct {
	snapshot credgate.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() credgate.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderExpositionFormat(t *testing.T) {
	source := &fakeSource{
		snapshot: credgate.MetricsSnapshot{Counters: map[credgate.MetricID]uint64{
			credgate.MetricLoginSuccess:       7,
			credgate.MetricMigrationCompleted: 3,
		}},
		dropped: 2,
	}

	out := NewExporterFromSource(source).Render()

	for _, want := range []string{
		"# TYPE credgate_login_success_total counter",
		"credgate_login_success_total 7",
		"credgate_migration_completed_total 3",
		"credgate_login_failure_total 0",
		"credgate_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRenderEmptySnapshot(t *testing.T) {
	out := NewExporterFromSource(&fakeSource{snapshot: credgate.MetricsSnapshot{Counters: map[credgate.MetricID]uint64{}}}).Render()
	if out != "" {
		t.Errorf("empty snapshot rendered %q", out)
	}

	var nilExporter *Exporter
	if nilExporter.Render() != "" {
		t.Error("nil exporter must render empty")
	}
}

func TestHandlerServesText(t *testing.T) {
	source := &fakeSource{
		snapshot: credgate.MetricsSnapshot{Counters: map[credgate.MetricID]uint64{
			credgate.MetricLoginSuccess: 1,
		}},
	}

	rec := httptest.NewRecorder()
	NewExporterFromSource(source).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "credgate_login_success_total 1") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
