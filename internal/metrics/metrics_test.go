package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ddos-reassembler/internal/reassembler"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.FingerprintsLoaded == nil || r.Runs == nil || r.IntermediateNodes == nil {
		t.Fatal("metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Fatal("Prometheus registry not initialized")
	}
}

func TestRecordSummary(t *testing.T) {
	r := NewRegistry()
	r.RecordLoad(3, 12)
	r.RecordDrop(1)
	r.RecordSummary(&reassembler.Summary{
		IntermediateNodes: reassembler.IntermediateNodes{NrIntermediateNodes: 4, Discarded: 2},
		Sources:           reassembler.SourceStats{NrSources: 10, PctSpoofed: 0.3},
	}, 20*time.Millisecond)

	var metric dto.Metric
	if err := r.ObservationsLoaded.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 12 {
		t.Fatalf("observations = %v, want 12", got)
	}

	gauge, err := r.IntermediateNodes.GetMetricWithLabelValues("discarded")
	if err != nil {
		t.Fatalf("get metric: %v", err)
	}
	metric.Reset()
	if err := gauge.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 2 {
		t.Fatalf("discarded = %v, want 2", got)
	}

	metric.Reset()
	if err := r.PctSpoofed.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 0.3 {
		t.Fatalf("pct_spoofed = %v, want 0.3", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.RecordLoad(2, 5)
	r.RecordFailure(time.Second)

	path := filepath.Join(t.TempDir(), "reassembler.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"reassembler_fingerprints_loaded_total 2",
		`reassembler_runs_total{status="failure"} 1`,
		"reassembler_run_duration_seconds_count 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("textfile missing %q:\n%s", want, out)
		}
	}
}
