package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"crudload/internal/runner"
	"crudload/internal/stats"
)

func sampleRun(t *testing.T) (runner.Config, runner.Result) {
	t.Helper()
	cfg, err := runner.ParseConfig("http://localhost:3000", 2, 10*time.Second)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	s := stats.NewStats()
	s.Record(stats.Outcome{Status: 200, Elapsed: 10 * time.Millisecond})
	s.Record(stats.Outcome{Status: 201, Elapsed: 20 * time.Millisecond})
	s.Record(stats.Outcome{Status: 500, Elapsed: 30 * time.Millisecond})
	s.Record(stats.Outcome{ErrClass: runner.ErrClassReset, Elapsed: 40 * time.Millisecond})

	start := time.Unix(1700000000, 0).UTC()
	return cfg, runner.Result{Snapshot: s.Snapshot(), Start: start, End: start.Add(4 * time.Second)}
}

func TestNewSummary(t *testing.T) {
	cfg, res := sampleRun(t)
	sum := NewSummary(cfg, res)

	if sum.TotalRequests != 4 || sum.Success != 2 || sum.Fail != 2 {
		t.Errorf("Unexpected counts: %+v", sum)
	}
	if sum.RPS != 1 {
		t.Errorf("Expected 1 rps, got %.2f", sum.RPS)
	}
	if sum.SuccessRate != 50 {
		t.Errorf("Expected 50%% success, got %.2f", sum.SuccessRate)
	}
	if sum.AvgMs != 25 || sum.MinMs != 10 || sum.MaxMs != 40 {
		t.Errorf("Unexpected latencies: avg=%.2f min=%.2f max=%.2f", sum.AvgMs, sum.MinMs, sum.MaxMs)
	}
	if sum.Target != "http://localhost:3000" || sum.DurationSec != 10 {
		t.Errorf("Unexpected config echo: %+v", sum)
	}
}

func TestFiles(t *testing.T) {
	cfg, res := sampleRun(t)
	prefix := filepath.Join(t.TempDir(), "run")

	paths, err := Files(prefix, cfg, res)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("Expected 2 files, got %v", paths)
	}

	data, err := os.ReadFile(prefix + "_summary.json")
	if err != nil {
		t.Fatalf("Failed to read summary: %v", err)
	}
	var sum Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		t.Fatalf("Invalid summary JSON: %v", err)
	}
	if sum.StatusCodes[500] != 1 || sum.Errors[runner.ErrClassReset] != 1 {
		t.Errorf("Unexpected breakdown in JSON: %+v", sum)
	}

	f, err := os.Open(prefix + "_status.csv")
	if err != nil {
		t.Fatalf("Failed to open CSV: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV: %v", err)
	}

	want := [][]string{
		{"kind", "key", "count", "percent"},
		{"status", "200", "1", "25.0"},
		{"status", "201", "1", "25.0"},
		{"status", "500", "1", "25.0"},
		{"error", runner.ErrClassReset, "1", "25.0"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("Unexpected CSV rows:\n%v\nwant\n%v", rows, want)
	}
}

func TestFiles_BadPath(t *testing.T) {
	cfg, res := sampleRun(t)
	if _, err := Files(filepath.Join(t.TempDir(), "missing", "run"), cfg, res); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestSummaryRestore(t *testing.T) {
	cfg, res := sampleRun(t)
	sum := NewSummary(cfg, res)

	gotCfg, gotRes, err := sum.Restore()
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if gotCfg.TargetString() != "http://localhost:3000" || gotCfg.Concurrency != 2 || gotCfg.Duration != 10*time.Second {
		t.Errorf("Unexpected config: %+v", gotCfg)
	}
	if gotRes.Elapsed() != 4*time.Second || !gotRes.Start.Equal(res.Start) {
		t.Errorf("Unexpected timing: %s from %s", gotRes.Elapsed(), gotRes.Start)
	}

	s := gotRes.Snapshot
	if s.Requests != 4 || s.Success != 2 || s.Fail != 2 {
		t.Errorf("Unexpected counts: %+v", s)
	}
	if s.AvgTime() != 25*time.Millisecond || s.MinTime != 10*time.Millisecond || s.MaxTime != 40*time.Millisecond {
		t.Errorf("Unexpected latencies: avg=%s min=%s max=%s", s.AvgTime(), s.MinTime, s.MaxTime)
	}
	if !reflect.DeepEqual(s.StatusCodes, res.Snapshot.StatusCodes) || !reflect.DeepEqual(s.Errors, res.Snapshot.Errors) {
		t.Errorf("Breakdowns differ: %v %v", s.StatusCodes, s.Errors)
	}
}
