// Package export writes run results to files for later analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"crudload/internal/runner"
	"crudload/internal/stats"
)

// Summary is the persisted form of a finished run.
type Summary struct {
	Target      string    `json:"target"`
	Concurrency int       `json:"concurrency"`
	DurationSec float64   `json:"duration_sec"`
	TimeoutSec  float64   `json:"timeout_sec"`
	StartedAt   time.Time `json:"started_at"`
	ElapsedSec  float64   `json:"elapsed_sec"`
	Interrupted bool      `json:"interrupted"`

	TotalRequests uint64  `json:"total_requests"`
	Success       uint64  `json:"success"`
	Fail          uint64  `json:"fail"`
	RPS           float64 `json:"rps"`
	SuccessRate   float64 `json:"success_rate"`
	Bytes         uint64  `json:"bytes"`

	AvgMs float64 `json:"avg_ms"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
	P50Ms float64 `json:"p50_ms"`
	P90Ms float64 `json:"p90_ms"`
	P99Ms float64 `json:"p99_ms"`

	StatusCodes map[int]uint64    `json:"status_codes"`
	Errors      map[string]uint64 `json:"errors,omitempty"`
}

func NewSummary(cfg runner.Config, res runner.Result) Summary {
	s := res.Snapshot
	elapsed := res.Elapsed()
	return Summary{
		Target:        cfg.TargetString(),
		Concurrency:   cfg.Concurrency,
		DurationSec:   cfg.Duration.Seconds(),
		TimeoutSec:    cfg.Timeout.Seconds(),
		StartedAt:     res.Start,
		ElapsedSec:    elapsed.Seconds(),
		Interrupted:   res.Interrupted,
		TotalRequests: s.Requests,
		Success:       s.Success,
		Fail:          s.Fail,
		RPS:           s.RPS(elapsed),
		SuccessRate:   s.SuccessRate(),
		Bytes:         s.Bytes,
		AvgMs:         ms(s.AvgTime()),
		MinMs:         ms(s.MinTime),
		MaxMs:         ms(s.MaxTime),
		P50Ms:         ms(s.P50),
		P90Ms:         ms(s.P90),
		P99Ms:         ms(s.P99),
		StatusCodes:   s.StatusCodes,
		Errors:        s.Errors,
	}
}

// Restore rebuilds the configuration and result of a stored run so it can be
// rendered again. Per-request samples are not kept, so TotalTime is derived
// from the average.
func (s Summary) Restore() (runner.Config, runner.Result, error) {
	u, err := url.Parse(s.Target)
	if err != nil {
		return runner.Config{}, runner.Result{}, fmt.Errorf("stored target %q: %w", s.Target, err)
	}

	cfg := runner.Config{
		Target:      u,
		Concurrency: s.Concurrency,
		Duration:    seconds(s.DurationSec),
		Timeout:     seconds(s.TimeoutSec),
	}
	res := runner.Result{
		Snapshot: stats.Snapshot{
			Requests:    s.TotalRequests,
			Success:     s.Success,
			Fail:        s.Fail,
			Bytes:       s.Bytes,
			TotalTime:   fromMs(s.AvgMs) * time.Duration(s.TotalRequests),
			MinTime:     fromMs(s.MinMs),
			MaxTime:     fromMs(s.MaxMs),
			P50:         fromMs(s.P50Ms),
			P90:         fromMs(s.P90Ms),
			P99:         fromMs(s.P99Ms),
			StatusCodes: s.StatusCodes,
			Errors:      s.Errors,
		},
		Start:       s.StartedAt,
		End:         s.StartedAt.Add(seconds(s.ElapsedSec)),
		Interrupted: s.Interrupted,
	}
	return cfg, res, nil
}

// ExportJSON writes the summary as indented JSON.
func ExportJSON(sum Summary, filename string) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ExportCSV writes the status code and error class breakdown.
// Schema: kind,key,count,percent
func ExportCSV(res runner.Result, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write([]string{"kind", "key", "count", "percent"}); err != nil {
		return err
	}

	s := res.Snapshot
	for _, code := range s.SortedStatusCodes() {
		n := s.StatusCodes[code]
		if err := w.Write([]string{"status", strconv.Itoa(code), strconv.FormatUint(n, 10), pct(s.Percent(n))}); err != nil {
			return err
		}
	}
	for _, class := range s.SortedErrors() {
		n := s.Errors[class]
		if err := w.Write([]string{"error", class, strconv.FormatUint(n, 10), pct(s.Percent(n))}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Files writes <prefix>_summary.json and <prefix>_status.csv.
func Files(prefix string, cfg runner.Config, res runner.Result) ([]string, error) {
	jsonPath := prefix + "_summary.json"
	csvPath := prefix + "_status.csv"

	if err := ExportJSON(NewSummary(cfg, res), jsonPath); err != nil {
		return nil, fmt.Errorf("export summary: %w", err)
	}
	if err := ExportCSV(res, csvPath); err != nil {
		return nil, fmt.Errorf("export status breakdown: %w", err)
	}
	return []string{jsonPath, csvPath}, nil
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func fromMs(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
