package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"crudload/internal/endpoint"
	"crudload/internal/export"
	"crudload/internal/runner"
	"crudload/internal/storage"
)

func TestPositional(t *testing.T) {
	tests := []struct {
		name            string
		args            []string
		wantTarget      string
		wantConcurrency int
		wantDuration    time.Duration
		wantErr         bool
	}{
		{
			name:            "defaults",
			wantTarget:      runner.DefaultTarget,
			wantConcurrency: runner.DefaultConcurrency,
			wantDuration:    runner.DefaultDuration,
		},
		{
			name:            "target only",
			args:            []string{"http://svc:8080"},
			wantTarget:      "http://svc:8080",
			wantConcurrency: runner.DefaultConcurrency,
			wantDuration:    runner.DefaultDuration,
		},
		{
			name:            "all three",
			args:            []string{"http://svc:8080", "12", "0"},
			wantTarget:      "http://svc:8080",
			wantConcurrency: 12,
			wantDuration:    0,
		},
		{name: "bad concurrency", args: []string{"http://svc", "many"}, wantErr: true},
		{name: "bad duration", args: []string{"http://svc", "1", "1m"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, concurrency, duration, err := positional(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if target != tt.wantTarget || concurrency != tt.wantConcurrency || duration != tt.wantDuration {
				t.Errorf("Got (%s, %d, %s), want (%s, %d, %s)",
					target, concurrency, duration, tt.wantTarget, tt.wantConcurrency, tt.wantDuration)
			}
		})
	}
}

func TestHistoryCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	viper.Set("history-path", path)
	defer viper.Set("history-path", "")

	var out bytes.Buffer
	historyCmd.SetOut(&out)
	defer historyCmd.SetOut(nil)

	if err := historyCmd.RunE(historyCmd, nil); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out.String(), "No runs recorded yet.") {
		t.Errorf("Expected empty notice, got %q", out.String())
	}

	store, err := storage.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rec, _ := storage.NewRecord(export.Summary{
		Target:        "http://svc:8080",
		Concurrency:   3,
		TotalRequests: 42,
		SuccessRate:   97.5,
		Interrupted:   true,
	})
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	store.Close()

	out.Reset()
	if err := historyCmd.RunE(historyCmd, nil); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	text := out.String()
	for _, want := range []string{rec.ID, "http://svc:8080", "42", "97.50%", "interrupted"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in history output\n%s", want, text)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	viper.Set("log-level", "debug")
	defer viper.Set("log-level", "warn")

	if lvl := newLogger().GetLevel().String(); lvl != "debug" {
		t.Errorf("Expected debug level, got %s", lvl)
	}

	viper.Set("log-level", "bogus")
	if lvl := newLogger().GetLevel().String(); lvl != "warn" {
		t.Errorf("Expected fallback to warn, got %s", lvl)
	}
}

func TestHistoryCommand_ShowRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	viper.Set("history-path", path)
	defer viper.Set("history-path", "")

	store, err := storage.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rec, _ := storage.NewRecord(export.Summary{
		Target:        "http://svc:8080",
		Concurrency:   3,
		DurationSec:   10,
		StartedAt:     time.Unix(1700000000, 0),
		ElapsedSec:    10,
		TotalRequests: 5,
		Success:       3,
		Fail:          2,
		SuccessRate:   60,
		AvgMs:         12,
		StatusCodes:   map[int]uint64{200: 3, 500: 2},
	})
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	store.Close()

	var out bytes.Buffer
	historyCmd.SetOut(&out)
	defer historyCmd.SetOut(nil)

	if err := historyCmd.RunE(historyCmd, []string{rec.ID}); err != nil {
		t.Fatalf("history <id> failed: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		rec.ID,
		"Total Requests : 5",
		"Success Rate   : 60.00%",
		"   200: 3 (60.0%)",
		"   500: 2 (40.0%)",
		"   Avg : 12.00",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in report\n%s", want, text)
		}
	}

	err = historyCmd.RunE(historyCmd, []string{"missing-id"})
	if err == nil || !strings.Contains(err.Error(), `no run "missing-id"`) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestLoadEndpoints(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	err := v.ReadConfig(strings.NewReader(`
endpoints:
  - name: ping
    path: /ping
    weight: 3
  - name: order
    method: post
    path: /api/orders
    weight: 1
    body: '{"n": {{seq}}, "kind": "{{randomChoice "a" "b"}}"}'
    headers:
      Content-Type: application/json
`))
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	descs, err := loadEndpoints(v)
	if err != nil {
		t.Fatalf("loadEndpoints failed: %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("Expected 2 endpoints, got %d", len(descs))
	}
	if descs[0].Method != http.MethodGet || descs[0].Weight != 3 {
		t.Errorf("Unexpected ping endpoint %+v", descs[0])
	}
	if descs[1].Method != http.MethodPost || !descs[1].HasBody() {
		t.Errorf("Unexpected order endpoint %+v", descs[1])
	}

	table, err := endpoint.NewTable(descs, nil)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	body, err := table.Render(descs[1])
	if err != nil || !strings.HasPrefix(body, `{"n": 1, "kind": "`) {
		t.Errorf("Unexpected body %q (%v)", body, err)
	}
}

func TestLoadEndpoints_Unset(t *testing.T) {
	descs, err := loadEndpoints(viper.New())
	if err != nil || descs != nil {
		t.Errorf("Expected default mix (nil), got %v, %v", descs, err)
	}
}

func TestLoadEndpoints_MissingPath(t *testing.T) {
	v := viper.New()
	v.Set("endpoints", []map[string]any{{"name": "nowhere", "weight": 1}})
	if _, err := loadEndpoints(v); err == nil {
		t.Error("Expected error for endpoint without path")
	}
}

func TestReleaseOnDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	released := make(chan struct{})
	releaseOnDone(ctx, func() { close(released) })

	select {
	case <-released:
		t.Fatal("Released before the context was done")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Expected signal handling to be released after the first interrupt")
	}
}

func TestLoadEndpoints_DuplicateName(t *testing.T) {
	v := viper.New()
	v.Set("endpoints", []map[string]any{
		{"path": "/api/items", "weight": 1},
		{"path": "/api/items", "method": "get", "weight": 1},
	})
	if _, err := loadEndpoints(v); err == nil {
		t.Error("Expected error for two endpoints named GET /api/items")
	}
}

func TestRootCommand_InvalidTarget(t *testing.T) {
	rootCmd.SetArgs([]string{"localhost:3000", "1", "0", "--history=false"})
	defer rootCmd.SetArgs(nil)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)

	err := rootCmd.Execute()
	if !errors.Is(err, runner.ErrInvalidURL) {
		t.Fatalf("Expected ErrInvalidURL, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output before the target is validated, got %q", out.String())
	}
}
