package runner

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"crudload/internal/endpoint"
	"crudload/internal/stats"
)

const (
	DefaultTarget      = "http://localhost:3000"
	DefaultConcurrency = 5
	DefaultDuration    = 30 * time.Second
	DefaultTimeout     = 30 * time.Second
)

var (
	ErrInvalidURL  = errors.New("invalid target url")
	ErrProbeFailed = errors.New("target unreachable")
)

type Config struct {
	Target      *url.URL      `json:"-"`
	Concurrency int           `json:"concurrency"`
	Duration    time.Duration `json:"duration"`

	// Timeout bounds a single request including the body read. Zero leaves
	// requests unbounded, so one hung connection can stall its batch.
	Timeout  time.Duration `json:"timeout"`
	Insecure bool          `json:"insecure"`

	// Endpoints comes from the config file and defaults to
	// endpoint.DefaultMix when empty.
	Endpoints []endpoint.Descriptor `json:"-"`
}

// ParseConfig validates the positional arguments of the CLI.
func ParseConfig(rawURL string, concurrency int, duration time.Duration) (Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Config{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return Config{}, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, rawURL)
	}
	if concurrency < 1 {
		return Config{}, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	if duration < 0 {
		return Config{}, fmt.Errorf("duration must not be negative, got %s", duration)
	}

	return Config{
		Target:      u,
		Concurrency: concurrency,
		Duration:    duration,
		Timeout:     DefaultTimeout,
	}, nil
}

// TargetString is the target URL as given, for display and export.
func (c Config) TargetString() string {
	if c.Target == nil {
		return ""
	}
	return c.Target.String()
}

// Progress is sent over the update channel once per tick.
type Progress struct {
	Snapshot stats.Snapshot
	Elapsed  time.Duration
	Inflight int64
}

type ProgressChan chan Progress

// Result describes a finished measured phase.
type Result struct {
	Snapshot    stats.Snapshot
	Start       time.Time
	End         time.Time
	Batches     int
	Interrupted bool
}

func (r Result) Elapsed() time.Duration {
	return r.End.Sub(r.Start)
}
