// Package stats aggregates request outcomes for one run.
package stats

import (
	"sort"
	"sync"
	"time"
)

// Outcome is the result of one dispatched request. Status is zero when the
// request failed at the transport level, in which case ErrClass is set.
type Outcome struct {
	Status   int
	ErrClass string
	Elapsed  time.Duration
	Bytes    int64
}

func (o Outcome) Success() bool {
	return o.ErrClass == "" && o.Status >= 200 && o.Status < 300
}

// Stats is the run-wide aggregate. All fields are guarded by mu; readers go
// through Snapshot and never see the live maps.
type Stats struct {
	mu sync.Mutex

	requests uint64
	success  uint64
	fail     uint64
	bytes    uint64

	sum time.Duration
	min time.Duration
	max time.Duration

	statusCodes map[int]uint64
	errors      map[string]uint64

	latency *Histogram
}

func NewStats() *Stats {
	return &Stats{
		statusCodes: make(map[int]uint64),
		errors:      make(map[string]uint64),
		latency:     NewHistogram(),
	}
}

// Record applies one outcome. Every field changes under the same lock so
// requests == success + fail holds whenever the lock is free.
func (s *Stats) Record(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	s.sum += o.Elapsed
	if s.requests == 1 || o.Elapsed < s.min {
		s.min = o.Elapsed
	}
	if o.Elapsed > s.max {
		s.max = o.Elapsed
	}
	s.latency.Record(o.Elapsed)

	if o.ErrClass != "" {
		s.errors[o.ErrClass]++
	} else {
		s.statusCodes[o.Status]++
		if o.Bytes > 0 {
			s.bytes += uint64(o.Bytes)
		}
	}

	if o.Success() {
		s.success++
	} else {
		s.fail++
	}
}

// Reset zeroes the aggregate, e.g. after the probe request.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests, s.success, s.fail, s.bytes = 0, 0, 0, 0
	s.sum, s.min, s.max = 0, 0, 0
	s.statusCodes = make(map[int]uint64)
	s.errors = make(map[string]uint64)
	s.latency.Reset()
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Requests:    s.requests,
		Success:     s.success,
		Fail:        s.fail,
		Bytes:       s.bytes,
		TotalTime:   s.sum,
		MinTime:     s.min,
		MaxTime:     s.max,
		P50:         s.latency.Quantile(50),
		P90:         s.latency.Quantile(90),
		P99:         s.latency.Quantile(99),
		StatusCodes: make(map[int]uint64, len(s.statusCodes)),
		Errors:      make(map[string]uint64, len(s.errors)),
	}
	for k, v := range s.statusCodes {
		snap.StatusCodes[k] = v
	}
	for k, v := range s.errors {
		snap.Errors[k] = v
	}
	return snap
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Requests uint64 `json:"total_requests"`
	Success  uint64 `json:"success"`
	Fail     uint64 `json:"fail"`
	Bytes    uint64 `json:"bytes"`

	TotalTime time.Duration `json:"-"`
	MinTime   time.Duration `json:"-"`
	MaxTime   time.Duration `json:"-"`

	P50 time.Duration `json:"-"`
	P90 time.Duration `json:"-"`
	P99 time.Duration `json:"-"`

	StatusCodes map[int]uint64    `json:"status_codes"`
	Errors      map[string]uint64 `json:"errors,omitempty"`
}

func (s Snapshot) AvgTime() time.Duration {
	if s.Requests == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Requests)
}

// SuccessRate is a percentage in [0,100].
func (s Snapshot) SuccessRate() float64 {
	return s.Percent(s.Success)
}

// Percent expresses n as a percentage of all requests.
func (s Snapshot) Percent(n uint64) float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(n) / float64(s.Requests) * 100
}

func (s Snapshot) RPS(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Requests) / elapsed.Seconds()
}

// SortedStatusCodes returns the observed codes in ascending order.
func (s Snapshot) SortedStatusCodes() []int {
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// SortedErrors orders error classes by count, most frequent first.
func (s Snapshot) SortedErrors() []string {
	classes := make([]string, 0, len(s.Errors))
	for c := range s.Errors {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		ci, cj := s.Errors[classes[i]], s.Errors[classes[j]]
		if ci != cj {
			return ci > cj
		}
		return classes[i] < classes[j]
	})
	return classes
}
