package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histMinUs = 1
	histMaxUs = int64(10 * time.Minute / time.Microsecond)
)

// Histogram records latencies in microseconds. It is not safe for concurrent
// use; Stats guards it with its own mutex.
type Histogram struct {
	hist *hdrhistogram.Histogram
}

func NewHistogram() *Histogram {
	// 1us to 10min, 3 significant figures
	return &Histogram{hist: hdrhistogram.New(histMinUs, histMaxUs, 3)}
}

// Record clamps d into the trackable range so no sample is ever dropped.
func (h *Histogram) Record(d time.Duration) {
	us := d.Microseconds()
	if us < histMinUs {
		us = histMinUs
	}
	if us > histMaxUs {
		us = histMaxUs
	}
	_ = h.hist.RecordValue(us)
}

// Quantile takes q in [0,100].
func (h *Histogram) Quantile(q float64) time.Duration {
	if h.hist.TotalCount() == 0 {
		return 0
	}
	return time.Duration(h.hist.ValueAtQuantile(q)) * time.Microsecond
}

func (h *Histogram) Reset() {
	h.hist.Reset()
}
