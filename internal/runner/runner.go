package runner

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"crudload/internal/endpoint"
	"crudload/internal/stats"
)

type Runner struct {
	Cfg    Config
	Stats  *stats.Stats
	Client *http.Client
	Table  *endpoint.Table

	// Interval between Progress updates during the measured phase.
	Interval time.Duration

	// Event Channel, closed when Run returns. May be nil.
	Updates ProgressChan

	log      zerolog.Logger
	rnd      *rand.Rand
	inflight atomic.Int64
}

func NewRunner(cfg Config, updates ProgressChan, logger zerolog.Logger) (*Runner, error) {
	if cfg.Target == nil {
		return nil, fmt.Errorf("%w: no target", ErrInvalidURL)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}

	descs := cfg.Endpoints
	if len(descs) == 0 {
		descs = endpoint.DefaultMix()
	}
	table, err := endpoint.NewTable(descs, nil)
	if err != nil {
		return nil, fmt.Errorf("build endpoint table: %w", err)
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = cfg.Concurrency * 2
	t.MaxConnsPerHost = cfg.Concurrency
	t.MaxIdleConnsPerHost = cfg.Concurrency
	if cfg.Insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: t,
	}

	logger.Debug().
		Int("endpoints", len(descs)).
		Int("slots", table.Len()).
		Msg("endpoint table ready")

	return &Runner{
		Cfg:      cfg,
		Stats:    stats.NewStats(),
		Client:   client,
		Table:    table,
		Interval: time.Second,
		Updates:  updates,
		log:      logger.With().Str("component", "runner").Logger(),
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}, nil
}

// Probe sends one request through the normal dispatch path. Only transport
// failures are reported; any HTTP status proves the target is reachable.
func (r *Runner) Probe(ctx context.Context) error {
	d := r.Table.Pick(r.rnd)
	out, err := r.Dispatch(ctx, d)
	if err == nil {
		r.log.Debug().Str("endpoint", d.Name).Int("status", out.Status).Dur("elapsed", out.Elapsed).Msg("probe ok")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s %s: %v", ErrProbeFailed, d.Method, d.Path, err)
}

// Run executes the measured phase. Stats are reset first. Batches of
// Concurrency requests are launched and awaited as a whole until the deadline
// has passed or ctx is cancelled; at least one batch runs unless ctx is
// already done. Requests aborted by cancellation are not recorded.
func (r *Runner) Run(ctx context.Context) Result {
	r.Stats.Reset()
	start := time.Now()
	deadline := start.Add(r.Cfg.Duration)

	tickCtx, stopTicks := context.WithCancel(context.Background())
	ticksDone := r.startTickLoop(tickCtx, start)

	r.log.Debug().
		Int("concurrency", r.Cfg.Concurrency).
		Dur("duration", r.Cfg.Duration).
		Msg("measured phase started")

	batches := 0
	for ctx.Err() == nil {
		r.runBatch(ctx)
		batches++
		if !time.Now().Before(deadline) {
			break
		}
	}
	end := time.Now()

	stopTicks()
	<-ticksDone

	res := Result{
		Snapshot:    r.Stats.Snapshot(),
		Start:       start,
		End:         end,
		Batches:     batches,
		Interrupted: ctx.Err() != nil,
	}
	r.log.Debug().
		Int("batches", batches).
		Uint64("requests", res.Snapshot.Requests).
		Bool("interrupted", res.Interrupted).
		Msg("measured phase finished")
	return res
}

// runBatch blocks until every request of the batch has completed.
func (r *Runner) runBatch(ctx context.Context) {
	var g errgroup.Group
	for i := 0; i < r.Cfg.Concurrency; i++ {
		d := r.Table.Pick(r.rnd)
		g.Go(func() error {
			r.Dispatch(ctx, d)
			return nil
		})
	}
	_ = g.Wait()
}

// Dispatch performs one request and records its outcome exactly once. The
// returned error is the transport error, if any. When ctx is cancelled while
// the request is in flight the outcome is dropped.
func (r *Runner) Dispatch(ctx context.Context, d endpoint.Descriptor) (stats.Outcome, error) {
	r.inflight.Add(1)
	defer r.inflight.Add(-1)

	start := time.Now()
	req, err := r.newRequest(ctx, d)
	if err != nil {
		// Template or URL problems are not transport failures but they still
		// cost a request slot. Elapsed covers the failed rendering.
		out := stats.Outcome{ErrClass: ErrClassUnknown, Elapsed: time.Since(start)}
		r.Stats.Record(out)
		return out, err
	}

	start = time.Now()
	resp, err := r.Client.Do(req)
	var n int64
	if err == nil {
		n, err = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	elapsed := time.Since(start)

	if err != nil && ctx.Err() != nil {
		return stats.Outcome{Elapsed: elapsed}, err
	}

	out := stats.Outcome{Elapsed: elapsed, Bytes: n}
	if err != nil {
		out.ErrClass = Classify(err)
		r.log.Trace().Err(err).Str("class", out.ErrClass).Str("endpoint", d.Name).Msg("transport failure")
	} else {
		out.Status = resp.StatusCode
	}

	r.Stats.Record(out)
	return out, err
}

func (r *Runner) newRequest(ctx context.Context, d endpoint.Descriptor) (*http.Request, error) {
	var body io.Reader
	if d.HasBody() {
		payload, err := r.Table.Render(d)
		if err != nil {
			return nil, fmt.Errorf("render body for %s: %w", d.Name, err)
		}
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, r.Cfg.Target.JoinPath(d.Path).String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// startTickLoop pushes a Progress every Interval until ctx is done, then
// closes Updates. The returned channel is closed once the loop has exited.
func (r *Runner) startTickLoop(ctx context.Context, start time.Time) <-chan struct{} {
	done := make(chan struct{})
	if r.Updates == nil {
		close(done)
		return done
	}

	interval := r.Interval
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		defer close(done)
		defer close(r.Updates)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate(start)
			}
		}
	}()
	return done
}

func (r *Runner) sendUpdate(start time.Time) {
	p := Progress{
		Snapshot: r.Stats.Snapshot(),
		Elapsed:  time.Since(start),
		Inflight: r.inflight.Load(),
	}

	// Non-blocking send
	select {
	case r.Updates <- p:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}
