// Package report renders the console output of a run: the header, the
// in-place progress line and the final summary.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"crudload/internal/runner"
	"crudload/internal/stats"
	"crudload/internal/tui/styles"
)

const rule = "======================================================================"

type Printer struct {
	w     io.Writer
	style styles.Set
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		w:     w,
		style: styles.NewSet(lipgloss.NewRenderer(w)),
	}
}

func (p *Printer) Header(cfg runner.Config) {
	fmt.Fprintf(p.w, "\n%s\n", p.style.Title.Render("🚀 STARTING CRUDLOAD LOAD TEST"))
	fmt.Fprintln(p.w, rule)
	p.configLines(cfg)
	fmt.Fprintf(p.w, "%s\n\n", rule)
}

func (p *Printer) configLines(cfg runner.Config) {
	timeout := "none"
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout.String()
	}
	fmt.Fprintf(p.w, "Target URL  : %s\n", cfg.TargetString())
	fmt.Fprintf(p.w, "Concurrency : %d\n", cfg.Concurrency)
	fmt.Fprintf(p.w, "Duration    : %s\n", cfg.Duration)
	fmt.Fprintf(p.w, "Timeout     : %s\n", timeout)
}

// Progress rewrites the current terminal line.
func (p *Printer) Progress(pr runner.Progress, total time.Duration) {
	fmt.Fprint(p.w, "\r"+ProgressLine(pr, total))
}

// ProgressLine renders one progress update without the carriage return.
func ProgressLine(pr runner.Progress, total time.Duration) string {
	pct := 1.0
	if total > 0 {
		pct = pr.Elapsed.Seconds() / total.Seconds()
	}
	if pct > 1.0 {
		pct = 1.0
	}

	s := pr.Snapshot
	return fmt.Sprintf("%s %3.0f%% | Reqs: %d | RPS: %.1f | Avg: %.2fms | OK: %d | Fail: %d",
		progressBar(pct, 20), pct*100,
		s.Requests,
		s.RPS(pr.Elapsed),
		ms(s.AvgTime()),
		s.Success,
		s.Fail,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

// Summary renders the final report from a finished run.
func (p *Printer) Summary(cfg runner.Config, res runner.Result) {
	s := res.Snapshot
	elapsed := res.Elapsed()

	fmt.Fprintf(p.w, "\n\n%s\n", p.style.Title.Render("📊 LOAD TEST RESULTS"))
	fmt.Fprintln(p.w, rule)
	if res.Interrupted {
		fmt.Fprintln(p.w, p.style.Warn.Render("Run interrupted, partial results"))
	}

	p.section("Configuration")
	p.configLines(cfg)

	p.section("Summary")
	fmt.Fprintf(p.w, "Total Duration : %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(p.w, "Total Requests : %d\n", s.Requests)
	fmt.Fprintf(p.w, "Requests/sec   : %.2f\n", s.RPS(elapsed))
	fmt.Fprintf(p.w, "Success Rate   : %.2f%%\n", s.SuccessRate())
	fmt.Fprintf(p.w, "Success        : %d\n", s.Success)
	fmt.Fprintf(p.w, "Failures       : %d\n", s.Fail)
	fmt.Fprintf(p.w, "Bytes Received : %d\n", s.Bytes)

	p.section("⏱️  RESPONSE TIMES (ms)")
	fmt.Fprintf(p.w, "   Avg : %.2f\n", ms(s.AvgTime()))
	fmt.Fprintf(p.w, "   Min : %.2f\n", ms(s.MinTime))
	fmt.Fprintf(p.w, "   Max : %.2f\n", ms(s.MaxTime))
	fmt.Fprintf(p.w, "   P50 : %.2f\n", ms(s.P50))
	fmt.Fprintf(p.w, "   P90 : %.2f\n", ms(s.P90))
	fmt.Fprintf(p.w, "   P99 : %.2f\n", ms(s.P99))

	if len(s.StatusCodes) > 0 {
		p.section("STATUS CODES")
		for _, code := range s.SortedStatusCodes() {
			n := s.StatusCodes[code]
			fmt.Fprintf(p.w, "   %d: %d (%.1f%%)\n", code, n, s.Percent(n))
		}
	}

	if len(s.Errors) > 0 {
		p.section("❌ TRANSPORT ERRORS")
		p.errorLines(s)
	}
	fmt.Fprintln(p.w, rule)
}

func (p *Printer) errorLines(s stats.Snapshot) {
	for _, class := range s.SortedErrors() {
		n := s.Errors[class]
		fmt.Fprintf(p.w, "   %s: %d (%.1f%%)\n", class, n, s.Percent(n))
	}
}

func (p *Printer) section(title string) {
	fmt.Fprintf(p.w, "\n%s\n", p.style.Section.Render(title))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
