// Package tui shows a live dashboard of a running load test.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"crudload/internal/runner"
	"crudload/internal/tui/components"
	"crudload/internal/tui/styles"
)

type progressMsg runner.Progress

type updatesClosedMsg struct{}

// DoneMsg carries the result of the measured phase and ends the program.
type DoneMsg runner.Result

type Model struct {
	Cfg     runner.Config
	Updates runner.ProgressChan
	Cancel  context.CancelFunc

	Last     runner.Progress
	Progress progress.Model

	RpsLine     components.Sparkline
	LatencyLine components.Sparkline

	lastReqs    uint64
	lastElapsed time.Duration

	Stopping bool
	Done     bool
	Result   runner.Result

	Width  int
	Height int
}

func NewModel(cfg runner.Config, updates runner.ProgressChan, cancel context.CancelFunc) Model {
	return Model{
		Cfg:         cfg,
		Updates:     updates,
		Cancel:      cancel,
		Progress:    progress.New(progress.WithDefaultGradient()),
		RpsLine:     components.NewSparkline(40, "RPS", styles.Default.Title),
		LatencyLine: components.NewSparkline(40, "Avg latency (ms)", styles.Default.Warn),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.Updates)
}

func waitForUpdate(sub runner.ProgressChan) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-sub
		if !ok {
			return updatesClosedMsg{}
		}
		return progressMsg(p)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			// The run winds down and DoneMsg quits the program.
			if !m.Stopping && m.Cancel != nil {
				m.Stopping = true
				m.Cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := (msg.Width / 2) - 6
		if half < 10 {
			half = 10
		}
		m.RpsLine.Width = half
		m.LatencyLine.Width = half
		return m, nil

	case progressMsg:
		p := runner.Progress(msg)

		dt := (p.Elapsed - m.lastElapsed).Seconds()
		if dt > 0 {
			m.RpsLine.Add(float64(p.Snapshot.Requests-m.lastReqs) / dt)
		}
		m.LatencyLine.Add(float64(p.Snapshot.AvgTime()) / float64(time.Millisecond))

		m.Last = p
		m.lastReqs = p.Snapshot.Requests
		m.lastElapsed = p.Elapsed

		pct := 1.0
		if m.Cfg.Duration > 0 {
			pct = float64(p.Elapsed) / float64(m.Cfg.Duration)
		}
		if pct > 1.0 {
			pct = 1.0
		}
		return m, tea.Batch(m.Progress.SetPercent(pct), waitForUpdate(m.Updates))

	case updatesClosedMsg:
		return m, nil

	case DoneMsg:
		m.Done = true
		m.Result = runner.Result(msg)
		return m, tea.Quit

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.Done {
		return ""
	}

	st := styles.Default
	s := strings.Builder{}

	s.WriteString(st.Title.Render("🚀 crudload"))
	s.WriteString("\n")
	s.WriteString(st.Subtle.Render(fmt.Sprintf("%s | concurrency %d | %s (elapsed %s)",
		m.Cfg.TargetString(), m.Cfg.Concurrency, m.Cfg.Duration, m.Last.Elapsed.Round(time.Second))))
	s.WriteString("\n\n")

	snap := m.Last.Snapshot
	failRate := 100 - snap.SuccessRate()
	if snap.Requests == 0 {
		failRate = 0
	}

	var errColor lipgloss.Style
	switch {
	case failRate > 5.0:
		errColor = st.Error
	case failRate > 1.0:
		errColor = st.Warn
	default:
		errColor = st.Success
	}

	col1 := fmt.Sprintf("REQ: %d\nRPS: %.1f\nINF: %d", snap.Requests, snap.RPS(m.Last.Elapsed), m.Last.Inflight)
	col2 := fmt.Sprintf("OK: %d\nFAIL: %d\nERR: %.2f%%", snap.Success, snap.Fail, failRate)
	col3 := fmt.Sprintf("AVG: %.2f ms\nMIN: %.2f ms\nMAX: %.2f ms",
		ms(snap.AvgTime()), ms(snap.MinTime), ms(snap.MaxTime))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		st.Box.Render(col1),
		st.Box.Render(errColor.Render(col2)),
		st.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		st.Box.Render(m.RpsLine.View()),
		st.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	if codes := snap.SortedStatusCodes(); len(codes) > 0 {
		parts := make([]string, 0, len(codes))
		for _, code := range codes {
			parts = append(parts, fmt.Sprintf("%d: %d", code, snap.StatusCodes[code]))
		}
		s.WriteString("Status  " + strings.Join(parts, "  |  "))
		s.WriteString("\n")
	}
	if classes := snap.SortedErrors(); len(classes) > 0 {
		parts := make([]string, 0, len(classes))
		for _, c := range classes {
			parts = append(parts, fmt.Sprintf("%s: %d", c, snap.Errors[c]))
		}
		s.WriteString(st.Error.Render("Errors  " + strings.Join(parts, "  |  ")))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(m.Progress.View())
	s.WriteString("\n")
	if m.Stopping {
		s.WriteString(st.Warn.Render("Stopping, waiting for in-flight requests..."))
	} else {
		s.WriteString(styles.RenderKey("q", "stop run"))
	}

	return s.String()
}

// Run drives the measured phase of r behind the dashboard and returns its
// result once the program has exited.
func Run(ctx context.Context, r *runner.Runner) (runner.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(r.Cfg, r.Updates, cancel), tea.WithAltScreen())

	resCh := make(chan runner.Result, 1)
	go func() {
		res := r.Run(ctx)
		resCh <- res
		p.Send(DoneMsg(res))
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-resCh
		return runner.Result{}, fmt.Errorf("dashboard: %w", err)
	}
	return <-resCh, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
