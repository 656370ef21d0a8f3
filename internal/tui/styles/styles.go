package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// --- Color Palette (Dark Mode) ---
var (
	ColorPrimary   = lipgloss.Color("#7D56F4") // Indigo/Purple
	ColorSecondary = lipgloss.Color("#04B575") // Green
	ColorError     = lipgloss.Color("#FF5F87") // Pink/Red
	ColorWarning   = lipgloss.Color("#FFAF00") // Gold
	ColorText      = lipgloss.Color("#FAFAFA") // White-ish
	ColorSubtle    = lipgloss.Color("#767676") // Gray
	ColorBorder    = lipgloss.Color("#3C3C3C") // Dark Gray border
	ColorBanner    = lipgloss.Color("#7D56F4")
)

// Set groups the styles used by a single output. Styles must come from the
// renderer of the writer they end up on, otherwise color detection is done
// against stdout.
type Set struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Subtle  lipgloss.Style
	Value   lipgloss.Style
	Error   lipgloss.Style
	Warn    lipgloss.Style
	Success lipgloss.Style
	Box     lipgloss.Style
}

func NewSet(r *lipgloss.Renderer) Set {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Set{
		Title:   r.NewStyle().Foreground(ColorPrimary).Bold(true),
		Section: r.NewStyle().Foreground(ColorPrimary).Bold(true),
		Subtle:  r.NewStyle().Foreground(ColorSubtle),
		Value:   r.NewStyle().Foreground(ColorSecondary).Bold(true),
		Error:   r.NewStyle().Foreground(ColorError),
		Warn:    r.NewStyle().Foreground(ColorWarning),
		Success: r.NewStyle().Foreground(ColorSecondary).Bold(true),
		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			Margin(0, 1),
	}
}

// Default renders against stdout.
var Default = NewSet(nil)

func RenderKey(key, desc string) string {
	return lipgloss.JoinHorizontal(lipgloss.Center,
		Default.Title.Render("<"+key+">"),
		" ",
		Default.Subtle.Render(desc),
	)
}
