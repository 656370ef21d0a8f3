package components

import (
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

func TestSparkline_WindowAndScale(t *testing.T) {
	s := NewSparkline(4, "rps", lipgloss.NewStyle())
	for _, v := range []float64{100, 1, 2, 4, 8} {
		s.Add(v)
	}

	if len(s.Data) != 4 {
		t.Fatalf("Expected window of 4, got %d", len(s.Data))
	}
	if s.Max != 8 {
		t.Errorf("Expected max of visible window 8, got %v", s.Max)
	}
	if got := s.Graph(); got != "▁▂▄█" {
		t.Errorf("Unexpected graph %q", got)
	}
}

func TestSparkline_Padding(t *testing.T) {
	s := NewSparkline(5, "lat", lipgloss.NewStyle())
	s.Add(0)
	if n := utf8.RuneCountInString(s.Graph()); n != 5 {
		t.Errorf("Expected graph padded to 5 cells, got %d", n)
	}
}
