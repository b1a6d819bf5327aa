package ui

import (
	"bytes"
	"strings"
	"testing"

	"cveorigin/internal/resolve"
	"cveorigin/internal/szz"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	// Use TrueColor to properly test color codes
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestStyles_Colors(t *testing.T) {
	if out := badStyle.Render("Missing"); !strings.Contains(out, "196") {
		t.Errorf("Expected bad text to contain color 196, got %q", out)
	}
	if out := goodStyle.Render("Found"); !strings.Contains(out, "46") {
		t.Errorf("Expected good text to contain color 46, got %q", out)
	}
	// #7D56F4 = RGB(125, 86, 244); the color conversion may round the blue channel to 243
	out := headerStyle.Render("Header")
	if !strings.Contains(out, "48;2;125;86;244") && !strings.Contains(out, "48;2;125;86;243") {
		t.Errorf("Expected header to use brand color, got %q", out)
	}
}

func TestProgressModel(t *testing.T) {
	var m tea.Model = newProgressModel("Tracing origins")

	view := m.View()
	if !strings.Contains(view, "Tracing origins") || !strings.Contains(view, "0/0") {
		t.Errorf("unexpected initial view: %q", view)
	}

	m, _ = m.Update(progressMsg{done: 1, total: 4})
	view = m.View()
	if !strings.Contains(view, "1/4") || !strings.Contains(view, "25%") {
		t.Errorf("expected 1/4 and 25%%, got %q", view)
	}

	m, _ = m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})
	if w := m.(progressModel).bar.Width; w != 10 {
		t.Errorf("expected bar width clamped to 10, got %d", w)
	}
	m, _ = m.Update(tea.WindowSizeMsg{Width: 300, Height: 10})
	if w := m.(progressModel).bar.Width; w != maxBarWidth {
		t.Errorf("expected bar width %d, got %d", maxBarWidth, w)
	}
}

func TestProgressRun(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress("Resolving", &out)
	p.Start()
	p.Update(2, 2)
	p.Finish()

	if !strings.Contains(out.String(), "Resolving") {
		t.Errorf("expected title in output, got %q", out.String())
	}
}

func TestResolveSummary(t *testing.T) {
	out := ResolveSummary(resolve.Tally{Resolved: 3, Ambiguous: 1, Missing: 2}, []string{"repos_to_nvd.csv"})
	for _, want := range []string{"Repository resolution", "Repositories", "6", "Manual review", "repos_to_nvd.csv"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestOriginSummary(t *testing.T) {
	out := OriginSummary(szz.Summary{Total: 4, Found: 2, NotFound: 2, SameAuthor: 1, SameAuthorShare: 0.5, MeanDaysBeforePatch: 12.4, MeanSupport: 3}, "origins.json")
	for _, want := range []string{"Fix commits", "Origin found", "1 (50.0%)", "12.4", "origins.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	empty := OriginSummary(szz.Summary{Total: 1, NotFound: 1}, "")
	if strings.Contains(empty, "Mean support") {
		t.Errorf("statistics shown without any found origin:\n%s", empty)
	}
}
