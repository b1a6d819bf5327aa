package ui

import (
	"fmt"
	"strings"

	"cveorigin/internal/resolve"
	"cveorigin/internal/szz"

	"github.com/charmbracelet/lipgloss"
)

func row(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func count(n int) string {
	return valueStyle.Render(fmt.Sprintf("%d", n))
}

// ResolveSummary renders the bucket counts of a resolution batch.
func ResolveSummary(t resolve.Tally, outputs []string) string {
	rows := []string{
		headerStyle.Render("Repository resolution"),
		"",
		row("Repositories", count(t.Total())),
		row("Resolved", goodStyle.Render(fmt.Sprintf("%d", t.Resolved))),
		row("Manual review", warnStyle.Render(fmt.Sprintf("%d", t.Ambiguous))),
		row("Missing", badStyle.Render(fmt.Sprintf("%d", t.Missing))),
	}
	if len(outputs) > 0 {
		rows = append(rows, "", helpStyle.Render("Wrote "+strings.Join(outputs, ", ")))
	}
	return paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// OriginSummary renders the statistics of an origin batch.
func OriginSummary(s szz.Summary, output string) string {
	rows := []string{
		headerStyle.Render("Vulnerability origins"),
		"",
		row("Fix commits", count(s.Total)),
		row("Origin found", goodStyle.Render(fmt.Sprintf("%d", s.Found))),
		row("Not found", badStyle.Render(fmt.Sprintf("%d", s.NotFound))),
	}
	if s.Found > 0 {
		rows = append(rows,
			row("Same author as fix", valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", s.SameAuthor, s.SameAuthorShare*100))),
			row("Parent of fix", count(s.PrevCommit)),
			row("Mean days to fix", valueStyle.Render(fmt.Sprintf("%.1f", s.MeanDaysBeforePatch))),
			row("Mean support", valueStyle.Render(fmt.Sprintf("%.1f", s.MeanSupport))),
		)
	}
	if output != "" {
		rows = append(rows, "", helpStyle.Render("Wrote "+output))
	}
	return paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
