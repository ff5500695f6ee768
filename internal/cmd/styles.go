package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/moritzfl/homebrew-vale-ls/internal/render"
	"github.com/moritzfl/homebrew-vale-ls/internal/tap"
	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

type styles struct {
	heading lipgloss.Style
	changed lipgloss.Style
	removed lipgloss.Style
	muted   lipgloss.Style
}

// newStyles binds styles to w so colour is only emitted to terminals.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		heading: r.NewStyle().Bold(true),
		changed: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"}),
		removed: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#E57373"}),
		muted:   r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func printSummary(w io.Writer, report tap.Report, dryRun bool) {
	s := newStyles(w)

	written := report.Count(render.ActionWritten) + report.Count(render.ActionWouldWrite)
	deleted := report.Count(render.ActionDeleted) + report.Count(render.ActionWouldDelete)
	unchanged := report.Count(render.ActionUnchanged)

	writeVerb, deleteVerb := "written", "deleted"
	if dryRun {
		writeVerb, deleteVerb = "to write", "to delete"
	}

	parts := []string{
		s.changed.Render(fmt.Sprintf("%d %s", written, writeVerb)),
		s.muted.Render(fmt.Sprintf("%d unchanged", unchanged)),
	}
	if deleted > 0 {
		parts = append(parts, s.removed.Render(fmt.Sprintf("%d %s", deleted, deleteVerb)))
	}

	fmt.Fprintf(w, "%s %s\n", s.heading.Render("Summary:"), strings.Join(parts, ", "))
}

func printPlan(w io.Writer, sel versions.Selection, formulaName string) {
	s := newStyles(w)
	rows := planRows(sel, formulaName)

	width := len("FORMULA")
	for _, row := range rows {
		width = max(width, len(row[0]))
	}

	header := fmt.Sprintf("%-*s  %-10s  %s", width, "FORMULA", "VERSION", "TAG")
	fmt.Fprintln(w, s.heading.Render(header))
	for _, row := range rows {
		fmt.Fprintf(w, "%-*s  %-10s  %s\n", width, row[0], row[1], s.muted.Render(row[2]))
	}
}
