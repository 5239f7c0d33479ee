// Package render formats highlight lists and answers for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"newslens/internal/core"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	rankStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	summaryStyle = lipgloss.NewStyle().PaddingLeft(3).Width(76)
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).PaddingLeft(3)
)

// Highlights writes a topic's ranked highlight list. computed reports
// whether a ranking run has happened for this topic at all, which keeps
// "nothing ranked yet" distinct from "ranked and found nothing".
func Highlights(w io.Writer, topic string, entries []core.HighlightEntry, computed bool, computedAt time.Time) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Top highlights: %s", topic)))

	if !computed {
		fmt.Fprintln(w, faintStyle.Render("No highlights computed yet. Run `newslens process` first."))
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, faintStyle.Render("No highlights for this topic in the latest run."))
		return
	}

	fmt.Fprintln(w, faintStyle.Render(fmt.Sprintf("Computed %s", computedAt.Local().Format("2006-01-02 15:04"))))
	fmt.Fprintln(w)
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s\n", rankStyle.Render(fmt.Sprintf("%d.", e.Rank)), titleStyle.Render(e.Title))
		if e.Summary != "" {
			fmt.Fprintln(w, summaryStyle.Render(e.Summary))
		}
		fmt.Fprintln(w, sourceStyle.Render(urlStyle.Render(e.URL)))
		fmt.Fprintln(w)
	}
}

// Answer writes a generated answer followed by the summaries it drew on.
func Answer(w io.Writer, answer string, items []core.RetrievedContextItem) {
	fmt.Fprintln(w, strings.TrimSpace(answer))
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, faintStyle.Render("Based on:"))
	for _, item := range items {
		fmt.Fprintln(w, sourceStyle.Render(fmt.Sprintf("- %s", firstLine(item.Summary))))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
