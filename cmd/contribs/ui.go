package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"contribs/internal/core/ports"
	"contribs/internal/data/store"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Render

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true).
			Render

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true).
			Render
)

func printSummary(w io.Writer, title string, s ports.RunSummary) {
	fmt.Fprintln(w, titleStyle(title))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(label string, value any) {
		fmt.Fprintf(tw, "  %s\t%v\n", labelStyle(label), value)
	}
	row("run", s.RunID)
	row("repositories", s.Repos)
	if s.FailedRepos > 0 {
		row("failed", warnStyle(fmt.Sprint(s.FailedRepos)))
	}
	row("files seen", s.FilesSeen)
	row("python files", s.PythonFiles)
	row("contributions", successStyle(fmt.Sprint(s.Contribs)))
	row("loci", s.Loci)
	if s.ParseErrors > 0 {
		row("parse errors", warnStyle(fmt.Sprint(s.ParseErrors)))
	}
	row("duration", s.Duration.Round(time.Millisecond))
	tw.Flush()
}

func printStats(w io.Writer, cat store.Catalogue, found bool, top []store.IdentCount, licenses []store.License) {
	fmt.Fprintln(w, titleStyle("Catalogue"))
	if !found {
		fmt.Fprintln(w, "  "+labelStyle("empty: run scan or crawl first"))
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "  %s\t%d\n", labelStyle("contributions"), cat.NContribs)
		fmt.Fprintf(tw, "  %s\t%d\n", labelStyle("repositories"), cat.NRepos)
		fmt.Fprintf(tw, "  %s\t%d\n", labelStyle("python files"), cat.NFiles)
		fmt.Fprintf(tw, "  %s\t%s\n", labelStyle("last run"), cat.RunID)
		fmt.Fprintf(tw, "  %s\t%s\n", labelStyle("updated"), cat.UpdatedAt.Format(time.RFC3339))
		tw.Flush()
	}

	if len(top) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle("Top identifiers"))
		for _, ic := range top {
			fmt.Fprintf(w, "  %7d  %s\n", ic.Count, ic.Ident)
		}
	}

	if len(licenses) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle("Licenses"))
		for _, l := range licenses {
			fmt.Fprintf(w, "  %s/%s %s\n", l.Owner, l.Name, labelStyle(strings.TrimSpace(l.Type+" "+l.Author)))
		}
	}
}
