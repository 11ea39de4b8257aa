package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

// formatObjectsText formats CLIObject results as a table.
func formatObjectsText(w io.Writer, objs []CLIObject) {
	if len(objs) == 0 {
		fmt.Fprintln(w, "(0 objects)")
		return
	}
	t := newTable(w, "GUID", "TYPE", "NAME", "FILE", "LINES", "CODE")
	for _, o := range objs {
		t.AppendRow(table.Row{o.GUID, o.Type, o.Name, o.File,
			fmt.Sprintf("%d-%d", o.StartLine, o.EndLine), o.CodeLines})
	}
	t.Render()
}

// formatLinksText formats CLILink results as a table.
func formatLinksText(w io.Writer, links []CLILink) {
	if len(links) == 0 {
		fmt.Fprintln(w, "(0 links)")
		return
	}
	t := newTable(w, "KIND", "GUID", "TYPE", "LINE", "COL")
	for _, l := range links {
		t.AppendRow(table.Row{l.Kind, l.GUID, l.Type, l.Line, l.Col})
	}
	t.Render()
}

// formatPlaceholdersText lists each unresolved program with its call sites.
func formatPlaceholdersText(w io.Writer, phs []CLIPlaceholder) {
	if len(phs) == 0 {
		fmt.Fprintln(w, "(no unresolved programs)")
		return
	}
	t := newTable(w, "PROGRAM", "CALLER", "LINE")
	for _, p := range phs {
		if len(p.Callers) == 0 {
			t.AppendRow(table.Row{p.Program, "", ""})
		}
		for _, c := range p.Callers {
			t.AppendRow(table.Row{p.Program, c.GUID, c.Line})
		}
	}
	t.Render()
}

// formatSummaryText formats CLISummary as readable text.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintln(w, "Index Summary")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Files: %d\n", s.Files)
	if r := s.LastRun; r != nil {
		fmt.Fprintf(w, "Last run: %s (started %s", r.ID, r.StartedAt.Local().Format(time.DateTime))
		if r.FinishedAt != nil {
			fmt.Fprintf(w, ", took %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		}
		fmt.Fprintf(w, ", %d failures)\n", r.Failures)
	}
	fmt.Fprintln(w)

	t := newTable(w, "OBJECT TYPE", "COUNT")
	for _, k := range slices.Sorted(maps.Keys(s.Objects)) {
		t.AppendRow(table.Row{k, s.Objects[k]})
	}
	t.Render()

	t = newTable(w, "EDGE KIND", "COUNT")
	for _, k := range slices.Sorted(maps.Keys(s.Edges)) {
		t.AppendRow(table.Row{k, s.Edges[k]})
	}
	t.Render()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIObject:
		formatObjectsText(w, v)
	case []CLILink:
		formatLinksText(w, v)
	case []CLIPlaceholder:
		formatPlaceholdersText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}
