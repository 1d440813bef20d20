package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/themobileprof/deskpilot/internal/catalog"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// PrintSymbols lists the snapshot's symbols by name
func PrintSymbols(w io.Writer, snap *catalog.Snapshot) error {
	if len(snap.Symbols) == 0 {
		fmt.Fprintln(w, "No symbols defined.")
		fmt.Fprintln(w, "Use 'symbols set <name> <symbol>' to add one.")
		return nil
	}

	names := make([]string, 0, len(snap.Symbols))
	for name := range snap.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "\nSymbols (%d):\n\n", len(names))
	for _, name := range names {
		fmt.Fprintf(w, "• %-20s %s\n", name, snap.Symbols[name])
	}
	fmt.Fprintln(w)
	return nil
}

// PrintMacros lists every macro with its steps
func PrintMacros(w io.Writer, snap *catalog.Snapshot) error {
	names := snap.MacroNames()
	if len(names) == 0 {
		fmt.Fprintln(w, "No macros defined.")
		return nil
	}

	fmt.Fprintf(w, "\nMacros (%d):\n\n", len(names))
	for _, name := range names {
		m := snap.Macros[name]
		mode := "stops on error"
		if m.ContinueOnError {
			mode = "continues on error"
		}
		fmt.Fprintf(w, "• %s (%d steps, %s)\n", m.Name, len(m.Steps), mode)
		for i, step := range m.Steps {
			fmt.Fprintf(w, "  %d. %s\n", i+1, step.Describe())
		}
		fmt.Fprintln(w)
	}
	return nil
}

// PrintHistory lists history entries, newest first
func PrintHistory(w io.Writer, entries []models.HistoryEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No commands handled yet.")
		return nil
	}

	fmt.Fprintln(w, "\nRecent Commands:")
	fmt.Fprintln(w)
	for _, e := range entries {
		status := "ok"
		if !e.OK {
			status = "failed"
		}
		strategy := e.Strategy
		if strategy == "" {
			strategy = "unresolved"
		}
		fmt.Fprintf(w, "• %s  %q | %s | %s\n", e.CreatedAt.Format(time.DateTime), e.Raw, strategy, status)
		fmt.Fprintf(w, "  %s (%dms)\n", strings.TrimSpace(e.Result), e.DurationMs)
	}
	fmt.Fprintln(w)
	return nil
}
