package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/themobileprof/deskpilot/internal/catalog"
	"github.com/themobileprof/deskpilot/internal/interfaces"
	"github.com/themobileprof/deskpilot/internal/pilot"
)

var errExit = errors.New("exit")

// REPL represents the interactive command-line interface
type REPL struct {
	pilot        *pilot.Pilot
	store        *catalog.Store
	history      interfaces.HistoryStore
	historyLimit int
	version      string
	in           io.Reader
	out          io.Writer
}

// NewREPL creates a new REPL interface. history may be nil.
func NewREPL(p *pilot.Pilot, store *catalog.Store, history interfaces.HistoryStore, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		pilot:        p,
		store:        store,
		history:      history,
		historyLimit: 20,
		version:      "dev",
		in:           in,
		out:          out,
	}
}

// SetVersion sets the version shown in the banner
func (repl *REPL) SetVersion(v string) {
	repl.version = v
}

// SetHistoryLimit sets how many rows the history command shows
func (repl *REPL) SetHistoryLimit(n int) {
	if n > 0 {
		repl.historyLimit = n
	}
}

// Start begins the interactive REPL loop. It returns nil on exit, end of
// input or cancellation.
func (repl *REPL) Start(ctx context.Context) error {
	fmt.Fprintf(repl.out, "DeskPilot %s - desktop commands in plain words\n", repl.version)
	fmt.Fprint(repl.out, "Type 'help' for available commands, 'exit' to quit\n\n")

	scanner := bufio.NewScanner(repl.in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(repl.out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			fmt.Fprintln(repl.out)
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if err := repl.handleCommand(ctx, input); err != nil {
			if errors.Is(err, errExit) {
				fmt.Fprintln(repl.out, "Goodbye!")
				return nil
			}
			fmt.Fprintf(repl.out, "Error: %v\n\n", err)
		}
	}
}

// handleCommand processes a single command
func (repl *REPL) handleCommand(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch {
	case command == "exit" || command == "quit":
		return errExit
	case command == "help" && len(args) == 0:
		// "help" alone is the REPL help; "help me ..." goes to the pipeline
		return repl.showHelp()
	case command == "reload" && len(args) == 0:
		snap := repl.store.Reload()
		fmt.Fprintf(repl.out, "Catalog reloaded (version %d)\n\n", snap.Version)
		return nil
	case command == "symbols":
		return repl.handleSymbols(args)
	case command == "macros" && len(args) == 0:
		return repl.listMacros()
	case command == "history" && len(args) <= 1:
		return repl.showHistory(args)
	default:
		out := repl.pilot.Run(ctx, input)
		mark := "✓"
		if !out.Result.OK {
			mark = "✗"
		}
		fmt.Fprintf(repl.out, "%s %s\n\n", mark, out.Result.Text)
		return nil
	}
}

// showHelp displays help information
func (repl *REPL) showHelp() error {
	fmt.Fprint(repl.out, `
Available Commands:
  help                        - Show this help message
  reload                      - Re-read the catalog files
  symbols                     - List named symbols
  symbols set <name> <sym>    - Add or replace a symbol
  symbols unset <name>        - Remove a symbol
  macros                      - List macros
  history [n]                 - Show recently handled commands
  exit, quit                  - Exit DeskPilot

Anything else is treated as a desktop command.

Examples:
  > maximize window
  > open downloads
  > please close tab
  > move this to the next monitor
  > insert heart
  > morning setup
`)
	fmt.Fprintln(repl.out)
	return nil
}

// handleSymbols handles symbol management commands
func (repl *REPL) handleSymbols(args []string) error {
	if len(args) == 0 || args[0] == "list" {
		return repl.listSymbols()
	}

	switch args[0] {
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("usage: symbols set <name> <symbol>")
		}
		name := strings.Join(args[1:len(args)-1], " ")
		symbol := args[len(args)-1]
		if err := repl.store.SetSymbol(name, symbol); err != nil {
			return err
		}
		fmt.Fprintf(repl.out, "✓ %s = %s\n\n", name, symbol)
		return nil
	case "unset", "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: symbols unset <name>")
		}
		name := strings.Join(args[1:], " ")
		if err := repl.store.UnsetSymbol(name); err != nil {
			return err
		}
		fmt.Fprintf(repl.out, "Symbol %s removed.\n\n", name)
		return nil
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func (repl *REPL) listSymbols() error {
	return PrintSymbols(repl.out, repl.store.Current())
}

func (repl *REPL) listMacros() error {
	return PrintMacros(repl.out, repl.store.Current())
}

// showHistory displays recently handled utterances
func (repl *REPL) showHistory(args []string) error {
	if repl.history == nil {
		return fmt.Errorf("history is not available")
	}
	limit := repl.historyLimit
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("usage: history [n]")
		}
		limit = n
	}
	entries, err := repl.history.Recent(limit)
	if err != nil {
		return fmt.Errorf("failed to query history: %w", err)
	}
	return PrintHistory(repl.out, entries)
}
