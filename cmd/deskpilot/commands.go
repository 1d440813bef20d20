package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/themobileprof/deskpilot/internal/db"
	"github.com/themobileprof/deskpilot/internal/ui"
)

func newResolveCmd(configPath *string, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <text...>",
		Short: "Show the action a command resolves to without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, v)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.pilot.Resolve(cmd.Context(), strings.Join(args, " "))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("failed to encode resolution: %w", err)
			}
			if !res.Resolved() {
				return errCommandFailed
			}
			return nil
		},
	}
}

func newREPLCmd(configPath *string, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, v)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newSymbolsCmd(configPath *string, v *viper.Viper) *cobra.Command {
	symbolsCmd := &cobra.Command{
		Use:   "symbols",
		Short: "List and edit named symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, v)
			if err != nil {
				return err
			}
			defer a.Close()
			return ui.PrintSymbols(cmd.OutOrStdout(), a.store.Current())
		},
	}

	symbolsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return symbolsCmd.RunE(cmd, args)
		},
	}, &cobra.Command{
		Use:   "set <name...> <symbol>",
		Short: "Add or replace a symbol",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, v)
			if err != nil {
				return err
			}
			defer a.Close()

			name := strings.Join(args[:len(args)-1], " ")
			symbol := args[len(args)-1]
			if err := a.store.SetSymbol(name, symbol); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s\n", name, symbol)
			return nil
		},
	}, &cobra.Command{
		Use:     "unset <name...>",
		Aliases: []string{"remove"},
		Short:   "Remove a symbol",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, v)
			if err != nil {
				return err
			}
			defer a.Close()

			name := strings.Join(args, " ")
			if err := a.store.UnsetSymbol(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Symbol %s removed.\n", name)
			return nil
		},
	})
	return symbolsCmd
}

func newMacrosCmd(configPath *string, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "macros [name...]",
		Short: "List macros, or show one",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, v)
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.store.Current()
			if len(args) == 0 {
				return ui.PrintMacros(cmd.OutOrStdout(), snap)
			}
			m, err := snap.MacroByName(strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (continue on error: %t, delay: %dms)\n", m.Name, m.ContinueOnError, m.InterStepDelayMs)
			for i, step := range m.Steps {
				fmt.Fprintf(out, "  %d. %s\n", i+1, step.Describe())
			}
			return nil
		},
	}
}

func newHistoryCmd(configPath *string, v *viper.Viper) *cobra.Command {
	var limit int
	var prune time.Duration

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently handled commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, v)
			if err != nil {
				return err
			}
			defer a.Close()

			if prune > 0 {
				n, err := a.history.Prune(time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d entries older than %s\n", n, prune)
				return nil
			}

			if limit <= 0 {
				limit = a.cfg.HistoryLimit
			}
			entries, err := a.history.Recent(limit)
			if err != nil {
				return err
			}
			return ui.PrintHistory(cmd.OutOrStdout(), entries)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of entries to show (default from config)")
	historyCmd.Flags().DurationVar(&prune, "prune", 0, "Delete entries older than this instead of listing")
	return historyCmd
}

// newResetCmd deletes and recreates the database after confirmation
func newResetCmd(configPath *string, v *viper.Viper) *cobra.Command {
	var yes bool

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete history, runtime symbols and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Resetting DeskPilot database...")
			fmt.Fprintf(out, "Database: %s\n", cfg.DBPath)

			if _, err := os.Stat(cfg.DBPath); err == nil {
				if !yes {
					fmt.Fprint(out, "\n⚠️  This will delete your history, symbols and settings. Continue? [y/N]: ")
					response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					response = strings.ToLower(strings.TrimSpace(response))
					if response != "y" && response != "yes" {
						fmt.Fprintln(out, "Reset cancelled.")
						return nil
					}
				}
				if err := os.Remove(cfg.DBPath); err != nil {
					return fmt.Errorf("failed to delete database: %w", err)
				}
				fmt.Fprintln(out, "✓ Database deleted")
			} else {
				fmt.Fprintln(out, "Database doesn't exist, creating new one...")
			}

			database, err := db.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to create database: %w", err)
			}
			defer database.Close()

			fmt.Fprintln(out, "✓ Database recreated")
			return nil
		},
	}
	resetCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return resetCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "DeskPilot v%s\n", version)
			fmt.Fprintln(cmd.OutOrStdout(), "Plain-language desktop commands for Linux")
		},
	}
}
