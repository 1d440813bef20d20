package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/themobileprof/deskpilot/internal/config"
)

// errCommandFailed makes the process exit non-zero after a failed result
// has been shown
var errCommandFailed = errors.New("command failed")

// newRootCmd builds the command tree. Each call gets its own viper
// instance so tests do not share state.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "deskpilot [mode] <text...>",
		Short: "Plain-language desktop commands",
		Long: `DeskPilot turns short plain-language commands into desktop actions:
window placement, key presses, launching apps, opening folders and websites,
IDE commands and multi-step macros.

  deskpilot natural maximize window
  deskpilot open downloads
  deskpilot                       (interactive mode)

The mode "natural" passes the rest of the line through unchanged; any other
first word is treated as part of the command.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath, v)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				return a.runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			}

			out := a.pilot.Handle(cmd.Context(), args[0], strings.Join(args[1:], " "))
			fmt.Fprintln(cmd.OutOrStdout(), out.Result.Text)
			if !out.Result.OK {
				return errCommandFailed
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.GetConfigPath(), "Path to configuration file")
	flags.String("db", "", "Path to SQLite database (or set DESKPILOT_DB_PATH)")
	flags.String("catalog", "", "Catalog directory (or set DESKPILOT_CATALOG_DIR)")
	flags.Bool("dry-run", false, "Log desktop actions instead of performing them")
	flags.Bool("journey", false, "Append resolution journeys to ~/.deskpilot/journey.jsonl")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-file", "", "Also write JSON logs to this file, rotated")
	flags.Bool("ai", false, "Ask the AI oracle when no catalog entry matches")
	flags.String("ai-provider", "", "AI provider: gemini or http")
	flags.String("ai-model", "", "AI model name")
	flags.Duration("ai-timeout", 0, "Timeout for one AI call")

	bindFlags(v, rootCmd)

	rootCmd.AddCommand(
		newResolveCmd(&configPath, v),
		newREPLCmd(&configPath, v),
		newSymbolsCmd(&configPath, v),
		newMacrosCmd(&configPath, v),
		newHistoryCmd(&configPath, v),
		newResetCmd(&configPath, v),
		newVersionCmd(),
	)
	return rootCmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	_ = v.BindPFlag("db_path", flags.Lookup("db"))
	_ = v.BindPFlag("catalog_dir", flags.Lookup("catalog"))
	_ = v.BindPFlag("dry_run", flags.Lookup("dry-run"))
	_ = v.BindPFlag("journey", flags.Lookup("journey"))
	_ = v.BindPFlag("debug", flags.Lookup("debug"))
	_ = v.BindPFlag("logging.file", flags.Lookup("log-file"))
	_ = v.BindPFlag("ai.enabled", flags.Lookup("ai"))
	_ = v.BindPFlag("ai.provider", flags.Lookup("ai-provider"))
	_ = v.BindPFlag("ai.model", flags.Lookup("ai-model"))
	_ = v.BindPFlag("ai.timeout", flags.Lookup("ai-timeout"))

	v.SetEnvPrefix("DESKPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"help_overlay", "watch_catalog", "history_limit",
		"ai.endpoint", "ai.token_url", "ai.max_calls_per_minute", "ai.client_id", "ai.client_secret",
		"logging.level", "logging.json",
	} {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("ai.api_key", "DESKPILOT_AI_API_KEY", "GEMINI_API_KEY")
}

// loadConfig reads the config file and applies flag and environment
// overrides on top of it
func loadConfig(path string, v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyOverrides(cfg, v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	setBool := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	setString("db_path", &cfg.DBPath)
	setString("catalog_dir", &cfg.CatalogDir)
	setBool("dry_run", &cfg.DryRun)
	setBool("journey", &cfg.Journey)
	setBool("help_overlay", &cfg.HelpOverlay)
	setBool("watch_catalog", &cfg.WatchCatalog)
	if v.IsSet("history_limit") && v.GetInt("history_limit") > 0 {
		cfg.HistoryLimit = v.GetInt("history_limit")
	}

	setBool("ai.enabled", &cfg.AI.Enabled)
	setString("ai.provider", &cfg.AI.Provider)
	setString("ai.model", &cfg.AI.Model)
	setString("ai.api_key", &cfg.AI.APIKey)
	setString("ai.endpoint", &cfg.AI.Endpoint)
	setString("ai.token_url", &cfg.AI.TokenURL)
	setString("ai.client_id", &cfg.AI.ClientID)
	setString("ai.client_secret", &cfg.AI.ClientSecret)
	if v.IsSet("ai.timeout") && v.GetDuration("ai.timeout") > 0 {
		cfg.AI.Timeout = v.GetDuration("ai.timeout")
	}
	if v.IsSet("ai.max_calls_per_minute") {
		cfg.AI.MaxCallsPerMinute = v.GetInt("ai.max_calls_per_minute")
	}

	setString("logging.level", &cfg.Logging.Level)
	setString("logging.file", &cfg.Logging.File)
	setBool("logging.json", &cfg.Logging.JSON)
	if v.GetBool("debug") {
		cfg.Logging.Level = "debug"
	}
}
