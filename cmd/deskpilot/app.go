package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/themobileprof/deskpilot/internal/ai"
	"github.com/themobileprof/deskpilot/internal/catalog"
	"github.com/themobileprof/deskpilot/internal/config"
	"github.com/themobileprof/deskpilot/internal/db"
	"github.com/themobileprof/deskpilot/internal/effectors"
	"github.com/themobileprof/deskpilot/internal/engine"
	"github.com/themobileprof/deskpilot/internal/intent"
	"github.com/themobileprof/deskpilot/internal/journey"
	"github.com/themobileprof/deskpilot/internal/logging"
	"github.com/themobileprof/deskpilot/internal/pilot"
	"github.com/themobileprof/deskpilot/internal/ui"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// app is the wired process: config, logger, database, catalog and the
// pipeline on top of them
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *db.DB
	store   *catalog.Store
	history *db.History
	pilot   *pilot.Pilot
}

func newApp(ctx context.Context, configPath string, v *viper.Viper) (*app, error) {
	cfg, err := loadConfig(configPath, v)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      database,
		history: db.NewHistory(database),
	}
	a.store = catalog.NewStore(catalog.Options{Dir: cfg.CatalogDir}, db.NewSymbolRepo(database), logger.Named("catalog"))

	desktop := effectors.NewDesktop(logger.Named("effectors"))
	fx := engine.Effectors{
		Placer:   desktop,
		Keys:     desktop,
		Launcher: desktop,
		Folders:  desktop,
		URLs:     desktop,
		Host:     desktop,
		Focuser:  desktop,
		Symbols:  desktop,
	}
	if cfg.DryRun {
		rec := effectors.NewRecorder(models.HostContext{}, logger.Named("dry-run"))
		fx = engine.Effectors{
			Placer:   rec,
			Keys:     rec,
			Launcher: rec,
			Folders:  rec,
			URLs:     rec,
			Host:     rec,
			Focuser:  rec,
			Symbols:  rec,
		}
	} else if missing := effectors.MissingTools(); len(missing) > 0 {
		logger.Warn("desktop tools not found, some commands will fail", zap.Strings("tools", missing))
	}

	dispatcher := engine.NewDispatcher(fx,
		engine.WithLogger(logger.Named("dispatcher")),
		engine.WithHelpText(func() string { return helpText(a.store.Current()) }))

	adapter, err := newAdapter(ctx, cfg.AI, a.store, logger.Named("ai"))
	if err != nil {
		a.Close()
		return nil, err
	}

	var journeys *journey.Logger
	if cfg.Journey {
		journeys = journey.NewLogger(journey.DefaultPath())
	}

	// the foreground probe only reads, so dry runs keep context scoping
	a.pilot, err = pilot.New(pilot.Deps{
		Store:      a.store,
		Resolver:   intent.NewResolver(intent.WithHelpOverlay(cfg.HelpOverlay), intent.WithLogger(logger.Named("intent"))),
		AI:         adapter,
		Dispatcher: dispatcher,
		Probe:      desktop,
		History:    a.history,
		Journeys:   journeys,
		Logger:     logger.Named("pilot"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newAdapter returns nil when the fallback is disabled
func newAdapter(ctx context.Context, cfg config.AIConfig, store *catalog.Store, logger *zap.Logger) (*ai.Adapter, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var oracle ai.Oracle
	switch cfg.Provider {
	case config.ProviderHTTP:
		o, err := ai.NewHTTPOracle(ai.HTTPConfig{
			Endpoint:     cfg.Endpoint,
			Model:        cfg.Model,
			APIKey:       cfg.APIKey,
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Timeout:      cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		oracle = o
	default:
		o, err := ai.NewGeminiOracle(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		oracle = o
	}

	logger.Debug("ai fallback enabled", zap.String("provider", cfg.Provider), zap.Duration("timeout", cfg.Timeout))
	adapter := ai.NewAdapter(oracle, ai.NewCatalogNameResolver(store), cfg.Timeout, logger)
	adapter.SetRateLimit(cfg.MaxCallsPerMinute, time.Minute)
	return adapter, nil
}

// runREPL starts the interactive loop, hot-reloading the catalog when
// configured to
func (a *app) runREPL(ctx context.Context, in io.Reader, out io.Writer) error {
	if a.cfg.WatchCatalog {
		w, err := catalog.NewWatcher(a.store, a.logger.Named("watcher"))
		if err != nil {
			a.logger.Debug("catalog watcher not started", zap.Error(err))
		} else {
			w.OnReload = func(*catalog.Snapshot) {
				if err := a.db.SetSetting("catalog_reloaded_at", time.Now().Format(time.RFC3339)); err != nil {
					a.logger.Debug("failed to record reload time", zap.Error(err))
				}
			}
			if err := w.Start(ctx); err != nil {
				a.logger.Warn("failed to watch catalog", zap.Error(err))
			} else {
				defer w.Stop()
			}
		}
	}

	repl := ui.NewREPL(a.pilot, a.store, a.history, in, out)
	repl.SetVersion(version)
	repl.SetHistoryLimit(a.cfg.HistoryLimit)
	return repl.Start(ctx)
}

// Close releases the database and flushes the logger
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func helpText(snap *catalog.Snapshot) string {
	var b strings.Builder
	b.WriteString("Try: \"maximize window\", \"move this to the next monitor\", \"open downloads\", ")
	b.WriteString("\"close tab\", \"launch calculator\", \"insert heart\"")
	if names := snap.MacroNames(); len(names) > 0 {
		fmt.Fprintf(&b, ". Macros: %s", strings.Join(names, ", "))
	}
	return b.String()
}
