package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/themobileprof/deskpilot/internal/interfaces"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// Effectors are the capabilities the dispatcher drives. Any field may be
// nil; actions needing a missing capability fail with a result, not a panic.
type Effectors struct {
	Placer   interfaces.WindowPlacer
	Keys     interfaces.KeyInjector
	Launcher interfaces.ProcessLauncher
	Folders  interfaces.FolderOpener
	URLs     interfaces.URLOpener
	Host     interfaces.HostCommandExecutor
	Focuser  interfaces.WindowFocuser
	Symbols  interfaces.SymbolTyper
}

// Dispatcher executes resolved actions against the effectors
type Dispatcher struct {
	fx       Effectors
	logger   *zap.Logger
	helpText func() string
}

// Ensure Dispatcher implements Dispatcher interface
var _ interfaces.Dispatcher = (*Dispatcher)(nil)

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger used for ladder rungs and bundle steps
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithHelpText sets the text returned for ShowHelp
func WithHelpText(fn func() string) Option {
	return func(d *Dispatcher) { d.helpText = fn }
}

// NewDispatcher creates a dispatcher over fx
func NewDispatcher(fx Effectors, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		fx:       fx,
		logger:   zap.NewNop(),
		helpText: func() string { return "Say things like \"maximize window\", \"open downloads\" or \"close tab\"." },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs one action. It never panics and never returns an error;
// failures are reported through ExecutionResult.OK.
func (d *Dispatcher) Execute(ctx context.Context, action models.ActionRequest) (res models.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("effector panicked",
				zap.Any("panic", r),
				zap.String("action", describe(action)),
				zap.ByteString("stack", debug.Stack()))
			res = failed("Failed to %s: internal error", describe(action))
		}
	}()

	if action == nil {
		return failed("No action to execute")
	}
	if err := ctx.Err(); err != nil {
		return failed("Canceled before %s", action.Describe())
	}

	switch a := action.(type) {
	case models.MoveWindow:
		return d.moveWindow(ctx, a)
	case models.FocusWindow:
		return d.focusWindow(ctx, a)
	case models.LaunchApp:
		return d.launch(ctx, a)
	case models.SendKeys:
		return d.sendKeys(ctx, a)
	case models.OpenFolder:
		if d.fx.Folders == nil {
			return missing("folder opening")
		}
		if err := d.fx.Folders.OpenFolder(ctx, a.KnownFolder); err != nil {
			return failed("Failed to open %s: %v", a.KnownFolder, err)
		}
		return done("Opened %s", a.KnownFolder)
	case models.OpenWebsite:
		if d.fx.URLs == nil {
			return missing("URL opening")
		}
		if err := d.fx.URLs.OpenURL(ctx, a.URL); err != nil {
			return failed("Failed to open %s: %v", a.URL, err)
		}
		return done("Opened %s", a.URL)
	case models.CloseTab:
		if d.fx.Keys == nil {
			return missing("key injection")
		}
		if err := d.fx.Keys.SendChord(ctx, "ctrl+w"); err != nil {
			return failed("Failed to close tab: %v", err)
		}
		return done("Closed tab")
	case models.ExecuteHostCommand:
		return d.hostCommand(ctx, a)
	case models.SymbolInsert:
		if d.fx.Symbols == nil {
			return missing("symbol insertion")
		}
		if err := d.fx.Symbols.TypeSymbol(ctx, a.Symbol); err != nil {
			return failed("Failed to insert %s: %v", a.Symbol, err)
		}
		return done("Inserted %s", a.Symbol)
	case models.RunBundle:
		return BundleResult(d.RunBundle(ctx, a))
	case models.ShowHelp:
		return done("%s", d.helpText())
	case models.Noop:
		if a.Reason == "" {
			return done("Nothing to do")
		}
		return done("Nothing to do: %s", a.Reason)
	default:
		return failed("Unsupported action %s", action.Kind())
	}
}

func (d *Dispatcher) moveWindow(ctx context.Context, a models.MoveWindow) models.ExecutionResult {
	if d.fx.Placer == nil {
		return missing("window placement")
	}
	target := a.Target
	if target == "" {
		target = models.TargetActive
	}
	width, height := 0, 0
	if a.WidthPct != nil {
		width = *a.WidthPct
	}
	if a.HeightPct != nil {
		height = *a.HeightPct
	}

	if a.Monitor != "" && a.Monitor != models.MonitorCurrent {
		if err := d.fx.Placer.MoveToMonitor(ctx, target, a.Monitor); err != nil {
			return failed("Failed to move window to %s monitor: %v", a.Monitor, err)
		}
		if a.Position == "" {
			return done("Moved window to %s monitor", a.Monitor)
		}
	}

	switch {
	case a.Position == models.PositionRestore:
		if err := d.fx.Placer.Restore(ctx, target); err != nil {
			return failed("Failed to restore window: %v", err)
		}
		return done("Restored window")
	case a.Position == models.PositionCenter && width == 100 && height == 100:
		if err := d.fx.Placer.Maximize(ctx, target); err != nil {
			return failed("Failed to maximize window: %v", err)
		}
		return done("Maximized window")
	default:
		if err := d.fx.Placer.Place(ctx, target, a.Position, width, height); err != nil {
			return failed("Failed to %s: %v", a.Describe(), err)
		}
		return done("Moved window to %s", a.Position)
	}
}

func (d *Dispatcher) sendKeys(ctx context.Context, a models.SendKeys) models.ExecutionResult {
	if d.fx.Keys == nil {
		return missing("key injection")
	}
	if a.Literal {
		if err := d.fx.Keys.TypeText(ctx, a.Keys); err != nil {
			return failed("Failed to type text: %v", err)
		}
		return done("Typed %q", a.Keys)
	}
	if err := d.fx.Keys.SendChord(ctx, a.Keys); err != nil {
		return failed("Failed to press %s: %v", a.Keys, err)
	}
	return done("Pressed %s", a.Keys)
}

func (d *Dispatcher) launch(ctx context.Context, a models.LaunchApp) models.ExecutionResult {
	if d.fx.Launcher == nil {
		return missing("process launching")
	}
	used, err := d.climb(ctx, "launch", a.ExeOrURI, []rung{
		{"launch", func() error { return d.fx.Launcher.Launch(ctx, a.ExeOrURI) }},
		{"shell-open", func() error { return d.fx.Launcher.ShellOpen(ctx, a.ExeOrURI) }},
	})
	if err != nil {
		return failed("Failed to launch %s: %v", a.ExeOrURI, err)
	}
	if used == "shell-open" {
		return done("Opened %s", a.ExeOrURI)
	}
	return done("Launched %s", a.ExeOrURI)
}

func (d *Dispatcher) focusWindow(ctx context.Context, a models.FocusWindow) models.ExecutionResult {
	title := a.TitleSubstring
	var rungs []rung
	if f := d.fx.Focuser; f != nil {
		rungs = append(rungs,
			rung{"restore", func() error { return f.RestoreWindow(ctx, title) }},
			rung{"set-foreground", func() error { return f.SetForeground(ctx, title) }},
			rung{"click", func() error { return f.ClickWindow(ctx, title) }},
		)
	}
	if k := d.fx.Keys; k != nil {
		rungs = append(rungs, rung{"alt-tab", func() error { return k.SendChord(ctx, "alt+tab") }})
	}
	if len(rungs) == 0 {
		return missing("window focus")
	}

	used, err := d.climb(ctx, "focus", title, rungs)
	if err != nil {
		return failed("Failed to focus %q: %v", title, err)
	}
	if used == "alt-tab" {
		return done("Could not focus %q directly; switched windows with alt+tab", title)
	}
	return done("Focused %q", title)
}

func (d *Dispatcher) hostCommand(ctx context.Context, a models.ExecuteHostCommand) models.ExecutionResult {
	host := HostContextFrom(ctx)
	chord, hasChord := ChordFor(ctx, a.CanonicalName)

	var rungs []rung
	if x := d.fx.Host; x != nil {
		rungs = append(rungs, rung{"automation", func() error {
			return x.ExecuteHostCommand(ctx, host, a.CanonicalName, a.Args)
		}})
	}
	if k := d.fx.Keys; k != nil && hasChord {
		rungs = append(rungs, rung{"chord", func() error { return k.SendChord(ctx, chord) }})
		if f := d.fx.Focuser; f != nil && host.WindowTitle != "" {
			rungs = append(rungs, rung{"focus-and-chord", func() error {
				if err := f.SetForeground(ctx, host.WindowTitle); err != nil {
					return err
				}
				return k.SendChord(ctx, chord)
			}})
		}
	}
	if len(rungs) == 0 {
		if !hasChord && d.fx.Keys != nil {
			return failed("Failed to run %s: no automation and no key chord for it", a.CanonicalName)
		}
		return missing("host commands")
	}

	used, err := d.climb(ctx, "host-command", a.CanonicalName, rungs)
	if err != nil {
		return failed("Failed to run %s: %v", a.CanonicalName, err)
	}
	if used == "automation" {
		return done("Ran %s", a.CanonicalName)
	}
	return done("Ran %s with %s", a.CanonicalName, chord)
}

type rung struct {
	name string
	fn   func() error
}

// climb tries each rung in order and returns the name of the first that
// succeeds. Every attempt is logged.
func (d *Dispatcher) climb(ctx context.Context, ladder, subject string, rungs []rung) (string, error) {
	var errs []error
	for _, r := range rungs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := r.fn()
		if err == nil {
			d.logger.Debug("ladder rung succeeded",
				zap.String("ladder", ladder), zap.String("rung", r.name), zap.String("subject", subject))
			return r.name, nil
		}
		d.logger.Info("ladder rung failed",
			zap.String("ladder", ladder), zap.String("rung", r.name), zap.String("subject", subject), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
	}
	return "", errors.Join(errs...)
}

func describe(a models.ActionRequest) string {
	if a == nil {
		return "nothing"
	}
	return a.Describe()
}

func done(format string, args ...any) models.ExecutionResult {
	return models.ExecutionResult{Text: fmt.Sprintf(format, args...), OK: true}
}

func failed(format string, args ...any) models.ExecutionResult {
	// errors.Join separates with newlines; results are single-line
	text := strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", "; ")
	return models.ExecutionResult{Text: text}
}

func missing(capability string) models.ExecutionResult {
	return models.ExecutionResult{Text: "No effector for " + capability}
}
