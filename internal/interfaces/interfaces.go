package interfaces

import (
	"context"

	"github.com/themobileprof/deskpilot/pkg/models"
)

// WindowPlacer moves and sizes windows. target is an opaque handle;
// models.TargetActive means the foreground window.
type WindowPlacer interface {
	// Maximize fills the target's current monitor
	Maximize(ctx context.Context, target string) error
	// Restore undoes maximize/minimize
	Restore(ctx context.Context, target string) error
	// Place snaps the target to a position (center, left, right, top,
	// bottom) at the given percentage of the monitor. Zero keeps the
	// current size along that axis.
	Place(ctx context.Context, target, position string, widthPct, heightPct int) error
	// MoveToMonitor moves the target to the next or primary monitor
	MoveToMonitor(ctx context.Context, target, monitor string) error
}

// KeyInjector sends input to the OS input queue
type KeyInjector interface {
	// SendChord presses one or more space-separated chords ("ctrl+shift+t")
	SendChord(ctx context.Context, chord string) error
	// TypeText types text verbatim at the current focus
	TypeText(ctx context.Context, text string) error
}

// ProcessLauncher starts programs and URIs
type ProcessLauncher interface {
	// Launch starts an executable, desktop entry or URI
	Launch(ctx context.Context, exeOrURI string) error
	// ShellOpen hands the target to the desktop's default handler
	ShellOpen(ctx context.Context, target string) error
}

// FolderOpener opens a known folder (Downloads, Documents, ...)
type FolderOpener interface {
	OpenFolder(ctx context.Context, knownFolder string) error
}

// URLOpener opens a URL in the default browser
type URLOpener interface {
	OpenURL(ctx context.Context, url string) error
}

// HostCommandExecutor runs a canonical command inside a running host
// application through its automation interface
type HostCommandExecutor interface {
	ExecuteHostCommand(ctx context.Context, host models.HostContext, canonicalName, args string) error
}

// WindowFocuser exposes the focus mechanisms in escalating order
type WindowFocuser interface {
	// RestoreWindow un-minimizes and raises a window whose title contains title
	RestoreWindow(ctx context.Context, title string) error
	// SetForeground asks the window manager to activate the window
	SetForeground(ctx context.Context, title string) error
	// ClickWindow simulates a click on the window
	ClickWindow(ctx context.Context, title string) error
}

// SymbolTyper inserts a symbol at the current input focus
type SymbolTyper interface {
	TypeSymbol(ctx context.Context, symbol string) error
}

// NameResolver maps a free-text application or game name to a
// canonical launch target
type NameResolver interface {
	ResolveName(name string) (target string, ok bool)
}

// ContextProbe reads the foreground application once per utterance
type ContextProbe interface {
	Foreground(ctx context.Context) (models.HostContext, error)
}

// Dispatcher executes resolved actions
type Dispatcher interface {
	Execute(ctx context.Context, action models.ActionRequest) models.ExecutionResult
}

// HistoryStore records handled utterances
type HistoryStore interface {
	Record(entry models.HistoryEntry) error
	Recent(limit int) ([]models.HistoryEntry, error)
}
