package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/themobileprof/deskpilot/internal/interfaces"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// CallLog records effector calls in order, across mocks
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) add(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded calls
func (l *CallLog) Calls() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// String joins the calls with " | "
func (l *CallLog) String() string {
	return strings.Join(l.Calls(), " | ")
}

// MockWindowPlacer is a mock implementation of WindowPlacer for testing
type MockWindowPlacer struct {
	MaximizeFunc      func(target string) error
	RestoreFunc       func(target string) error
	PlaceFunc         func(target, position string, widthPct, heightPct int) error
	MoveToMonitorFunc func(target, monitor string) error
	Log               *CallLog
}

func (m *MockWindowPlacer) Maximize(_ context.Context, target string) error {
	m.Log.add("maximize %s", target)
	if m.MaximizeFunc != nil {
		return m.MaximizeFunc(target)
	}
	return nil
}

func (m *MockWindowPlacer) Restore(_ context.Context, target string) error {
	m.Log.add("restore %s", target)
	if m.RestoreFunc != nil {
		return m.RestoreFunc(target)
	}
	return nil
}

func (m *MockWindowPlacer) Place(_ context.Context, target, position string, widthPct, heightPct int) error {
	m.Log.add("place %s %s %dx%d", target, position, widthPct, heightPct)
	if m.PlaceFunc != nil {
		return m.PlaceFunc(target, position, widthPct, heightPct)
	}
	return nil
}

func (m *MockWindowPlacer) MoveToMonitor(_ context.Context, target, monitor string) error {
	m.Log.add("monitor %s %s", target, monitor)
	if m.MoveToMonitorFunc != nil {
		return m.MoveToMonitorFunc(target, monitor)
	}
	return nil
}

// Ensure MockWindowPlacer implements WindowPlacer interface
var _ interfaces.WindowPlacer = (*MockWindowPlacer)(nil)

// MockKeyInjector is a mock implementation of KeyInjector for testing
type MockKeyInjector struct {
	SendChordFunc func(chord string) error
	TypeTextFunc  func(text string) error
	Log           *CallLog
}

func (m *MockKeyInjector) SendChord(_ context.Context, chord string) error {
	m.Log.add("chord %s", chord)
	if m.SendChordFunc != nil {
		return m.SendChordFunc(chord)
	}
	return nil
}

func (m *MockKeyInjector) TypeText(_ context.Context, text string) error {
	m.Log.add("type %s", text)
	if m.TypeTextFunc != nil {
		return m.TypeTextFunc(text)
	}
	return nil
}

// Ensure MockKeyInjector implements KeyInjector interface
var _ interfaces.KeyInjector = (*MockKeyInjector)(nil)

// MockProcessLauncher is a mock implementation of ProcessLauncher for testing
type MockProcessLauncher struct {
	LaunchFunc    func(exeOrURI string) error
	ShellOpenFunc func(target string) error
	Log           *CallLog
}

func (m *MockProcessLauncher) Launch(_ context.Context, exeOrURI string) error {
	m.Log.add("launch %s", exeOrURI)
	if m.LaunchFunc != nil {
		return m.LaunchFunc(exeOrURI)
	}
	return nil
}

func (m *MockProcessLauncher) ShellOpen(_ context.Context, target string) error {
	m.Log.add("shell-open %s", target)
	if m.ShellOpenFunc != nil {
		return m.ShellOpenFunc(target)
	}
	return nil
}

// Ensure MockProcessLauncher implements ProcessLauncher interface
var _ interfaces.ProcessLauncher = (*MockProcessLauncher)(nil)

// MockFolderOpener is a mock implementation of FolderOpener for testing
type MockFolderOpener struct {
	OpenFolderFunc func(knownFolder string) error
	Log            *CallLog
}

func (m *MockFolderOpener) OpenFolder(_ context.Context, knownFolder string) error {
	m.Log.add("folder %s", knownFolder)
	if m.OpenFolderFunc != nil {
		return m.OpenFolderFunc(knownFolder)
	}
	return nil
}

// Ensure MockFolderOpener implements FolderOpener interface
var _ interfaces.FolderOpener = (*MockFolderOpener)(nil)

// MockURLOpener is a mock implementation of URLOpener for testing
type MockURLOpener struct {
	OpenURLFunc func(url string) error
	Log         *CallLog
}

func (m *MockURLOpener) OpenURL(_ context.Context, url string) error {
	m.Log.add("url %s", url)
	if m.OpenURLFunc != nil {
		return m.OpenURLFunc(url)
	}
	return nil
}

// Ensure MockURLOpener implements URLOpener interface
var _ interfaces.URLOpener = (*MockURLOpener)(nil)

// MockHostCommandExecutor is a mock implementation of HostCommandExecutor for testing
type MockHostCommandExecutor struct {
	ExecuteHostCommandFunc func(host models.HostContext, canonicalName, args string) error
	Log                    *CallLog
}

func (m *MockHostCommandExecutor) ExecuteHostCommand(_ context.Context, host models.HostContext, canonicalName, args string) error {
	m.Log.add("host %s %s", host.Process, canonicalName)
	if m.ExecuteHostCommandFunc != nil {
		return m.ExecuteHostCommandFunc(host, canonicalName, args)
	}
	return nil
}

// Ensure MockHostCommandExecutor implements HostCommandExecutor interface
var _ interfaces.HostCommandExecutor = (*MockHostCommandExecutor)(nil)

// MockWindowFocuser is a mock implementation of WindowFocuser for testing
type MockWindowFocuser struct {
	RestoreWindowFunc func(title string) error
	SetForegroundFunc func(title string) error
	ClickWindowFunc   func(title string) error
	Log               *CallLog
}

func (m *MockWindowFocuser) RestoreWindow(_ context.Context, title string) error {
	m.Log.add("restore-window %s", title)
	if m.RestoreWindowFunc != nil {
		return m.RestoreWindowFunc(title)
	}
	return nil
}

func (m *MockWindowFocuser) SetForeground(_ context.Context, title string) error {
	m.Log.add("foreground %s", title)
	if m.SetForegroundFunc != nil {
		return m.SetForegroundFunc(title)
	}
	return nil
}

func (m *MockWindowFocuser) ClickWindow(_ context.Context, title string) error {
	m.Log.add("click %s", title)
	if m.ClickWindowFunc != nil {
		return m.ClickWindowFunc(title)
	}
	return nil
}

// Ensure MockWindowFocuser implements WindowFocuser interface
var _ interfaces.WindowFocuser = (*MockWindowFocuser)(nil)

// MockSymbolTyper is a mock implementation of SymbolTyper for testing
type MockSymbolTyper struct {
	TypeSymbolFunc func(symbol string) error
	Log            *CallLog
}

func (m *MockSymbolTyper) TypeSymbol(_ context.Context, symbol string) error {
	m.Log.add("symbol %s", symbol)
	if m.TypeSymbolFunc != nil {
		return m.TypeSymbolFunc(symbol)
	}
	return nil
}

// Ensure MockSymbolTyper implements SymbolTyper interface
var _ interfaces.SymbolTyper = (*MockSymbolTyper)(nil)

// MockContextProbe is a mock implementation of ContextProbe for testing
type MockContextProbe struct {
	ForegroundFunc func() (models.HostContext, error)
	Host           models.HostContext
	calls          int
	mu             sync.Mutex
}

func (m *MockContextProbe) Foreground(_ context.Context) (models.HostContext, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.ForegroundFunc != nil {
		return m.ForegroundFunc()
	}
	return m.Host, nil
}

// Calls returns how many times Foreground was called
func (m *MockContextProbe) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Ensure MockContextProbe implements ContextProbe interface
var _ interfaces.ContextProbe = (*MockContextProbe)(nil)

// MockNameResolver is a mock implementation of NameResolver for testing
type MockNameResolver struct {
	Names map[string]string
}

func (m *MockNameResolver) ResolveName(name string) (string, bool) {
	t, ok := m.Names[name]
	return t, ok
}

// Ensure MockNameResolver implements NameResolver interface
var _ interfaces.NameResolver = (*MockNameResolver)(nil)

// MockHistoryStore is an in-memory HistoryStore
type MockHistoryStore struct {
	RecordFunc func(entry models.HistoryEntry) error
	mu         sync.Mutex
	entries    []models.HistoryEntry
}

func (m *MockHistoryStore) Record(entry models.HistoryEntry) error {
	if m.RecordFunc != nil {
		if err := m.RecordFunc(entry); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

// Recent returns the newest entries first
func (m *MockHistoryStore) Recent(limit int) ([]models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.HistoryEntry
	for i := len(m.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Ensure MockHistoryStore implements HistoryStore interface
var _ interfaces.HistoryStore = (*MockHistoryStore)(nil)

// MockOracle is a scripted AI oracle
type MockOracle struct {
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
	Response     string
	mu           sync.Mutex
	prompts      []string
}

func (m *MockOracle) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return m.Response, nil
}

// Prompts returns every prompt the oracle received
func (m *MockOracle) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Desktop bundles one mock per effector, all sharing a CallLog
type Desktop struct {
	Log      *CallLog
	Placer   *MockWindowPlacer
	Keys     *MockKeyInjector
	Launcher *MockProcessLauncher
	Folders  *MockFolderOpener
	URLs     *MockURLOpener
	Host     *MockHostCommandExecutor
	Focuser  *MockWindowFocuser
	Symbols  *MockSymbolTyper
}

// NewDesktop creates a Desktop whose mocks all succeed
func NewDesktop() *Desktop {
	log := &CallLog{}
	return &Desktop{
		Log:      log,
		Placer:   &MockWindowPlacer{Log: log},
		Keys:     &MockKeyInjector{Log: log},
		Launcher: &MockProcessLauncher{Log: log},
		Folders:  &MockFolderOpener{Log: log},
		URLs:     &MockURLOpener{Log: log},
		Host:     &MockHostCommandExecutor{Log: log},
		Focuser:  &MockWindowFocuser{Log: log},
		Symbols:  &MockSymbolTyper{Log: log},
	}
}
