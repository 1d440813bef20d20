package effectors

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/themobileprof/deskpilot/pkg/models"
)

// Recorder stands in for Desktop in dry-run mode: every call is logged,
// remembered and succeeds
type Recorder struct {
	mu     sync.Mutex
	calls  []string
	logger *zap.Logger
	host   models.HostContext
}

// NewRecorder creates a Recorder. host is what Foreground reports.
func NewRecorder(host models.HostContext, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger, host: host}
}

func (r *Recorder) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	r.logger.Info("dry run", zap.String("call", call))
	return nil
}

// Calls returns the recorded calls in order
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Recorder) Maximize(_ context.Context, target string) error {
	return r.record("maximize %s", target)
}

func (r *Recorder) Restore(_ context.Context, target string) error {
	return r.record("restore %s", target)
}

func (r *Recorder) Place(_ context.Context, target, position string, widthPct, heightPct int) error {
	return r.record("place %s %s %d%%x%d%%", target, position, widthPct, heightPct)
}

func (r *Recorder) MoveToMonitor(_ context.Context, target, monitor string) error {
	return r.record("move %s to %s monitor", target, monitor)
}

func (r *Recorder) SendChord(_ context.Context, chord string) error {
	return r.record("press %s", chord)
}

func (r *Recorder) TypeText(_ context.Context, text string) error {
	return r.record("type %q", text)
}

func (r *Recorder) Launch(_ context.Context, exeOrURI string) error {
	return r.record("launch %s", exeOrURI)
}

func (r *Recorder) ShellOpen(_ context.Context, target string) error {
	return r.record("xdg-open %s", target)
}

func (r *Recorder) OpenFolder(_ context.Context, knownFolder string) error {
	return r.record("open folder %s", knownFolder)
}

func (r *Recorder) OpenURL(_ context.Context, url string) error {
	return r.record("open url %s", url)
}

func (r *Recorder) ExecuteHostCommand(_ context.Context, host models.HostContext, canonicalName, args string) error {
	return r.record("host command %s %s in %s", canonicalName, args, processName(host.Process))
}

func (r *Recorder) RestoreWindow(_ context.Context, title string) error {
	return r.record("restore window %q", title)
}

func (r *Recorder) SetForeground(_ context.Context, title string) error {
	return r.record("activate window %q", title)
}

func (r *Recorder) ClickWindow(_ context.Context, title string) error {
	return r.record("click window %q", title)
}

func (r *Recorder) TypeSymbol(_ context.Context, symbol string) error {
	return r.record("insert symbol %s", symbol)
}

func (r *Recorder) Foreground(_ context.Context) (models.HostContext, error) {
	return r.host, nil
}
