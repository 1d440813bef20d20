// Package effectors drives an X11 Linux desktop through xdotool, wmctrl,
// xrandr and xdg-open.
package effectors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/themobileprof/deskpilot/internal/interfaces"
	"github.com/themobileprof/deskpilot/internal/utils/safeexec"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// ErrNoAutomation is returned by ExecuteHostCommand: X11 applications do
// not share an automation interface, so host commands go through the
// dispatcher's key chord fallback.
var ErrNoAutomation = errors.New("host automation not available")

// ErrShellTarget is returned by Launch for URIs
var ErrShellTarget = errors.New("not an executable, open it with the shell handler")

// Runner runs an external command and returns its trimmed stdout
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
	Start(name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := safeexec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Start launches a detached process that outlives the utterance
func (execRunner) Start(name string, args ...string) error {
	cmd := safeexec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Desktop implements every effector capability and the context probe
type Desktop struct {
	run      Runner
	logger   *zap.Logger
	home     string
	procRoot string
	timeout  time.Duration
}

// Ensure Desktop implements the effector interfaces
var (
	_ interfaces.WindowPlacer        = (*Desktop)(nil)
	_ interfaces.KeyInjector         = (*Desktop)(nil)
	_ interfaces.ProcessLauncher     = (*Desktop)(nil)
	_ interfaces.FolderOpener        = (*Desktop)(nil)
	_ interfaces.URLOpener           = (*Desktop)(nil)
	_ interfaces.HostCommandExecutor = (*Desktop)(nil)
	_ interfaces.WindowFocuser       = (*Desktop)(nil)
	_ interfaces.SymbolTyper         = (*Desktop)(nil)
	_ interfaces.ContextProbe        = (*Desktop)(nil)
)

// NewDesktop creates a Desktop that shells out to the real tools
func NewDesktop(logger *zap.Logger) *Desktop {
	return NewDesktopWithRunner(execRunner{}, logger)
}

// NewDesktopWithRunner creates a Desktop over a custom Runner
func NewDesktopWithRunner(run Runner, logger *zap.Logger) *Desktop {
	if logger == nil {
		logger = zap.NewNop()
	}
	home, _ := os.UserHomeDir()
	return &Desktop{run: run, logger: logger, home: home, procRoot: "/proc", timeout: 5 * time.Second}
}

// MissingTools lists the required helper programs that are not installed
func MissingTools() []string {
	var missing []string
	for _, tool := range []string{"xdotool", "wmctrl", "xdg-open"} {
		if !safeexec.Available(tool) {
			missing = append(missing, tool)
		}
	}
	return missing
}

func (d *Desktop) exec(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	d.logger.Debug("exec", zap.String("cmd", name), zap.Strings("args", args))
	return d.run.Run(ctx, name, args...)
}

// ExecuteHostCommand always fails with ErrNoAutomation
func (d *Desktop) ExecuteHostCommand(_ context.Context, host models.HostContext, canonicalName, _ string) error {
	return fmt.Errorf("%s in %s: %w", canonicalName, processName(host.Process), ErrNoAutomation)
}

func processName(p string) string {
	if p == "" {
		return "unknown application"
	}
	return p
}
