package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/themobileprof/deskpilot/internal/mocks"
	"github.com/themobileprof/deskpilot/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func effectorsFor(d *mocks.Desktop) Effectors {
	return Effectors{
		Placer:   d.Placer,
		Keys:     d.Keys,
		Launcher: d.Launcher,
		Folders:  d.Folders,
		URLs:     d.URLs,
		Host:     d.Host,
		Focuser:  d.Focuser,
		Symbols:  d.Symbols,
	}
}

func TestExecute_OneEffectorPerVariant(t *testing.T) {
	tests := []struct {
		name   string
		action models.ActionRequest
		calls  []string
		text   string
	}{
		{
			name:   "maximize",
			action: models.MoveWindow{Target: models.TargetActive, Position: models.PositionCenter, WidthPct: models.Pct(100), HeightPct: models.Pct(100)},
			calls:  []string{"maximize active"},
			text:   "Maximized window",
		},
		{
			name:   "snap left",
			action: models.MoveWindow{Target: models.TargetActive, Position: models.PositionLeft, WidthPct: models.Pct(50), HeightPct: models.Pct(100)},
			calls:  []string{"place active left 50x100"},
			text:   "Moved window to left",
		},
		{
			name:   "restore",
			action: models.MoveWindow{Target: models.TargetActive, Position: models.PositionRestore},
			calls:  []string{"restore active"},
			text:   "Restored window",
		},
		{
			name:   "next monitor",
			action: models.MoveWindow{Target: models.TargetActive, Monitor: models.MonitorNext},
			calls:  []string{"monitor active next"},
			text:   "Moved window to next monitor",
		},
		{
			name:   "next monitor and center",
			action: models.MoveWindow{Target: models.TargetActive, Monitor: models.MonitorNext, Position: models.PositionCenter},
			calls:  []string{"monitor active next", "place active center 0x0"},
			text:   "Moved window to center",
		},
		{
			name:   "focus",
			action: models.FocusWindow{TitleSubstring: "Slack"},
			calls:  []string{"restore-window Slack"},
			text:   `Focused "Slack"`,
		},
		{
			name:   "launch",
			action: models.LaunchApp{ExeOrURI: "firefox"},
			calls:  []string{"launch firefox"},
			text:   "Launched firefox",
		},
		{
			name:   "chord",
			action: models.SendKeys{Keys: "ctrl+shift+t"},
			calls:  []string{"chord ctrl+shift+t"},
			text:   "Pressed ctrl+shift+t",
		},
		{
			name:   "literal",
			action: models.SendKeys{Keys: "hello", Literal: true},
			calls:  []string{"type hello"},
			text:   `Typed "hello"`,
		},
		{
			name:   "folder",
			action: models.OpenFolder{KnownFolder: "Downloads"},
			calls:  []string{"folder Downloads"},
			text:   "Opened Downloads",
		},
		{
			name:   "website",
			action: models.OpenWebsite{URL: "https://github.com"},
			calls:  []string{"url https://github.com"},
			text:   "Opened https://github.com",
		},
		{
			name:   "close tab",
			action: models.CloseTab{},
			calls:  []string{"chord ctrl+w"},
			text:   "Closed tab",
		},
		{
			name:   "host command",
			action: models.ExecuteHostCommand{CanonicalName: "Build.BuildSolution"},
			calls:  []string{"host  Build.BuildSolution"},
			text:   "Ran Build.BuildSolution",
		},
		{
			name:   "symbol",
			action: models.SymbolInsert{Name: "heart", Symbol: "❤️"},
			calls:  []string{"symbol ❤️"},
			text:   "Inserted ❤️",
		},
		{
			name:   "noop",
			action: models.Noop{Reason: "always on top is disabled"},
			text:   "Nothing to do: always on top is disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desk := mocks.NewDesktop()
			d := NewDispatcher(effectorsFor(desk))

			res := d.Execute(context.Background(), tt.action)
			assert.True(t, res.OK, res.Text)
			assert.Equal(t, tt.text, res.Text)
			assert.Equal(t, tt.calls, desk.Log.Calls())
		})
	}
}

func TestExecute_ShowHelp(t *testing.T) {
	d := NewDispatcher(Effectors{}, WithHelpText(func() string { return "help!" }))
	res := d.Execute(context.Background(), models.ShowHelp{})
	assert.Equal(t, models.ExecutionResult{Text: "help!", OK: true}, res)
}

func TestExecute_MissingEffector(t *testing.T) {
	d := NewDispatcher(Effectors{})
	res := d.Execute(context.Background(), models.OpenFolder{KnownFolder: "Music"})
	assert.False(t, res.OK)
	assert.Equal(t, "No effector for folder opening", res.Text)
}

func TestExecute_EffectorFailureIsAResult(t *testing.T) {
	desk := mocks.NewDesktop()
	desk.URLs.OpenURLFunc = func(string) error { return errors.New("no browser") }
	d := NewDispatcher(effectorsFor(desk))

	res := d.Execute(context.Background(), models.OpenWebsite{URL: "https://example.com"})
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to open https://example.com: no browser", res.Text)
}

func TestExecute_RecoversPanics(t *testing.T) {
	desk := mocks.NewDesktop()
	desk.Placer.MaximizeFunc = func(string) error { panic("display went away") }
	d := NewDispatcher(effectorsFor(desk))

	var res models.ExecutionResult
	require.NotPanics(t, func() {
		res = d.Execute(context.Background(), models.MoveWindow{Target: models.TargetActive, Position: models.PositionCenter, WidthPct: models.Pct(100), HeightPct: models.Pct(100)})
	})
	assert.False(t, res.OK)
	assert.Contains(t, res.Text, "internal error")
}

func TestExecute_NilAction(t *testing.T) {
	d := NewDispatcher(Effectors{})
	res := d.Execute(context.Background(), nil)
	assert.False(t, res.OK)
}

func TestFocusLadder(t *testing.T) {
	fail := func(string) error { return errors.New("refused") }

	t.Run("falls through to click", func(t *testing.T) {
		desk := mocks.NewDesktop()
		desk.Focuser.RestoreWindowFunc = fail
		desk.Focuser.SetForegroundFunc = fail
		d := NewDispatcher(effectorsFor(desk))

		res := d.Execute(context.Background(), models.FocusWindow{TitleSubstring: "Terminal"})
		assert.True(t, res.OK)
		assert.Equal(t, []string{"restore-window Terminal", "foreground Terminal", "click Terminal"}, desk.Log.Calls())
	})

	t.Run("last resort is alt+tab", func(t *testing.T) {
		desk := mocks.NewDesktop()
		desk.Focuser.RestoreWindowFunc = fail
		desk.Focuser.SetForegroundFunc = fail
		desk.Focuser.ClickWindowFunc = fail
		d := NewDispatcher(effectorsFor(desk))

		res := d.Execute(context.Background(), models.FocusWindow{TitleSubstring: "Terminal"})
		assert.True(t, res.OK)
		assert.Contains(t, res.Text, "alt+tab")
		assert.Equal(t, "chord alt+tab", desk.Log.Calls()[3])
	})

	t.Run("every rung fails", func(t *testing.T) {
		desk := mocks.NewDesktop()
		desk.Focuser.RestoreWindowFunc = fail
		desk.Focuser.SetForegroundFunc = fail
		desk.Focuser.ClickWindowFunc = fail
		desk.Keys.SendChordFunc = fail
		d := NewDispatcher(effectorsFor(desk))

		res := d.Execute(context.Background(), models.FocusWindow{TitleSubstring: "Terminal"})
		assert.False(t, res.OK)
		assert.True(t, strings.HasPrefix(res.Text, `Failed to focus "Terminal"`))
		assert.NotContains(t, res.Text, "\n")
		assert.Len(t, desk.Log.Calls(), 4)
	})
}

func TestHostCommandLadder(t *testing.T) {
	host := models.HostContext{Process: "devenv", WindowTitle: "MySolution - Microsoft Visual Studio"}
	chords := map[string]string{"build.buildsolution": "ctrl+shift+b"}
	ctx := WithChords(WithHostContext(context.Background(), host), chords)

	t.Run("automation first", func(t *testing.T) {
		desk := mocks.NewDesktop()
		d := NewDispatcher(effectorsFor(desk))
		res := d.Execute(ctx, models.ExecuteHostCommand{CanonicalName: "Build.BuildSolution"})
		assert.True(t, res.OK)
		assert.Equal(t, []string{"host devenv Build.BuildSolution"}, desk.Log.Calls())
	})

	t.Run("chord fallback", func(t *testing.T) {
		desk := mocks.NewDesktop()
		desk.Host.ExecuteHostCommandFunc = func(models.HostContext, string, string) error { return errors.New("no automation") }
		d := NewDispatcher(effectorsFor(desk))
		res := d.Execute(ctx, models.ExecuteHostCommand{CanonicalName: "Build.BuildSolution"})
		assert.True(t, res.OK)
		assert.Equal(t, "Ran Build.BuildSolution with ctrl+shift+b", res.Text)
	})

	t.Run("focus host then chord", func(t *testing.T) {
		desk := mocks.NewDesktop()
		desk.Host.ExecuteHostCommandFunc = func(models.HostContext, string, string) error { return errors.New("no automation") }
		sent := 0
		desk.Keys.SendChordFunc = func(string) error {
			sent++
			if sent == 1 {
				return errors.New("wrong window")
			}
			return nil
		}
		d := NewDispatcher(effectorsFor(desk))
		res := d.Execute(ctx, models.ExecuteHostCommand{CanonicalName: "Build.BuildSolution"})
		assert.True(t, res.OK)
		assert.Equal(t, []string{
			"host devenv Build.BuildSolution",
			"chord ctrl+shift+b",
			"foreground MySolution - Microsoft Visual Studio",
			"chord ctrl+shift+b",
		}, desk.Log.Calls())
	})

	t.Run("no chord known", func(t *testing.T) {
		desk := mocks.NewDesktop()
		desk.Host.ExecuteHostCommandFunc = func(models.HostContext, string, string) error { return errors.New("no automation") }
		d := NewDispatcher(effectorsFor(desk))
		res := d.Execute(ctx, models.ExecuteHostCommand{CanonicalName: "Debug.Start"})
		assert.False(t, res.OK)
		assert.Contains(t, res.Text, "Debug.Start")
	})
}

func TestLaunchLadder(t *testing.T) {
	desk := mocks.NewDesktop()
	desk.Launcher.LaunchFunc = func(string) error { return errors.New("not found") }
	d := NewDispatcher(effectorsFor(desk))

	res := d.Execute(context.Background(), models.LaunchApp{ExeOrURI: "steam://rungameid/570"})
	assert.True(t, res.OK)
	assert.Equal(t, "Opened steam://rungameid/570", res.Text)
	assert.Equal(t, []string{"launch steam://rungameid/570", "shell-open steam://rungameid/570"}, desk.Log.Calls())
}

func threeStepBundle(continueOnError bool) models.RunBundle {
	return models.RunBundle{
		Name:            "three",
		ContinueOnError: continueOnError,
		Steps: []models.ActionRequest{
			models.OpenFolder{KnownFolder: "Documents"},
			models.OpenWebsite{URL: "https://broken.example"},
			models.SendKeys{Keys: "ctrl+s"},
		},
	}
}

func TestRunBundle_AbortOnFailure(t *testing.T) {
	desk := mocks.NewDesktop()
	desk.URLs.OpenURLFunc = func(string) error { return errors.New("offline") }
	d := NewDispatcher(effectorsFor(desk))

	report := d.RunBundle(context.Background(), threeStepBundle(false))
	assert.Equal(t, models.BundleAborted, report.State)
	assert.Equal(t, 2, report.FailedStep)
	assert.Len(t, report.Steps, 2)
	assert.Equal(t, []string{"folder Documents", "url https://broken.example"}, desk.Log.Calls())

	res := BundleResult(report)
	assert.False(t, res.OK)
	assert.Equal(t, "three: aborted at step 2: Failed to open https://broken.example: offline", res.Text)
}

func TestRunBundle_ContinueOnError(t *testing.T) {
	desk := mocks.NewDesktop()
	desk.URLs.OpenURLFunc = func(string) error { return errors.New("offline") }
	d := NewDispatcher(effectorsFor(desk))

	report := d.RunBundle(context.Background(), threeStepBundle(true))
	assert.Equal(t, models.BundleCompletedWithErrors, report.State)
	assert.Zero(t, report.FailedStep)
	assert.Len(t, report.Steps, 3)
	assert.Len(t, report.Failures(), 1)
	assert.Equal(t, []string{"folder Documents", "url https://broken.example", "chord ctrl+s"}, desk.Log.Calls())
}

func TestRunBundle_Succeeded(t *testing.T) {
	desk := mocks.NewDesktop()
	d := NewDispatcher(effectorsFor(desk))

	res := d.Execute(context.Background(), threeStepBundle(false))
	assert.True(t, res.OK)
	assert.Equal(t, "three: Pressed ctrl+s", res.Text)
}

func TestBundleResult_UnfinishedReportIsNotOK(t *testing.T) {
	for _, state := range []models.BundleState{models.BundlePending, models.BundleRunning} {
		assert.False(t, state.Terminal())
		res := BundleResult(models.BundleReport{Name: "three", State: state})
		assert.False(t, res.OK)
		assert.Equal(t, "three: still "+state.String(), res.Text)
	}
	assert.True(t, models.BundleCompletedWithErrors.Terminal())
}

func TestRunBundle_MorningSetup(t *testing.T) {
	desk := mocks.NewDesktop()
	desk.Launcher.LaunchFunc = func(string) error { return errors.New("mail client missing") }
	desk.Launcher.ShellOpenFunc = func(string) error { return errors.New("no handler") }
	d := NewDispatcher(effectorsFor(desk))

	bundle := models.RunBundle{
		Name:            "morning setup",
		ContinueOnError: true,
		Steps: []models.ActionRequest{
			models.LaunchApp{ExeOrURI: "thunderbird"},
			models.OpenWebsite{URL: "https://calendar.google.com"},
		},
	}

	res := d.Execute(context.Background(), bundle)
	assert.False(t, res.OK)
	assert.Contains(t, res.Text, "morning setup (completed with errors)")
	assert.Contains(t, res.Text, "Failed to launch thunderbird")
	assert.Contains(t, res.Text, "; Opened https://calendar.google.com")
	assert.Contains(t, desk.Log.Calls(), "url https://calendar.google.com")
}

func TestRunBundle_NestedStepRejected(t *testing.T) {
	desk := mocks.NewDesktop()
	d := NewDispatcher(effectorsFor(desk))

	report := d.RunBundle(context.Background(), models.RunBundle{
		Name: "outer",
		Steps: []models.ActionRequest{
			models.RunBundle{Name: "inner", Steps: []models.ActionRequest{models.CloseTab{}}},
			models.CloseTab{},
		},
	})
	assert.Equal(t, models.BundleAborted, report.State)
	assert.Equal(t, 1, report.FailedStep)
	assert.Empty(t, desk.Log.Calls())
}

func TestRunBundle_InterStepDelay(t *testing.T) {
	desk := mocks.NewDesktop()
	d := NewDispatcher(effectorsFor(desk))

	bundle := threeStepBundle(false)
	bundle.InterStepDelayMs = 20

	start := time.Now()
	report := d.RunBundle(context.Background(), bundle)
	assert.Equal(t, models.BundleSucceeded, report.State)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRunBundle_CancellationStopsBeforeNextStep(t *testing.T) {
	desk := mocks.NewDesktop()
	ctx, cancel := context.WithCancel(context.Background())
	desk.Folders.OpenFolderFunc = func(string) error {
		cancel()
		return nil
	}
	d := NewDispatcher(effectorsFor(desk))

	bundle := threeStepBundle(false)
	bundle.InterStepDelayMs = 5000

	start := time.Now()
	report := d.RunBundle(ctx, bundle)
	assert.Equal(t, models.BundleAborted, report.State)
	assert.Zero(t, report.FailedStep)
	assert.Len(t, report.Steps, 1)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "three: canceled after 1 of its steps", BundleResult(report).Text)
}

func TestChordFor(t *testing.T) {
	ctx := WithChords(context.Background(), map[string]string{"edit.formatdocument": "ctrl+k ctrl+d"})
	chord, ok := ChordFor(ctx, "Edit.FormatDocument")
	assert.True(t, ok)
	assert.Equal(t, "ctrl+k ctrl+d", chord)

	_, ok = ChordFor(context.Background(), "Edit.FormatDocument")
	assert.False(t, ok)
}
