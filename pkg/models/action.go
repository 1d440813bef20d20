package models

import "fmt"

// ActionKind identifies an ActionRequest variant
type ActionKind string

const (
	KindMoveWindow         ActionKind = "move_window"
	KindFocusWindow        ActionKind = "focus_window"
	KindLaunchApp          ActionKind = "launch_app"
	KindSendKeys           ActionKind = "send_keys"
	KindOpenFolder         ActionKind = "open_folder"
	KindOpenWebsite        ActionKind = "open_website"
	KindCloseTab           ActionKind = "close_tab"
	KindExecuteHostCommand ActionKind = "host_command"
	KindSymbolInsert       ActionKind = "symbol_insert"
	KindRunBundle          ActionKind = "run_bundle"
	KindShowHelp           ActionKind = "show_help"
	KindNoop               ActionKind = "noop"
)

// ActionRequest is the closed set of things DeskPilot can do.
// Only types in this package implement it.
type ActionRequest interface {
	Kind() ActionKind
	// Describe returns a short human readable summary used in results and logs
	Describe() string
	action()
}

// MoveWindow places a window. Position is one of center, left, right,
// top, bottom or restore. Monitor is current, next or primary.
type MoveWindow struct {
	Target    string
	Monitor   string
	Position  string
	WidthPct  *int
	HeightPct *int
}

type FocusWindow struct {
	TitleSubstring string
}

type LaunchApp struct {
	ExeOrURI string
}

// SendKeys injects a chord ("ctrl+shift+b") or, when Literal is set,
// types Keys verbatim.
type SendKeys struct {
	Keys    string
	Literal bool
}

type OpenFolder struct {
	KnownFolder string
}

type OpenWebsite struct {
	URL string
}

type CloseTab struct{}

// ExecuteHostCommand runs a canonical command (e.g. Build.BuildSolution)
// inside the foreground host application.
type ExecuteHostCommand struct {
	CanonicalName string
	Args          string
}

type SymbolInsert struct {
	Name   string
	Symbol string
}

// RunBundle is a macro. Steps are always leaves.
type RunBundle struct {
	Name             string
	Steps            []ActionRequest
	ContinueOnError  bool
	InterStepDelayMs int
}

type ShowHelp struct{}

// Clone returns a copy of a that shares no memory with it. Catalog
// actions are shared by every snapshot reader, so each resolution hands
// out its own copy.
func Clone(a ActionRequest) ActionRequest {
	switch v := a.(type) {
	case MoveWindow:
		v.WidthPct = cloneInt(v.WidthPct)
		v.HeightPct = cloneInt(v.HeightPct)
		return v
	case RunBundle:
		if v.Steps != nil {
			steps := make([]ActionRequest, len(v.Steps))
			for i, step := range v.Steps {
				steps[i] = Clone(step)
			}
			v.Steps = steps
		}
		return v
	default:
		return a
	}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	n := *p
	return &n
}

// Noop is an explicit "do nothing" outcome, distinct from no match.
type Noop struct {
	Reason string
}

func (MoveWindow) Kind() ActionKind         { return KindMoveWindow }
func (FocusWindow) Kind() ActionKind        { return KindFocusWindow }
func (LaunchApp) Kind() ActionKind          { return KindLaunchApp }
func (SendKeys) Kind() ActionKind           { return KindSendKeys }
func (OpenFolder) Kind() ActionKind         { return KindOpenFolder }
func (OpenWebsite) Kind() ActionKind        { return KindOpenWebsite }
func (CloseTab) Kind() ActionKind           { return KindCloseTab }
func (ExecuteHostCommand) Kind() ActionKind { return KindExecuteHostCommand }
func (SymbolInsert) Kind() ActionKind       { return KindSymbolInsert }
func (RunBundle) Kind() ActionKind          { return KindRunBundle }
func (ShowHelp) Kind() ActionKind           { return KindShowHelp }
func (Noop) Kind() ActionKind               { return KindNoop }

func (MoveWindow) action()         {}
func (FocusWindow) action()        {}
func (LaunchApp) action()          {}
func (SendKeys) action()           {}
func (OpenFolder) action()         {}
func (OpenWebsite) action()        {}
func (CloseTab) action()           {}
func (ExecuteHostCommand) action() {}
func (SymbolInsert) action()       {}
func (RunBundle) action()          {}
func (ShowHelp) action()           {}
func (Noop) action()               {}

func (a MoveWindow) Describe() string {
	desc := fmt.Sprintf("move %s window", a.Target)
	if a.Position != "" {
		desc += " to " + a.Position
	}
	if a.WidthPct != nil && a.HeightPct != nil {
		desc += fmt.Sprintf(" (%d%% x %d%%)", *a.WidthPct, *a.HeightPct)
	}
	if a.Monitor != "" && a.Monitor != MonitorCurrent {
		desc += " on " + a.Monitor + " monitor"
	}
	return desc
}

func (a FocusWindow) Describe() string { return fmt.Sprintf("focus window %q", a.TitleSubstring) }
func (a LaunchApp) Describe() string   { return fmt.Sprintf("launch %s", a.ExeOrURI) }

func (a SendKeys) Describe() string {
	if a.Literal {
		return fmt.Sprintf("type %q", a.Keys)
	}
	return fmt.Sprintf("press %s", a.Keys)
}

func (a OpenFolder) Describe() string  { return fmt.Sprintf("open folder %s", a.KnownFolder) }
func (a OpenWebsite) Describe() string { return fmt.Sprintf("open %s", a.URL) }
func (CloseTab) Describe() string      { return "close tab" }

func (a ExecuteHostCommand) Describe() string {
	if a.Args != "" {
		return fmt.Sprintf("run host command %s %s", a.CanonicalName, a.Args)
	}
	return fmt.Sprintf("run host command %s", a.CanonicalName)
}

func (a SymbolInsert) Describe() string {
	if a.Name != "" {
		return fmt.Sprintf("insert %s (%s)", a.Name, a.Symbol)
	}
	return fmt.Sprintf("insert %s", a.Symbol)
}

func (a RunBundle) Describe() string {
	return fmt.Sprintf("run macro %q (%d steps)", a.Name, len(a.Steps))
}

func (ShowHelp) Describe() string { return "show help" }

func (a Noop) Describe() string {
	if a.Reason == "" {
		return "nothing to do"
	}
	return a.Reason
}

// Monitor and position names understood by WindowPlacer implementations
const (
	MonitorCurrent = "current"
	MonitorNext    = "next"
	MonitorPrimary = "primary"

	PositionCenter  = "center"
	PositionLeft    = "left"
	PositionRight   = "right"
	PositionTop     = "top"
	PositionBottom  = "bottom"
	PositionRestore = "restore"

	TargetActive = "active"
)

// Pct returns a pointer to v, for MoveWindow sizes.
func Pct(v int) *int {
	return &v
}

// MatchCandidate is what a single resolver strategy produced
type MatchCandidate struct {
	Strategy   string
	Confidence float64
	Action     ActionRequest
}

// HostContext is one read of the foreground application, taken once per
// utterance.
type HostContext struct {
	Process     string
	WindowTitle string
}

// ExecutionResult is the outcome of dispatching an action
type ExecutionResult struct {
	Text string
	OK   bool
}
