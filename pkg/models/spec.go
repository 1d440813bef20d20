package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownActionType is returned for a spec whose type is not a known variant
	ErrUnknownActionType = errors.New("unknown action type")
	// ErrNestedBundle is returned when a bundle step is itself a bundle or macro reference
	ErrNestedBundle = errors.New("bundles cannot contain bundles")
)

// ActionSpec is the flat, format-agnostic shape of an ActionRequest as it
// appears in catalog files and oracle responses.
type ActionSpec struct {
	Type      string `yaml:"type" json:"type"`
	Target    string `yaml:"target,omitempty" json:"target,omitempty"`
	Monitor   string `yaml:"monitor,omitempty" json:"monitor,omitempty"`
	Position  string `yaml:"position,omitempty" json:"position,omitempty"`
	WidthPct  *int   `yaml:"width_pct,omitempty" json:"width_pct,omitempty"`
	HeightPct *int   `yaml:"height_pct,omitempty" json:"height_pct,omitempty"`
	Title     string `yaml:"title,omitempty" json:"title,omitempty"`
	Exe       string `yaml:"exe,omitempty" json:"exe,omitempty"`
	Keys      string `yaml:"keys,omitempty" json:"keys,omitempty"`
	Literal   bool   `yaml:"literal,omitempty" json:"literal,omitempty"`
	Folder    string `yaml:"folder,omitempty" json:"folder,omitempty"`
	URL       string `yaml:"url,omitempty" json:"url,omitempty"`
	Command   string `yaml:"command,omitempty" json:"command,omitempty"`
	Args      string `yaml:"args,omitempty" json:"args,omitempty"`
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	Symbol    string `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Reason    string `yaml:"reason,omitempty" json:"reason,omitempty"`

	// Bundle only
	Steps           []ActionSpec `yaml:"steps,omitempty" json:"steps,omitempty"`
	ContinueOnError bool         `yaml:"continue_on_error,omitempty" json:"continue_on_error,omitempty"`
	DelayMs         int          `yaml:"delay_ms,omitempty" json:"delay_ms,omitempty"`

	// Macro is a by-name reference to another macro, only valid as a
	// macro step; the catalog loader expands it.
	Macro string `yaml:"macro,omitempty" json:"macro,omitempty"`
}

// Build converts the spec into a typed ActionRequest
func (s ActionSpec) Build() (ActionRequest, error) {
	kind := ActionKind(strings.ToLower(strings.TrimSpace(s.Type)))
	if kind == KindRunBundle {
		return s.buildBundle()
	}
	return s.buildLeaf(kind)
}

func (s ActionSpec) buildLeaf(kind ActionKind) (ActionRequest, error) {
	switch kind {
	case KindMoveWindow:
		target := s.Target
		if target == "" {
			target = TargetActive
		}
		monitor := s.Monitor
		if monitor == "" {
			monitor = MonitorCurrent
		}
		position := s.Position
		if position == "" && monitor == MonitorCurrent {
			return nil, fmt.Errorf("move_window: position or monitor required")
		}
		for _, p := range []*int{s.WidthPct, s.HeightPct} {
			if p != nil && (*p <= 0 || *p > 100) {
				return nil, fmt.Errorf("move_window: size %d%% out of range", *p)
			}
		}
		return MoveWindow{Target: target, Monitor: monitor, Position: position, WidthPct: s.WidthPct, HeightPct: s.HeightPct}, nil
	case KindFocusWindow:
		if s.Title == "" {
			return nil, fmt.Errorf("focus_window: title required")
		}
		return FocusWindow{TitleSubstring: s.Title}, nil
	case KindLaunchApp:
		if s.Exe == "" {
			return nil, fmt.Errorf("launch_app: exe required")
		}
		return LaunchApp{ExeOrURI: s.Exe}, nil
	case KindSendKeys:
		if s.Keys == "" {
			return nil, fmt.Errorf("send_keys: keys required")
		}
		return SendKeys{Keys: s.Keys, Literal: s.Literal}, nil
	case KindOpenFolder:
		if s.Folder == "" {
			return nil, fmt.Errorf("open_folder: folder required")
		}
		return OpenFolder{KnownFolder: s.Folder}, nil
	case KindOpenWebsite:
		if s.URL == "" {
			return nil, fmt.Errorf("open_website: url required")
		}
		return OpenWebsite{URL: s.URL}, nil
	case KindCloseTab:
		return CloseTab{}, nil
	case KindExecuteHostCommand:
		if s.Command == "" {
			return nil, fmt.Errorf("host_command: command required")
		}
		return ExecuteHostCommand{CanonicalName: s.Command, Args: s.Args}, nil
	case KindSymbolInsert:
		if s.Symbol == "" {
			return nil, fmt.Errorf("symbol_insert: symbol required")
		}
		return SymbolInsert{Name: s.Name, Symbol: s.Symbol}, nil
	case KindShowHelp:
		return ShowHelp{}, nil
	case KindNoop:
		return Noop{Reason: s.Reason}, nil
	case KindRunBundle, "macro":
		return nil, ErrNestedBundle
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, s.Type)
	}
}

func (s ActionSpec) buildBundle() (ActionRequest, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("run_bundle: name required")
	}
	if s.DelayMs < 0 {
		return nil, fmt.Errorf("run_bundle %q: negative delay", s.Name)
	}
	steps := make([]ActionRequest, 0, len(s.Steps))
	for i, step := range s.Steps {
		if step.Macro != "" {
			return nil, fmt.Errorf("run_bundle %q step %d: %w", s.Name, i+1, ErrNestedBundle)
		}
		a, err := step.buildLeaf(ActionKind(strings.ToLower(strings.TrimSpace(step.Type))))
		if err != nil {
			return nil, fmt.Errorf("run_bundle %q step %d: %w", s.Name, i+1, err)
		}
		steps = append(steps, a)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("run_bundle %q: no steps", s.Name)
	}
	return RunBundle{
		Name:             s.Name,
		Steps:            steps,
		ContinueOnError:  s.ContinueOnError,
		InterStepDelayMs: s.DelayMs,
	}, nil
}

// Expand returns a copy of the spec with every "{rest}" placeholder in
// its string fields replaced. Pattern rules use it to carry the
// unmatched part of the utterance into the action.
func (s ActionSpec) Expand(rest string) ActionSpec {
	r := strings.NewReplacer("{rest}", rest)
	out := s
	out.Target = r.Replace(s.Target)
	out.Title = r.Replace(s.Title)
	out.Exe = r.Replace(s.Exe)
	out.Keys = r.Replace(s.Keys)
	out.Folder = r.Replace(s.Folder)
	out.URL = r.Replace(s.URL)
	out.Command = r.Replace(s.Command)
	out.Args = r.Replace(s.Args)
	out.Name = r.Replace(s.Name)
	out.Symbol = r.Replace(s.Symbol)
	out.Reason = r.Replace(s.Reason)
	return out
}

// SpecOf is the inverse of Build, used for printing and persistence
func SpecOf(a ActionRequest) ActionSpec {
	spec := ActionSpec{Type: string(a.Kind())}
	switch v := a.(type) {
	case MoveWindow:
		spec.Target, spec.Monitor, spec.Position = v.Target, v.Monitor, v.Position
		spec.WidthPct, spec.HeightPct = v.WidthPct, v.HeightPct
	case FocusWindow:
		spec.Title = v.TitleSubstring
	case LaunchApp:
		spec.Exe = v.ExeOrURI
	case SendKeys:
		spec.Keys, spec.Literal = v.Keys, v.Literal
	case OpenFolder:
		spec.Folder = v.KnownFolder
	case OpenWebsite:
		spec.URL = v.URL
	case ExecuteHostCommand:
		spec.Command, spec.Args = v.CanonicalName, v.Args
	case SymbolInsert:
		spec.Name, spec.Symbol = v.Name, v.Symbol
	case RunBundle:
		spec.Name, spec.ContinueOnError, spec.DelayMs = v.Name, v.ContinueOnError, v.InterStepDelayMs
		for _, step := range v.Steps {
			spec.Steps = append(spec.Steps, SpecOf(step))
		}
	case Noop:
		spec.Reason = v.Reason
	}
	return spec
}
