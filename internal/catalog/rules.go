package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/themobileprof/deskpilot/pkg/models"
)

// Predicate decides whether a rule fires for normalized text. rest is the
// part of the text the builder may use (prefix remainder, regex group).
type Predicate func(text string) (rest string, ok bool)

// Builder produces the action for a matched rule
type Builder func(text, rest string) (models.ActionRequest, error)

// Rule is one pattern rule. Rules are evaluated in declared order.
type Rule struct {
	Name  string
	When  Predicate
	Build Builder
}

// Try evaluates the rule. A builder error counts as no match.
func (r Rule) Try(text string) (models.ActionRequest, bool) {
	rest, ok := r.When(text)
	if !ok {
		return nil, false
	}
	a, err := r.Build(text, rest)
	if err != nil || a == nil {
		return nil, false
	}
	return a, true
}

// Contains fires when any phrase occurs as whole words
func Contains(phrases ...string) Predicate {
	return func(text string) (string, bool) {
		for _, p := range phrases {
			if containsPhrase(text, p) {
				return strings.TrimSpace(strings.Replace(text, p, "", 1)), true
			}
		}
		return "", false
	}
}

// Prefix fires when text starts with any prefix followed by more words
func Prefix(prefixes ...string) Predicate {
	return func(text string) (string, bool) {
		for _, p := range prefixes {
			if rest, ok := strings.CutPrefix(text, p+" "); ok && rest != "" {
				return rest, true
			}
		}
		return "", false
	}
}

// AllTokens fires when every token is present, in any order
func AllTokens(tokens ...string) Predicate {
	return func(text string) (string, bool) {
		words := make(map[string]bool)
		for _, w := range strings.Fields(text) {
			words[w] = true
		}
		for _, t := range tokens {
			if !words[t] {
				return "", false
			}
		}
		return "", true
	}
}

// Regex fires on a match; the first capture group, if any, becomes rest
func Regex(re *regexp.Regexp) Predicate {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		if len(m) > 1 {
			return strings.TrimSpace(m[1]), true
		}
		return "", true
	}
}

// Unless wraps p so it never fires when any of the phrases is present
func Unless(p Predicate, phrases ...string) Predicate {
	return func(text string) (string, bool) {
		for _, ph := range phrases {
			if containsPhrase(text, ph) {
				return "", false
			}
		}
		return p(text)
	}
}

// Static always builds the same action
func Static(a models.ActionRequest) Builder {
	return func(string, string) (models.ActionRequest, error) {
		return a, nil
	}
}

// FromSpec builds the spec with {rest} expanded
func FromSpec(spec models.ActionSpec) Builder {
	return func(_, rest string) (models.ActionRequest, error) {
		return spec.Expand(rest).Build()
	}
}

// RuleSpec is the configuration shape of a pattern rule
type RuleSpec struct {
	Name    string            `yaml:"name"`
	When    string            `yaml:"when"` // contains, prefix, all_tokens, regex
	Phrases []string          `yaml:"phrases,omitempty"`
	Pattern string            `yaml:"pattern,omitempty"`
	Unless  []string          `yaml:"unless,omitempty"`
	Action  models.ActionSpec `yaml:"action"`
}

// compile turns a RuleSpec into a Rule; phrases go through normalize
func (rs RuleSpec) compile(normalize func(string) string) (Rule, error) {
	phrases := make([]string, 0, len(rs.Phrases))
	for _, p := range rs.Phrases {
		if n := normalize(p); n != "" {
			phrases = append(phrases, n)
		}
	}

	var pred Predicate
	switch strings.ToLower(rs.When) {
	case "contains", "":
		if len(phrases) == 0 {
			return Rule{}, fmt.Errorf("rule %q: no phrases", rs.Name)
		}
		pred = Contains(phrases...)
	case "prefix":
		if len(phrases) == 0 {
			return Rule{}, fmt.Errorf("rule %q: no prefixes", rs.Name)
		}
		pred = Prefix(phrases...)
	case "all_tokens":
		var tokens []string
		for _, p := range phrases {
			tokens = append(tokens, strings.Fields(p)...)
		}
		if len(tokens) == 0 {
			return Rule{}, fmt.Errorf("rule %q: no tokens", rs.Name)
		}
		pred = AllTokens(tokens...)
	case "regex":
		re, err := regexp.Compile(rs.Pattern)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: %w", rs.Name, err)
		}
		pred = Regex(re)
	default:
		return Rule{}, fmt.Errorf("rule %q: unknown predicate %q", rs.Name, rs.When)
	}

	if len(rs.Unless) > 0 {
		var unless []string
		for _, u := range rs.Unless {
			if n := normalize(u); n != "" {
				unless = append(unless, n)
			}
		}
		pred = Unless(pred, unless...)
	}

	// Catch bad specs at load time rather than on every utterance
	if _, err := rs.Action.Expand("placeholder").Build(); err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", rs.Name, err)
	}

	name := rs.Name
	if name == "" {
		name = rs.When + ":" + strings.Join(phrases, "|")
	}
	return Rule{Name: name, When: pred, Build: FromSpec(rs.Action)}, nil
}

// BuiltinRules returns the built-in pattern families in evaluation order
func BuiltinRules() []Rule {
	full := models.MoveWindow{Target: models.TargetActive, Monitor: models.MonitorCurrent, Position: models.PositionCenter, WidthPct: models.Pct(100), HeightPct: models.Pct(100)}
	half := func(position string, w, h int) models.ActionRequest {
		return models.MoveWindow{Target: models.TargetActive, Monitor: models.MonitorCurrent, Position: position, WidthPct: models.Pct(w), HeightPct: models.Pct(h)}
	}
	keys := func(k string) Builder { return Static(models.SendKeys{Keys: k}) }

	return []Rule{
		// Disabled features still consume the match
		{Name: "always-on-top", When: Contains("always on top", "keep on top", "pin window", "pin this window"),
			Build: Static(models.Noop{Reason: "always-on-top is disabled"})},
		{Name: "auto-click", When: Contains("auto click", "autoclick", "start clicking", "keep clicking"),
			Build: Static(models.Noop{Reason: "auto-click is not handled by the command resolver"})},

		// Window placement
		{Name: "maximize", When: Unless(Contains("maximize", "full screen", "fullscreen"), "unmaximize"), Build: Static(full)},
		{Name: "restore", When: Contains("restore window", "restore down", "unmaximize"),
			Build: Static(models.MoveWindow{Target: models.TargetActive, Monitor: models.MonitorCurrent, Position: models.PositionRestore})},
		{Name: "next-monitor", When: Contains("next monitor", "other monitor", "next screen", "other screen", "second monitor"),
			Build: Static(models.MoveWindow{Target: models.TargetActive, Monitor: models.MonitorNext})},
		{Name: "left-half", When: Contains("left half", "snap left", "to the left"), Build: Static(half(models.PositionLeft, 50, 100))},
		{Name: "right-half", When: Contains("right half", "snap right", "to the right"), Build: Static(half(models.PositionRight, 50, 100))},
		{Name: "top-half", When: Contains("top half", "snap up"), Build: Static(half(models.PositionTop, 100, 50))},
		{Name: "bottom-half", When: Contains("bottom half", "snap down"), Build: Static(half(models.PositionBottom, 100, 50))},
		{Name: "center", When: Contains("center window", "centre window", "center this window"),
			Build: Static(models.MoveWindow{Target: models.TargetActive, Monitor: models.MonitorCurrent, Position: models.PositionCenter})},
		{Name: "minimize", When: Contains("minimize", "hide window"), Build: keys("super+h")},

		// Tabs; reopen must come before close
		{Name: "reopen-tab", When: Contains("reopen tab", "reopen closed tab", "undo close tab"), Build: keys("ctrl+shift+t")},
		{Name: "close-tab", When: AllTokens("close", "tab"), Build: Static(models.CloseTab{})},
		{Name: "new-tab", When: Unless(AllTokens("new", "tab"), "close"), Build: keys("ctrl+t")},
		{Name: "next-tab", When: Contains("next tab"), Build: keys("ctrl+tab")},
		{Name: "previous-tab", When: Contains("previous tab", "last tab"), Build: keys("ctrl+shift+tab")},

		// Windows and pages
		{Name: "close-window", When: AllTokens("close", "window"), Build: keys("alt+f4")},
		{Name: "switch-window", When: Contains("switch window", "switch windows", "alt tab", "other window"), Build: keys("alt+tab")},
		{Name: "refresh", When: Contains("refresh page", "reload page", "refresh this page"), Build: keys("f5")},
		{Name: "zoom-in", When: Contains("zoom in"), Build: keys("ctrl+plus")},
		{Name: "zoom-out", When: Contains("zoom out"), Build: keys("ctrl+minus")},
		{Name: "scroll-top", When: Contains("scroll to top", "go to top"), Build: keys("ctrl+home")},
		{Name: "scroll-bottom", When: Contains("scroll to bottom", "go to bottom"), Build: keys("ctrl+end")},
	}
}

// containsPhrase reports whether phrase occurs in text on word boundaries
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
