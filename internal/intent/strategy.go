package intent

import (
	"strings"

	"github.com/themobileprof/deskpilot/internal/catalog"
	"github.com/themobileprof/deskpilot/internal/textnorm"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// Strategy names, in cascade order
const (
	StrategyDirective = "directive"
	StrategyLiteral   = "literal"
	StrategyHelp      = "help"
	StrategyMacro     = "macro"
	StrategyRule      = "rule"
	StrategyContext   = "context"
	StrategyFuzzy     = "fuzzy"
)

// Input is everything a strategy may look at. It is built once per
// utterance and never changes during the cascade.
type Input struct {
	Text    string // normalized
	Context models.HostContext
	Catalog *catalog.Snapshot
}

// Strategy is one stage of the cascade
type Strategy interface {
	Name() string
	TryMatch(in Input) (models.MatchCandidate, bool)
}

func candidate(strategy string, confidence float64, a models.ActionRequest) (models.MatchCandidate, bool) {
	return models.MatchCandidate{Strategy: strategy, Confidence: confidence, Action: models.Clone(a)}, true
}

// literalStrategy matches the override table exactly
type literalStrategy struct{}

func (literalStrategy) Name() string { return StrategyLiteral }

func (literalStrategy) TryMatch(in Input) (models.MatchCandidate, bool) {
	if a, ok := in.Catalog.Overrides[in.Text]; ok {
		return candidate(StrategyLiteral, 1, a)
	}
	return models.MatchCandidate{}, false
}

var helpPhrases = map[string]bool{
	"help":                  true,
	"show help":             true,
	"what can i say":        true,
	"what can i do":         true,
	"what can you do":       true,
	"list commands":         true,
	"show commands":         true,
	"show me the commands":  true,
	"what are the commands": true,
}

// helpStrategy answers help queries. With an overlay the display has
// already happened elsewhere, so the match is consumed as a Noop.
type helpStrategy struct {
	overlay bool
}

func (helpStrategy) Name() string { return StrategyHelp }

func (h helpStrategy) TryMatch(in Input) (models.MatchCandidate, bool) {
	if !helpPhrases[in.Text] {
		return models.MatchCandidate{}, false
	}
	if h.overlay {
		return candidate(StrategyHelp, 1, models.Noop{Reason: "help shown by overlay"})
	}
	return candidate(StrategyHelp, 1, models.ShowHelp{})
}

type macroStrategy struct{}

func (macroStrategy) Name() string { return StrategyMacro }

func (macroStrategy) TryMatch(in Input) (models.MatchCandidate, bool) {
	if m, ok := in.Catalog.Macro(in.Text); ok {
		return candidate(StrategyMacro, 1, m)
	}
	return models.MatchCandidate{}, false
}

// ruleStrategy walks the pattern rules in declared order
type ruleStrategy struct{}

func (ruleStrategy) Name() string { return StrategyRule }

func (ruleStrategy) TryMatch(in Input) (models.MatchCandidate, bool) {
	for _, r := range in.Catalog.Rules {
		if a, ok := r.Try(in.Text); ok {
			return candidate(StrategyRule, 1, a)
		}
	}
	return models.MatchCandidate{}, false
}

// contextStrategy only looks at scopes whose process list contains the
// foreground process. Exact mappings in a scope beat contains mappings.
type contextStrategy struct{}

func (contextStrategy) Name() string { return StrategyContext }

func (contextStrategy) TryMatch(in Input) (models.MatchCandidate, bool) {
	for _, s := range in.Catalog.Scopes {
		if !s.Applies(in.Context) {
			continue
		}
		for _, m := range s.Mappings {
			if m.Match == catalog.MatchExact && m.Matches(in.Text) {
				return candidate(StrategyContext, 1, m.Action)
			}
		}
		for _, m := range s.Mappings {
			if m.Match == catalog.MatchContains && m.Matches(in.Text) {
				return candidate(StrategyContext, 1, m.Action)
			}
		}
	}
	return models.MatchCandidate{}, false
}

// fuzzyStrategy scores every label; the best score must exceed the
// threshold and the first declared entry wins a tie.
type fuzzyStrategy struct{}

func (fuzzyStrategy) Name() string { return StrategyFuzzy }

func (fuzzyStrategy) TryMatch(in Input) (models.MatchCandidate, bool) {
	if strings.TrimSpace(in.Text) == "" {
		return models.MatchCandidate{}, false
	}
	best, bestScore := -1, 0.0
	for i, e := range in.Catalog.Fuzzy {
		if score := textnorm.Similarity(e.Label, in.Text); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore <= textnorm.FuzzyThreshold {
		return models.MatchCandidate{}, false
	}
	return candidate(StrategyFuzzy, bestScore, in.Catalog.Fuzzy[best].Action)
}
