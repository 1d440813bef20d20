package catalog

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"github.com/themobileprof/deskpilot/internal/textnorm"
	"github.com/themobileprof/deskpilot/pkg/models"
)

//go:embed defaults.yaml
var embeddedDefaults []byte

// File names of the configuration surfaces inside the catalog directory
const (
	FileOverrides     = "overrides.yaml"
	FileRules         = "rules.yaml"
	FileContexts      = "contexts.yaml"
	FileMacros        = "macros.yaml"
	FileSubstitutions = "substitutions.yaml"
	FilePoliteness    = "politeness.yaml"
	FileSymbols       = "symbols.yaml"
	FileFuzzy         = "fuzzy.yaml"
	FileGames         = "games.yaml"
	FileApps          = "apps.yaml"
	FileWebsites      = "websites.yaml"
	FileHostChords    = "host_chords.yaml"
)

// Sources is the raw, unvalidated content of every catalog surface
type Sources struct {
	Politeness    []string                     `yaml:"politeness"`
	Substitutions map[string]string            `yaml:"substitutions"`
	Overrides     map[string]models.ActionSpec `yaml:"overrides"`
	Rules         []RuleSpec                   `yaml:"rules"`
	Contexts      []ScopeSpec                  `yaml:"contexts"`
	Fuzzy         []FuzzySpec                  `yaml:"fuzzy"`
	Macros        []MacroSpec                  `yaml:"macros"`
	Symbols       map[string]string            `yaml:"symbols"`
	Games         []NamedSpec                  `yaml:"games"`
	Apps          []NamedSpec                  `yaml:"apps"`
	Websites      []NamedSpec                  `yaml:"websites"`
	HostChords    map[string]string            `yaml:"host_chords"`
}

// ScopeSpec is the configuration shape of a context scope
type ScopeSpec struct {
	Name      string        `yaml:"name"`
	Processes []string      `yaml:"processes"`
	Mappings  []MappingSpec `yaml:"mappings"`
}

// MappingSpec is one phrase inside a scope
type MappingSpec struct {
	Phrase string            `yaml:"phrase"`
	Match  string            `yaml:"match,omitempty"`
	Action models.ActionSpec `yaml:"action"`
}

// FuzzySpec is one fuzzy catalog entry
type FuzzySpec struct {
	Label  string            `yaml:"label"`
	Action models.ActionSpec `yaml:"action"`
}

// MacroSpec is one user macro
type MacroSpec struct {
	Name            string              `yaml:"name"`
	Aliases         []string            `yaml:"aliases,omitempty"`
	Steps           []models.ActionSpec `yaml:"steps"`
	ContinueOnError bool                `yaml:"continue_on_error"`
	DelayMs         int                 `yaml:"delay_ms"`
}

// NamedSpec is a name -> target pair (apps, games, websites)
type NamedSpec struct {
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
}

// Options controls where the catalog is loaded from
type Options struct {
	// Dir holds the per-surface YAML files. Empty means defaults only.
	Dir string
	// SkipDefaults leaves out the embedded default catalog
	SkipDefaults bool
}

// Load reads every surface and builds a snapshot. It never fails: a
// missing or malformed source is logged and treated as empty.
func Load(opts Options, logger *zap.Logger) *Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}

	var defaults Sources
	if !opts.SkipDefaults {
		if err := yaml.Unmarshal(embeddedDefaults, &defaults); err != nil {
			logger.Error("embedded catalog defaults are malformed", zap.Error(err))
			defaults = Sources{}
		}
	}

	user := Sources{}
	if opts.Dir != "" {
		user = readDir(opts.Dir, logger)
	}

	return Build(merge(user, defaults), logger)
}

// readDir loads each surface file on its own so one bad file only
// empties its own table
func readDir(dir string, logger *zap.Logger) Sources {
	var s Sources
	readSurface(dir, FilePoliteness, &s.Politeness, logger)
	readSurface(dir, FileSubstitutions, &s.Substitutions, logger)
	readSurface(dir, FileOverrides, &s.Overrides, logger)
	readSurface(dir, FileRules, &s.Rules, logger)
	readSurface(dir, FileContexts, &s.Contexts, logger)
	readSurface(dir, FileFuzzy, &s.Fuzzy, logger)
	readSurface(dir, FileMacros, &s.Macros, logger)
	readSurface(dir, FileSymbols, &s.Symbols, logger)
	readSurface(dir, FileGames, &s.Games, logger)
	readSurface(dir, FileApps, &s.Apps, logger)
	readSurface(dir, FileWebsites, &s.Websites, logger)
	readSurface(dir, FileHostChords, &s.HostChords, logger)
	return s
}

func readSurface[T any](dir, name string, out *T, logger *zap.Logger) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		logger.Warn("catalog file unreadable, using empty table", zap.String("file", path), zap.Error(err))
		return
	}
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		logger.Warn("catalog file malformed, using empty table", zap.String("file", path), zap.Error(err))
		return
	}
	*out = v
}

// merge puts user entries ahead of defaults; for maps the user wins
func merge(user, defaults Sources) Sources {
	return Sources{
		Politeness:    append(append([]string{}, user.Politeness...), defaults.Politeness...),
		Substitutions: mergeMaps(defaults.Substitutions, user.Substitutions),
		Overrides:     mergeMaps(defaults.Overrides, user.Overrides),
		Rules:         append(append([]RuleSpec{}, user.Rules...), defaults.Rules...),
		Contexts:      append(append([]ScopeSpec{}, user.Contexts...), defaults.Contexts...),
		Fuzzy:         append(append([]FuzzySpec{}, user.Fuzzy...), defaults.Fuzzy...),
		Macros:        append(append([]MacroSpec{}, user.Macros...), defaults.Macros...),
		Symbols:       mergeMaps(defaults.Symbols, user.Symbols),
		Games:         append(append([]NamedSpec{}, user.Games...), defaults.Games...),
		Apps:          append(append([]NamedSpec{}, user.Apps...), defaults.Apps...),
		Websites:      append(append([]NamedSpec{}, user.Websites...), defaults.Websites...),
		HostChords:    mergeMaps(defaults.HostChords, user.HostChords),
	}
}

func mergeMaps[V any](base, over map[string]V) map[string]V {
	out := make(map[string]V, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Build validates sources and compiles a snapshot. Invalid entries are
// logged and skipped.
func Build(src Sources, logger *zap.Logger) *Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}

	politeness := src.Politeness
	if len(politeness) == 0 {
		politeness = textnorm.DefaultPoliteness
	}
	normalizer := textnorm.New(politeness, src.Substitutions)
	for _, k := range normalizer.Rejected() {
		logger.Warn("substitution rejected: replacement would be rewritten again", zap.String("key", k))
	}
	norm := normalizer.Normalize

	snap := &Snapshot{
		LoadedAt:     time.Now(),
		Normalizer:   normalizer,
		Overrides:    make(map[string]models.ActionRequest),
		Macros:       make(map[string]models.RunBundle),
		Symbols:      make(map[string]string),
		HostChords:   make(map[string]string),
		macroAliases: make(map[string]string),
	}

	for _, text := range sortedKeys(src.Overrides) {
		a, err := src.Overrides[text].Build()
		if err != nil {
			logger.Warn("override skipped", zap.String("text", text), zap.Error(err))
			continue
		}
		if key := norm(text); key != "" {
			snap.Overrides[key] = a
		}
	}

	for _, rs := range src.Rules {
		r, err := rs.compile(norm)
		if err != nil {
			logger.Warn("rule skipped", zap.Error(err))
			continue
		}
		snap.Rules = append(snap.Rules, r)
	}
	snap.Rules = append(snap.Rules, BuiltinRules()...)

	for _, ss := range src.Contexts {
		scope := Scope{Name: ss.Name, Processes: ss.Processes}
		for _, ms := range ss.Mappings {
			a, err := ms.Action.Build()
			if err != nil {
				logger.Warn("context mapping skipped", zap.String("scope", ss.Name), zap.String("phrase", ms.Phrase), zap.Error(err))
				continue
			}
			match := ms.Match
			if match != MatchContains {
				match = MatchExact
			}
			if phrase := norm(ms.Phrase); phrase != "" {
				scope.Mappings = append(scope.Mappings, Mapping{Phrase: phrase, Match: match, Action: a})
			}
		}
		if len(scope.Processes) > 0 && len(scope.Mappings) > 0 {
			snap.Scopes = append(snap.Scopes, scope)
		}
	}

	seenLabels := make(map[string]bool)
	for _, fe := range src.Fuzzy {
		label := norm(fe.Label)
		if label == "" || seenLabels[label] {
			continue
		}
		a, err := fe.Action.Build()
		if err != nil {
			logger.Warn("fuzzy entry skipped", zap.String("label", fe.Label), zap.Error(err))
			continue
		}
		seenLabels[label] = true
		snap.Fuzzy = append(snap.Fuzzy, FuzzyEntry{Label: label, Action: a})
	}

	buildMacros(snap, src.Macros, norm, logger)

	for name, sym := range src.Symbols {
		if key := norm(name); key != "" && sym != "" {
			snap.Symbols[key] = sym
		}
	}

	snap.Games = namedTargets(src.Games, norm)
	snap.Apps = namedTargets(src.Apps, norm)
	snap.Websites = namedTargets(src.Websites, norm)

	for cmd, chord := range src.HostChords {
		if cmd != "" && chord != "" {
			snap.HostChords[strings.ToLower(cmd)] = chord
		}
	}

	return snap
}

// buildMacros expands one level of macro references. A step referring to
// a macro that itself refers to macros, or to itself, is rejected, so a
// bundle never contains a bundle.
func buildMacros(snap *Snapshot, specs []MacroSpec, norm func(string) string, logger *zap.Logger) {
	byName := make(map[string]MacroSpec)
	var order []string
	for _, m := range specs {
		key := norm(m.Name)
		if key == "" {
			continue
		}
		if _, dup := byName[key]; dup {
			continue // first declaration wins (user before defaults)
		}
		byName[key] = m
		order = append(order, key)
	}

	for _, key := range order {
		m := byName[key]
		var steps []models.ActionSpec
		for i, step := range m.Steps {
			if step.Macro == "" {
				steps = append(steps, step)
				continue
			}
			ref := norm(step.Macro)
			target, ok := byName[ref]
			if !ok || ref == key {
				logger.Warn("macro step skipped: unknown or self reference",
					zap.String("macro", m.Name), zap.Int("step", i+1), zap.String("ref", step.Macro))
				continue
			}
			if hasMacroRef(target) {
				logger.Warn("macro step skipped: referenced macro is itself nested",
					zap.String("macro", m.Name), zap.Int("step", i+1), zap.String("ref", step.Macro))
				continue
			}
			steps = append(steps, target.Steps...)
		}

		spec := models.ActionSpec{
			Type:            string(models.KindRunBundle),
			Name:            m.Name,
			Steps:           steps,
			ContinueOnError: m.ContinueOnError,
			DelayMs:         m.DelayMs,
		}
		a, err := spec.Build()
		if err != nil {
			logger.Warn("macro skipped", zap.String("macro", m.Name), zap.Error(err))
			continue
		}
		snap.Macros[key] = a.(models.RunBundle)

		for _, alias := range append([]string{m.Name}, m.Aliases...) {
			ak := MacroAliasKey(alias)
			if ak == "" {
				continue
			}
			if _, taken := snap.macroAliases[ak]; !taken {
				snap.macroAliases[ak] = key
			}
		}
	}
}

func hasMacroRef(m MacroSpec) bool {
	for _, s := range m.Steps {
		if s.Macro != "" {
			return true
		}
	}
	return false
}

func namedTargets(specs []NamedSpec, norm func(string) string) []NamedTarget {
	seen := make(map[string]bool)
	var out []NamedTarget
	for _, s := range specs {
		name := norm(s.Name)
		if name == "" || s.Target == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, NamedTarget{Name: name, Target: s.Target})
	}
	return out
}
