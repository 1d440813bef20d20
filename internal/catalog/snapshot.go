// Package catalog holds the command catalog: literal overrides, pattern
// rules, context scopes, the fuzzy catalog, macros and symbols.
//
// A Snapshot is immutable. Readers take one with Store.Current at the start
// of an utterance and use it for the whole call; writers build a new
// Snapshot and swap it in.
package catalog

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/themobileprof/deskpilot/internal/textnorm"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// Snapshot is one consistent view of the catalog. None of its maps or
// slices may be modified after the snapshot is published.
type Snapshot struct {
	Version  uint64
	LoadedAt time.Time

	Normalizer *textnorm.Normalizer

	Overrides  map[string]models.ActionRequest
	Rules      []Rule
	Scopes     []Scope
	Fuzzy      []FuzzyEntry
	Macros     map[string]models.RunBundle
	Symbols    map[string]string
	Games      []NamedTarget
	Apps       []NamedTarget
	Websites   []NamedTarget
	HostChords map[string]string

	macroAliases map[string]string
}

// FuzzyEntry is a label scored against the utterance
type FuzzyEntry struct {
	Label  string
	Action models.ActionRequest
}

// NamedTarget maps a spoken name to a launch target or URL
type NamedTarget struct {
	Name   string
	Target string
}

// Scope is a set of mappings active only for certain foreground processes
type Scope struct {
	Name      string
	Processes []string
	Mappings  []Mapping
}

// Mapping match modes
const (
	MatchExact    = "exact"
	MatchContains = "contains"
)

// Mapping is one context-scoped phrase
type Mapping struct {
	Phrase string
	Match  string
	Action models.ActionRequest
}

// Applies reports whether the scope is active for the given host context
func (s Scope) Applies(hc models.HostContext) bool {
	proc := ProcessKey(hc.Process)
	if proc == "" {
		return false
	}
	for _, p := range s.Processes {
		if ProcessKey(p) == proc {
			return true
		}
	}
	return false
}

// Matches reports whether normalized text triggers the mapping
func (m Mapping) Matches(text string) bool {
	if m.Match == MatchContains {
		return containsPhrase(text, m.Phrase)
	}
	return text == m.Phrase
}

// ProcessKey canonicalizes a process name: lowercase, no directory, no .exe
func ProcessKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".exe")
}

// MacroAliasKey strips everything but letters and digits, so that
// "Morning-Setup!" and "morning setup" share a key.
func MacroAliasKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize runs text through the snapshot's normalizer
func (s *Snapshot) Normalize(text string) string {
	if s.Normalizer == nil {
		return strings.Join(strings.Fields(strings.ToLower(text)), " ")
	}
	return s.Normalizer.Normalize(text)
}

// Macro finds a macro by exact normalized name or by alias key
func (s *Snapshot) Macro(text string) (models.RunBundle, bool) {
	if m, ok := s.Macros[text]; ok {
		return m, true
	}
	key := MacroAliasKey(text)
	if key == "" {
		return models.RunBundle{}, false
	}
	if name, ok := s.macroAliases[key]; ok {
		m, ok := s.Macros[name]
		return m, ok
	}
	return models.RunBundle{}, false
}

// MacroByName is Macro with an error for the CLI and REPL
func (s *Snapshot) MacroByName(name string) (models.RunBundle, error) {
	if m, ok := s.Macro(s.Normalize(name)); ok {
		return m, nil
	}
	return models.RunBundle{}, fmt.Errorf("%w: %q", ErrUnknownMacro, name)
}

// MacroNames returns macro names in sorted order
func (s *Snapshot) MacroNames() []string {
	return sortedKeys(s.Macros)
}

// Symbol looks up a symbol by normalized name
func (s *Snapshot) Symbol(name string) (string, bool) {
	sym, ok := s.Symbols[s.Normalize(name)]
	return sym, ok
}

// HostChord returns the keyboard fallback for a canonical host command
func (s *Snapshot) HostChord(canonical string) (string, bool) {
	chord, ok := s.HostChords[strings.ToLower(canonical)]
	return chord, ok
}

// LookupNamed finds a target by exact name, then by best similarity above
// the fuzzy threshold. Ties keep the first declared entry.
func LookupNamed(entries []NamedTarget, name string) (NamedTarget, float64, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, 1, true
		}
	}
	best, bestScore := -1, 0.0
	for i, e := range entries {
		score := textnorm.Similarity(e.Name, name)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 && bestScore > textnorm.FuzzyThreshold {
		return entries[best], bestScore, true
	}
	return NamedTarget{}, 0, false
}

// knownFolders maps spoken folder names to canonical known folders
var knownFolders = map[string]string{
	"desktop":   "Desktop",
	"documents": "Documents",
	"document":  "Documents",
	"downloads": "Downloads",
	"download":  "Downloads",
	"music":     "Music",
	"pictures":  "Pictures",
	"photos":    "Pictures",
	"videos":    "Videos",
	"home":      "Home",
	"templates": "Templates",
	"public":    "Public",
}

// KnownFolder resolves a spoken folder name ("downloads", "my documents folder")
func KnownFolder(name string) (string, bool) {
	name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), "folder"))
	name = strings.TrimPrefix(name, "the ")
	name = strings.TrimPrefix(name, "my ")
	f, ok := knownFolders[name]
	return f, ok
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Symbols = make(map[string]string, len(s.Symbols))
	for k, v := range s.Symbols {
		c.Symbols[k] = v
	}
	return &c
}
