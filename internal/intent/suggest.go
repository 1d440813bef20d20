package intent

import (
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/themobileprof/deskpilot/internal/catalog"
)

// Suggestion is a known phrase close to an unresolved utterance
type Suggestion struct {
	Phrase   string
	Distance int
}

// Suggest returns known phrases within a third of the utterance's length
// in edit distance, closest first. It is only used to word the "no
// matching action" message and never changes what gets executed.
func Suggest(text string, snap *catalog.Snapshot, limit int) []Suggestion {
	if text == "" || snap == nil {
		return nil
	}
	maxDist := len([]rune(text)) / 3
	if maxDist == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []Suggestion
	consider := func(phrase string) {
		if phrase == "" || seen[phrase] {
			return
		}
		seen[phrase] = true
		if d := levenshtein.ComputeDistance(text, phrase); d <= maxDist {
			out = append(out, Suggestion{Phrase: phrase, Distance: d})
		}
	}

	for _, e := range snap.Fuzzy {
		consider(e.Label)
	}
	for _, k := range sortedPhrases(snap.Overrides) {
		consider(k)
	}
	for _, name := range snap.MacroNames() {
		consider(name)
	}
	for _, p := range sortedPhrases(helpPhrases) {
		consider(p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortedPhrases[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
