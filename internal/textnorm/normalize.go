// Package textnorm canonicalizes utterances and scores string similarity.
package textnorm

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultPoliteness lists phrases removed from every utterance
var DefaultPoliteness = []string{
	"please",
	"kindly",
	"could you",
	"can you",
	"would you",
	"will you",
	"for me",
	"thank you",
	"thanks",
}

// separators split tokens anywhere they appear
const separators = `,!?;"`

// trailing is stripped from the end of each token
const trailing = ".:"

type phrase []string

type substitution struct {
	from phrase
	to   phrase
}

// Normalizer canonicalizes raw utterances. It is immutable once built
// and safe for concurrent use.
type Normalizer struct {
	politeness []phrase
	subs       []substitution
	rejected   []string
}

// New creates a normalizer for the given politeness phrases
// and word substitutions. Substitutions whose replacement contains a whole
// substitution key or politeness phrase would be rewritten again, so they
// are dropped and reported by Rejected.
func New(politeness []string, substitutions map[string]string) *Normalizer {
	n := &Normalizer{}

	for _, p := range politeness {
		if toks := tokenize(p); len(toks) > 0 {
			n.politeness = append(n.politeness, toks)
		}
	}
	sort.SliceStable(n.politeness, func(i, j int) bool {
		return len(n.politeness[i]) > len(n.politeness[j])
	})

	keys := make([]string, 0, len(substitutions))
	froms := make([]phrase, 0, len(substitutions))
	for k := range substitutions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if toks := tokenize(k); len(toks) > 0 {
			froms = append(froms, toks)
		}
	}

	for _, k := range keys {
		from := tokenize(k)
		to := tokenize(substitutions[k])
		if len(from) == 0 || len(to) == 0 || containsAny(to, froms) || containsAny(to, n.politeness) {
			n.rejected = append(n.rejected, k)
			continue
		}
		n.subs = append(n.subs, substitution{from: from, to: to})
	}
	sort.SliceStable(n.subs, func(i, j int) bool {
		return len(n.subs[i].from) > len(n.subs[j].from)
	})

	return n
}

// Rejected returns the substitution keys that were dropped at construction
func (n *Normalizer) Rejected() []string {
	return append([]string(nil), n.rejected...)
}

// Normalize transforms user input into canonical form. It never fails and
// Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(input string) string {
	// 1. Lowercase, with punctuation acting as separators so later phrase
	//    matching sees the same tokens on every pass
	tokens := tokenize(input)

	// 2. Strip politeness phrases until none are left
	// 3. Substitutions, one pass over the input. A replacement never holds
	//    a whole key, but it can complete one with its neighbours
	//    ("fullscreen shot"), so the result is rescanned until stable.
	for pass := 0; pass < maxPasses; pass++ {
		next := n.substitute(n.stripPoliteness(tokens))
		if equal(next, tokens) {
			break
		}
		tokens = next
	}

	// 4+5. Whitespace collapse and punctuation strip fall out of the join
	return strings.Join(tokens, " ")
}

func (n *Normalizer) stripPoliteness(tokens []string) []string {
	for {
		out := make([]string, 0, len(tokens))
		removed := false
		for i := 0; i < len(tokens); {
			if l := matchAny(tokens[i:], n.politeness); l > 0 {
				i += l
				removed = true
				continue
			}
			out = append(out, tokens[i])
			i++
		}
		tokens = out
		if !removed {
			return tokens
		}
	}
}

func (n *Normalizer) substitute(tokens []string) []string {
	if len(n.subs) == 0 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		matched := false
		for _, s := range n.subs {
			if hasPrefix(tokens[i:], s.from) {
				out = append(out, s.to...)
				i += len(s.from)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}
	return out
}

// maxPasses bounds the rescans of a pathological substitution table
const maxPasses = 8

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// containsAny reports whether any phrase occurs as a contiguous run in tokens
func containsAny(tokens []string, phrases []phrase) bool {
	for i := range tokens {
		if matchAny(tokens[i:], phrases) > 0 {
			return true
		}
	}
	return false
}

// matchAny returns the length of the first phrase that prefixes tokens
func matchAny(tokens []string, phrases []phrase) int {
	for _, p := range phrases {
		if hasPrefix(tokens, p) {
			return len(p)
		}
	}
	return 0
}

func hasPrefix(tokens []string, p phrase) bool {
	if len(p) > len(tokens) {
		return false
	}
	for i := range p {
		if tokens[i] != p[i] {
			return false
		}
	}
	return true
}

// tokenize lowercases text and splits it into tokens
func tokenize(text string) []string {
	text = norm.NFKC.String(text)
	text = cases.Lower(language.Und).String(text)

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(separators, r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimRight(f, trailing)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
