package intent

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/themobileprof/deskpilot/internal/catalog"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// directive is a verb recognized by prefix with its own micro-parser.
// parse returns false to let the cascade continue.
type directive struct {
	prefixes []string
	parse    func(rest string, in Input) (models.ActionRequest, float64, bool)
}

// directiveStrategy is the first cascade stage
type directiveStrategy struct {
	directives []directive
}

func newDirectiveStrategy() directiveStrategy {
	return directiveStrategy{directives: []directive{
		{prefixes: []string{"focus on", "focus", "switch to", "go to window"}, parse: parseFocus},
		{prefixes: []string{"play"}, parse: parsePlay},
		{prefixes: []string{"press", "hit"}, parse: parsePress},
		{prefixes: []string{"type"}, parse: parseType},
		{prefixes: []string{"open up", "open"}, parse: parseOpen},
		{prefixes: []string{"launch", "start", "run"}, parse: parseLaunch},
		{prefixes: []string{"insert", "symbol", "emoji"}, parse: parseSymbol},
		{prefixes: []string{"search the web for", "search for"}, parse: parseSearch},
	}}
}

func (directiveStrategy) Name() string { return StrategyDirective }

func (d directiveStrategy) TryMatch(in Input) (models.MatchCandidate, bool) {
	for _, dir := range d.directives {
		for _, p := range dir.prefixes {
			rest, ok := strings.CutPrefix(in.Text, p+" ")
			if !ok {
				continue
			}
			rest = strings.TrimSpace(rest)
			if rest == "" {
				continue
			}
			if a, conf, ok := dir.parse(rest, in); ok {
				return candidate(StrategyDirective, conf, a)
			}
			// A verb that recognized its prefix but not its argument
			// leaves the utterance to later stages.
			break
		}
	}
	return models.MatchCandidate{}, false
}

// Window words that belong to placement and tab rules, not to focus
var notWindowTitles = map[string]bool{
	"tab": true, "tabs": true, "monitor": true, "screen": true,
	"next": true, "previous": true, "other": true, "window": true,
}

func parseFocus(rest string, _ Input) (models.ActionRequest, float64, bool) {
	rest = trimArticles(rest)
	for _, w := range strings.Fields(rest) {
		if notWindowTitles[w] {
			return nil, 0, false
		}
	}
	if rest == "" {
		return nil, 0, false
	}
	return models.FocusWindow{TitleSubstring: rest}, 1, true
}

func parsePlay(rest string, in Input) (models.ActionRequest, float64, bool) {
	game, score, ok := catalog.LookupNamed(in.Catalog.Games, trimArticles(rest))
	if !ok {
		return nil, 0, false
	}
	return models.LaunchApp{ExeOrURI: game.Target}, score, true
}

func parseType(rest string, _ Input) (models.ActionRequest, float64, bool) {
	return models.SendKeys{Keys: rest, Literal: true}, 1, true
}

func parseOpen(rest string, in Input) (models.ActionRequest, float64, bool) {
	name := trimArticles(rest)
	if f, ok := catalog.KnownFolder(name); ok {
		return models.OpenFolder{KnownFolder: f}, 1, true
	}
	if looksLikeURL(name) {
		u := name
		if !strings.Contains(u, "://") {
			u = "https://" + u
		}
		return models.OpenWebsite{URL: u}, 1, true
	}

	site, siteScore, siteOK := catalog.LookupNamed(in.Catalog.Websites, name)
	app, appScore, appOK := catalog.LookupNamed(in.Catalog.Apps, name)
	switch {
	case siteOK && (!appOK || siteScore >= appScore):
		return models.OpenWebsite{URL: site.Target}, siteScore, true
	case appOK:
		return models.LaunchApp{ExeOrURI: app.Target}, appScore, true
	}
	return nil, 0, false
}

func parseLaunch(rest string, in Input) (models.ActionRequest, float64, bool) {
	if m, ok := in.Catalog.Macro(rest); ok {
		return m, 1, true
	}
	name := trimArticles(rest)
	if app, score, ok := catalog.LookupNamed(in.Catalog.Apps, name); ok {
		return models.LaunchApp{ExeOrURI: app.Target}, score, true
	}
	if game, score, ok := catalog.LookupNamed(in.Catalog.Games, name); ok {
		return models.LaunchApp{ExeOrURI: game.Target}, score, true
	}
	return nil, 0, false
}

func parseSymbol(rest string, in Input) (models.ActionRequest, float64, bool) {
	name := rest
	for _, suffix := range []string{" symbol", " emoji", " sign"} {
		name = strings.TrimSuffix(name, suffix)
	}
	name = trimArticles(strings.TrimPrefix(name, "symbol "))
	if sym, ok := in.Catalog.Symbols[name]; ok {
		return models.SymbolInsert{Name: name, Symbol: sym}, 1, true
	}
	return nil, 0, false
}

func parseSearch(rest string, _ Input) (models.ActionRequest, float64, bool) {
	return models.OpenWebsite{URL: "https://www.google.com/search?q=" + url.QueryEscape(rest)}, 1, true
}

// keyNames maps spoken key names to X keysym names
var keyNames = map[string]string{
	"control": "ctrl", "ctrl": "ctrl", "alt": "alt", "shift": "shift",
	"super": "super", "windows": "super", "win": "super", "command": "super", "meta": "super",
	"enter": "Return", "return": "Return", "escape": "Escape", "esc": "Escape",
	"tab": "Tab", "space": "space", "spacebar": "space", "backspace": "BackSpace",
	"delete": "Delete", "del": "Delete", "insert": "Insert", "home": "Home", "end": "End",
	"up": "Up", "down": "Down", "left": "Left", "right": "Right",
	"pageup": "Page_Up", "pagedown": "Page_Down", "print": "Print", "menu": "Menu",
}

var modifiers = map[string]bool{"ctrl": true, "alt": true, "shift": true, "super": true}

// parsePress turns "control shift t" or "ctrl+c" into an xdotool chord.
// Several chords may be given, separated by "then".
func parsePress(rest string, _ Input) (models.ActionRequest, float64, bool) {
	var chords []string
	for _, part := range strings.Split(rest, " then ") {
		chord, ok := parseChord(part)
		if !ok {
			return nil, 0, false
		}
		chords = append(chords, chord)
	}
	return models.SendKeys{Keys: strings.Join(chords, " ")}, 1, true
}

func parseChord(text string) (string, bool) {
	text = strings.NewReplacer("+", " ", "-", " ").Replace(text)
	text = strings.ReplaceAll(text, "page up", "pageup")
	text = strings.ReplaceAll(text, "page down", "pagedown")

	var keys []string
	for _, w := range strings.Fields(text) {
		switch w {
		case "and", "plus", "key", "keys", "the":
			continue
		}
		k, ok := keyName(w)
		if !ok {
			return "", false
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", false
	}
	// Only the last key may be a non-modifier
	for _, k := range keys[:len(keys)-1] {
		if !modifiers[k] {
			return "", false
		}
	}
	return strings.Join(keys, "+"), true
}

func keyName(w string) (string, bool) {
	if k, ok := keyNames[w]; ok {
		return k, true
	}
	if len([]rune(w)) == 1 {
		return w, true
	}
	var n int
	if _, err := fmt.Sscanf(w, "f%d", &n); err == nil && n >= 1 && n <= 24 && w == fmt.Sprintf("f%d", n) {
		return fmt.Sprintf("F%d", n), true
	}
	return "", false
}

func trimArticles(s string) string {
	for _, a := range []string{"the ", "my ", "a ", "an "} {
		s = strings.TrimPrefix(s, a)
	}
	return strings.TrimSpace(s)
}

func looksLikeURL(s string) bool {
	if strings.ContainsAny(s, " ") {
		return false
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	dot := strings.LastIndex(s, ".")
	return dot > 0 && dot < len(s)-2
}
