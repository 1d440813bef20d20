package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themobileprof/deskpilot/pkg/models"
)

func writeCatalogFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	snap := Load(Options{}, nil)

	assert.NotEmpty(t, snap.Overrides)
	assert.NotEmpty(t, snap.Fuzzy)
	assert.NotEmpty(t, snap.Scopes)

	m, ok := snap.Macro("morning setup")
	require.True(t, ok)
	assert.True(t, m.ContinueOnError)
	require.Len(t, m.Steps, 2)
	assert.Equal(t, models.KindLaunchApp, m.Steps[0].Kind())
	assert.Equal(t, models.KindOpenWebsite, m.Steps[1].Kind())

	chord, ok := snap.HostChord("Build.BuildSolution")
	require.True(t, ok)
	assert.Equal(t, "ctrl+shift+b", chord)

	// Defaults never produce rejected substitutions
	assert.Empty(t, snap.Normalizer.Rejected())
	assert.Equal(t, "full screen", snap.Normalizer.Normalize("fullscreen"))
	assert.Equal(t, "take a screenshot", snap.Normalizer.Normalize("Take a screen shot, please"))
}

func TestLoad_MissingDirectory(t *testing.T) {
	snap := Load(Options{Dir: filepath.Join(t.TempDir(), "nope"), SkipDefaults: true}, nil)

	assert.Empty(t, snap.Overrides)
	assert.Empty(t, snap.Macros)
	assert.Len(t, snap.Rules, len(BuiltinRules()))
}

func TestLoad_MalformedFileOnlyEmptiesItsTable(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, FileRules, "- name: [unterminated\n")
	writeCatalogFile(t, dir, FileOverrides, `
Open Mail:
  type: launch_app
  exe: thunderbird
`)

	snap := Load(Options{Dir: dir, SkipDefaults: true}, nil)

	assert.Len(t, snap.Rules, len(BuiltinRules()))
	a, ok := snap.Overrides["open mail"]
	require.True(t, ok, "override keys are normalized")
	assert.Equal(t, models.LaunchApp{ExeOrURI: "thunderbird"}, a)
}

func TestLoad_InvalidEntriesSkipped(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, FileOverrides, `
good:
  type: close_tab
bad:
  type: teleport
`)
	writeCatalogFile(t, dir, FileRules, `
- name: broken-regex
  when: regex
  pattern: "("
  action: {type: close_tab}
- name: ok
  when: prefix
  phrases: [say]
  action: {type: send_keys, keys: "{rest}", literal: true}
`)

	snap := Load(Options{Dir: dir, SkipDefaults: true}, nil)

	assert.Contains(t, snap.Overrides, "good")
	assert.NotContains(t, snap.Overrides, "bad")
	require.Len(t, snap.Rules, len(BuiltinRules())+1)
	assert.Equal(t, "ok", snap.Rules[0].Name)

	a, ok := snap.Rules[0].Try("say hello there")
	require.True(t, ok)
	assert.Equal(t, models.SendKeys{Keys: "hello there", Literal: true}, a)
}

func TestLoad_UserEntriesComeFirst(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, FileFuzzy, `
- label: build the solution
  action: {type: send_keys, keys: ctrl+b}
`)
	writeCatalogFile(t, dir, FileSymbols, "heart: \"<3\"\n")

	snap := Load(Options{Dir: dir}, nil)

	require.NotEmpty(t, snap.Fuzzy)
	assert.Equal(t, "build the solution", snap.Fuzzy[0].Label)
	assert.Equal(t, models.SendKeys{Keys: "ctrl+b"}, snap.Fuzzy[0].Action)
	for _, e := range snap.Fuzzy[1:] {
		assert.NotEqual(t, "build the solution", e.Label, "duplicate label from defaults must be dropped")
	}

	sym, ok := snap.Symbol("Heart")
	require.True(t, ok)
	assert.Equal(t, "<3", sym)
}

func TestLoad_MacroFlattening(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, FileMacros, `
- name: a
  steps:
    - {type: send_keys, keys: x}
- name: b
  steps:
    - {macro: a}
    - {type: send_keys, keys: y}
- name: c
  steps:
    - {macro: b}
- name: d
  steps:
    - {macro: d}
    - {type: send_keys, keys: z}
- name: e
  steps:
    - {type: run_bundle, name: inner}
    - {type: send_keys, keys: q}
`)

	snap := Load(Options{Dir: dir, SkipDefaults: true}, nil)

	b, ok := snap.Macros["b"]
	require.True(t, ok)
	assert.Equal(t, []models.ActionRequest{models.SendKeys{Keys: "x"}, models.SendKeys{Keys: "y"}}, b.Steps)

	_, ok = snap.Macros["c"]
	assert.False(t, ok, "a macro whose only step is a nested macro is dropped")

	d, ok := snap.Macros["d"]
	require.True(t, ok)
	assert.Equal(t, []models.ActionRequest{models.SendKeys{Keys: "z"}}, d.Steps)

	_, ok = snap.Macros["e"]
	assert.False(t, ok, "inline bundles inside a macro are rejected")
}

func TestSnapshot_MacroAlias(t *testing.T) {
	snap := Load(Options{}, nil)

	for _, in := range []string{"morning setup", "morning-setup", "morningsetup", "start my day"} {
		m, ok := snap.Macro(in)
		require.True(t, ok, in)
		assert.Equal(t, "morning setup", m.Name)
	}

	_, err := snap.MacroByName("evening teardown")
	assert.True(t, errors.Is(err, ErrUnknownMacro))
}

func TestLookupNamed(t *testing.T) {
	entries := []NamedTarget{
		{Name: "counter strike", Target: "steam://rungameid/730"},
		{Name: "dota", Target: "steam://rungameid/570"},
	}

	got, score, ok := LookupNamed(entries, "dota")
	require.True(t, ok)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, "steam://rungameid/570", got.Target)

	got, _, ok = LookupNamed(entries, "counter strik")
	require.True(t, ok)
	assert.Equal(t, "steam://rungameid/730", got.Target)

	_, _, ok = LookupNamed(entries, "solitaire")
	assert.False(t, ok)
}

func TestKnownFolder(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"downloads", "Downloads", true},
		{"my documents", "Documents", true},
		{"the desktop folder", "Desktop", true},
		{"photos", "Pictures", true},
		{"garage", "", false},
	}
	for _, tt := range tests {
		got, ok := KnownFolder(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestScope_Applies(t *testing.T) {
	s := Scope{Name: "vs", Processes: []string{"devenv"}}

	assert.True(t, s.Applies(models.HostContext{Process: "devenv"}))
	assert.True(t, s.Applies(models.HostContext{Process: `C:\Program Files\VS\DEVENV.EXE`}))
	assert.False(t, s.Applies(models.HostContext{Process: "code"}))
	assert.False(t, s.Applies(models.HostContext{}))
}

type fakePersister struct {
	mu      sync.Mutex
	set     map[string]string
	removed map[string]bool
	failErr error
}

func newFakePersister() *fakePersister {
	return &fakePersister{set: map[string]string{}, removed: map[string]bool{}}
}

func (f *fakePersister) SaveSymbol(name, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.set[name] = symbol
	delete(f.removed, name)
	return nil
}

func (f *fakePersister) DeleteSymbol(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	delete(f.set, name)
	f.removed[name] = true
	return nil
}

func (f *fakePersister) LoadSymbols() (map[string]string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := make(map[string]string, len(f.set))
	for k, v := range f.set {
		set[k] = v
	}
	var removed []string
	for k := range f.removed {
		removed = append(removed, k)
	}
	return set, removed, nil
}

func TestStore_SymbolLifecycle(t *testing.T) {
	p := newFakePersister()
	store := NewStore(Options{}, p, nil)

	before := store.Current()
	require.NoError(t, store.SetSymbol("Party", "🎉"))

	after := store.Current()
	assert.Greater(t, after.Version, before.Version)
	sym, ok := after.Symbol("party")
	require.True(t, ok)
	assert.Equal(t, "🎉", sym)

	_, ok = before.Symbols["party"]
	assert.False(t, ok, "published snapshots are never mutated")

	// A configured default removed at runtime stays removed across reloads
	require.NoError(t, store.UnsetSymbol("heart"))
	snap := store.Reload()
	_, ok = snap.Symbol("heart")
	assert.False(t, ok)
	_, ok = snap.Symbol("party")
	assert.True(t, ok)

	err := store.UnsetSymbol("no such thing")
	assert.True(t, errors.Is(err, ErrUnknownSymbol))
}

func TestStore_PersistFailureLeavesSnapshot(t *testing.T) {
	p := newFakePersister()
	p.failErr = errors.New("disk full")
	store := NewStore(Options{SkipDefaults: true}, p, nil)
	v := store.Current().Version

	err := store.SetSymbol("star", "⭐")
	require.Error(t, err)
	assert.Equal(t, v, store.Current().Version)
	_, ok := store.Current().Symbol("star")
	assert.False(t, ok)
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	store := NewStore(Options{}, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := store.Current()
				_ = snap.Normalize("please maximise the window")
				_, _ = snap.Macro("morning setup")
				if i%4 == 0 {
					_ = store.SetSymbol("tmp", "x")
					_ = store.UnsetSymbol("tmp")
				}
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			store.Reload()
		}
	}()
	wg.Wait()

	assert.NotNil(t, store.Current())
}

func TestStaticStore_ReloadKeepsSnapshot(t *testing.T) {
	snap := Build(Sources{Symbols: map[string]string{"a": "b"}}, nil)
	store := NewStaticStore(snap)

	assert.Same(t, snap, store.Reload())
}
