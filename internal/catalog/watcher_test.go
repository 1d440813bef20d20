package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	store := NewStore(Options{Dir: dir, SkipDefaults: true}, nil, nil)
	_, ok := store.Current().Overrides["open mail"]
	require.False(t, ok)

	w, err := NewWatcher(store, nil)
	require.NoError(t, err)
	w.debounce = 30 * time.Millisecond

	reloaded := make(chan *Snapshot, 4)
	w.OnReload = func(s *Snapshot) { reloaded <- s }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	content := "open mail:\n  type: launch_app\n  exe: thunderbird\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileOverrides), []byte(content), 0644))

	select {
	case snap := <-reloaded:
		_, ok := snap.Overrides["open mail"]
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("catalog was not reloaded")
	}

	w.Stop()
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	store := NewStore(Options{Dir: dir, SkipDefaults: true}, nil, nil)
	w, err := NewWatcher(store, nil)
	require.NoError(t, err)
	w.debounce = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	v := store.Current().Version
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644))
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, v, store.Current().Version)
	w.Stop()
}

func TestNewWatcher_RequiresDirectory(t *testing.T) {
	store := NewStore(Options{SkipDefaults: true}, nil, nil)
	_, err := NewWatcher(store, nil)
	assert.Error(t, err)
}
