package db

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/themobileprof/deskpilot/internal/catalog"
	"github.com/themobileprof/deskpilot/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew(t *testing.T) {
	db := newTestDB(t)

	if _, err := os.Stat(db.Path()); os.IsNotExist(err) {
		t.Errorf("Database file was not created: %s", db.Path())
	}
	if err := db.conn.Ping(); err != nil {
		t.Errorf("Database connection is not valid: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	db := newTestDB(t)

	tables := []string{"settings", "symbols", "history"}
	for _, table := range tables {
		var count int
		err := db.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Errorf("Failed to query table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("Table %s does not exist after migration", table)
		}
	}

	// migrations are re-runnable
	if err := db.Migrate(); err != nil {
		t.Errorf("Second migration failed: %v", err)
	}
}

func TestSettings(t *testing.T) {
	db := newTestDB(t)

	if err := db.SetSetting("last_catalog_reload", "1"); err != nil {
		t.Fatalf("Failed to set setting: %v", err)
	}
	if err := db.SetSetting("last_catalog_reload", "2"); err != nil {
		t.Fatalf("Failed to update setting: %v", err)
	}

	got, err := db.GetSetting("last_catalog_reload")
	if err != nil {
		t.Fatalf("Failed to get setting: %v", err)
	}
	if got != "2" {
		t.Errorf("Expected 2, got %s", got)
	}

	got, err = db.GetSetting("nonexistent")
	if err != nil {
		t.Fatalf("Unexpected error for non-existent key: %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty string for non-existent key, got %s", got)
	}
}

func TestSymbolRepo(t *testing.T) {
	repo := NewSymbolRepo(newTestDB(t))

	if err := repo.SaveSymbol("rocket", "🚀"); err != nil {
		t.Fatalf("SaveSymbol failed: %v", err)
	}
	if err := repo.SaveSymbol("rocket", "🛸"); err != nil {
		t.Fatalf("SaveSymbol overwrite failed: %v", err)
	}
	if err := repo.DeleteSymbol("heart"); err != nil {
		t.Fatalf("DeleteSymbol failed: %v", err)
	}

	set, removed, err := repo.LoadSymbols()
	if err != nil {
		t.Fatalf("LoadSymbols failed: %v", err)
	}
	if set["rocket"] != "🛸" || len(set) != 1 {
		t.Errorf("unexpected set symbols: %v", set)
	}
	if len(removed) != 1 || removed[0] != "heart" {
		t.Errorf("unexpected removed symbols: %v", removed)
	}

	// setting a tombstoned name brings it back
	if err := repo.SaveSymbol("heart", "💙"); err != nil {
		t.Fatalf("SaveSymbol failed: %v", err)
	}
	set, removed, err = repo.LoadSymbols()
	if err != nil {
		t.Fatalf("LoadSymbols failed: %v", err)
	}
	if set["heart"] != "💙" || len(removed) != 0 {
		t.Errorf("tombstone not cleared: set=%v removed=%v", set, removed)
	}
}

func TestSymbolRepo_SurvivesCatalogReload(t *testing.T) {
	db := newTestDB(t)
	store := catalog.NewStore(catalog.Options{}, NewSymbolRepo(db), nil)

	if err := store.SetSymbol("rocket", "🚀"); err != nil {
		t.Fatalf("SetSymbol failed: %v", err)
	}
	if err := store.UnsetSymbol("heart"); err != nil {
		t.Fatalf("UnsetSymbol failed: %v", err)
	}

	// a fresh store over the same database sees the runtime changes
	reopened := catalog.NewStore(catalog.Options{}, NewSymbolRepo(db), nil)
	snap := reopened.Current()
	if got, ok := snap.Symbol("rocket"); !ok || got != "🚀" {
		t.Errorf("rocket = %q, %v", got, ok)
	}
	if _, ok := snap.Symbol("heart"); ok {
		t.Error("heart should stay removed after reload")
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory(newTestDB(t))

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	entries := []models.HistoryEntry{
		{SessionID: "s1", Raw: "maximize window", Normalized: "maximize window", Strategy: "rule", Confidence: 1, ActionKind: "move_window", OK: true, Result: "Maximized window", DurationMs: 3, CreatedAt: base},
		{SessionID: "s1", Raw: "open downloads", Normalized: "open downloads", Strategy: "directive", Confidence: 1, ActionKind: "open_folder", OK: true, Result: "Opened Downloads", CreatedAt: base.Add(time.Minute)},
		{SessionID: "s1", Raw: "florp", Normalized: "florp", Result: "No matching action for \"florp\""},
	}
	for _, e := range entries {
		if err := h.Record(e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := h.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(recent))
	}
	if recent[0].Raw != "florp" || recent[0].OK {
		t.Errorf("newest entry wrong: %+v", recent[0])
	}
	if recent[1].Strategy != "directive" || !recent[1].OK || recent[1].ActionKind != "open_folder" {
		t.Errorf("second entry wrong: %+v", recent[1])
	}
	if !recent[1].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", recent[1].CreatedAt, base.Add(time.Minute))
	}

	pruned, err := h.Prune(base.Add(30 * time.Second))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned row, got %d", pruned)
	}
}

func TestConcurrentAccess(t *testing.T) {
	db := newTestDB(t)
	h := NewHistory(db)
	repo := NewSymbolRepo(db)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			if err := h.Record(models.HistoryEntry{SessionID: "s", Raw: "close tab"}); err != nil {
				t.Errorf("Concurrent write %d failed: %v", id, err)
			}
			if err := repo.SaveSymbol("star", "⭐"); err != nil {
				t.Errorf("Concurrent symbol write %d failed: %v", id, err)
			}
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	recent, err := h.Recent(100)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 10 {
		t.Errorf("Expected 10 entries, got %d", len(recent))
	}
	ids := make([]int, 0, len(recent))
	for _, e := range recent {
		ids = append(ids, int(e.ID))
	}
	if !sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] > ids[j] }) {
		t.Errorf("Recent not newest first: %v", ids)
	}
}
