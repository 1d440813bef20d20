package catalog

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrUnknownSymbol is returned when unsetting a symbol that does not exist
var ErrUnknownSymbol = errors.New("unknown symbol")

// ErrUnknownMacro is returned when a macro lookup by name fails
var ErrUnknownMacro = errors.New("unknown macro")

// SymbolPersister stores runtime symbol changes outside the process.
// LoadSymbols returns symbols set at runtime and the names removed at
// runtime (so a configured symbol stays removed after a reload).
type SymbolPersister interface {
	SaveSymbol(name, symbol string) error
	DeleteSymbol(name string) error
	LoadSymbols() (set map[string]string, removed []string, err error)
}

// Store publishes catalog snapshots. Current never blocks; Reload,
// SetSymbol and UnsetSymbol are serialized with each other.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu        sync.Mutex // writers only
	opts      Options
	persister SymbolPersister
	logger    *zap.Logger
	version   uint64
	static    bool
}

// NewStore loads the catalog and returns a store serving it. persister
// may be nil, in which case symbol changes live only in memory.
func NewStore(opts Options, persister SymbolPersister, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{opts: opts, persister: persister, logger: logger}
	s.Reload()
	return s
}

// NewStaticStore serves a prebuilt snapshot. Reload keeps the snapshot.
func NewStaticStore(snap *Snapshot) *Store {
	s := &Store{logger: zap.NewNop(), static: true}
	s.version = 1
	snap.Version = s.version
	s.current.Store(snap)
	return s
}

// Current returns the snapshot to use for one utterance
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload re-reads every catalog source and swaps in the new snapshot.
// In-flight utterances keep the snapshot they started with.
func (s *Store) Reload() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.static {
		return s.current.Load()
	}

	snap := Load(s.opts, s.logger)
	s.applyPersisted(snap)
	s.version++
	snap.Version = s.version
	s.current.Store(snap)

	s.logger.Info("catalog loaded",
		zap.Uint64("version", snap.Version),
		zap.Int("overrides", len(snap.Overrides)),
		zap.Int("rules", len(snap.Rules)),
		zap.Int("scopes", len(snap.Scopes)),
		zap.Int("fuzzy", len(snap.Fuzzy)),
		zap.Int("macros", len(snap.Macros)),
		zap.Int("symbols", len(snap.Symbols)))
	return snap
}

func (s *Store) applyPersisted(snap *Snapshot) {
	if s.persister == nil {
		return
	}
	set, removed, err := s.persister.LoadSymbols()
	if err != nil {
		s.logger.Warn("failed to load persisted symbols", zap.Error(err))
		return
	}
	for _, name := range removed {
		delete(snap.Symbols, snap.Normalize(name))
	}
	for name, sym := range set {
		if key := snap.Normalize(name); key != "" {
			snap.Symbols[key] = sym
		}
	}
}

// SetSymbol adds or replaces a symbol. The change is persisted before it
// becomes visible.
func (s *Store) SetSymbol(name, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	key := cur.Normalize(name)
	if key == "" {
		return fmt.Errorf("symbol name is empty")
	}
	if symbol == "" {
		return fmt.Errorf("symbol for %q is empty", key)
	}
	if s.persister != nil {
		if err := s.persister.SaveSymbol(key, symbol); err != nil {
			return fmt.Errorf("failed to persist symbol %q: %w", key, err)
		}
	}

	next := cur.clone()
	next.Symbols[key] = symbol
	s.publish(next)
	return nil
}

// UnsetSymbol removes a symbol
func (s *Store) UnsetSymbol(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	key := cur.Normalize(name)
	if _, ok := cur.Symbols[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
	}
	if s.persister != nil {
		if err := s.persister.DeleteSymbol(key); err != nil {
			return fmt.Errorf("failed to persist removal of %q: %w", key, err)
		}
	}

	next := cur.clone()
	delete(next.Symbols, key)
	s.publish(next)
	return nil
}

func (s *Store) publish(next *Snapshot) {
	s.version++
	next.Version = s.version
	s.current.Store(next)
}
