package db

import (
	"fmt"

	"github.com/themobileprof/deskpilot/internal/catalog"
)

// SymbolRepo persists runtime symbol changes for catalog.Store
type SymbolRepo struct {
	db *DB
}

// Ensure SymbolRepo implements SymbolPersister interface
var _ catalog.SymbolPersister = (*SymbolRepo)(nil)

// NewSymbolRepo creates a symbol repository on db
func NewSymbolRepo(db *DB) *SymbolRepo {
	return &SymbolRepo{db: db}
}

// SaveSymbol stores or replaces a symbol, clearing any tombstone
func (r *SymbolRepo) SaveSymbol(name, symbol string) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO symbols (name, symbol, removed) VALUES (?, ?, 0)
		ON CONFLICT(name) DO UPDATE SET symbol = excluded.symbol, removed = 0, updated_at = strftime('%s', 'now')
	`, name, symbol)
	if err != nil {
		return fmt.Errorf("failed to save symbol %s: %w", name, err)
	}
	return nil
}

// DeleteSymbol leaves a tombstone so the name stays removed across reloads
func (r *SymbolRepo) DeleteSymbol(name string) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO symbols (name, symbol, removed) VALUES (?, '', 1)
		ON CONFLICT(name) DO UPDATE SET symbol = '', removed = 1, updated_at = strftime('%s', 'now')
	`, name)
	if err != nil {
		return fmt.Errorf("failed to delete symbol %s: %w", name, err)
	}
	return nil
}

// LoadSymbols returns the runtime-set symbols and the tombstoned names
func (r *SymbolRepo) LoadSymbols() (map[string]string, []string, error) {
	rows, err := r.db.conn.Query("SELECT name, symbol, removed FROM symbols ORDER BY name")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load symbols: %w", err)
	}
	defer rows.Close()

	set := make(map[string]string)
	var removed []string
	for rows.Next() {
		var name, symbol string
		var tomb bool
		if err := rows.Scan(&name, &symbol, &tomb); err != nil {
			return nil, nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		if tomb {
			removed = append(removed, name)
		} else {
			set[name] = symbol
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to load symbols: %w", err)
	}
	return set, removed, nil
}
