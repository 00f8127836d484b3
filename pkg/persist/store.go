package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrSlotEmpty is returned when loading a slot that holds no save.
var ErrSlotEmpty = errors.New("save slot is empty")

// Store keeps one serialized document per slot.
type Store interface {
	Put(slot int, doc string) error
	Get(slot int) (string, error)
	Close() error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[int]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[int]string)}
}

func (m *MemoryStore) Put(slot int, doc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = doc
	return nil
}

func (m *MemoryStore) Get(slot int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.slots[slot]
	if !ok {
		return "", ErrSlotEmpty
	}
	return doc, nil
}

func (m *MemoryStore) Close() error { return nil }

// Table names the table and columns used by SQLiteStore.
type Table struct {
	Name, Key, Value string
}

// DefaultTable is the built-in save table.
var DefaultTable = Table{Name: "savegame", Key: "id", Value: "state"}

// SQLiteStore keeps one row per slot in an SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	table Table
}

// OpenSQLite opens (or creates) the database at path and ensures the table
// exists. Missing parent directories are created.
func OpenSQLite(path string, table Table) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create save directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open save database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s INTEGER PRIMARY KEY, %s TEXT)",
		table.Name, table.Key, table.Value)
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create save table: %w", err)
	}
	return &SQLiteStore{db: db, table: table}, nil
}

func (s *SQLiteStore) Put(slot int, doc string) error {
	q := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s, %s) VALUES (?, ?)", s.table.Name, s.table.Key, s.table.Value)
	if _, err := s.db.Exec(q, slot, doc); err != nil {
		return fmt.Errorf("failed to write slot %d: %w", slot, err)
	}
	return nil
}

func (s *SQLiteStore) Get(slot int) (string, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", s.table.Value, s.table.Name, s.table.Key)
	var doc string
	err := s.db.QueryRow(q, slot).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSlotEmpty
	}
	if err != nil {
		return "", fmt.Errorf("failed to read slot %d: %w", slot, err)
	}
	return doc, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Provider is a slot-unaware save backend such as a custom module.
type Provider interface {
	Save(data string) error
	Load() (string, error)
}

// ProviderStore adapts a Provider to Store. The provider keeps a single
// save, so the last Put wins regardless of slot.
type ProviderStore struct {
	p Provider
}

// NewProviderStore wraps p.
func NewProviderStore(p Provider) *ProviderStore {
	return &ProviderStore{p: p}
}

func (s *ProviderStore) Put(slot int, doc string) error {
	return s.p.Save(doc)
}

func (s *ProviderStore) Get(slot int) (string, error) {
	doc, err := s.p.Load()
	if err != nil {
		return "", err
	}
	if doc == "" {
		return "", ErrSlotEmpty
	}
	return doc, nil
}

// Close is a no-op; the provider's lifetime belongs to its module.
func (s *ProviderStore) Close() error { return nil }
