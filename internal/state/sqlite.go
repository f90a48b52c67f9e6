package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teamcutter/cubepkg/internal/domain"
)

const (
	sectionInstalled = "installed"
	sectionAvailable = "available"
)

const schema = `
CREATE TABLE IF NOT EXISTS packages (
    id         TEXT NOT NULL,
    section    TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    version    TEXT NOT NULL DEFAULT '',
    type       TEXT NOT NULL DEFAULT '',
    handler    TEXT NOT NULL DEFAULT '',
    size       TEXT NOT NULL DEFAULT '',
    url        TEXT NOT NULL DEFAULT '',
    sha256sum  TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL,
    PRIMARY KEY (id, section)
);
`

// SQLiteState stores the catalog state in a SQLite database and mirrors the
// installed section to a JSON file for tools that cannot read the database.
type SQLiteState struct {
	mu         sync.RWMutex
	db         *sql.DB
	dbPath     string
	exportPath string
}

// NewSQLite opens dbPath. A YAML state file at legacyPath is imported into
// an empty database once and then renamed to <legacyPath>.bak.
func NewSQLite(dbPath, exportPath, legacyPath string) (*SQLiteState, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &SQLiteState{
		db:         db,
		dbPath:     dbPath,
		exportPath: exportPath,
	}

	if err := s.migrate(legacyPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteState) migrate(legacyPath string) error {
	if legacyPath == "" {
		return nil
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM packages").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := os.Stat(legacyPath); os.IsNotExist(err) {
		return nil
	}

	legacy, err := readFile(legacyPath)
	if err != nil {
		return err
	}

	if err := s.save(legacy); err != nil {
		return err
	}

	return os.Rename(legacyPath, legacyPath+".bak")
}

func (s *SQLiteState) Load() (*domain.CatalogState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, section, name, version, type, handler, size, url, sha256sum
		FROM packages`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	state := domain.NewCatalogState()
	for rows.Next() {
		var id, section string
		var m domain.Metadata
		if err := rows.Scan(&id, &section, &m.Name, &m.Version, &m.Type, &m.Handler,
			&m.Size, &m.URL, &m.SHA256Sum); err != nil {
			return nil, err
		}

		switch section {
		case sectionInstalled:
			state.Installed[id] = m
		case sectionAvailable:
			state.Available[id] = m
		}
	}

	return state, rows.Err()
}

// Save replaces the whole state in one transaction.
func (s *SQLiteState) Save(state *domain.CatalogState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(state)
}

func (s *SQLiteState) save(state *domain.CatalogState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM packages"); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for section, pkgs := range map[string]map[string]domain.Metadata{
		sectionInstalled: state.Installed,
		sectionAvailable: state.Available,
	} {
		for id, m := range pkgs {
			if err := insertPkg(tx, id, section, m, now); err != nil {
				return fmt.Errorf("failed to insert %s: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return s.exportJSON(state.Installed)
}

func insertPkg(tx *sql.Tx, id, section string, m domain.Metadata, now string) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO packages
		(id, section, name, version, type, handler, size, url, sha256sum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, section, m.Name, m.Version, m.Type, m.Handler, m.Size, m.URL, m.SHA256Sum, now)
	return err
}

func (s *SQLiteState) exportJSON(installed map[string]domain.Metadata) error {
	if s.exportPath == "" {
		return nil
	}

	data, err := json.MarshalIndent(installed, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(s.exportPath, data)
}

func (s *SQLiteState) Close() error {
	return s.db.Close()
}
