package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the SQLite sink. Objects are upserted by GUID, so indexing the
// same sources again rewrites the same rows.
type Store struct {
	db    *sql.DB
	guids *guidCounter
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewStoreFromDB(db), nil
}

// NewStoreFromDB wraps an already opened connection.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db, guids: newGUIDCounter()}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate applies the pending schema migrations. Idempotent.
func (s *Store) Migrate() error {
	p, err := s.provider()
	if err != nil {
		return err
	}
	if _, err := p.Up(context.Background()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SchemaVersion returns the version of the last applied migration.
func (s *Store) SchemaVersion() (int64, error) {
	p, err := s.provider()
	if err != nil {
		return 0, err
	}
	v, err := p.GetDBVersion(context.Background())
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return v, nil
}

func (s *Store) provider() (*goose.Provider, error) {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migration provider: %w", err)
	}
	return p, nil
}

// CreateObject writes obj immediately. It is used for module objects,
// which must exist before any batch refers to them.
func (s *Store) CreateObject(obj *Object) (Handle, error) {
	obj.GUID = s.guids.Final(obj.ParentGUID, obj.GUID)
	ids := make(map[string]int64)
	if err := upsertObject(s.db, ids, obj); err != nil {
		return "", fmt.Errorf("create object %q: %w", obj.GUID, err)
	}
	return Handle(obj.GUID), nil
}

// CreateEdge writes e immediately.
func (s *Store) CreateEdge(e *Edge) error {
	ids := make(map[string]int64)
	if err := insertEdge(s.db, ids, e); err != nil {
		return fmt.Errorf("create edge %s %s -> %s: %w", e.Kind, e.Source, e.Target, err)
	}
	return nil
}

// DeleteFileData removes every object and edge owned by a file. Edges
// from other files toward the removed objects go with them.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete file data: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete file data: edges: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM objects WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete file data: objects: %w", err)
	}
	return tx.Commit()
}
