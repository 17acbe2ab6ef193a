// Package store implements the record store over SQLite (modernc.org/sqlite)
// or PostgreSQL (pgx), accessed through sqlx. Each collection maps to one
// table; Store hands out Collection accessors that satisfy
// types.RecordStore.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// DBFile is the SQLite database file name inside the data directory.
const DBFile = "backoffice.db"

// DefaultSchema is the PostgreSQL schema used when none is configured.
const DefaultSchema = "backoffice"

// Store errors.
var (
	ErrClosed        = errors.New("store is closed")
	ErrInvalidSchema = errors.New("invalid postgres schema name")
)

// Store owns the database handle and the collection accessors.
type Store struct {
	mu          sync.RWMutex
	db          *sqlx.DB
	config      types.Config
	collections map[string]*Collection
	log         types.Logger
}

// Open connects to the configured backend and creates missing tables.
func Open(ctx context.Context, config types.Config, log types.Logger) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = types.NopLogger{}
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch config.Backend {
	case types.BackendPostgres:
		db, err = openPostgres(ctx, config.DSN, config.Schema)
	default:
		db, err = openSQLite(config.DataDir)
	}
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:          db,
		config:      config,
		collections: make(map[string]*Collection),
		log:         log,
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	for _, name := range types.RecordCollections {
		s.collections[name] = &Collection{store: s, table: tables[name]}
	}
	log.Debugf("store opened: backend=%s", config.Backend)
	return s, nil
}

func openSQLite(dataDir string) (*sqlx.DB, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	db, err := sqlx.Open("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// A single connection serialises writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return db, nil
}

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	return `"` + ident + `"`
}

func openPostgres(ctx context.Context, dsn, schema string) (*sqlx.DB, error) {
	if schema == "" {
		schema = DefaultSchema
	}
	if !schemaNameRe.MatchString(schema) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchema, schema)
	}

	// Create the schema on a plain connection, then reconnect with
	// search_path pinned to it.
	cfg0, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := db0.PingContext(ctx); err != nil {
		_ = db0.Close()
		return nil, errors.Wrap(err, "connect postgres")
	}
	if _, err := db0.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(schema)); err != nil {
		_ = db0.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	_ = db0.Close()

	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "connect postgres")
	}
	return sqlx.NewDb(db, "pgx"), nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, name := range types.RecordCollections {
		t := tables[name]
		if _, err := s.db.ExecContext(ctx, t.createDDL()); err != nil {
			return errors.Wrapf(err, "create table %s", name)
		}
		for _, ddl := range t.indexDDL() {
			if _, err := s.db.ExecContext(ctx, ddl); err != nil {
				return errors.Wrapf(err, "create index on %s", name)
			}
		}
	}
	return nil
}

// Close releases the database handle. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.collections = make(map[string]*Collection)
	return err
}

// Collection returns the accessor for a record collection.
func (s *Store) Collection(name string) (*Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrCollectionName, name)
	}
	return c, nil
}

// Counts returns the row count of every record collection.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(types.RecordCollections))
	for _, name := range types.RecordCollections {
		c, err := s.Collection(name)
		if err != nil {
			return nil, err
		}
		n, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, nil
}

// handle returns the open database or ErrClosed.
func (s *Store) handle() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// generateUUID generates a new UUID v7 for row IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
