package demo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/jywlabs/demogen/internal/config"
)

// SQL drivers accepted by OpenSQL.
const (
	DriverSQLite   = "sqlite"
	DriverLibSQL   = "libsql"
	DriverPostgres = "postgres"
)

// database/sql driver names registered by the imported drivers.
var sqlDriverNames = map[string]string{
	DriverSQLite:   "sqlite",
	DriverLibSQL:   "libsql",
	DriverPostgres: "pgx",
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS demos (
	id TEXT PRIMARY KEY,
	use_case TEXT NOT NULL,
	detailed_description TEXT NOT NULL,
	code TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_demos_created ON demos(created_at);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS demos (
	id TEXT PRIMARY KEY,
	use_case TEXT NOT NULL,
	detailed_description TEXT NOT NULL,
	code TEXT NOT NULL,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_demos_created ON demos(created_at);
`

// SQLStore keeps demos in one table of a SQLite, libSQL or PostgreSQL database.
type SQLStore struct {
	db      *sql.DB
	dialect string
	mu      sync.RWMutex
}

// dsnFor returns the configured DSN, defaulting SQLite to a file in the store directory.
func dsnFor(cfg config.StoreConfig) string {
	if cfg.DSN != "" || cfg.Driver != DriverSQLite {
		return cfg.DSN
	}
	return filepath.Join(cfg.Dir, "demos.db")
}

// OpenSQL opens (or creates) the database and ensures the demos table exists.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	name, ok := sqlDriverNames[driver]
	if !ok {
		return nil, fmt.Errorf("%w: unknown SQL driver %q", ErrPersistence, driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%w: store.dsn is required for driver %q", ErrPersistence, driver)
	}

	if driver == DriverSQLite && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrPersistence, filepath.Dir(dsn), err)
		}
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrPersistence, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrPersistence, err)
	}

	s := &SQLStore{db: db, dialect: driver}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: set pragma: %v", ErrPersistence, err)
		}
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migration failed: %v", ErrPersistence, err)
	}

	return s, nil
}

func (s *SQLStore) migrate() error {
	schema := schemaSQLite
	if s.dialect == DriverPostgres {
		schema = schemaPostgres
	}
	// Statements run one at a time; not every driver accepts a batch.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save inserts a new row.
func (s *SQLStore) Save(ctx context.Context, useCase, description, code string) (Demo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := Demo{
		ID:                  NewID(),
		UseCase:             useCase,
		DetailedDescription: description,
		Code:                code,
	}
	if err := checkText(d); err != nil {
		return Demo{}, err
	}

	query := s.rebind(`INSERT INTO demos (id, use_case, detailed_description, code, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, d.ID, d.UseCase, d.DetailedDescription, d.Code, time.Now().UnixMilli()); err != nil {
		return Demo{}, fmt.Errorf("%w: save demo: %v", ErrPersistence, err)
	}
	return d, nil
}

// List returns all demos, oldest first.
func (s *SQLStore) List(ctx context.Context) ([]Demo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, use_case, detailed_description, code FROM demos ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list demos: %v", ErrPersistence, err)
	}
	defer rows.Close()

	demos := []Demo{}
	for rows.Next() {
		var d Demo
		if err := rows.Scan(&d.ID, &d.UseCase, &d.DetailedDescription, &d.Code); err != nil {
			return nil, fmt.Errorf("%w: scan demo: %v", ErrPersistence, err)
		}
		demos = append(demos, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list demos: %v", ErrPersistence, err)
	}
	return demos, nil
}

// Load returns the row with id.
func (s *SQLStore) Load(ctx context.Context, id string) (Demo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d Demo
	query := s.rebind(`SELECT id, use_case, detailed_description, code FROM demos WHERE id = ?`)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.UseCase, &d.DetailedDescription, &d.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return Demo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Demo{}, fmt.Errorf("%w: load demo: %v", ErrPersistence, err)
	}
	return d, nil
}

// Delete removes the row with id.
func (s *SQLStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM demos WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("%w: delete demo: %v", ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete demo: %v", ErrPersistence, err)
	}
	return n > 0, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
