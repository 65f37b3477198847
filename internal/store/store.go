// Package store owns the SQLite database shared by plangen components:
// connection setup, per-component schema migrations and the generation
// history table.
package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrNewerSchema is returned when the database was last opened by a newer
// plangen release than the running binary.
var ErrNewerSchema = errors.New("database was created by a newer version of plangen")

// modernc.org/sqlite takes pragmas as statements, not DSN parameters.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

const migrationsDDL = `
CREATE TABLE IF NOT EXISTS _migrations (
	component   TEXT     NOT NULL,
	version     INTEGER  NOT NULL,
	description TEXT     NOT NULL,
	applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (component, version)
)`

const schemaMetaDDL = `
CREATE TABLE IF NOT EXISTS _schema_meta (
	id          INTEGER  PRIMARY KEY CHECK (id = 1),
	app_version TEXT     NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Migration is one schema step for a component.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// SQLiteStore wraps a modernc.org/sqlite connection.
type SQLiteStore struct {
	db *sql.DB

	// migrateMu serialises Migrate calls from components starting together.
	migrateMu sync.Mutex
}

// New opens or creates the database at path. Use ":memory:" in tests.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and gives
	// SQLite the one writer it wants.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying handle for component stores.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Ping backs the readiness probe.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Tx runs fn in a transaction, committing when fn returns nil.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Migrate applies the component's pending migrations in version order,
// one transaction per step. Versions are tracked per component, so two
// components may both have a version 1. A failed step leaves the steps
// before it applied.
func (s *SQLiteStore) Migrate(ctx context.Context, component string, migrations []Migration) error {
	pending := slices.SortedFunc(slices.Values(migrations), func(a, b Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})
	for i := 1; i < len(pending); i++ {
		if pending[i].Version == pending[i-1].Version {
			return fmt.Errorf("migrations for %s: duplicate version %d", component, pending[i].Version)
		}
	}

	s.migrateMu.Lock()
	defer s.migrateMu.Unlock()

	if _, err := s.db.ExecContext(ctx, migrationsDDL); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}
	applied, err := s.appliedVersions(ctx, component)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if applied[m.Version] {
			continue
		}
		err := s.Tx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO _migrations (component, version, description) VALUES (?, ?, ?)",
				component, m.Version, m.Description)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s/%d (%s): %w", component, m.Version, m.Description, err)
		}
	}
	return nil
}

func (s *SQLiteStore) appliedVersions(ctx context.Context, component string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM _migrations WHERE component = ?", component)
	if err != nil {
		return nil, fmt.Errorf("list migrations for %s: %w", component, err)
	}
	defer rows.Close()

	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// CheckVersion refuses to open a database last written by a newer release
// and otherwise records current as the last writer. "dev" on either side
// always passes.
func (s *SQLiteStore) CheckVersion(ctx context.Context, current string) error {
	if _, err := s.db.ExecContext(ctx, schemaMetaDDL); err != nil {
		return fmt.Errorf("ensure schema meta table: %w", err)
	}

	var stored string
	switch err := s.db.QueryRowContext(ctx, "SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&stored); {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, "INSERT INTO _schema_meta (id, app_version) VALUES (1, ?)", current)
		if err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	}

	if stored != "dev" && current != "dev" {
		switch semver.Compare(withV(current), withV(stored)) {
		case -1:
			return fmt.Errorf("%w: database=%s, binary=%s", ErrNewerSchema, stored, current)
		case 0:
			return nil
		}
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE _schema_meta SET app_version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1", current)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

func withV(v string) string {
	if v == "" || v[0] == 'v' {
		return v
	}
	return "v" + v
}
