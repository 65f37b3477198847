package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/plangen/internal/store"
)

// UserStore persists accounts in the auth_users table.
type UserStore struct {
	store *store.SQLiteStore
	db    *sql.DB
}

// NewUserStore runs the auth migrations and returns a UserStore.
func NewUserStore(ctx context.Context, s *store.SQLiteStore) (*UserStore, error) {
	if err := s.Migrate(ctx, "auth", authMigrations); err != nil {
		return nil, fmt.Errorf("auth migrations: %w", err)
	}
	return &UserStore{store: s, db: s.DB()}, nil
}

const insertUser = `
	INSERT INTO auth_users (id, username, name, password_hash, role, created_at, disabled)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, u *User) error {
	_, err := db.ExecContext(ctx, insertUser,
		u.ID, u.Username, u.Name, u.PasswordHash, string(u.Role), u.CreatedAt, u.Disabled)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return ErrUserExists
	default:
		return fmt.Errorf("insert user: %w", err)
	}
}

// CreateUser inserts u, returning ErrUserExists when the username is taken.
func (s *UserStore) CreateUser(ctx context.Context, u *User) error {
	return insert(ctx, s.db, u)
}

// CreateFirstUser inserts u only while the table is empty.
func (s *UserStore) CreateFirstUser(ctx context.Context, u *User) error {
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_users`).Scan(&n); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if n > 0 {
			return ErrSetupComplete
		}
		return insert(ctx, tx, u)
	})
}

// GetUserByUsername returns sql.ErrNoRows when no account matches.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM auth_users WHERE username = ?`, username))
}

// ListUsers returns all accounts, oldest first.
func (s *UserStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM auth_users ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of accounts.
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UpdateLastLogin stamps the account's last successful login.
func (s *UserStore) UpdateLastLogin(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE auth_users SET last_login = ? WHERE id = ?`, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update last login: %w", sql.ErrNoRows)
	}
	return nil
}

// isUniqueViolation matches SQLite's constraint message; the driver does
// not export a typed error for it.
func isUniqueViolation(err error) bool {
	return err != nil && !errors.Is(err, sql.ErrNoRows) &&
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const userColumns = `id, username, name, password_hash, role, created_at, last_login, disabled`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u         User
		role      string
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &role, &u.CreatedAt, &lastLogin, &u.Disabled); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	u.LastLogin = lastLogin.Time
	return &u, nil
}

var authMigrations = []store.Migration{
	{
		Version:     1,
		Description: "create auth_users table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE auth_users (
					id            TEXT PRIMARY KEY,
					username      TEXT NOT NULL UNIQUE,
					name          TEXT NOT NULL DEFAULT '',
					password_hash TEXT NOT NULL,
					role          TEXT NOT NULL DEFAULT 'teacher' CHECK (role IN ('teacher', 'admin')),
					created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					last_login    DATETIME,
					disabled      INTEGER NOT NULL DEFAULT 0
				)`)
			return err
		},
	},
}
