package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generation statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Generation is the audit row written for one orchestrated run.
type Generation struct {
	ID         string    `json:"id" example:"4f1c2a9e-8d1b-4b57-9e1f-2a0c6f3d9b11"`
	Kind       string    `json:"kind" example:"weekly"`
	Provider   string    `json:"provider" example:"openai"`
	Model      string    `json:"model" example:"deepseek-ai/DeepSeek-V2.5"`
	Status     string    `json:"status" example:"succeeded"`
	Attempts   int       `json:"attempts" example:"1"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms" example:"5230"`
	CreatedAt  time.Time `json:"created_at"`
}

func generationMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "create generations table",
			Up: func(tx *sql.Tx) error {
				for _, stmt := range []string{
					`CREATE TABLE generations (
						id          TEXT PRIMARY KEY,
						kind        TEXT NOT NULL,
						provider    TEXT NOT NULL DEFAULT '',
						model       TEXT NOT NULL DEFAULT '',
						status      TEXT NOT NULL,
						attempts    INTEGER NOT NULL DEFAULT 1,
						error_msg   TEXT NOT NULL DEFAULT '',
						duration_ms INTEGER NOT NULL DEFAULT 0,
						created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX idx_generations_created_at ON generations(created_at)`,
				} {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// GenerationStore persists generation history.
type GenerationStore struct {
	db *sql.DB
}

// NewGenerationStore migrates the generations table and returns a store.
func NewGenerationStore(ctx context.Context, s *SQLiteStore) (*GenerationStore, error) {
	if err := s.Migrate(ctx, "generations", generationMigrations()); err != nil {
		return nil, err
	}
	return &GenerationStore{db: s.DB()}, nil
}

// Record inserts g, assigning an ID and timestamp when they are unset.
func (s *GenerationStore) Record(ctx context.Context, g *Generation) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (id, kind, provider, model, status, attempts, error_msg, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Kind, g.Provider, g.Model, g.Status, g.Attempts, g.Error, g.DurationMS, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. A limit <= 0 means 50.
func (s *GenerationStore) Recent(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, provider, model, status, attempts, error_msg, duration_ms, created_at
		FROM generations ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	out := []Generation{}
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.ID, &g.Kind, &g.Provider, &g.Model, &g.Status, &g.Attempts, &g.Error, &g.DurationMS, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
