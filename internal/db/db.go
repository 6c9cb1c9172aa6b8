// Package db provides optional PostgreSQL persistence of pipeline runs and
// their per-stage artifacts. A run works fully without it; database trouble
// degrades to warnings, never to a failed run.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Artifact step names, one per pipeline stage output worth inspecting later.
const (
	StepSeenIDs    = "seen_ids"
	StepRawItems   = "raw_items"
	StepScored     = "scored_candidates"
	StepWinner     = "winner"
	StepMediaURL   = "media_url"
	StepPublished  = "published_file"
	StepDedupeFile = "dedupe_file"
)

// Artifact categories group steps for querying.
const (
	CategoryAcquisition = "acquisition"
	CategorySelection   = "selection"
	CategoryPublishing  = "publishing"
)

// Run represents a pipeline run row.
type Run struct {
	ID          uuid.UUID
	Hashtag     string
	Status      string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateRun creates a new pipeline run record and returns its id.
func (db *DB) CreateRun(ctx context.Context, hashtag string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (hashtag, status)
		 VALUES ($1, 'running')
		 RETURNING id`,
		hashtag,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a pipeline run as completed or failed.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveArtifact stores a JSON artifact for a pipeline run, replacing any
// previous artifact for the same step.
func (db *DB) SaveArtifact(ctx context.Context, runID uuid.UUID, step, category string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO artifacts (run_id, step, category, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, step) DO UPDATE SET category = $3, content = $4, created_at = NOW()`,
		runID, step, category, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

// GetArtifact loads a stored artifact's raw JSON, or nil when absent.
func (db *DB) GetArtifact(ctx context.Context, runID uuid.UUID, step string) (json.RawMessage, error) {
	var content json.RawMessage
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM artifacts WHERE run_id = $1 AND step = $2`,
		runID, step,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}
	return content, nil
}
