package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IFAKA/spotiytm/internal/shared"
)

// Checkpoint is the resumable state of one conversion: the created target
// playlist id (empty until created, never overwritten once set) plus the
// per-track resolution outcomes keyed by track key. A nil value means the
// track resolved to nothing; a present key is never re-resolved within the
// checkpoint's lifetime.
type Checkpoint struct {
	PlaylistID string             `json:"playlistId"`
	Results    map[string]*string `json:"results"`
}

// NewCheckpoint returns an empty checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{Results: make(map[string]*string)}
}

// AppliedVideoIDs returns the set of identifiers already resolved to a
// match, i.e. those known to have been added by a prior run.
func (c *Checkpoint) AppliedVideoIDs() map[string]struct{} {
	applied := make(map[string]struct{})
	for _, v := range c.Results {
		if v != nil && *v != "" {
			applied[*v] = struct{}{}
		}
	}
	return applied
}

const checkpointSchema = `
	CREATE TABLE IF NOT EXISTS checkpoints (
		source_playlist_id TEXT PRIMARY KEY,
		target_playlist_id TEXT NOT NULL DEFAULT '',
		results TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

// CheckpointRepository stores one checkpoint row per source playlist id in
// SQLite. Saves commit synchronously, so a returned Save is durable.
type CheckpointRepository struct {
	db *sql.DB
}

// NewCheckpointRepository creates the repository and ensures its schema.
func NewCheckpointRepository(db *sql.DB) (*CheckpointRepository, error) {
	if _, err := db.Exec(checkpointSchema); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints table: %w", err)
	}
	return &CheckpointRepository{db: db}, nil
}

// Load returns the checkpoint for a source playlist id. A missing row
// yields an empty checkpoint; a row that cannot be decoded yields
// shared.ErrCheckpointCorrupt so resumable progress is never silently
// discarded.
func (r *CheckpointRepository) Load(ctx context.Context, sourceID string) (*Checkpoint, error) {
	var targetID, results string
	err := r.db.QueryRowContext(ctx,
		"SELECT target_playlist_id, results FROM checkpoints WHERE source_playlist_id = ?",
		sourceID,
	).Scan(&targetID, &results)

	if errors.Is(err, sql.ErrNoRows) {
		return NewCheckpoint(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	cp := NewCheckpoint()
	cp.PlaylistID = targetID
	if err := json.Unmarshal([]byte(results), &cp.Results); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCheckpointCorrupt, sourceID, err)
	}
	if cp.Results == nil {
		cp.Results = make(map[string]*string)
	}

	return cp, nil
}

// Save upserts the full checkpoint record for a source playlist id.
func (r *CheckpointRepository) Save(ctx context.Context, sourceID string, cp *Checkpoint) error {
	results, err := json.Marshal(cp.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO checkpoints (source_playlist_id, target_playlist_id, results, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(source_playlist_id) DO UPDATE SET
			target_playlist_id = excluded.target_playlist_id,
			results = excluded.results,
			updated_at = excluded.updated_at
	`, sourceID, cp.PlaylistID, string(results))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// Delete removes the checkpoint for a source playlist id. Deleting a
// missing record is not an error.
func (r *CheckpointRepository) Delete(ctx context.Context, sourceID string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM checkpoints WHERE source_playlist_id = ?", sourceID,
	); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
