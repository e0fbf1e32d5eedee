package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"canonkeeper/internal/store"
)

func (c *Client) UpsertInference(ctx context.Context, inf store.Inference) error {
	_, err := c.pool.Exec(ctx, `
	INSERT INTO inferences (id, claim, basis, confidence, chapter, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (claim, chapter) DO UPDATE SET
		confidence = GREATEST(inferences.confidence, EXCLUDED.confidence)
	`, inf.ID, inf.Claim, inf.Basis, inf.Confidence, inf.Chapter, string(inf.Status), inf.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting inference: %w", err)
	}
	return nil
}

const inferenceSelect = `
	SELECT id, claim, basis, confidence, chapter, status, created_at
	FROM inferences`

func (c *Client) GetInference(ctx context.Context, id string) (*store.Inference, error) {
	row := c.pool.QueryRow(ctx, inferenceSelect+` WHERE id = $1`, id)
	inf, err := scanInference(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inference: %w", err)
	}
	return inf, nil
}

func (c *Client) ListInferences(ctx context.Context, status store.InferenceStatus) ([]store.Inference, error) {
	rows, err := c.pool.Query(ctx, inferenceSelect+`
	WHERE ($1 = '' OR status = $1)
	ORDER BY chapter, id
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing inferences: %w", err)
	}
	defer rows.Close()

	var inferences []store.Inference
	for rows.Next() {
		inf, err := scanInference(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning inference: %w", err)
		}
		inferences = append(inferences, *inf)
	}
	return inferences, rows.Err()
}

func (c *Client) SetInferenceStatus(ctx context.Context, id string, status store.InferenceStatus) error {
	if _, err := c.pool.Exec(ctx, `UPDATE inferences SET status = $1 WHERE id = $2`, string(status), id); err != nil {
		return fmt.Errorf("setting inference status: %w", err)
	}
	return nil
}

func scanInference(row rowScanner) (*store.Inference, error) {
	var inf store.Inference
	var status string
	if err := row.Scan(&inf.ID, &inf.Claim, &inf.Basis, &inf.Confidence, &inf.Chapter, &status, &inf.CreatedAt); err != nil {
		return nil, err
	}
	inf.Status = store.InferenceStatus(status)
	return &inf, nil
}

func (c *Client) GetStoryState(ctx context.Context) (*store.StoryState, error) {
	row := c.pool.QueryRow(ctx, `SELECT snapshot, chapter, updated_at FROM story_state WHERE id = 1`)

	var s store.StoryState
	var snapshot []byte
	err := row.Scan(&snapshot, &s.Chapter, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting story state: %w", err)
	}

	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &s.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshaling story state snapshot: %w", err)
		}
	}
	return &s, nil
}

func (c *Client) PutStoryState(ctx context.Context, s store.StoryState) error {
	snapshot, err := json.Marshal(s.Snapshot)
	if err != nil {
		return fmt.Errorf("marshaling story state snapshot: %w", err)
	}

	_, err = c.pool.Exec(ctx, `
	INSERT INTO story_state (id, snapshot, chapter, updated_at)
	VALUES (1, $1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET
		snapshot = EXCLUDED.snapshot,
		chapter = EXCLUDED.chapter,
		updated_at = EXCLUDED.updated_at
	`, snapshot, s.Chapter, s.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("putting story state: %w", err)
	}
	return nil
}
