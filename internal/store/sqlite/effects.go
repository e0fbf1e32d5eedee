package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"canonkeeper/internal/effect"
	"canonkeeper/internal/store"
)

func (c *Client) PutChapterEffects(ctx context.Context, r store.EffectRecord) error {
	effects, err := json.Marshal(r.Effects)
	if err != nil {
		return fmt.Errorf("marshaling effects: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
	INSERT INTO chapter_effects (chapter, effects, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT (chapter) DO UPDATE SET
		effects = excluded.effects,
		created_at = excluded.created_at
	`, r.Chapter, effects, r.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("putting chapter effects: %w", err)
	}
	return nil
}

func (c *Client) GetChapterEffects(ctx context.Context, chapter int) (*store.EffectRecord, error) {
	row := c.db.QueryRowContext(ctx, `
	SELECT chapter, effects, created_at FROM chapter_effects WHERE chapter = ?
	`, chapter)

	var r store.EffectRecord
	var effects []byte
	var createdAt string
	err := row.Scan(&r.Chapter, &effects, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting chapter effects: %w", err)
	}

	r.CreatedAt = parseTime(createdAt)
	if len(effects) > 0 {
		if err := json.Unmarshal(effects, &r.Effects); err != nil {
			return nil, fmt.Errorf("unmarshaling effects: %w", err)
		}
	}
	if r.Effects == nil {
		r.Effects = []effect.Effect{}
	}
	return &r, nil
}

func (c *Client) DeleteChapterEffects(ctx context.Context, chapter int) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM chapter_effects WHERE chapter = ?`, chapter); err != nil {
		return fmt.Errorf("deleting chapter effects: %w", err)
	}
	return nil
}

func (c *Client) ListFinalizedChapters(ctx context.Context) ([]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT chapter FROM chapter_effects ORDER BY chapter`)
	if err != nil {
		return nil, fmt.Errorf("listing finalized chapters: %w", err)
	}
	defer rows.Close()

	var chapters []int
	for rows.Next() {
		var chapter int
		if err := rows.Scan(&chapter); err != nil {
			return nil, fmt.Errorf("scanning chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}

func (c *Client) PutDependencies(ctx context.Context, r store.DependencyRecord) error {
	effectIDs, err := json.Marshal(r.EffectIDs)
	if err != nil {
		return fmt.Errorf("marshaling effect ids: %w", err)
	}
	factIDs, err := json.Marshal(r.FactIDs)
	if err != nil {
		return fmt.Errorf("marshaling fact ids: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
	INSERT INTO dependencies (chapter, effect_ids, fact_ids)
	VALUES (?, ?, ?)
	ON CONFLICT (chapter) DO UPDATE SET
		effect_ids = excluded.effect_ids,
		fact_ids = excluded.fact_ids
	`, r.Chapter, effectIDs, factIDs)
	if err != nil {
		return fmt.Errorf("putting dependencies: %w", err)
	}
	return nil
}

func (c *Client) GetDependencies(ctx context.Context, chapter int) (*store.DependencyRecord, error) {
	row := c.db.QueryRowContext(ctx, `
	SELECT chapter, effect_ids, fact_ids FROM dependencies WHERE chapter = ?
	`, chapter)

	r, err := scanDependencies(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting dependencies: %w", err)
	}
	return r, nil
}

func (c *Client) ListDependencies(ctx context.Context) ([]store.DependencyRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
	SELECT chapter, effect_ids, fact_ids FROM dependencies ORDER BY chapter
	`)
	if err != nil {
		return nil, fmt.Errorf("listing dependencies: %w", err)
	}
	defer rows.Close()

	var records []store.DependencyRecord
	for rows.Next() {
		r, err := scanDependencies(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dependencies: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func (c *Client) DeleteDependencies(ctx context.Context, chapter int) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM dependencies WHERE chapter = ?`, chapter); err != nil {
		return fmt.Errorf("deleting dependencies: %w", err)
	}
	return nil
}

func scanDependencies(row rowScanner) (*store.DependencyRecord, error) {
	var r store.DependencyRecord
	var effectIDs, factIDs []byte
	if err := row.Scan(&r.Chapter, &effectIDs, &factIDs); err != nil {
		return nil, err
	}
	if len(effectIDs) > 0 {
		if err := json.Unmarshal(effectIDs, &r.EffectIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling effect ids: %w", err)
		}
	}
	if len(factIDs) > 0 {
		if err := json.Unmarshal(factIDs, &r.FactIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling fact ids: %w", err)
		}
	}
	return &r, nil
}

func (c *Client) MarkInvalidated(ctx context.Context, chapter int, reason string) error {
	_, err := c.db.ExecContext(ctx, `
	INSERT INTO invalidations (chapter, reason, created_at)
	VALUES (?, ?, datetime('now'))
	ON CONFLICT (chapter) DO NOTHING
	`, chapter, reason)
	if err != nil {
		return fmt.Errorf("marking chapter invalidated: %w", err)
	}
	return nil
}

func (c *Client) ClearInvalidation(ctx context.Context, chapter int) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM invalidations WHERE chapter = ?`, chapter); err != nil {
		return fmt.Errorf("clearing invalidation: %w", err)
	}
	return nil
}

func (c *Client) ListInvalidations(ctx context.Context) ([]store.Invalidation, error) {
	rows, err := c.db.QueryContext(ctx, `
	SELECT chapter, reason, created_at FROM invalidations ORDER BY chapter
	`)
	if err != nil {
		return nil, fmt.Errorf("listing invalidations: %w", err)
	}
	defer rows.Close()

	var invalidations []store.Invalidation
	for rows.Next() {
		var inv store.Invalidation
		var createdAt string
		if err := rows.Scan(&inv.Chapter, &inv.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning invalidation: %w", err)
		}
		inv.CreatedAt = parseTime(createdAt)
		invalidations = append(invalidations, inv)
	}
	return invalidations, rows.Err()
}

func (c *Client) IsInvalidated(ctx context.Context, chapter int) (bool, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM invalidations WHERE chapter = ?`, chapter).Scan(&count); err != nil {
		return false, fmt.Errorf("checking invalidation: %w", err)
	}
	return count > 0, nil
}
