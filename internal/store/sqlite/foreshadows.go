package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"canonkeeper/internal/store"
)

func (c *Client) InsertForeshadow(ctx context.Context, f store.Foreshadow) error {
	_, err := c.db.ExecContext(ctx, `
	INSERT INTO foreshadows (id, concept_id, state, chapter_introduced, chapter_updated, implied_future)
	VALUES (?, ?, ?, ?, ?, ?)
	`, f.ID, f.ConceptID, string(f.State), f.ChapterIntroduced, f.ChapterUpdated, f.ImpliedFuture)
	if err != nil {
		return fmt.Errorf("inserting foreshadow: %w", err)
	}
	return nil
}

const foreshadowSelect = `
	SELECT id, concept_id, state, chapter_introduced, chapter_updated, implied_future
	FROM foreshadows`

func (c *Client) GetForeshadow(ctx context.Context, id string) (*store.Foreshadow, error) {
	row := c.db.QueryRowContext(ctx, foreshadowSelect+` WHERE id = ?`, id)
	f, err := scanForeshadow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting foreshadow: %w", err)
	}
	return f, nil
}

func (c *Client) FindForeshadowByConcept(ctx context.Context, conceptID string) (*store.Foreshadow, error) {
	row := c.db.QueryRowContext(ctx, foreshadowSelect+` WHERE concept_id = ? LIMIT 1`, conceptID)
	f, err := scanForeshadow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding foreshadow by concept: %w", err)
	}
	return f, nil
}

func (c *Client) UpdateForeshadowState(ctx context.Context, id string, state store.ForeshadowState, chapter int) error {
	_, err := c.db.ExecContext(ctx, `
	UPDATE foreshadows SET state = ?, chapter_updated = ? WHERE id = ?
	`, string(state), chapter, id)
	if err != nil {
		return fmt.Errorf("updating foreshadow state: %w", err)
	}
	return nil
}

func (c *Client) DeleteForeshadow(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM foreshadows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting foreshadow: %w", err)
	}
	return nil
}

func (c *Client) ListForeshadows(ctx context.Context, state store.ForeshadowState) ([]store.Foreshadow, error) {
	rows, err := c.db.QueryContext(ctx, foreshadowSelect+`
	WHERE (? = '' OR state = ?)
	ORDER BY chapter_introduced, id
	`, string(state), string(state))
	if err != nil {
		return nil, fmt.Errorf("listing foreshadows: %w", err)
	}
	defer rows.Close()

	var foreshadows []store.Foreshadow
	for rows.Next() {
		f, err := scanForeshadow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning foreshadow: %w", err)
		}
		foreshadows = append(foreshadows, *f)
	}
	return foreshadows, rows.Err()
}

func scanForeshadow(row rowScanner) (*store.Foreshadow, error) {
	var f store.Foreshadow
	var state string
	if err := row.Scan(&f.ID, &f.ConceptID, &state, &f.ChapterIntroduced, &f.ChapterUpdated, &f.ImpliedFuture); err != nil {
		return nil, err
	}
	f.State = store.ForeshadowState(state)
	return &f, nil
}
