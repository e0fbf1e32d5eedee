package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"canonkeeper/internal/store"
)

func (c *Client) InsertPlotEvent(ctx context.Context, e store.PlotEvent) error {
	participants, err := json.Marshal(e.Participants)
	if err != nil {
		return fmt.Errorf("marshaling participants: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
	INSERT INTO plot_events (id, chapter, name, description, participants)
	VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Chapter, e.Name, e.Description, participants)
	if err != nil {
		return fmt.Errorf("inserting plot event: %w", err)
	}
	return nil
}

func (c *Client) DeletePlotEvent(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM plot_events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting plot event: %w", err)
	}
	return nil
}

func (c *Client) ListPlotEvents(ctx context.Context, chapter int) ([]store.PlotEvent, error) {
	rows, err := c.db.QueryContext(ctx, `
	SELECT id, chapter, name, description, participants
	FROM plot_events
	WHERE (? = 0 OR chapter = ?)
	ORDER BY chapter, id
	`, chapter, chapter)
	if err != nil {
		return nil, fmt.Errorf("listing plot events: %w", err)
	}
	defer rows.Close()

	var events []store.PlotEvent
	for rows.Next() {
		var e store.PlotEvent
		var participants []byte
		if err := rows.Scan(&e.ID, &e.Chapter, &e.Name, &e.Description, &participants); err != nil {
			return nil, fmt.Errorf("scanning plot event: %w", err)
		}
		if len(participants) > 0 {
			if err := json.Unmarshal(participants, &e.Participants); err != nil {
				return nil, fmt.Errorf("unmarshaling participants: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (c *Client) InsertDebuff(ctx context.Context, d store.Debuff) error {
	_, err := c.db.ExecContext(ctx, `
	INSERT INTO debuffs (id, character, kind, description, chapter, expires_chapter)
	VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.Character, d.Kind, d.Description, d.Chapter, d.ExpiresChapter)
	if err != nil {
		return fmt.Errorf("inserting debuff: %w", err)
	}
	return nil
}

func (c *Client) DeleteDebuff(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM debuffs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting debuff: %w", err)
	}
	return nil
}

func (c *Client) ListActiveDebuffs(ctx context.Context, chapter int) ([]store.Debuff, error) {
	rows, err := c.db.QueryContext(ctx, `
	SELECT id, character, kind, description, chapter, expires_chapter
	FROM debuffs
	WHERE chapter <= ? AND expires_chapter > ?
	ORDER BY id
	`, chapter, chapter)
	if err != nil {
		return nil, fmt.Errorf("listing active debuffs: %w", err)
	}
	defer rows.Close()

	var debuffs []store.Debuff
	for rows.Next() {
		var d store.Debuff
		if err := rows.Scan(&d.ID, &d.Character, &d.Kind, &d.Description, &d.Chapter, &d.ExpiresChapter); err != nil {
			return nil, fmt.Errorf("scanning debuff: %w", err)
		}
		debuffs = append(debuffs, d)
	}
	return debuffs, rows.Err()
}
