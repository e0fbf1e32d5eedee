package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"canonkeeper/internal/store"
)

func (c *Client) AppendStateRecord(ctx context.Context, r store.StateRecord) (bool, error) {
	// Idempotency: an identical (character, type, chapter, changes)
	// tuple is not re-inserted. JSON comparison happens in Go because
	// key order in the stored document is not canonical.
	existing, err := c.ListStateRecords(ctx, r.Character)
	if err != nil {
		return false, err
	}
	for _, rec := range existing {
		if rec.ChangeType == r.ChangeType && rec.Chapter == r.Chapter && reflect.DeepEqual(rec.Changes, r.Changes) {
			return false, nil
		}
	}

	changes, err := json.Marshal(r.Changes)
	if err != nil {
		return false, fmt.Errorf("marshaling changes: %w", err)
	}
	conceptIDs, err := json.Marshal(r.ConceptIDs)
	if err != nil {
		return false, fmt.Errorf("marshaling concept ids: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
	INSERT INTO state_records (id, character, change_type, changes, chapter, concept_ids, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Character, string(r.ChangeType), changes, r.Chapter, conceptIDs, r.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("appending state record: %w", err)
	}
	return true, nil
}

func (c *Client) ListStateRecords(ctx context.Context, character string) ([]store.StateRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
	SELECT id, character, change_type, changes, chapter, concept_ids, created_at
	FROM state_records
	WHERE character = ?
	ORDER BY chapter, created_at, id
	`, character)
	if err != nil {
		return nil, fmt.Errorf("listing state records: %w", err)
	}
	defer rows.Close()

	var records []store.StateRecord
	for rows.Next() {
		var r store.StateRecord
		var changeType, createdAt string
		var changes, conceptIDs []byte
		if err := rows.Scan(&r.ID, &r.Character, &changeType, &changes, &r.Chapter, &conceptIDs, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state record: %w", err)
		}
		r.ChangeType = store.ChangeType(changeType)
		r.CreatedAt = parseTime(createdAt)
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &r.Changes); err != nil {
				return nil, fmt.Errorf("unmarshaling changes: %w", err)
			}
		}
		if len(conceptIDs) > 0 {
			if err := json.Unmarshal(conceptIDs, &r.ConceptIDs); err != nil {
				return nil, fmt.Errorf("unmarshaling concept ids: %w", err)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state record rows: %w", err)
	}
	return records, nil
}

func (c *Client) ListCharacters(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT character FROM state_records ORDER BY character`)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	var characters []string
	for rows.Next() {
		var character string
		if err := rows.Scan(&character); err != nil {
			return nil, fmt.Errorf("scanning character: %w", err)
		}
		characters = append(characters, character)
	}
	return characters, rows.Err()
}

func (c *Client) DeleteStateRecords(ctx context.Context, character, field string, fromChapter int) (int64, error) {
	// Field membership in the changes document is checked in Go; the
	// finalizer writes single-field records so this stays exact.
	records, err := c.ListStateRecords(ctx, character)
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, record := range records {
		if record.Chapter < fromChapter {
			continue
		}
		if _, has := record.Changes[field]; !has {
			continue
		}
		if _, err := c.db.ExecContext(ctx, `DELETE FROM state_records WHERE id = ?`, record.ID); err != nil {
			return removed, fmt.Errorf("deleting state record %s: %w", record.ID, err)
		}
		removed++
	}
	return removed, nil
}
