package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"canonkeeper/internal/store"
)

func (c *Client) InsertFact(ctx context.Context, f store.Fact) error {
	conceptIDs, err := json.Marshal(f.ConceptIDs)
	if err != nil {
		return fmt.Errorf("marshaling concept ids: %w", err)
	}
	sources, err := json.Marshal(f.Sources)
	if err != nil {
		return fmt.Errorf("marshaling sources: %w", err)
	}

	_, err = c.pool.Exec(ctx, `
	INSERT INTO facts (id, fact_type, statement, chapter, confidence, subject, predicate, value, concept_ids, evidence, sources, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, f.ID, f.FactType, f.Statement, f.Chapter, string(f.Confidence), f.Subject, f.Predicate, f.Value,
		conceptIDs, f.Evidence, sources, string(f.Status), f.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting fact: %w", err)
	}
	return nil
}

func (c *Client) GetFact(ctx context.Context, id string) (*store.Fact, error) {
	row := c.pool.QueryRow(ctx, factSelect+` WHERE id = $1`, id)
	fact, err := scanFact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting fact: %w", err)
	}
	return fact, nil
}

func (c *Client) DeleteFact(ctx context.Context, id string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM facts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting fact: %w", err)
	}
	return nil
}

const factSelect = `
	SELECT id, fact_type, statement, chapter, confidence, subject, predicate, value, concept_ids, evidence, sources, status, created_at
	FROM facts`

func (c *Client) ListFacts(ctx context.Context, filter store.FactFilter) ([]store.Fact, error) {
	query := factSelect + `
	WHERE ($1 = '' OR fact_type = $1)
	  AND ($2 = 0 OR chapter = $2)
	  AND ($3 = '' OR status = $3)
	ORDER BY chapter, id
	`
	rows, err := c.pool.Query(ctx, query, filter.FactType, filter.Chapter, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("listing facts: %w", err)
	}
	defer rows.Close()

	var facts []store.Fact
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fact: %w", err)
		}
		if filter.ConceptID != "" && !containsString(fact.ConceptIDs, filter.ConceptID) {
			continue
		}
		facts = append(facts, *fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fact rows: %w", err)
	}
	return facts, nil
}

func (c *Client) SetFactStatus(ctx context.Context, id string, status store.FactStatus) error {
	if _, err := c.pool.Exec(ctx, `UPDATE facts SET status = $1 WHERE id = $2`, string(status), id); err != nil {
		return fmt.Errorf("setting fact status: %w", err)
	}
	return nil
}

func (c *Client) FactTripleExists(ctx context.Context, subject, predicate, value string) (bool, error) {
	var count int
	err := c.pool.QueryRow(ctx, `
	SELECT COUNT(1) FROM facts WHERE subject = $1 AND predicate = $2 AND value = $3
	`, subject, predicate, value).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking fact triple: %w", err)
	}
	return count > 0, nil
}

func scanFact(row rowScanner) (*store.Fact, error) {
	var f store.Fact
	var confidence, status string
	var conceptIDs, sources []byte
	if err := row.Scan(&f.ID, &f.FactType, &f.Statement, &f.Chapter, &confidence,
		&f.Subject, &f.Predicate, &f.Value, &conceptIDs, &f.Evidence, &sources, &status, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Confidence = store.ConfidenceTag(confidence)
	f.Status = store.FactStatus(status)
	if len(conceptIDs) > 0 {
		if err := json.Unmarshal(conceptIDs, &f.ConceptIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling concept ids: %w", err)
		}
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &f.Sources); err != nil {
			return nil, fmt.Errorf("unmarshaling sources: %w", err)
		}
	}
	return &f, nil
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
