package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"canonkeeper/internal/store"
)

func (c *Client) InsertConcept(ctx context.Context, concept store.Concept) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
	INSERT INTO concepts (id, name, description, first_chapter, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`, concept.ID, concept.Name, concept.Description, concept.FirstChapter, concept.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting concept: %w", err)
	}

	for _, alias := range concept.Aliases {
		if err := insertAlias(ctx, tx, concept.ID, alias); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing concept insert: %w", err)
	}
	return nil
}

func insertAlias(ctx context.Context, tx pgx.Tx, conceptID, alias string) error {
	_, err := tx.Exec(ctx, `
	INSERT INTO concept_aliases (concept_id, alias, alias_normalized)
	VALUES ($1, $2, $3)
	ON CONFLICT (concept_id, alias_normalized) DO NOTHING
	`, conceptID, alias, strings.ToLower(strings.TrimSpace(alias)))
	if err != nil {
		return fmt.Errorf("inserting alias: %w", err)
	}
	return nil
}

func (c *Client) GetConcept(ctx context.Context, id string) (*store.Concept, error) {
	row := c.pool.QueryRow(ctx, `
	SELECT id, name, description, first_chapter, created_at
	FROM concepts WHERE id = $1
	`, id)

	concept, err := scanConcept(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting concept: %w", err)
	}

	if err := c.loadAliases(ctx, concept); err != nil {
		return nil, err
	}
	return concept, nil
}

func (c *Client) FindConceptByAlias(ctx context.Context, surface string) (*store.Concept, error) {
	row := c.pool.QueryRow(ctx, `
	SELECT co.id, co.name, co.description, co.first_chapter, co.created_at
	FROM concept_aliases ca
	JOIN concepts co ON co.id = ca.concept_id
	WHERE ca.alias_normalized = $1
	LIMIT 1
	`, strings.ToLower(strings.TrimSpace(surface)))

	concept, err := scanConcept(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding concept by alias: %w", err)
	}

	if err := c.loadAliases(ctx, concept); err != nil {
		return nil, err
	}
	return concept, nil
}

func (c *Client) AddConceptAlias(ctx context.Context, id, alias string) error {
	_, err := c.pool.Exec(ctx, `
	INSERT INTO concept_aliases (concept_id, alias, alias_normalized)
	VALUES ($1, $2, $3)
	ON CONFLICT (concept_id, alias_normalized) DO NOTHING
	`, id, alias, strings.ToLower(strings.TrimSpace(alias)))
	if err != nil {
		return fmt.Errorf("inserting alias: %w", err)
	}
	return nil
}

func (c *Client) UpdateConceptDescription(ctx context.Context, id, description string) error {
	_, err := c.pool.Exec(ctx, `UPDATE concepts SET description = $1 WHERE id = $2`, description, id)
	if err != nil {
		return fmt.Errorf("updating concept description: %w", err)
	}
	return nil
}

func (c *Client) ListConcepts(ctx context.Context) ([]store.Concept, error) {
	rows, err := c.pool.Query(ctx, `
	SELECT id, name, description, first_chapter, created_at
	FROM concepts ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing concepts: %w", err)
	}
	defer rows.Close()

	var concepts []store.Concept
	for rows.Next() {
		concept, err := scanConcept(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning concept: %w", err)
		}
		concepts = append(concepts, *concept)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating concept rows: %w", err)
	}

	for i := range concepts {
		if err := c.loadAliases(ctx, &concepts[i]); err != nil {
			return nil, err
		}
	}
	return concepts, nil
}

func (c *Client) loadAliases(ctx context.Context, concept *store.Concept) error {
	rows, err := c.pool.Query(ctx, `
	SELECT alias FROM concept_aliases WHERE concept_id = $1 ORDER BY alias
	`, concept.ID)
	if err != nil {
		return fmt.Errorf("loading aliases: %w", err)
	}
	defer rows.Close()

	concept.Aliases = nil
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return fmt.Errorf("scanning alias: %w", err)
		}
		concept.Aliases = append(concept.Aliases, alias)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConcept(row rowScanner) (*store.Concept, error) {
	var concept store.Concept
	if err := row.Scan(&concept.ID, &concept.Name, &concept.Description, &concept.FirstChapter, &concept.CreatedAt); err != nil {
		return nil, err
	}
	return &concept, nil
}
