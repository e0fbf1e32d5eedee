package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS concepts (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		first_chapter INTEGER NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS concept_aliases (
		concept_id       TEXT NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
		alias            TEXT NOT NULL,
		alias_normalized TEXT NOT NULL,
		CONSTRAINT uq_alias UNIQUE (concept_id, alias_normalized)
	);

	CREATE TABLE IF NOT EXISTS facts (
		id          TEXT PRIMARY KEY,
		fact_type   TEXT NOT NULL,
		statement   TEXT NOT NULL,
		chapter     INTEGER NOT NULL,
		confidence  TEXT NOT NULL,
		subject     TEXT NOT NULL DEFAULT '',
		predicate   TEXT NOT NULL DEFAULT '',
		value       TEXT NOT NULL DEFAULT '',
		concept_ids JSONB NOT NULL DEFAULT '[]',
		evidence    TEXT NOT NULL DEFAULT '',
		sources     JSONB NOT NULL DEFAULT '[]',
		status      TEXT NOT NULL DEFAULT 'valid',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS state_records (
		id          TEXT PRIMARY KEY,
		character   TEXT NOT NULL,
		change_type TEXT NOT NULL,
		changes     JSONB NOT NULL DEFAULT '{}',
		chapter     INTEGER NOT NULL,
		concept_ids JSONB NOT NULL DEFAULT '[]',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS foreshadows (
		id                 TEXT PRIMARY KEY,
		concept_id         TEXT NOT NULL,
		state              TEXT NOT NULL,
		chapter_introduced INTEGER NOT NULL,
		chapter_updated    INTEGER NOT NULL,
		implied_future     TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS plot_events (
		id           TEXT PRIMARY KEY,
		chapter      INTEGER NOT NULL,
		name         TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		participants JSONB NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS debuffs (
		id              TEXT PRIMARY KEY,
		character       TEXT NOT NULL,
		kind            TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		chapter         INTEGER NOT NULL,
		expires_chapter INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS story_state (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		snapshot   JSONB NOT NULL DEFAULT '{}',
		chapter    INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS chapter_effects (
		chapter    INTEGER PRIMARY KEY,
		effects    JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS dependencies (
		chapter    INTEGER PRIMARY KEY,
		effect_ids JSONB NOT NULL DEFAULT '[]',
		fact_ids   JSONB NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS invalidations (
		chapter    INTEGER PRIMARY KEY,
		reason     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS inferences (
		id         TEXT PRIMARY KEY,
		claim      TEXT NOT NULL,
		basis      TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL,
		chapter    INTEGER NOT NULL,
		status     TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_inference_claim UNIQUE (claim, chapter)
	);

	CREATE INDEX IF NOT EXISTS idx_aliases_normalized ON concept_aliases (alias_normalized);
	CREATE INDEX IF NOT EXISTS idx_facts_type ON facts (fact_type);
	CREATE INDEX IF NOT EXISTS idx_facts_status ON facts (status);
	CREATE INDEX IF NOT EXISTS idx_facts_triple ON facts (subject, predicate, value);
	CREATE INDEX IF NOT EXISTS idx_state_character ON state_records (character, chapter);
	CREATE INDEX IF NOT EXISTS idx_foreshadows_concept ON foreshadows (concept_id);
	CREATE INDEX IF NOT EXISTS idx_debuffs_character ON debuffs (character);
	CREATE INDEX IF NOT EXISTS idx_inferences_status ON inferences (status);
	`

	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
