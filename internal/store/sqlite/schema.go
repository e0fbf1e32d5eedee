package sqlite

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS concepts (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		description   TEXT DEFAULT '',
		first_chapter INTEGER NOT NULL,
		created_at    TEXT DEFAULT (datetime('now'))
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
		subject     TEXT DEFAULT '',
		predicate   TEXT DEFAULT '',
		value       TEXT DEFAULT '',
		concept_ids TEXT DEFAULT '[]',
		evidence    TEXT DEFAULT '',
		sources     TEXT DEFAULT '[]',
		status      TEXT NOT NULL DEFAULT 'valid',
		created_at  TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS state_records (
		id          TEXT PRIMARY KEY,
		character   TEXT NOT NULL,
		change_type TEXT NOT NULL,
		changes     TEXT NOT NULL DEFAULT '{}',
		chapter     INTEGER NOT NULL,
		concept_ids TEXT DEFAULT '[]',
		created_at  TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS foreshadows (
		id                 TEXT PRIMARY KEY,
		concept_id         TEXT NOT NULL,
		state              TEXT NOT NULL,
		chapter_introduced INTEGER NOT NULL,
		chapter_updated    INTEGER NOT NULL,
		implied_future     TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS plot_events (
		id           TEXT PRIMARY KEY,
		chapter      INTEGER NOT NULL,
		name         TEXT NOT NULL,
		description  TEXT DEFAULT '',
		participants TEXT DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS debuffs (
		id              TEXT PRIMARY KEY,
		character       TEXT NOT NULL,
		kind            TEXT NOT NULL,
		description     TEXT DEFAULT '',
		chapter         INTEGER NOT NULL,
		expires_chapter INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS story_state (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		snapshot   TEXT NOT NULL DEFAULT '{}',
		chapter    INTEGER NOT NULL,
		updated_at TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS chapter_effects (
		chapter    INTEGER PRIMARY KEY,
		effects    TEXT NOT NULL DEFAULT '[]',
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS dependencies (
		chapter    INTEGER PRIMARY KEY,
		effect_ids TEXT NOT NULL DEFAULT '[]',
		fact_ids   TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS invalidations (
		chapter    INTEGER PRIMARY KEY,
		reason     TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS inferences (
		id         TEXT PRIMARY KEY,
		claim      TEXT NOT NULL,
		basis      TEXT DEFAULT '',
		confidence REAL NOT NULL,
		chapter    INTEGER NOT NULL,
		status     TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT DEFAULT (datetime('now')),
		CONSTRAINT uq_inference_claim UNIQUE (claim, chapter)
	);

	CREATE INDEX IF NOT EXISTS idx_aliases_normalized ON concept_aliases (alias_normalized);
	CREATE INDEX IF NOT EXISTS idx_facts_type ON facts (fact_type);
	CREATE INDEX IF NOT EXISTS idx_facts_status ON facts (status);
	CREATE INDEX IF NOT EXISTS idx_facts_subject ON facts (subject);
	CREATE INDEX IF NOT EXISTS idx_facts_triple ON facts (subject, predicate, value);
	CREATE INDEX IF NOT EXISTS idx_state_character ON state_records (character, chapter);
	CREATE INDEX IF NOT EXISTS idx_foreshadows_concept ON foreshadows (concept_id);
	CREATE INDEX IF NOT EXISTS idx_debuffs_character ON debuffs (character);
	CREATE INDEX IF NOT EXISTS idx_inferences_status ON inferences (status);
	`

	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
