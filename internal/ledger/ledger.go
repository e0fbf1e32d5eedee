// Package ledger is the append-only character state log. The record
// set for a character, folded in chapter order, is the only source of
// truth for current state; nothing edits a record in place.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canonkeeper/internal/store"
)

// MergedState is the left-fold of a character's records in chapter
// order plus the timeline that produced it.
type MergedState struct {
	Character string
	Fields    map[string]any
	Timeline  []store.StateRecord
}

type Ledger struct {
	db  store.Store
	log *zap.Logger
}

func New(db store.Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{db: db, log: log}
}

// RecordChange appends one state change. Re-recording an identical
// (character, type, chapter, changes) tuple is a no-op, which is what
// makes re-finalization of a chapter safe.
func (l *Ledger) RecordChange(ctx context.Context, character string, changeType store.ChangeType, changes map[string]any, chapter int, conceptIDs []string) (bool, error) {
	if character == "" {
		return false, fmt.Errorf("character is required")
	}

	record := store.StateRecord{
		ID:         "cs_" + uuid.NewString(),
		Character:  character,
		ChangeType: changeType,
		Changes:    changes,
		Chapter:    chapter,
		ConceptIDs: conceptIDs,
		CreatedAt:  time.Now().UTC(),
	}
	inserted, err := l.db.AppendStateRecord(ctx, record)
	if err != nil {
		return false, fmt.Errorf("appending state record for %s: %w", character, err)
	}
	if !inserted {
		l.log.Debug("duplicate state record skipped",
			zap.String("character", character),
			zap.Int("chapter", chapter))
	}
	return inserted, nil
}

// CurrentState folds all records for a character in chapter order.
// A character with no records yields an empty field map, not an error.
func (l *Ledger) CurrentState(ctx context.Context, character string) (*MergedState, error) {
	records, err := l.db.ListStateRecords(ctx, character)
	if err != nil {
		return nil, fmt.Errorf("listing state records for %s: %w", character, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Chapter < records[j].Chapter
	})

	fields := map[string]any{}
	for _, record := range records {
		for field, value := range record.Changes {
			fields[field] = value
		}
	}

	return &MergedState{Character: character, Fields: fields, Timeline: records}, nil
}

// Restore is the rollback primitive: it discards every record touching
// field at or after chapter, then appends a synthetic "restored" record
// when a target value is supplied.
func (l *Ledger) Restore(ctx context.Context, character, field string, value any, chapter int) error {
	removed, err := l.db.DeleteStateRecords(ctx, character, field, chapter)
	if err != nil {
		return fmt.Errorf("discarding state records for %s.%s: %w", character, field, err)
	}
	l.log.Info("restored character field",
		zap.String("character", character),
		zap.String("field", field),
		zap.Int("chapter", chapter),
		zap.Int64("records_removed", removed))

	if value == nil {
		return nil
	}

	record := store.StateRecord{
		ID:         "cs_" + uuid.NewString(),
		Character:  character,
		ChangeType: store.ChangeRestored,
		Changes:    map[string]any{field: value},
		Chapter:    chapter,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := l.db.AppendStateRecord(ctx, record); err != nil {
		return fmt.Errorf("appending restoration record for %s: %w", character, err)
	}
	return nil
}
