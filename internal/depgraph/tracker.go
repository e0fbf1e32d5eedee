// Package depgraph records what each finalized chapter consumed and
// exposes the invalidation cascade. The tracker never re-finalizes
// anything itself; invalidation is advisory metadata for the editor.
package depgraph

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"canonkeeper/internal/store"
)

type Tracker struct {
	db  store.Store
	log *zap.Logger
}

func New(db store.Store, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{db: db, log: log}
}

// Record overwrites chapter's dependency entry.
func (t *Tracker) Record(ctx context.Context, chapter int, effectIDs, factIDs []string) error {
	record := store.DependencyRecord{
		Chapter:   chapter,
		EffectIDs: effectIDs,
		FactIDs:   factIDs,
	}
	if err := t.db.PutDependencies(ctx, record); err != nil {
		return fmt.Errorf("recording dependencies for chapter %d: %w", chapter, err)
	}
	return nil
}

// ChaptersDependingOnEffect linear-scans every dependency record.
func (t *Tracker) ChaptersDependingOnEffect(ctx context.Context, effectID string) ([]int, error) {
	return t.chaptersMatching(ctx, func(r store.DependencyRecord) bool {
		return contains(r.EffectIDs, effectID)
	})
}

func (t *Tracker) ChaptersDependingOnFact(ctx context.Context, factID string) ([]int, error) {
	return t.chaptersMatching(ctx, func(r store.DependencyRecord) bool {
		return contains(r.FactIDs, factID)
	})
}

func (t *Tracker) chaptersMatching(ctx context.Context, match func(store.DependencyRecord) bool) ([]int, error) {
	records, err := t.db.ListDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing dependencies: %w", err)
	}

	var chapters []int
	for _, record := range records {
		if match(record) {
			chapters = append(chapters, record.Chapter)
		}
	}
	sort.Ints(chapters)
	return chapters, nil
}

// Invalidate flags a chapter, idempotently.
func (t *Tracker) Invalidate(ctx context.Context, chapter int, reason string) error {
	if err := t.db.MarkInvalidated(ctx, chapter, reason); err != nil {
		return fmt.Errorf("invalidating chapter %d: %w", chapter, err)
	}
	t.log.Info("chapter invalidated",
		zap.Int("chapter", chapter),
		zap.String("reason", reason))
	return nil
}

// ClearInvalidation removes the flag after a successful re-finalization.
func (t *Tracker) ClearInvalidation(ctx context.Context, chapter int) error {
	if err := t.db.ClearInvalidation(ctx, chapter); err != nil {
		return fmt.Errorf("clearing invalidation for chapter %d: %w", chapter, err)
	}
	return nil
}

func (t *Tracker) IsInvalidated(ctx context.Context, chapter int) (bool, error) {
	return t.db.IsInvalidated(ctx, chapter)
}

func (t *Tracker) Invalidations(ctx context.Context) ([]store.Invalidation, error) {
	return t.db.ListInvalidations(ctx)
}

// Forget drops chapter's dependency entry, as part of rolling the
// chapter back.
func (t *Tracker) Forget(ctx context.Context, chapter int) error {
	if err := t.db.DeleteDependencies(ctx, chapter); err != nil {
		return fmt.Errorf("deleting dependencies for chapter %d: %w", chapter, err)
	}
	return nil
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
