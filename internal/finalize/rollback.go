package finalize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"canonkeeper/internal/effect"
	"canonkeeper/internal/store"
)

// Rollback reverts chapter N's effect batch in reverse creation order,
// marks every later dependent chapter invalidated, and finally deletes
// N's effect and dependency records. Rolling back a chapter with no
// effect record is a no-op.
func (f *Finalizer) Rollback(ctx context.Context, chapter int) error {
	record, err := f.db.GetChapterEffects(ctx, chapter)
	if err != nil {
		return fmt.Errorf("loading effect record for chapter %d: %w", chapter, err)
	}
	if record == nil {
		f.log.Info("no effect record to roll back", zap.Int("chapter", chapter))
		return nil
	}

	if err := f.invalidateDependents(ctx, chapter, record.Effects); err != nil {
		return err
	}

	for i := len(record.Effects) - 1; i >= 0; i-- {
		if err := f.revertEffect(ctx, record.Effects[i]); err != nil {
			return fmt.Errorf("reverting effect %s: %w", record.Effects[i].ID, err)
		}
	}

	if err := f.db.DeleteChapterEffects(ctx, chapter); err != nil {
		return fmt.Errorf("deleting effect record for chapter %d: %w", chapter, err)
	}
	if err := f.deps.Forget(ctx, chapter); err != nil {
		return err
	}

	f.log.Info("chapter rolled back",
		zap.Int("chapter", chapter),
		zap.Int("effects_reverted", len(record.Effects)))
	return nil
}

// invalidateDependents flags every later chapter whose dependency
// record references an effect of the rolled-back chapter, or a fact it
// created. Invalidation never cascades backwards.
func (f *Finalizer) invalidateDependents(ctx context.Context, chapter int, effects []effect.Effect) error {
	dependents := map[int]bool{}

	for _, e := range effects {
		chapters, err := f.deps.ChaptersDependingOnEffect(ctx, e.ID)
		if err != nil {
			return err
		}
		for _, c := range chapters {
			dependents[c] = true
		}

		if e.Type == effect.TypeAddFact && e.AddFact != nil {
			chapters, err := f.deps.ChaptersDependingOnFact(ctx, e.AddFact.FactID)
			if err != nil {
				return err
			}
			for _, c := range chapters {
				dependents[c] = true
			}
		}
	}

	reason := fmt.Sprintf("depends on effects of rolled-back chapter %d", chapter)
	for dependent := range dependents {
		if dependent <= chapter {
			continue
		}
		if err := f.deps.Invalidate(ctx, dependent, reason); err != nil {
			return err
		}
	}
	return nil
}

// revertEffect undoes one effect via its type-specific inverse.
func (f *Finalizer) revertEffect(ctx context.Context, e effect.Effect) error {
	switch e.Type {
	case effect.TypeAddFact:
		return f.db.DeleteFact(ctx, e.AddFact.FactID)

	case effect.TypeUpdateCharacterState:
		p := e.UpdateCharacterState
		return f.ledger.Restore(ctx, p.Character, p.Field, p.From, e.Chapter)

	case effect.TypeAddForeshadow:
		return f.db.DeleteForeshadow(ctx, e.AddForeshadow.ForeshadowID)

	case effect.TypeRevealForeshadow:
		p := e.RevealForeshadow
		from, ok := parseForeshadowState(p.FromState)
		if !ok {
			from = store.ForeshadowConfirmed
		}
		return f.db.UpdateForeshadowState(ctx, p.ForeshadowID, from, e.Chapter)

	case effect.TypeResolveForeshadow:
		p := e.ResolveForeshadow
		from, ok := parseForeshadowState(p.FromState)
		if !ok {
			from = store.ForeshadowRevealed
		}
		return f.db.UpdateForeshadowState(ctx, p.ForeshadowID, from, e.Chapter)

	case effect.TypeAddPlotEvent:
		return f.db.DeletePlotEvent(ctx, e.AddPlotEvent.EventID)

	case effect.TypeUpdateStoryState:
		// The effect carries no prior snapshot, so there is nothing to
		// restore. Known gap; flagged at apply time too.
		f.log.Warn("story state replacement has no inverse, skipping",
			zap.String("effect", e.ID),
			zap.Int("chapter", e.Chapter))
		return nil

	case effect.TypeTemporaryDebuff:
		return f.db.DeleteDebuff(ctx, e.TemporaryDebuff.DebuffID)

	default:
		f.log.Warn("unknown effect type at revert, skipping",
			zap.String("effect", e.ID),
			zap.String("type", string(e.Type)))
		return nil
	}
}
