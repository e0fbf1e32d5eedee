package finalize

import (
	"context"
	"time"

	"go.uber.org/zap"

	"canonkeeper/internal/effect"
	"canonkeeper/internal/store"
)

// applyEffect writes one accepted effect to its target store. Unknown
// effect types are logged and skipped; a single bad effect never aborts
// the batch.
func (f *Finalizer) applyEffect(ctx context.Context, e effect.Effect) error {
	switch e.Type {
	case effect.TypeAddFact:
		return f.db.InsertFact(ctx, store.Fact{
			ID:         e.AddFact.FactID,
			FactType:   e.AddFact.FactType,
			Statement:  e.AddFact.Statement,
			Chapter:    e.Chapter,
			Confidence: store.ConfidenceTag(e.AddFact.Confidence),
			Subject:    e.AddFact.Subject,
			Predicate:  e.AddFact.Predicate,
			Value:      e.AddFact.Value,
			ConceptIDs: e.AddFact.ConceptIDs,
			Evidence:   e.AddFact.Evidence,
			Sources:    e.AddFact.Sources,
			Status:     store.FactValid,
			CreatedAt:  time.Now().UTC(),
		})

	case effect.TypeUpdateCharacterState:
		p := e.UpdateCharacterState
		changeType := store.ChangeType(p.ChangeType)
		if changeType == "" {
			changeType = store.ChangeIrreversible
		}
		_, err := f.ledger.RecordChange(ctx, p.Character, changeType, map[string]any{p.Field: p.To}, e.Chapter, p.ConceptIDs)
		return err

	case effect.TypeAddForeshadow:
		p := e.AddForeshadow
		return f.db.InsertForeshadow(ctx, store.Foreshadow{
			ID:                p.ForeshadowID,
			ConceptID:         p.ConceptID,
			State:             store.ForeshadowPending,
			ChapterIntroduced: e.Chapter,
			ChapterUpdated:    e.Chapter,
			ImpliedFuture:     p.ImpliedFuture,
		})

	case effect.TypeRevealForeshadow:
		p := e.RevealForeshadow
		return f.db.UpdateForeshadowState(ctx, p.ForeshadowID, store.ForeshadowRevealed, e.Chapter)

	case effect.TypeResolveForeshadow:
		p := e.ResolveForeshadow
		return f.db.UpdateForeshadowState(ctx, p.ForeshadowID, store.ForeshadowArchived, e.Chapter)

	case effect.TypeAddPlotEvent:
		p := e.AddPlotEvent
		return f.db.InsertPlotEvent(ctx, store.PlotEvent{
			ID:           p.EventID,
			Chapter:      e.Chapter,
			Name:         p.Name,
			Description:  p.Description,
			Participants: p.Participants,
		})

	case effect.TypeUpdateStoryState:
		return f.db.PutStoryState(ctx, store.StoryState{
			Snapshot:  e.UpdateStoryState.Snapshot,
			Chapter:   e.Chapter,
			UpdatedAt: time.Now().UTC(),
		})

	case effect.TypeTemporaryDebuff:
		p := e.TemporaryDebuff
		return f.db.InsertDebuff(ctx, store.Debuff{
			ID:             p.DebuffID,
			Character:      p.Character,
			Kind:           p.Kind,
			Description:    p.Description,
			Chapter:        e.Chapter,
			ExpiresChapter: e.Chapter + p.DurationChapters,
		})

	default:
		f.log.Warn("unknown effect type at apply, skipping",
			zap.String("effect", e.ID),
			zap.String("type", string(e.Type)))
		return nil
	}
}
