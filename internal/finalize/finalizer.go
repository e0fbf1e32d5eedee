// Package finalize turns one chapter's extract into an applied,
// persisted, reversible effect batch: normalize concepts, build
// effects, validate facts against the canon, apply, record
// dependencies. No other code path writes the canon stores.
package finalize

import (
	"context"
	"fmt"
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canonkeeper/internal/concept"
	"canonkeeper/internal/conflict"
	"canonkeeper/internal/depgraph"
	"canonkeeper/internal/effect"
	"canonkeeper/internal/extract"
	"canonkeeper/internal/inference"
	"canonkeeper/internal/ledger"
	"canonkeeper/internal/store"
)

const (
	// Explicit extractor certainty is never trusted above this.
	certaintyCap = 0.95
	// Certainty assumed when the candidate carries real evidence text.
	certaintyEvidenced = 0.85
	// Baseline certainty for a bare claim.
	certaintyDefault = 0.75
	// Evidence shorter than this is not considered corroborating.
	evidenceMinLen = 20
)

type Finalizer struct {
	db         store.Store
	concepts   *concept.Resolver
	detector   *conflict.Detector
	ledger     *ledger.Ledger
	deps       *depgraph.Tracker
	inferences *inference.Service
	events     *effect.EventResolver
	log        *zap.Logger
}

func New(db store.Store, concepts *concept.Resolver, detector *conflict.Detector, charLedger *ledger.Ledger, deps *depgraph.Tracker, inferences *inference.Service, events *effect.EventResolver, log *zap.Logger) *Finalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Finalizer{
		db:         db,
		concepts:   concepts,
		detector:   detector,
		ledger:     charLedger,
		deps:       deps,
		inferences: inferences,
		events:     events,
		log:        log,
	}
}

// Result summarizes one finalization run.
type Result struct {
	Chapter            int
	EffectsApplied     int
	FactsCreated       int
	FactsSkipped       int
	ConflictsDropped   int
	InferencesDiverted int
	ConceptsCreated    int
	Warnings           []string
}

// Finalize runs the full pipeline for one chapter. A chapter that was
// already finalized is rolled back first and rebuilt from the extract,
// which makes re-finalization idempotent.
func (f *Finalizer) Finalize(ctx context.Context, ex *extract.ChapterExtract) (*Result, error) {
	if ex == nil {
		return nil, fmt.Errorf("chapter extract is nil")
	}
	chapter := ex.Chapter

	prior, err := f.db.GetChapterEffects(ctx, chapter)
	if err != nil {
		return nil, fmt.Errorf("checking prior effect record: %w", err)
	}
	if prior != nil {
		f.log.Info("re-finalizing: rolling back prior effect record", zap.Int("chapter", chapter))
		if err := f.Rollback(ctx, chapter); err != nil {
			return nil, fmt.Errorf("rolling back chapter %d before re-finalization: %w", chapter, err)
		}
	}

	result := &Result{Chapter: chapter}
	consumedFacts := map[string]bool{}

	// Normalize: every concept mention resolves to an identity,
	// creating new concepts as needed.
	for _, mention := range ex.ConceptMentions {
		if mention.Surface == "" {
			continue
		}
		if err := f.normalizeMention(ctx, mention, chapter, result); err != nil {
			return nil, err
		}
	}

	var effects []effect.Effect

	factEffects, err := f.buildFactEffects(ctx, ex, result)
	if err != nil {
		return nil, err
	}
	effects = append(effects, factEffects...)

	stateEffects, err := f.buildStateEffects(ctx, ex, result)
	if err != nil {
		return nil, err
	}
	effects = append(effects, stateEffects...)

	foreshadowEffects, err := f.buildForeshadowEffects(ctx, ex, result)
	if err != nil {
		return nil, err
	}
	effects = append(effects, foreshadowEffects...)

	eventEffects, err := f.buildEventEffects(ctx, ex, result, consumedFacts)
	if err != nil {
		return nil, err
	}
	effects = append(effects, eventEffects...)

	if ex.StoryStateSnapshot != nil {
		// The snapshot does not belong in an extract; tolerated but
		// flagged so the extractor side gets fixed eventually.
		f.log.Warn("extract carries a story state snapshot (schema leak)", zap.Int("chapter", chapter))
		result.Warnings = append(result.Warnings, "extract carried a story_state_snapshot")
		effects = append(effects, effect.NewUpdateStoryState(chapter, effect.UpdateStoryState{Snapshot: ex.StoryStateSnapshot}))
	}

	accepted, err := f.validateEffects(ctx, effects, result, consumedFacts)
	if err != nil {
		return nil, err
	}

	var createdFacts []string
	for _, e := range accepted {
		if err := f.applyEffect(ctx, e); err != nil {
			return nil, fmt.Errorf("applying effect %s: %w", e.ID, err)
		}
		result.EffectsApplied++
		if e.Type == effect.TypeAddFact {
			result.FactsCreated++
			createdFacts = append(createdFacts, e.AddFact.FactID)
		}
	}

	effectIDs := make([]string, 0, len(accepted))
	for _, e := range accepted {
		effectIDs = append(effectIDs, e.ID)
	}
	factIDs := createdFacts
	for id := range consumedFacts {
		factIDs = append(factIDs, id)
	}
	if err := f.deps.Record(ctx, chapter, effectIDs, factIDs); err != nil {
		return nil, err
	}

	record := store.EffectRecord{Chapter: chapter, Effects: accepted, CreatedAt: time.Now().UTC()}
	if err := f.db.PutChapterEffects(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting effect record for chapter %d: %w", chapter, err)
	}

	if err := f.deps.ClearInvalidation(ctx, chapter); err != nil {
		return nil, err
	}

	f.log.Info("chapter finalized",
		zap.Int("chapter", chapter),
		zap.Int("effects", result.EffectsApplied),
		zap.Int("facts_created", result.FactsCreated),
		zap.Int("conflicts_dropped", result.ConflictsDropped),
		zap.Int("inferences", result.InferencesDiverted))
	return result, nil
}

func (f *Finalizer) normalizeMention(ctx context.Context, mention extract.ConceptMention, chapter int, result *Result) error {
	res, err := f.concepts.Resolve(ctx, mention.Surface)
	if err != nil {
		return fmt.Errorf("resolving mention %q: %w", mention.Surface, err)
	}
	if res.IsNew {
		if _, err := f.concepts.Create(ctx, mention.Surface, chapter, mention.Description); err != nil {
			return err
		}
		result.ConceptsCreated++
		return nil
	}
	// A similarity match means this surface form was not an alias yet;
	// register it so next time it resolves exactly.
	if res.Similarity < 1.0 {
		if err := f.concepts.AddAlias(ctx, res.ConceptID, mention.Surface); err != nil {
			return err
		}
	}
	if mention.Description != "" {
		if err := f.concepts.UpdateDescription(ctx, res.ConceptID, mention.Description); err != nil {
			return err
		}
	}
	return nil
}

// certainty computes the admission score for a fact candidate.
func certainty(cand extract.FactCandidate) float64 {
	if cand.Certainty != nil {
		value := *cand.Certainty
		if value < 0 {
			value = 0
		}
		if value > certaintyCap {
			value = certaintyCap
		}
		return value
	}
	if utf8.RuneCountInString(cand.Evidence) > evidenceMinLen {
		return certaintyEvidenced
	}
	return certaintyDefault
}

func (f *Finalizer) buildFactEffects(ctx context.Context, ex *extract.ChapterExtract, result *Result) ([]effect.Effect, error) {
	var effects []effect.Effect

	for _, cand := range ex.FactCandidates {
		if cand.Statement == "" {
			continue
		}

		score := certainty(cand)
		if score < inference.Threshold {
			if err := f.inferences.Divert(ctx, cand.Statement, cand.Evidence, score, ex.Chapter); err != nil {
				return nil, err
			}
			result.InferencesDiverted++
			continue
		}

		if cand.Subject != "" && cand.Predicate != "" {
			exists, err := f.db.FactTripleExists(ctx, cand.Subject, cand.Predicate, cand.Value)
			if err != nil {
				return nil, fmt.Errorf("checking fact triple: %w", err)
			}
			if exists {
				result.FactsSkipped++
				continue
			}
		}

		conceptIDs := make([]string, 0, len(cand.Concepts))
		for _, surface := range cand.Concepts {
			id, created, err := f.concepts.ResolveOrCreate(ctx, surface, ex.Chapter, "")
			if err != nil {
				return nil, err
			}
			if created {
				result.ConceptsCreated++
			}
			conceptIDs = append(conceptIDs, id)
		}

		effects = append(effects, effect.NewAddFact(ex.Chapter, effect.AddFact{
			FactID:     "fact_" + uuid.NewString(),
			FactType:   cand.FactType,
			Statement:  cand.Statement,
			Subject:    cand.Subject,
			Predicate:  cand.Predicate,
			Value:      cand.Value,
			ConceptIDs: conceptIDs,
			Evidence:   cand.Evidence,
			Sources:    cand.Sources,
			Confidence: string(store.ConfidenceObserved),
		}))
	}

	return effects, nil
}

func (f *Finalizer) buildStateEffects(ctx context.Context, ex *extract.ChapterExtract, result *Result) ([]effect.Effect, error) {
	var effects []effect.Effect

	for _, delta := range ex.CharacterStates {
		if delta.Character == "" || len(delta.Fields) == 0 {
			continue
		}

		current, err := f.ledger.CurrentState(ctx, delta.Character)
		if err != nil {
			return nil, err
		}

		conceptIDs := make([]string, 0, len(delta.Concepts))
		for _, surface := range delta.Concepts {
			id, created, err := f.concepts.ResolveOrCreate(ctx, surface, ex.Chapter, "")
			if err != nil {
				return nil, err
			}
			if created {
				result.ConceptsCreated++
			}
			conceptIDs = append(conceptIDs, id)
		}

		for field, newValue := range delta.Fields {
			oldValue, had := current.Fields[field]
			if had && reflect.DeepEqual(oldValue, newValue) {
				continue
			}
			// One effect per changed field; the old value rides along
			// because reversal needs it.
			effects = append(effects, effect.NewUpdateCharacterState(ex.Chapter, effect.UpdateCharacterState{
				Character:  delta.Character,
				Field:      field,
				From:       oldValue,
				To:         newValue,
				ChangeType: delta.ChangeType,
				ConceptIDs: conceptIDs,
			}))
		}
	}

	return effects, nil
}

func (f *Finalizer) buildForeshadowEffects(ctx context.Context, ex *extract.ChapterExtract, result *Result) ([]effect.Effect, error) {
	var effects []effect.Effect

	for _, cand := range ex.ForeshadowCandidates {
		if cand.Concept == "" {
			continue
		}

		conceptID, created, err := f.concepts.ResolveOrCreate(ctx, cand.Concept, ex.Chapter, "")
		if err != nil {
			return nil, err
		}
		if created {
			result.ConceptsCreated++
		}

		existing, err := f.db.FindForeshadowByConcept(ctx, conceptID)
		if err != nil {
			return nil, fmt.Errorf("looking up foreshadow for concept %s: %w", conceptID, err)
		}

		if existing == nil {
			effects = append(effects, effect.NewAddForeshadow(ex.Chapter, effect.AddForeshadow{
				ForeshadowID:  "fs_" + uuid.NewString(),
				ConceptID:     conceptID,
				ImpliedFuture: cand.ImpliedFuture,
			}))
			continue
		}

		if cand.Transition == "" {
			continue
		}
		target, ok := parseForeshadowState(cand.Transition)
		if !ok {
			f.log.Warn("unknown foreshadow transition requested, ignoring",
				zap.String("transition", cand.Transition),
				zap.String("foreshadow", existing.ID))
			continue
		}
		if !canTransition(existing.State, target) {
			f.log.Debug("foreshadow transition not allowed, no-op",
				zap.String("foreshadow", existing.ID),
				zap.String("from", string(existing.State)),
				zap.String("to", string(target)))
			continue
		}

		if target == store.ForeshadowRevealed {
			effects = append(effects, effect.NewRevealForeshadow(ex.Chapter, effect.RevealForeshadow{
				ForeshadowID: existing.ID,
				FromState:    string(existing.State),
				ToState:      string(target),
			}))
			continue
		}

		// Non-reveal transitions have no dedicated effect type yet and
		// are applied directly. They escape the effect record, so a
		// rollback cannot undo them.
		// TODO: give confirmed/archived transitions their own effect
		// types so rollback covers them.
		f.log.Warn("applying foreshadow transition outside the effect record",
			zap.String("foreshadow", existing.ID),
			zap.String("to", string(target)))
		if err := f.db.UpdateForeshadowState(ctx, existing.ID, target, ex.Chapter); err != nil {
			return nil, fmt.Errorf("transitioning foreshadow %s: %w", existing.ID, err)
		}
	}

	return effects, nil
}

func (f *Finalizer) buildEventEffects(ctx context.Context, ex *extract.ChapterExtract, result *Result, consumedFacts map[string]bool) ([]effect.Effect, error) {
	var effects []effect.Effect

	for _, claim := range ex.EventClaims {
		if claim.ClaimType == extract.ClaimNarrative {
			if err := f.checkNarrativeClaim(ctx, ex.Chapter, claim, result, consumedFacts); err != nil {
				return nil, err
			}
			continue
		}

		effects = append(effects, f.events.Resolve(ex.Chapter, claim)...)

		if claim.Major && claim.Name != "" {
			effects = append(effects, effect.NewAddPlotEvent(ex.Chapter, effect.AddPlotEvent{
				EventID:     "pe_" + uuid.NewString(),
				Name:        claim.Name,
				Description: claim.Description,
				Participants: func() []string {
					if claim.Character == "" {
						return nil
					}
					return []string{claim.Character}
				}(),
			}))
		}
	}

	return effects, nil
}

// checkNarrativeClaim verifies a narration-only claim against the canon
// and logs disagreement for the operator. It never mutates state.
func (f *Finalizer) checkNarrativeClaim(ctx context.Context, chapter int, claim extract.EventClaim, result *Result, consumedFacts map[string]bool) error {
	if claim.Character == "" || claim.Level == "" {
		return nil
	}

	facts, err := f.db.ListFacts(ctx, store.FactFilter{Status: store.FactValid})
	if err != nil {
		return fmt.Errorf("listing facts for narrative check: %w", err)
	}

	corroborated := false
	for _, fact := range facts {
		if fact.Subject != claim.Character {
			continue
		}
		consumedFacts[fact.ID] = true
		if fact.Value == claim.Level {
			corroborated = true
		}
	}

	if !corroborated {
		message := fmt.Sprintf("narrative claim says %s is at %s but the fact store does not corroborate it", claim.Character, claim.Level)
		f.log.Warn("uncorroborated narrative claim",
			zap.Int("chapter", chapter),
			zap.String("character", claim.Character),
			zap.String("level", claim.Level))
		result.Warnings = append(result.Warnings, message)
	}
	return nil
}

// validateEffects runs every add-fact effect through the conflict
// detector. Conflicting and duplicate candidates are dropped; the rest
// of the batch continues.
func (f *Finalizer) validateEffects(ctx context.Context, effects []effect.Effect, result *Result, consumedFacts map[string]bool) ([]effect.Effect, error) {
	existing, err := f.db.ListFacts(ctx, store.FactFilter{Status: store.FactValid})
	if err != nil {
		return nil, fmt.Errorf("listing facts for validation: %w", err)
	}

	accepted := make([]effect.Effect, 0, len(effects))
	for _, e := range effects {
		if err := e.Validate(); err != nil {
			f.log.Warn("malformed effect dropped", zap.Error(err))
			continue
		}
		if e.Type != effect.TypeAddFact {
			accepted = append(accepted, e)
			continue
		}

		candidate := factFromPayload(*e.AddFact, e.Chapter)
		detection := f.detector.Detect(ctx, candidate, existing)

		for _, c := range detection.Conflicts {
			if c.ExistingFactID != "" {
				consumedFacts[c.ExistingFactID] = true
			}
		}
		for _, w := range detection.Warnings {
			if w.ExistingFactID != "" {
				consumedFacts[w.ExistingFactID] = true
			}
			if w.Kind != conflict.WarnDuplicate {
				result.Warnings = append(result.Warnings, w.Message)
			}
		}

		if detection.HasConflict {
			result.ConflictsDropped++
			f.log.Info("fact candidate dropped on conflict",
				zap.String("statement", candidate.Statement),
				zap.String("reason", detection.Conflicts[0].Reason))
			continue
		}
		if detection.IsDuplicate() {
			result.FactsSkipped++
			continue
		}

		accepted = append(accepted, e)
		existing = append(existing, candidate)
	}

	return accepted, nil
}

func factFromPayload(p effect.AddFact, chapter int) store.Fact {
	return store.Fact{
		ID:         p.FactID,
		FactType:   p.FactType,
		Statement:  p.Statement,
		Chapter:    chapter,
		Confidence: store.ConfidenceTag(p.Confidence),
		Subject:    p.Subject,
		Predicate:  p.Predicate,
		Value:      p.Value,
		ConceptIDs: p.ConceptIDs,
		Evidence:   p.Evidence,
		Sources:    p.Sources,
		Status:     store.FactValid,
	}
}
