package finalize

import (
	"context"
	"strings"
	"testing"

	"canonkeeper/internal/concept"
	"canonkeeper/internal/conflict"
	"canonkeeper/internal/depgraph"
	"canonkeeper/internal/effect"
	"canonkeeper/internal/extract"
	"canonkeeper/internal/inference"
	"canonkeeper/internal/ledger"
	"canonkeeper/internal/store"
	"canonkeeper/internal/store/memory"
)

func newTestFinalizer(t *testing.T) (*Finalizer, store.Store) {
	t.Helper()
	db := memory.New()
	f := New(db,
		concept.NewResolver(db, nil, nil),
		conflict.NewDetector(nil, nil, nil),
		ledger.New(db, nil),
		depgraph.New(db, nil),
		inference.New(db, nil),
		effect.NewEventResolver(nil),
		nil)
	return f, db
}

func floatPtr(v float64) *float64 { return &v }

func TestCertainty(t *testing.T) {
	cases := []struct {
		name string
		cand extract.FactCandidate
		want float64
	}{
		{"bare claim", extract.FactCandidate{Statement: "林风入宗"}, certaintyDefault},
		{"short evidence stays default", extract.FactCandidate{Statement: "x", Evidence: "第三章"}, certaintyDefault},
		{"long evidence", extract.FactCandidate{Statement: "x", Evidence: strings.Repeat("林风在洞府中突破境界", 3)}, certaintyEvidenced},
		{"threshold counts characters, not bytes", extract.FactCandidate{Statement: "x", Evidence: strings.Repeat("真", 20)}, certaintyDefault},
		{"twenty-one characters corroborate", extract.FactCandidate{Statement: "x", Evidence: strings.Repeat("真", 21)}, certaintyEvidenced},
		{"explicit value", extract.FactCandidate{Statement: "x", Certainty: floatPtr(0.8)}, 0.8},
		{"explicit value capped", extract.FactCandidate{Statement: "x", Certainty: floatPtr(0.99)}, certaintyCap},
		{"negative clamped to zero", extract.FactCandidate{Statement: "x", Certainty: floatPtr(-1)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := certainty(tc.cand); got != tc.want {
				t.Fatalf("certainty = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFinalizeNilExtract(t *testing.T) {
	f, _ := newTestFinalizer(t)
	if _, err := f.Finalize(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil extract")
	}
}

func TestFinalizeCreatesFacts(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	ex := &extract.ChapterExtract{
		Chapter:         3,
		ConceptMentions: []extract.ConceptMention{{Surface: "青云宗", Description: "林风所在的宗门"}},
		FactCandidates: []extract.FactCandidate{{
			FactType:  "membership",
			Statement: "林风拜入青云宗",
			Subject:   "林风",
			Predicate: "member_of",
			Value:     "青云宗",
			Concepts:  []string{"林风", "青云宗"},
		}},
	}

	result, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.FactsCreated != 1 {
		t.Fatalf("FactsCreated = %d, want 1", result.FactsCreated)
	}
	// 青云宗 from the mention, 林风 from the candidate's concept list.
	if result.ConceptsCreated != 2 {
		t.Fatalf("ConceptsCreated = %d, want 2", result.ConceptsCreated)
	}

	facts, err := db.ListFacts(ctx, store.FactFilter{})
	if err != nil {
		t.Fatalf("ListFacts: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	fact := facts[0]
	if fact.Subject != "林风" || fact.Value != "青云宗" || fact.Chapter != 3 {
		t.Fatalf("unexpected fact: %+v", fact)
	}
	if fact.Status != store.FactValid {
		t.Fatalf("fact status = %q, want valid", fact.Status)
	}
	if len(fact.ConceptIDs) != 2 {
		t.Fatalf("expected 2 concept ids, got %d", len(fact.ConceptIDs))
	}

	chapters, err := db.ListFinalizedChapters(ctx)
	if err != nil {
		t.Fatalf("ListFinalizedChapters: %v", err)
	}
	if len(chapters) != 1 || chapters[0] != 3 {
		t.Fatalf("finalized chapters = %v", chapters)
	}
	deps, err := db.GetDependencies(ctx, 3)
	if err != nil {
		t.Fatalf("GetDependencies: %v", err)
	}
	if deps == nil || len(deps.FactIDs) != 1 || deps.FactIDs[0] != fact.ID {
		t.Fatalf("dependency record missing the created fact: %+v", deps)
	}
}

func TestFinalizeCertaintyGating(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	ex := &extract.ChapterExtract{
		Chapter: 4,
		FactCandidates: []extract.FactCandidate{
			{FactType: "rumor", Statement: "传闻魔教已潜入青云宗", Certainty: floatPtr(0.4)},
			{FactType: "item", Statement: "林风获得青铜古灯", Subject: "林风", Predicate: "owns", Value: "青铜古灯"},
		},
	}

	result, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.InferencesDiverted != 1 {
		t.Fatalf("InferencesDiverted = %d, want 1", result.InferencesDiverted)
	}
	if result.FactsCreated != 1 {
		t.Fatalf("FactsCreated = %d, want 1", result.FactsCreated)
	}

	pending, err := db.ListInferences(ctx, store.InferencePending)
	if err != nil {
		t.Fatalf("ListInferences: %v", err)
	}
	if len(pending) != 1 || pending[0].Claim != "传闻魔教已潜入青云宗" {
		t.Fatalf("unexpected pending inferences: %+v", pending)
	}

	facts, _ := db.ListFacts(ctx, store.FactFilter{})
	if len(facts) != 1 || facts[0].Statement != "林风获得青铜古灯" {
		t.Fatalf("unexpected facts: %+v", facts)
	}
}

func TestFinalizeSkipsExistingTriple(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	if err := db.InsertFact(ctx, store.Fact{
		ID: "fact_seed", FactType: "item", Statement: "林风持有青铜古灯",
		Subject: "林风", Predicate: "owns", Value: "青铜古灯",
		Chapter: 2, Status: store.FactValid,
	}); err != nil {
		t.Fatalf("seed fact: %v", err)
	}

	ex := &extract.ChapterExtract{
		Chapter: 6,
		FactCandidates: []extract.FactCandidate{{
			FactType: "item", Statement: "林风依旧带着青铜古灯",
			Subject: "林风", Predicate: "owns", Value: "青铜古灯",
		}},
	}
	result, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.FactsSkipped != 1 || result.FactsCreated != 0 {
		t.Fatalf("skipped=%d created=%d, want 1/0", result.FactsSkipped, result.FactsCreated)
	}
	facts, _ := db.ListFacts(ctx, store.FactFilter{})
	if len(facts) != 1 {
		t.Fatalf("expected the seed fact only, got %d", len(facts))
	}
}

func TestFinalizeSkipsDuplicateStatement(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	if err := db.InsertFact(ctx, store.Fact{
		ID: "fact_seed", FactType: "event", Statement: "林风拜入青云宗",
		Chapter: 1, Status: store.FactValid,
	}); err != nil {
		t.Fatalf("seed fact: %v", err)
	}

	ex := &extract.ChapterExtract{
		Chapter:        2,
		FactCandidates: []extract.FactCandidate{{FactType: "event", Statement: "林风拜入青云宗"}},
	}
	result, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.FactsSkipped != 1 || result.FactsCreated != 0 {
		t.Fatalf("skipped=%d created=%d, want 1/0", result.FactsSkipped, result.FactsCreated)
	}
}

func TestFinalizeDropsConflictingFact(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	if err := db.InsertFact(ctx, store.Fact{
		ID: "fact_death", FactType: "event", Statement: "李雄死亡于黑风谷",
		Subject: "李雄", Predicate: "death", Chapter: 8, Status: store.FactValid,
	}); err != nil {
		t.Fatalf("seed fact: %v", err)
	}

	ex := &extract.ChapterExtract{
		Chapter: 12,
		FactCandidates: []extract.FactCandidate{{
			FactType: "event", Statement: "李雄 died protecting the sect",
			Subject: "李雄", Predicate: "death",
		}},
	}
	result, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.ConflictsDropped != 1 {
		t.Fatalf("ConflictsDropped = %d, want 1", result.ConflictsDropped)
	}
	if result.FactsCreated != 0 {
		t.Fatalf("FactsCreated = %d, want 0", result.FactsCreated)
	}

	// The contradicted fact was consumed, so chapter 12 now depends on it.
	deps, err := db.GetDependencies(ctx, 12)
	if err != nil {
		t.Fatalf("GetDependencies: %v", err)
	}
	if deps == nil || len(deps.FactIDs) != 1 || deps.FactIDs[0] != "fact_death" {
		t.Fatalf("expected dependency on fact_death, got %+v", deps)
	}
}

func TestFinalizeStateEffects(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	ex := &extract.ChapterExtract{
		Chapter: 5,
		CharacterStates: []extract.CharacterStateDelta{{
			Character:  "林风",
			ChangeType: string(store.ChangeLevelBreakthrough),
			Fields:     map[string]any{"境界": "筑基初期", "宗门": "青云宗"},
		}},
	}
	result, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.EffectsApplied != 2 {
		t.Fatalf("EffectsApplied = %d, want 2 (one per changed field)", result.EffectsApplied)
	}

	lg := ledger.New(db, nil)
	state, err := lg.CurrentState(ctx, "林风")
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if state.Fields["境界"] != "筑基初期" || state.Fields["宗门"] != "青云宗" {
		t.Fatalf("unexpected fields: %+v", state.Fields)
	}

	// A later chapter reporting the same value produces no effect.
	ex2 := &extract.ChapterExtract{
		Chapter: 7,
		CharacterStates: []extract.CharacterStateDelta{{
			Character: "林风",
			Fields:    map[string]any{"境界": "筑基初期"},
		}},
	}
	result2, err := f.Finalize(ctx, ex2)
	if err != nil {
		t.Fatalf("Finalize chapter 7: %v", err)
	}
	if result2.EffectsApplied != 0 {
		t.Fatalf("unchanged field produced %d effects", result2.EffectsApplied)
	}
}

func TestFinalizeStateEffectsCarryConcepts(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	ex := &extract.ChapterExtract{
		Chapter: 6,
		CharacterStates: []extract.CharacterStateDelta{{
			Character: "林风",
			Fields:    map[string]any{"境界": "筑基初期"},
			Concepts:  []string{"筑基", "林风"},
		}},
	}
	result, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.ConceptsCreated != 2 {
		t.Fatalf("ConceptsCreated = %d, want 2", result.ConceptsCreated)
	}

	records, err := db.ListStateRecords(ctx, "林风")
	if err != nil {
		t.Fatalf("ListStateRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 state record, got %d", len(records))
	}
	if len(records[0].ConceptIDs) != 2 {
		t.Fatalf("state record carries %d concept ids, want 2", len(records[0].ConceptIDs))
	}
	for _, id := range records[0].ConceptIDs {
		c, err := db.GetConcept(ctx, id)
		if err != nil {
			t.Fatalf("GetConcept(%s): %v", id, err)
		}
		if c == nil {
			t.Fatalf("state record references unknown concept %s", id)
		}
	}
}

func TestFinalizeForeshadowLifecycle(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	finalize := func(chapter int, transition string) {
		t.Helper()
		ex := &extract.ChapterExtract{
			Chapter: chapter,
			ForeshadowCandidates: []extract.ForeshadowCandidate{{
				Concept:       "青铜古灯",
				ImpliedFuture: "灯中封印着上古残魂",
				Transition:    transition,
			}},
		}
		if _, err := f.Finalize(ctx, ex); err != nil {
			t.Fatalf("Finalize chapter %d: %v", chapter, err)
		}
	}

	mustState := func(want store.ForeshadowState) store.Foreshadow {
		t.Helper()
		all, err := db.ListForeshadows(ctx, "")
		if err != nil {
			t.Fatalf("ListForeshadows: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 foreshadow, got %d", len(all))
		}
		if all[0].State != want {
			t.Fatalf("foreshadow state = %q, want %q", all[0].State, want)
		}
		return all[0]
	}

	finalize(2, "")
	fs := mustState(store.ForeshadowPending)
	if fs.ChapterIntroduced != 2 {
		t.Fatalf("ChapterIntroduced = %d, want 2", fs.ChapterIntroduced)
	}

	finalize(4, "revealed")
	fs = mustState(store.ForeshadowRevealed)
	if fs.ChapterUpdated != 4 {
		t.Fatalf("ChapterUpdated = %d, want 4", fs.ChapterUpdated)
	}

	// Lifecycle is monotonic: a request to go backwards is ignored.
	finalize(6, "pending")
	mustState(store.ForeshadowRevealed)

	finalize(7, "archived")
	mustState(store.ForeshadowArchived)
}

func TestFinalizeForeshadowConfirm(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	intro := &extract.ChapterExtract{
		Chapter:              3,
		ForeshadowCandidates: []extract.ForeshadowCandidate{{Concept: "封魔碑"}},
	}
	if _, err := f.Finalize(ctx, intro); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	confirm := &extract.ChapterExtract{
		Chapter:              5,
		ForeshadowCandidates: []extract.ForeshadowCandidate{{Concept: "封魔碑", Transition: "confirmed"}},
	}
	if _, err := f.Finalize(ctx, confirm); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	all, err := db.ListForeshadows(ctx, store.ForeshadowConfirmed)
	if err != nil {
		t.Fatalf("ListForeshadows: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 confirmed foreshadow, got %d", len(all))
	}
}

func TestFinalizeEventClaims(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	ex := &extract.ChapterExtract{
		Chapter: 9,
		EventClaims: []extract.EventClaim{
			{
				EventType: "breakthrough_failed",
				ClaimType: extract.ClaimEvent,
				Character: "林风",
			},
			{
				EventType:   "tribulation",
				ClaimType:   extract.ClaimEvent,
				Character:   "王长老",
				Name:        "王长老渡劫",
				Description: "九重雷劫降临主峰",
				Major:       true,
			},
		},
	}
	if _, err := f.Finalize(ctx, ex); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	debuffs, err := db.ListActiveDebuffs(ctx, 10)
	if err != nil {
		t.Fatalf("ListActiveDebuffs: %v", err)
	}
	if len(debuffs) != 1 || debuffs[0].Character != "林风" {
		t.Fatalf("unexpected debuffs: %+v", debuffs)
	}
	if debuffs[0].ExpiresChapter != 12 {
		t.Fatalf("ExpiresChapter = %d, want 12", debuffs[0].ExpiresChapter)
	}

	events, err := db.ListPlotEvents(ctx, 9)
	if err != nil {
		t.Fatalf("ListPlotEvents: %v", err)
	}
	if len(events) != 1 || events[0].Name != "王长老渡劫" {
		t.Fatalf("unexpected plot events: %+v", events)
	}
	if len(events[0].Participants) != 1 || events[0].Participants[0] != "王长老" {
		t.Fatalf("unexpected participants: %+v", events[0].Participants)
	}
}

func TestFinalizeNarrativeClaimWarning(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	if err := db.InsertFact(ctx, store.Fact{
		ID: "fact_level", FactType: "breakthrough", Statement: "林风突破至筑基期",
		Subject: "林风", Predicate: "breakthrough", Value: "筑基期",
		Chapter: 5, Status: store.FactValid,
	}); err != nil {
		t.Fatalf("seed fact: %v", err)
	}

	ex := &extract.ChapterExtract{
		Chapter: 11,
		EventClaims: []extract.EventClaim{{
			EventType: "narrative",
			ClaimType: extract.ClaimNarrative,
			Character: "林风",
			Level:     "金丹期",
		}},
	}
	result, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "金丹期") {
		t.Fatalf("expected an uncorroborated claim warning, got %v", result.Warnings)
	}
}

func TestFinalizeStorySnapshot(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	ex := &extract.ChapterExtract{
		Chapter:            20,
		StoryStateSnapshot: map[string]any{"arc": "秘境篇"},
	}
	result, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a schema leak warning, got %v", result.Warnings)
	}

	state, err := db.GetStoryState(ctx)
	if err != nil {
		t.Fatalf("GetStoryState: %v", err)
	}
	if state == nil || state.Chapter != 20 || state.Snapshot["arc"] != "秘境篇" {
		t.Fatalf("unexpected story state: %+v", state)
	}
}

func TestRefinalizeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	ex := &extract.ChapterExtract{
		Chapter:         5,
		ConceptMentions: []extract.ConceptMention{{Surface: "黑风谷"}},
		FactCandidates: []extract.FactCandidate{{
			FactType: "location", Statement: "黑风谷中有上古阵法",
			Subject: "黑风谷", Predicate: "contains", Value: "上古阵法",
		}},
		CharacterStates: []extract.CharacterStateDelta{{
			Character: "林风",
			Fields:    map[string]any{"境界": "炼气后期"},
		}},
	}

	first, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	second, err := f.Finalize(ctx, ex)
	if err != nil {
		t.Fatalf("second Finalize: %v", err)
	}
	if second.FactsCreated != first.FactsCreated || second.EffectsApplied != first.EffectsApplied {
		t.Fatalf("re-finalization changed counts: first=%+v second=%+v", first, second)
	}

	facts, _ := db.ListFacts(ctx, store.FactFilter{})
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact after re-finalization, got %d", len(facts))
	}
	records, _ := db.ListStateRecords(ctx, "林风")
	if len(records) != 1 {
		t.Fatalf("expected 1 state record after re-finalization, got %d", len(records))
	}
	chapters, _ := db.ListFinalizedChapters(ctx)
	if len(chapters) != 1 || chapters[0] != 5 {
		t.Fatalf("finalized chapters = %v", chapters)
	}
}

func TestRollbackRevertsEverything(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	ex := &extract.ChapterExtract{
		Chapter: 10,
		FactCandidates: []extract.FactCandidate{{
			FactType: "item", Statement: "林风炼成金丹",
			Subject: "林风", Predicate: "owns", Value: "金丹",
		}},
		CharacterStates: []extract.CharacterStateDelta{{
			Character: "林风",
			Fields:    map[string]any{"境界": "金丹初期"},
		}},
		ForeshadowCandidates: []extract.ForeshadowCandidate{{Concept: "心魔誓言"}},
		EventClaims: []extract.EventClaim{
			{EventType: "breakthrough_failed", ClaimType: extract.ClaimEvent, Character: "赵无极"},
			{EventType: "duel", ClaimType: extract.ClaimEvent, Character: "林风", Name: "林风大战赵无极", Major: true},
		},
	}
	if _, err := f.Finalize(ctx, ex); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := f.Rollback(ctx, 10); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	facts, _ := db.ListFacts(ctx, store.FactFilter{})
	if len(facts) != 0 {
		t.Fatalf("facts survived rollback: %+v", facts)
	}
	lg := ledger.New(db, nil)
	state, err := lg.CurrentState(ctx, "林风")
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if len(state.Fields) != 0 {
		t.Fatalf("state survived rollback: %+v", state.Fields)
	}
	foreshadows, _ := db.ListForeshadows(ctx, "")
	if len(foreshadows) != 0 {
		t.Fatalf("foreshadows survived rollback: %+v", foreshadows)
	}
	events, _ := db.ListPlotEvents(ctx, 0)
	if len(events) != 0 {
		t.Fatalf("plot events survived rollback: %+v", events)
	}
	debuffs, _ := db.ListActiveDebuffs(ctx, 11)
	if len(debuffs) != 0 {
		t.Fatalf("debuffs survived rollback: %+v", debuffs)
	}
	if record, _ := db.GetChapterEffects(ctx, 10); record != nil {
		t.Fatalf("effect record survived rollback")
	}
	if deps, _ := db.GetDependencies(ctx, 10); deps != nil {
		t.Fatalf("dependency record survived rollback")
	}
}

func TestRollbackMissingChapterIsNoop(t *testing.T) {
	f, _ := newTestFinalizer(t)
	if err := f.Rollback(context.Background(), 99); err != nil {
		t.Fatalf("Rollback of unknown chapter: %v", err)
	}
}

func TestRollbackRevertsForeshadowReveal(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	intro := &extract.ChapterExtract{
		Chapter:              2,
		ForeshadowCandidates: []extract.ForeshadowCandidate{{Concept: "青铜古灯"}},
	}
	if _, err := f.Finalize(ctx, intro); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	reveal := &extract.ChapterExtract{
		Chapter:              8,
		ForeshadowCandidates: []extract.ForeshadowCandidate{{Concept: "青铜古灯", Transition: "revealed"}},
	}
	if _, err := f.Finalize(ctx, reveal); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := f.Rollback(ctx, 8); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	all, err := db.ListForeshadows(ctx, "")
	if err != nil {
		t.Fatalf("ListForeshadows: %v", err)
	}
	if len(all) != 1 || all[0].State != store.ForeshadowPending {
		t.Fatalf("expected foreshadow back to pending, got %+v", all)
	}
}

func TestRollbackInvalidatesDependents(t *testing.T) {
	ctx := context.Background()
	f, db := newTestFinalizer(t)

	base := &extract.ChapterExtract{
		Chapter: 10,
		FactCandidates: []extract.FactCandidate{{
			FactType: "breakthrough", Statement: "林风突破至金丹期",
			Subject: "林风", Predicate: "breakthrough", Value: "金丹期",
		}},
	}
	if _, err := f.Finalize(ctx, base); err != nil {
		t.Fatalf("Finalize chapter 10: %v", err)
	}

	// Chapter 15's narrative check reads the chapter 10 fact, creating
	// the dependency edge.
	dependent := &extract.ChapterExtract{
		Chapter: 15,
		EventClaims: []extract.EventClaim{{
			EventType: "narrative",
			ClaimType: extract.ClaimNarrative,
			Character: "林风",
			Level:     "金丹期",
		}},
	}
	result, err := f.Finalize(ctx, dependent)
	if err != nil {
		t.Fatalf("Finalize chapter 15: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("corroborated claim produced warnings: %v", result.Warnings)
	}

	if err := f.Rollback(ctx, 10); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	deps := depgraph.New(db, nil)
	invalidated, err := deps.IsInvalidated(ctx, 15)
	if err != nil {
		t.Fatalf("IsInvalidated(15): %v", err)
	}
	if !invalidated {
		t.Fatalf("chapter 15 should be invalidated after rolling back chapter 10")
	}
	if got, _ := deps.IsInvalidated(ctx, 10); got {
		t.Fatalf("the rolled-back chapter itself must not be flagged")
	}

	invalidations, err := deps.Invalidations(ctx)
	if err != nil {
		t.Fatalf("Invalidations: %v", err)
	}
	if len(invalidations) != 1 || !strings.Contains(invalidations[0].Reason, "chapter 10") {
		t.Fatalf("unexpected invalidations: %+v", invalidations)
	}

	// Re-finalizing the dependent chapter clears the flag. The claim is
	// now uncorroborated and surfaces as a warning instead.
	result, err = f.Finalize(ctx, dependent)
	if err != nil {
		t.Fatalf("re-finalize chapter 15: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected uncorroborated warning after base fact removal, got %v", result.Warnings)
	}
	if got, _ := deps.IsInvalidated(ctx, 15); got {
		t.Fatalf("re-finalization should clear the invalidation flag")
	}
}
