package mcp

import (
	"context"
	"testing"

	"canonkeeper/internal/concept"
	"canonkeeper/internal/conflict"
	"canonkeeper/internal/inference"
	"canonkeeper/internal/ledger"
	"canonkeeper/internal/store"
	"canonkeeper/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	db := memory.New()
	s := NewServer(db,
		concept.NewResolver(db, nil, nil),
		conflict.NewDetector(nil, nil, nil),
		ledger.New(db, nil),
		inference.New(db, nil),
		nil, "test")
	return s, db
}

func TestHandleCheckFact(t *testing.T) {
	ctx := context.Background()
	s, db := newTestServer(t)

	if err := db.InsertFact(ctx, store.Fact{
		ID: "fact_1", FactType: "event", Statement: "李雄死亡于黑风谷",
		Subject: "李雄", Predicate: "death", Chapter: 8, Status: store.FactValid,
	}); err != nil {
		t.Fatalf("seed fact: %v", err)
	}

	t.Run("clean candidate accepted", func(t *testing.T) {
		_, out, err := s.handleCheckFact(ctx, nil, CheckFactInput{
			Statement: "林风拜入青云宗", FactType: "membership", Subject: "林风",
		})
		if err != nil {
			t.Fatalf("handleCheckFact: %v", err)
		}
		if !out.WouldAccept || len(out.Conflicts) != 0 {
			t.Fatalf("expected acceptance, got %+v", out)
		}
	})

	t.Run("second death rejected", func(t *testing.T) {
		_, out, err := s.handleCheckFact(ctx, nil, CheckFactInput{
			Statement: "李雄 died again", FactType: "event", Subject: "李雄", Predicate: "death",
		})
		if err != nil {
			t.Fatalf("handleCheckFact: %v", err)
		}
		if out.WouldAccept {
			t.Fatalf("expected rejection, got %+v", out)
		}
		if len(out.Conflicts) != 1 || out.Conflicts[0].ExistingFactID != "fact_1" {
			t.Fatalf("unexpected conflicts: %+v", out.Conflicts)
		}
	})

	t.Run("duplicate flagged", func(t *testing.T) {
		_, out, err := s.handleCheckFact(ctx, nil, CheckFactInput{Statement: "李雄死亡于黑风谷"})
		if err != nil {
			t.Fatalf("handleCheckFact: %v", err)
		}
		if out.WouldAccept {
			t.Fatalf("duplicate should not be accepted")
		}
		if len(out.Warnings) != 1 || out.Warnings[0].Kind != string(conflict.WarnDuplicate) {
			t.Fatalf("unexpected warnings: %+v", out.Warnings)
		}
	})

	t.Run("empty statement rejected", func(t *testing.T) {
		if _, _, err := s.handleCheckFact(ctx, nil, CheckFactInput{}); err == nil {
			t.Fatalf("expected error for empty statement")
		}
	})
}

func TestHandleResolveConcept(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)

	id, _, err := s.concepts.ResolveOrCreate(ctx, "青云宗", 1, "主角宗门")
	if err != nil {
		t.Fatalf("seeding concept: %v", err)
	}

	t.Run("known alias", func(t *testing.T) {
		_, out, err := s.handleResolveConcept(ctx, nil, ResolveConceptInput{Surface: "青云宗"})
		if err != nil {
			t.Fatalf("handleResolveConcept: %v", err)
		}
		if !out.Found || out.ConceptID != id || out.Similarity != 1.0 {
			t.Fatalf("unexpected output: %+v", out)
		}
	})

	t.Run("unknown surface is not created", func(t *testing.T) {
		_, out, err := s.handleResolveConcept(ctx, nil, ResolveConceptInput{Surface: "万剑阁"})
		if err != nil {
			t.Fatalf("handleResolveConcept: %v", err)
		}
		if out.Found {
			t.Fatalf("unknown surface reported as found: %+v", out)
		}
		res, err := s.concepts.Resolve(ctx, "万剑阁")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if !res.IsNew {
			t.Fatalf("resolve_concept must never create concepts")
		}
	})

	t.Run("blank surface rejected", func(t *testing.T) {
		if _, _, err := s.handleResolveConcept(ctx, nil, ResolveConceptInput{Surface: "  "}); err == nil {
			t.Fatalf("expected error for blank surface")
		}
	})
}

func TestHandleGetCharacterState(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)

	if _, err := s.charLedger.RecordChange(ctx, "林风", store.ChangeLevelBreakthrough, map[string]any{"境界": "筑基初期"}, 5, nil); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}
	if _, err := s.charLedger.RecordChange(ctx, "林风", store.ChangeLevelBreakthrough, map[string]any{"境界": "筑基中期"}, 9, nil); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}

	_, out, err := s.handleGetCharacterState(ctx, nil, GetCharacterStateInput{Character: "林风"})
	if err != nil {
		t.Fatalf("handleGetCharacterState: %v", err)
	}
	if out.Fields["境界"] != "筑基中期" {
		t.Fatalf("merged fields = %+v", out.Fields)
	}
	if len(out.Timeline) != 2 || out.Timeline[0].Chapter != 5 || out.Timeline[1].Chapter != 9 {
		t.Fatalf("unexpected timeline: %+v", out.Timeline)
	}

	_, empty, err := s.handleGetCharacterState(ctx, nil, GetCharacterStateInput{Character: "路人甲"})
	if err != nil {
		t.Fatalf("handleGetCharacterState for unknown character: %v", err)
	}
	if len(empty.Fields) != 0 || len(empty.Timeline) != 0 {
		t.Fatalf("unknown character should yield empty state, got %+v", empty)
	}
}

func TestHandleListFacts(t *testing.T) {
	ctx := context.Background()
	s, db := newTestServer(t)

	seed := []store.Fact{
		{ID: "fact_1", FactType: "item", Statement: "林风获得青铜古灯", Chapter: 3, Status: store.FactValid},
		{ID: "fact_2", FactType: "event", Statement: "李雄死亡于黑风谷", Chapter: 8, Status: store.FactValid},
		{ID: "fact_3", FactType: "item", Statement: "林风失去青铜古灯", Chapter: 9, Status: store.FactSuperseded},
	}
	for _, f := range seed {
		if err := db.InsertFact(ctx, f); err != nil {
			t.Fatalf("seed fact: %v", err)
		}
	}

	t.Run("type filter", func(t *testing.T) {
		_, out, err := s.handleListFacts(ctx, nil, ListFactsInput{FactType: "item"})
		if err != nil {
			t.Fatalf("handleListFacts: %v", err)
		}
		if len(out.Facts) != 2 {
			t.Fatalf("expected 2 item facts, got %d", len(out.Facts))
		}
	})

	t.Run("status filter", func(t *testing.T) {
		_, out, err := s.handleListFacts(ctx, nil, ListFactsInput{Status: string(store.FactSuperseded)})
		if err != nil {
			t.Fatalf("handleListFacts: %v", err)
		}
		if len(out.Facts) != 1 || out.Facts[0].ID != "fact_3" {
			t.Fatalf("unexpected facts: %+v", out.Facts)
		}
	})

	t.Run("substring query", func(t *testing.T) {
		_, out, err := s.handleListFacts(ctx, nil, ListFactsInput{Query: "黑风谷"})
		if err != nil {
			t.Fatalf("handleListFacts: %v", err)
		}
		if len(out.Facts) != 1 || out.Facts[0].ID != "fact_2" {
			t.Fatalf("unexpected facts: %+v", out.Facts)
		}
	})
}

func TestHandleInferenceReview(t *testing.T) {
	ctx := context.Background()
	s, db := newTestServer(t)

	if err := s.inferences.Divert(ctx, "传闻魔教已潜入青云宗", "第四章旁白", 0.4, 4); err != nil {
		t.Fatalf("Divert: %v", err)
	}

	_, pending, err := s.handleListPendingInferences(ctx, nil, ListPendingInferencesInput{})
	if err != nil {
		t.Fatalf("handleListPendingInferences: %v", err)
	}
	if len(pending.Inferences) != 1 {
		t.Fatalf("expected 1 pending inference, got %d", len(pending.Inferences))
	}
	id := pending.Inferences[0].ID

	_, out, err := s.handleConfirmInference(ctx, nil, ReviewInferenceInput{ID: id})
	if err != nil {
		t.Fatalf("handleConfirmInference: %v", err)
	}
	if out.Status != string(store.InferenceConfirmed) {
		t.Fatalf("status = %q", out.Status)
	}

	_, pending, err = s.handleListPendingInferences(ctx, nil, ListPendingInferencesInput{})
	if err != nil {
		t.Fatalf("handleListPendingInferences: %v", err)
	}
	if len(pending.Inferences) != 0 {
		t.Fatalf("confirmed inference still pending")
	}

	inf, err := db.GetInference(ctx, id)
	if err != nil {
		t.Fatalf("GetInference: %v", err)
	}
	if inf.Status != store.InferenceConfirmed {
		t.Fatalf("stored status = %q", inf.Status)
	}

	if _, _, err := s.handleRejectInference(ctx, nil, ReviewInferenceInput{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestHandleListInvalidations(t *testing.T) {
	ctx := context.Background()
	s, db := newTestServer(t)

	if err := db.MarkInvalidated(ctx, 15, "depends on effects of rolled-back chapter 10"); err != nil {
		t.Fatalf("MarkInvalidated: %v", err)
	}

	_, out, err := s.handleListInvalidations(ctx, nil, ListInvalidationsInput{})
	if err != nil {
		t.Fatalf("handleListInvalidations: %v", err)
	}
	if len(out.Chapters) != 1 || out.Chapters[0].Chapter != 15 {
		t.Fatalf("unexpected invalidations: %+v", out.Chapters)
	}
}
