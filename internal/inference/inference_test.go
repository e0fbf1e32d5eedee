package inference

import (
	"context"
	"testing"

	"canonkeeper/internal/store"
	"canonkeeper/internal/store/memory"
)

func TestDivert(t *testing.T) {
	ctx := context.Background()

	t.Run("records a pending inference", func(t *testing.T) {
		db := memory.New()
		svc := New(db, nil)

		if err := svc.Divert(ctx, "林风可能认识黑袍人", "他犹豫了一下", 0.5, 8); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		pending, err := svc.Pending(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("expected 1 pending inference, got %d", len(pending))
		}
		if pending[0].Status != store.InferencePending {
			t.Fatalf("expected pending status, got %s", pending[0].Status)
		}
		if pending[0].Confidence != 0.5 {
			t.Fatalf("expected confidence 0.5, got %v", pending[0].Confidence)
		}
	})

	t.Run("clamps confidence into range", func(t *testing.T) {
		db := memory.New()
		svc := New(db, nil)

		if err := svc.Divert(ctx, "claim", "", -0.3, 2); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		inferences, err := db.ListInferences(ctx, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if inferences[0].Confidence != 0 {
			t.Fatalf("expected clamp to 0, got %v", inferences[0].Confidence)
		}
	})

	t.Run("re-divert keeps maximum confidence", func(t *testing.T) {
		db := memory.New()
		svc := New(db, nil)

		if err := svc.Divert(ctx, "claim", "", 0.4, 5); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := svc.Divert(ctx, "claim", "", 0.6, 5); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := svc.Divert(ctx, "claim", "", 0.2, 5); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		inferences, err := db.ListInferences(ctx, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(inferences) != 1 {
			t.Fatalf("expected dedupe by claim and chapter, got %d entries", len(inferences))
		}
		if inferences[0].Confidence != 0.6 {
			t.Fatalf("expected max confidence 0.6, got %v", inferences[0].Confidence)
		}
	})

	t.Run("same claim in another chapter is distinct", func(t *testing.T) {
		db := memory.New()
		svc := New(db, nil)

		if err := svc.Divert(ctx, "claim", "", 0.4, 5); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := svc.Divert(ctx, "claim", "", 0.4, 6); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		inferences, err := db.ListInferences(ctx, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(inferences) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(inferences))
		}
	})
}

func TestReview(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	svc := New(db, nil)

	if err := svc.Divert(ctx, "claim a", "", 0.5, 3); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.Divert(ctx, "claim b", "", 0.6, 3); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	pending, err := svc.Pending(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	if err := svc.MarkConfirmed(ctx, pending[0].ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.MarkRejected(ctx, pending[1].ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	pending, err = svc.Pending(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending inferences, got %d", len(pending))
	}

	confirmed, err := db.ListInferences(ctx, store.InferenceConfirmed)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(confirmed) != 1 {
		t.Fatalf("expected 1 confirmed, got %d", len(confirmed))
	}
}
