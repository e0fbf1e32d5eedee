package depgraph

import (
	"context"
	"testing"

	"canonkeeper/internal/store/memory"
)

func TestDependencyLookup(t *testing.T) {
	ctx := context.Background()
	tracker := New(memory.New(), nil)

	if err := tracker.Record(ctx, 10, []string{"fx_a", "fx_b"}, []string{"fact_1"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := tracker.Record(ctx, 15, []string{"fx_c"}, []string{"fact_1", "fact_2"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := tracker.Record(ctx, 20, []string{"fx_a"}, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	t.Run("by effect id", func(t *testing.T) {
		chapters, err := tracker.ChaptersDependingOnEffect(ctx, "fx_a")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(chapters) != 2 || chapters[0] != 10 || chapters[1] != 20 {
			t.Fatalf("expected [10 20], got %v", chapters)
		}
	})

	t.Run("by fact id", func(t *testing.T) {
		chapters, err := tracker.ChaptersDependingOnFact(ctx, "fact_1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(chapters) != 2 || chapters[0] != 10 || chapters[1] != 15 {
			t.Fatalf("expected [10 15], got %v", chapters)
		}
	})

	t.Run("no match", func(t *testing.T) {
		chapters, err := tracker.ChaptersDependingOnEffect(ctx, "fx_missing")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(chapters) != 0 {
			t.Fatalf("expected no chapters, got %v", chapters)
		}
	})

	t.Run("re-record overwrites", func(t *testing.T) {
		if err := tracker.Record(ctx, 20, []string{"fx_z"}, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		chapters, err := tracker.ChaptersDependingOnEffect(ctx, "fx_a")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(chapters) != 1 || chapters[0] != 10 {
			t.Fatalf("expected [10], got %v", chapters)
		}
	})

	t.Run("forget removes the record", func(t *testing.T) {
		if err := tracker.Forget(ctx, 15); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		chapters, err := tracker.ChaptersDependingOnFact(ctx, "fact_2")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(chapters) != 0 {
			t.Fatalf("expected no chapters, got %v", chapters)
		}
	})
}

func TestInvalidation(t *testing.T) {
	ctx := context.Background()
	tracker := New(memory.New(), nil)

	if err := tracker.Invalidate(ctx, 15, "depends on effects of rolled-back chapter 10"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// Re-flagging keeps the original reason.
	if err := tracker.Invalidate(ctx, 15, "a different reason"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	flagged, err := tracker.IsInvalidated(ctx, 15)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !flagged {
		t.Fatalf("expected chapter 15 invalidated")
	}

	invalidations, err := tracker.Invalidations(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(invalidations) != 1 {
		t.Fatalf("expected 1 invalidation, got %d", len(invalidations))
	}
	if invalidations[0].Reason != "depends on effects of rolled-back chapter 10" {
		t.Fatalf("expected first reason kept, got %q", invalidations[0].Reason)
	}

	if err := tracker.ClearInvalidation(ctx, 15); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	flagged, err = tracker.IsInvalidated(ctx, 15)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if flagged {
		t.Fatalf("expected flag cleared")
	}
}
