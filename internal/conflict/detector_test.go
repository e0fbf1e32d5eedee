package conflict

import (
	"context"
	"testing"

	"canonkeeper/internal/store"
)

func TestRuleFilter(t *testing.T) {
	filter := NewRuleFilter()

	t.Run("extracts action words", func(t *testing.T) {
		tokens := filter.Extract("林风死亡于第 12 章")
		if !hasToken(tokens, "死亡") {
			t.Fatalf("expected 死亡 in %v", tokens)
		}
		if !hasToken(tokens, "第 12 章") {
			t.Fatalf("expected chapter marker in %v", tokens)
		}
	})

	t.Run("extracts realm markers", func(t *testing.T) {
		tokens := filter.Extract("突破至金丹期")
		if !hasToken(tokens, "突破") || !hasToken(tokens, "金丹") {
			t.Fatalf("expected 突破 and 金丹 in %v", tokens)
		}
	})

	t.Run("antonyms are symmetric", func(t *testing.T) {
		if !filter.AreAntonyms("死亡", "复活") || !filter.AreAntonyms("复活", "死亡") {
			t.Fatalf("expected 死亡/复活 to be antonyms both ways")
		}
		if filter.AreAntonyms("死亡", "突破") {
			t.Fatalf("unexpected antonym pair")
		}
	})
}

func TestDetect(t *testing.T) {
	detector := NewDetector(nil, nil, nil)
	ctx := context.Background()

	t.Run("exact duplicate stops all other checks", func(t *testing.T) {
		existing := []store.Fact{
			{ID: "fact_1", FactType: "event", Statement: "林风死亡"},
			{ID: "fact_2", FactType: "event", Statement: "林风复活"},
		}
		result := detector.Detect(ctx, store.Fact{FactType: "event", Statement: "林风死亡"}, existing)

		if !result.IsDuplicate() {
			t.Fatalf("expected duplicate")
		}
		if result.HasConflict {
			t.Fatalf("duplicate must not also be a conflict")
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("expected exactly the duplicate warning, got %+v", result.Warnings)
		}
	})

	t.Run("antonym keywords conflict", func(t *testing.T) {
		existing := []store.Fact{{ID: "fact_1", FactType: "event", Statement: "王虎死亡"}}
		result := detector.Detect(ctx, store.Fact{FactType: "event", Statement: "王虎复活了"}, existing)

		if !result.HasConflict {
			t.Fatalf("expected conflict")
		}
		if result.Conflicts[0].Severity != SeverityMedium {
			t.Fatalf("expected medium severity, got %s", result.Conflicts[0].Severity)
		}
		if result.Conflicts[0].ExistingFactID != "fact_1" {
			t.Fatalf("expected fact_1, got %s", result.Conflicts[0].ExistingFactID)
		}
	})

	t.Run("antonyms require matching fact type", func(t *testing.T) {
		existing := []store.Fact{{ID: "fact_1", FactType: "item", Statement: "宝库打开"}}
		result := detector.Detect(ctx, store.Fact{FactType: "event", Statement: "宝库关闭"}, existing)

		if result.HasConflict {
			t.Fatalf("different fact types must not trip the keyword check")
		}
	})

	t.Run("second death is a high severity conflict", func(t *testing.T) {
		existing := []store.Fact{{ID: "fact_1", FactType: "event", Subject: "王虎", Predicate: "death", Statement: "Wang Hu death of old wounds"}}
		candidate := store.Fact{FactType: "milestone", Subject: "王虎", Predicate: "death", Statement: "Wang Hu died in the ambush"}
		result := detector.Detect(ctx, candidate, existing)

		if !result.HasConflict {
			t.Fatalf("expected conflict")
		}
		found := false
		for _, c := range result.Conflicts {
			if c.Severity == SeverityHigh {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected high severity conflict, got %+v", result.Conflicts)
		}
	})

	t.Run("level regression is a warning not a conflict", func(t *testing.T) {
		existing := []store.Fact{{ID: "fact_1", FactType: "breakthrough", Subject: "林风", Predicate: "breakthrough", Statement: "林风突破至金丹期"}}
		candidate := store.Fact{FactType: "breakthrough", Subject: "林风", Predicate: "breakthrough", Statement: "林风突破至筑基期"}
		result := detector.Detect(ctx, candidate, existing)

		if result.HasConflict {
			t.Fatalf("regression must stay a warning")
		}
		found := false
		for _, w := range result.Warnings {
			if w.Kind == WarnLevelRegression {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected level regression warning, got %+v", result.Warnings)
		}
	})

	t.Run("higher level is not a regression", func(t *testing.T) {
		existing := []store.Fact{{ID: "fact_1", FactType: "breakthrough", Subject: "林风", Predicate: "breakthrough", Statement: "林风突破至筑基期"}}
		candidate := store.Fact{FactType: "breakthrough", Subject: "林风", Predicate: "breakthrough", Statement: "林风突破至金丹期"}
		result := detector.Detect(ctx, candidate, existing)

		if result.HasConflict || len(result.Warnings) != 0 {
			t.Fatalf("expected clean result, got %+v", result)
		}
	})

	t.Run("clean candidate passes", func(t *testing.T) {
		existing := []store.Fact{{ID: "fact_1", FactType: "item", Statement: "林风获得青云剑"}}
		result := detector.Detect(ctx, store.Fact{FactType: "item", Statement: "林风获得玉佩"}, existing)

		if result.HasConflict || result.IsDuplicate() {
			t.Fatalf("expected clean result, got %+v", result)
		}
	})

	t.Run("subjects compared case-insensitively", func(t *testing.T) {
		existing := []store.Fact{{ID: "fact_1", FactType: "event", Subject: "wang hu", Statement: "wang hu death of poison"}}
		candidate := store.Fact{FactType: "event", Subject: "Wang Hu", Statement: "Wang Hu died again"}
		result := detector.Detect(ctx, candidate, existing)

		if !result.HasConflict {
			t.Fatalf("expected conflict across subject casing")
		}
	})
}

func hasToken(tokens []string, target string) bool {
	for _, token := range tokens {
		if token == target {
			return true
		}
	}
	return false
}
