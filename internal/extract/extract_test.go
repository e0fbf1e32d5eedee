package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		data := []byte(`{
			"chapter": 12,
			"fact_candidates": [
				{"fact_type": "breakthrough", "statement": "林风突破至金丹期", "subject": "林风", "predicate": "breakthrough", "value": "金丹期", "certainty": 0.9}
			],
			"concept_mentions": [{"surface": "青云剑", "description": "a flying sword"}],
			"foreshadow_candidates": [{"concept": "黑色玉佩", "implied_future": "the pendant will matter"}],
			"character_states": [{"character": "林风", "change_type": "level-breakthrough", "fields": {"level": "金丹期"}}],
			"event_claims": [{"event_type": "breakthrough_failed", "claim_type": "event", "character": "王虎"}]
		}`)

		ex, err := Parse(data)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ex.Chapter != 12 {
			t.Fatalf("expected chapter 12, got %d", ex.Chapter)
		}
		if len(ex.FactCandidates) != 1 {
			t.Fatalf("expected 1 fact candidate, got %d", len(ex.FactCandidates))
		}
		if ex.FactCandidates[0].Certainty == nil || *ex.FactCandidates[0].Certainty != 0.9 {
			t.Fatalf("expected certainty 0.9, got %v", ex.FactCandidates[0].Certainty)
		}
		if ex.EventClaims[0].ClaimType != ClaimEvent {
			t.Fatalf("expected event claim type, got %q", ex.EventClaims[0].ClaimType)
		}
	})

	t.Run("absent sections default to empty slices", func(t *testing.T) {
		ex, err := Parse([]byte(`{"chapter": 3}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ex.FactCandidates == nil || ex.ConceptMentions == nil || ex.ForeshadowCandidates == nil ||
			ex.CharacterStates == nil || ex.EventClaims == nil {
			t.Fatalf("expected all sections non-nil, got %+v", ex)
		}
	})

	t.Run("nil fields map becomes empty", func(t *testing.T) {
		ex, err := Parse([]byte(`{"chapter": 3, "character_states": [{"character": "林风", "change_type": "awakening"}]}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ex.CharacterStates[0].Fields == nil {
			t.Fatalf("expected non-nil fields map")
		}
	})

	t.Run("missing chapter number", func(t *testing.T) {
		if _, err := Parse([]byte(`{"fact_candidates": []}`)); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("negative chapter number", func(t *testing.T) {
		if _, err := Parse([]byte(`{"chapter": -2}`)); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := Parse([]byte(`{"chapter": `)); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("reads from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ch4.json")
		if err := os.WriteFile(path, []byte(`{"chapter": 4}`), 0o600); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}

		ex, err := Load(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ex.Chapter != 4 {
			t.Fatalf("expected chapter 4, got %d", ex.Chapter)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
			t.Fatalf("expected error")
		}
	})
}
