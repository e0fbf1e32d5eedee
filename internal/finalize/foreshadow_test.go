package finalize

import (
	"testing"

	"canonkeeper/internal/store"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    store.ForeshadowState
		to      store.ForeshadowState
		allowed bool
	}{
		{"pending to confirmed", store.ForeshadowPending, store.ForeshadowConfirmed, true},
		{"pending to revealed", store.ForeshadowPending, store.ForeshadowRevealed, true},
		{"pending to archived", store.ForeshadowPending, store.ForeshadowArchived, false},
		{"confirmed to revealed", store.ForeshadowConfirmed, store.ForeshadowRevealed, true},
		{"confirmed to archived", store.ForeshadowConfirmed, store.ForeshadowArchived, true},
		{"revealed to archived", store.ForeshadowRevealed, store.ForeshadowArchived, true},
		{"revealed to pending", store.ForeshadowRevealed, store.ForeshadowPending, false},
		{"archived is terminal", store.ForeshadowArchived, store.ForeshadowRevealed, false},
		{"self transition", store.ForeshadowPending, store.ForeshadowPending, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := canTransition(tc.from, tc.to); got != tc.allowed {
				t.Fatalf("expected %v, got %v", tc.allowed, got)
			}
		})
	}
}

func TestParseForeshadowState(t *testing.T) {
	for _, valid := range []string{"pending", "confirmed", "revealed", "archived"} {
		state, ok := parseForeshadowState(valid)
		if !ok || string(state) != valid {
			t.Fatalf("expected %q to parse, got %q ok=%v", valid, state, ok)
		}
	}
	if _, ok := parseForeshadowState("resolved"); ok {
		t.Fatalf("expected unknown state to fail")
	}
}
