package finalize

import "canonkeeper/internal/store"

// allowedTransitions is the monotonic foreshadow lifecycle. Anything
// not listed here is a no-op, never an error: the extractor is allowed
// to be wrong about lifecycle order.
var allowedTransitions = map[store.ForeshadowState]map[store.ForeshadowState]bool{
	store.ForeshadowPending: {
		store.ForeshadowConfirmed: true,
		store.ForeshadowRevealed:  true,
	},
	store.ForeshadowConfirmed: {
		store.ForeshadowRevealed: true,
		store.ForeshadowArchived: true,
	},
	store.ForeshadowRevealed: {
		store.ForeshadowArchived: true,
	},
}

func canTransition(from, to store.ForeshadowState) bool {
	return allowedTransitions[from][to]
}

func parseForeshadowState(s string) (store.ForeshadowState, bool) {
	switch store.ForeshadowState(s) {
	case store.ForeshadowPending, store.ForeshadowConfirmed, store.ForeshadowRevealed, store.ForeshadowArchived:
		return store.ForeshadowState(s), true
	}
	return "", false
}
