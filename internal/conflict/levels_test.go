package conflict

import "testing"

func TestLevelRank(t *testing.T) {
	cases := []struct {
		name string
		text string
		rank int
		ok   bool
	}{
		{"no realm marker", "林风获得了一把剑", 0, false},
		{"realm only defaults to early stage", "林风突破至金丹", 4 * 2, true},
		{"realm with middle stage", "林风如今是金丹中期修士", 4*2 + 1, true},
		{"realm with peak stage", "筑基巅峰", 4*1 + 3, true},
		{"english alias", "Lin Feng reached Golden Core late stage", 4*2 + 2, true},
		{"english nascent soul", "he is now a Nascent Soul cultivator", 4 * 3, true},
		{"lowest realm", "练气初期", 0, true},
		{"highest realm", "渡劫巅峰", 4*8 + 3, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rank, ok := levelRank(tc.text)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && rank != tc.rank {
				t.Fatalf("expected rank %d, got %d", tc.rank, rank)
			}
		})
	}
}

func TestLevelRankOrdering(t *testing.T) {
	// A later realm at any stage must outrank an earlier realm at peak.
	peak, _ := levelRank("筑基巅峰")
	early, _ := levelRank("金丹初期")
	if early <= peak {
		t.Fatalf("expected 金丹初期 (%d) above 筑基巅峰 (%d)", early, peak)
	}
}
