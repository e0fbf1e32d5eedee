package conflict

import "strings"

// realmLadder orders cultivation realms from lowest to highest. The
// marker is what the extractor's prose actually contains; aliases cover
// translated extracts.
var realmLadder = []struct {
	marker  string
	aliases []string
}{
	{"练气", []string{"qi refining", "qi condensation"}},
	{"筑基", []string{"foundation establishment"}},
	{"金丹", []string{"golden core", "core formation"}},
	{"元婴", []string{"nascent soul"}},
	{"化神", []string{"spirit transformation"}},
	{"炼虚", []string{"void refinement"}},
	{"合体", []string{"body integration"}},
	{"大乘", []string{"mahayana"}},
	{"渡劫", []string{"tribulation"}},
}

// stageModifiers refine a realm into sub-stages.
var stageModifiers = []struct {
	marker  string
	aliases []string
	rank    int
}{
	{"初期", []string{"early"}, 0},
	{"中期", []string{"middle", "mid"}, 1},
	{"后期", []string{"late"}, 2},
	{"巅峰", []string{"peak"}, 3},
}

const stagesPerRealm = 4

// levelRank extracts a comparable cultivation level from free text.
// Returns ok=false when no realm marker is present.
func levelRank(text string) (int, bool) {
	lowered := strings.ToLower(text)

	realmIdx := -1
	for i, realm := range realmLadder {
		if containsAny(lowered, realm.marker, realm.aliases) {
			realmIdx = i
			break
		}
	}
	if realmIdx < 0 {
		return 0, false
	}

	stage := 0
	for _, modifier := range stageModifiers {
		if containsAny(lowered, modifier.marker, modifier.aliases) {
			stage = modifier.rank
			break
		}
	}

	return realmIdx*stagesPerRealm + stage, true
}

func containsAny(text, marker string, aliases []string) bool {
	if strings.Contains(text, marker) {
		return true
	}
	for _, alias := range aliases {
		if strings.Contains(text, alias) {
			return true
		}
	}
	return false
}
