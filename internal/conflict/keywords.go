package conflict

import (
	"regexp"
	"strings"
)

// KeywordFilter is the coarse first-pass layer ahead of the semantic
// check. It is deliberately a heuristic, not an NLP engine, and can be
// swapped out wholesale.
type KeywordFilter interface {
	Extract(text string) []string
	AreAntonyms(a, b string) bool
}

var chapterMarker = regexp.MustCompile(`第\s*\d+\s*章|chapter\s+\d+`)

// actionWords are the verbs the heuristic cares about; each appears in
// the antonym table below.
var actionWords = []string{
	"死亡", "死去", "复活", "生还", "存活",
	"突破", "跌境", "觉醒", "沉睡",
	"增加", "减少", "提升", "下降",
	"打开", "关闭", "开启", "封闭",
	"death", "died", "dead", "alive", "revived",
	"breakthrough", "regressed", "awakened", "dormant",
	"increase", "decrease", "open", "close", "opened", "closed",
}

// antonymPairs drives the contradiction check. Order inside a pair is
// irrelevant.
var antonymPairs = [][2]string{
	{"死亡", "复活"}, {"死亡", "生还"}, {"死亡", "存活"}, {"死去", "复活"},
	{"突破", "跌境"}, {"觉醒", "沉睡"},
	{"增加", "减少"}, {"提升", "下降"},
	{"打开", "关闭"}, {"开启", "封闭"},
	{"death", "alive"}, {"died", "alive"}, {"dead", "alive"}, {"death", "revived"},
	{"breakthrough", "regressed"}, {"awakened", "dormant"},
	{"increase", "decrease"},
	{"open", "close"}, {"opened", "closed"},
}

// RuleFilter is the default keyword filter: substring scans for action
// words, realm markers, and chapter markers.
type RuleFilter struct {
	antonyms map[string]map[string]bool
}

func NewRuleFilter() *RuleFilter {
	antonyms := make(map[string]map[string]bool, len(antonymPairs)*2)
	add := func(a, b string) {
		if antonyms[a] == nil {
			antonyms[a] = map[string]bool{}
		}
		antonyms[a][b] = true
	}
	for _, pair := range antonymPairs {
		add(pair[0], pair[1])
		add(pair[1], pair[0])
	}
	return &RuleFilter{antonyms: antonyms}
}

func (f *RuleFilter) Extract(text string) []string {
	lowered := strings.ToLower(text)

	var tokens []string
	seen := map[string]bool{}
	push := func(token string) {
		if !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}

	for _, word := range actionWords {
		if strings.Contains(lowered, word) {
			push(word)
		}
	}
	for _, realm := range realmLadder {
		if strings.Contains(lowered, realm.marker) {
			push(realm.marker)
		}
	}
	for _, marker := range chapterMarker.FindAllString(lowered, -1) {
		push(strings.Join(strings.Fields(marker), " "))
	}

	return tokens
}

func (f *RuleFilter) AreAntonyms(a, b string) bool {
	return f.antonyms[a][b]
}
