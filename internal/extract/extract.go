// Package extract defines the Chapter Extract document: untrusted,
// LLM-derived structured claims for one chapter. The engine treats the
// producer as unreliable, so parsing fills every missing optional field
// with an empty default instead of failing.
package extract

import (
	"encoding/json"
	"fmt"
	"os"
)

type ChapterExtract struct {
	Chapter              int                   `json:"chapter"`
	FactCandidates       []FactCandidate       `json:"fact_candidates"`
	ConceptMentions      []ConceptMention      `json:"concept_mentions"`
	ForeshadowCandidates []ForeshadowCandidate `json:"foreshadow_candidates"`
	CharacterStates      []CharacterStateDelta `json:"character_states"`
	EventClaims          []EventClaim          `json:"event_claims"`
	StoryStateSnapshot   map[string]any        `json:"story_state_snapshot,omitempty"`
	RawNotes             string                `json:"raw_notes,omitempty"`
}

type FactCandidate struct {
	FactType  string   `json:"fact_type"`
	Statement string   `json:"statement"`
	Subject   string   `json:"subject,omitempty"`
	Predicate string   `json:"predicate,omitempty"`
	Value     string   `json:"value,omitempty"`
	Concepts  []string `json:"concepts,omitempty"`
	Evidence  string   `json:"evidence,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Certainty *float64 `json:"certainty,omitempty"`
}

type ConceptMention struct {
	Surface     string `json:"surface"`
	Description string `json:"description,omitempty"`
}

type ForeshadowCandidate struct {
	Concept       string `json:"concept"`
	ImpliedFuture string `json:"implied_future,omitempty"`
	Transition    string `json:"transition,omitempty"`
}

type CharacterStateDelta struct {
	Character  string         `json:"character"`
	ChangeType string         `json:"change_type"`
	Fields     map[string]any `json:"fields"`
	Concepts   []string       `json:"concepts,omitempty"`
}

// EventClaim is a narrative event reported by the extractor. ClaimType
// "event" may produce an effect; "narrative" claims are only checked
// for contradiction and never mutate state.
type EventClaim struct {
	EventType        string `json:"event_type"`
	ClaimType        string `json:"claim_type"`
	Character        string `json:"character,omitempty"`
	Name             string `json:"name,omitempty"`
	Description      string `json:"description,omitempty"`
	Level            string `json:"level,omitempty"`
	DurationChapters int    `json:"duration_chapters,omitempty"`
	Major            bool   `json:"major,omitempty"`
}

const (
	ClaimEvent     = "event"
	ClaimNarrative = "narrative"
)

// Parse decodes a chapter extract, normalizing absent arrays to empty
// slices so downstream code never branches on nil.
func Parse(data []byte) (*ChapterExtract, error) {
	var ex ChapterExtract
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("decoding chapter extract: %w", err)
	}
	if ex.Chapter <= 0 {
		return nil, fmt.Errorf("chapter extract missing a positive chapter number")
	}
	ex.fillDefaults()
	return &ex, nil
}

// Load reads and parses an extract document from disk.
func Load(path string) (*ChapterExtract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chapter extract: %w", err)
	}
	return Parse(data)
}

func (ex *ChapterExtract) fillDefaults() {
	if ex.FactCandidates == nil {
		ex.FactCandidates = []FactCandidate{}
	}
	if ex.ConceptMentions == nil {
		ex.ConceptMentions = []ConceptMention{}
	}
	if ex.ForeshadowCandidates == nil {
		ex.ForeshadowCandidates = []ForeshadowCandidate{}
	}
	if ex.CharacterStates == nil {
		ex.CharacterStates = []CharacterStateDelta{}
	}
	if ex.EventClaims == nil {
		ex.EventClaims = []EventClaim{}
	}
	for i := range ex.CharacterStates {
		if ex.CharacterStates[i].Fields == nil {
			ex.CharacterStates[i].Fields = map[string]any{}
		}
	}
}
