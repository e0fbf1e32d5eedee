// Package effect defines the only legal unit of mutation against the
// canon stores. Every change a finalized chapter makes is described by
// an Effect, applied once, and reverted by a type-specific inverse.
package effect

import (
	"fmt"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAddFact              Type = "add_fact"
	TypeUpdateCharacterState Type = "update_character_state"
	TypeAddForeshadow        Type = "add_foreshadow"
	TypeRevealForeshadow     Type = "reveal_foreshadow"
	TypeResolveForeshadow    Type = "resolve_foreshadow"
	TypeAddPlotEvent         Type = "add_plot_event"
	TypeUpdateStoryState     Type = "update_story_state"
	TypeTemporaryDebuff      Type = "temporary_debuff"
)

// Effect is a closed union: Type selects exactly one payload field.
// Effects are immutable once created.
type Effect struct {
	ID         string `json:"id"`
	Chapter    int    `json:"chapter"`
	Type       Type   `json:"type"`
	Reversible bool   `json:"reversible"`

	AddFact              *AddFact              `json:"add_fact,omitempty"`
	UpdateCharacterState *UpdateCharacterState `json:"update_character_state,omitempty"`
	AddForeshadow        *AddForeshadow        `json:"add_foreshadow,omitempty"`
	RevealForeshadow     *RevealForeshadow     `json:"reveal_foreshadow,omitempty"`
	ResolveForeshadow    *ResolveForeshadow    `json:"resolve_foreshadow,omitempty"`
	AddPlotEvent         *AddPlotEvent         `json:"add_plot_event,omitempty"`
	UpdateStoryState     *UpdateStoryState     `json:"update_story_state,omitempty"`
	TemporaryDebuff      *TemporaryDebuff      `json:"temporary_debuff,omitempty"`
}

type AddFact struct {
	FactID     string   `json:"fact_id"`
	FactType   string   `json:"fact_type"`
	Statement  string   `json:"statement"`
	Subject    string   `json:"subject"`
	Predicate  string   `json:"predicate"`
	Value      string   `json:"value"`
	ConceptIDs []string `json:"concept_ids,omitempty"`
	Evidence   string   `json:"evidence,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Confidence string   `json:"confidence"`
}

type UpdateCharacterState struct {
	Character  string   `json:"character"`
	Field      string   `json:"field"`
	From       any      `json:"from"`
	To         any      `json:"to"`
	ChangeType string   `json:"change_type"`
	ConceptIDs []string `json:"concept_ids,omitempty"`
}

type AddForeshadow struct {
	ForeshadowID  string `json:"foreshadow_id"`
	ConceptID     string `json:"concept_id"`
	ImpliedFuture string `json:"implied_future,omitempty"`
}

type RevealForeshadow struct {
	ForeshadowID string `json:"foreshadow_id"`
	FromState    string `json:"from_state"`
	ToState      string `json:"to_state"`
}

type ResolveForeshadow struct {
	ForeshadowID string `json:"foreshadow_id"`
	FromState    string `json:"from_state"`
}

type AddPlotEvent struct {
	EventID      string   `json:"event_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// UpdateStoryState replaces the whole snapshot. It is flagged
// reversible but carries no prior snapshot, so rollback skips it.
type UpdateStoryState struct {
	Snapshot map[string]any `json:"snapshot"`
}

type TemporaryDebuff struct {
	DebuffID         string `json:"debuff_id"`
	Character        string `json:"character"`
	Kind             string `json:"kind"`
	DurationChapters int    `json:"duration_chapters"`
	Description      string `json:"description,omitempty"`
}

func newID() string {
	return "fx_" + uuid.NewString()
}

func NewAddFact(chapter int, p AddFact) Effect {
	return Effect{ID: newID(), Chapter: chapter, Type: TypeAddFact, Reversible: true, AddFact: &p}
}

func NewUpdateCharacterState(chapter int, p UpdateCharacterState) Effect {
	return Effect{ID: newID(), Chapter: chapter, Type: TypeUpdateCharacterState, Reversible: true, UpdateCharacterState: &p}
}

func NewAddForeshadow(chapter int, p AddForeshadow) Effect {
	return Effect{ID: newID(), Chapter: chapter, Type: TypeAddForeshadow, Reversible: true, AddForeshadow: &p}
}

func NewRevealForeshadow(chapter int, p RevealForeshadow) Effect {
	return Effect{ID: newID(), Chapter: chapter, Type: TypeRevealForeshadow, Reversible: true, RevealForeshadow: &p}
}

func NewResolveForeshadow(chapter int, p ResolveForeshadow) Effect {
	return Effect{ID: newID(), Chapter: chapter, Type: TypeResolveForeshadow, Reversible: true, ResolveForeshadow: &p}
}

func NewAddPlotEvent(chapter int, p AddPlotEvent) Effect {
	return Effect{ID: newID(), Chapter: chapter, Type: TypeAddPlotEvent, Reversible: true, AddPlotEvent: &p}
}

func NewUpdateStoryState(chapter int, p UpdateStoryState) Effect {
	return Effect{ID: newID(), Chapter: chapter, Type: TypeUpdateStoryState, Reversible: true, UpdateStoryState: &p}
}

func NewTemporaryDebuff(chapter int, p TemporaryDebuff) Effect {
	return Effect{ID: newID(), Chapter: chapter, Type: TypeTemporaryDebuff, Reversible: true, TemporaryDebuff: &p}
}

// Validate checks that exactly the payload matching Type is set.
func (e Effect) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("effect has no id")
	}

	payloads := map[Type]bool{
		TypeAddFact:              e.AddFact != nil,
		TypeUpdateCharacterState: e.UpdateCharacterState != nil,
		TypeAddForeshadow:        e.AddForeshadow != nil,
		TypeRevealForeshadow:     e.RevealForeshadow != nil,
		TypeResolveForeshadow:    e.ResolveForeshadow != nil,
		TypeAddPlotEvent:         e.AddPlotEvent != nil,
		TypeUpdateStoryState:     e.UpdateStoryState != nil,
		TypeTemporaryDebuff:      e.TemporaryDebuff != nil,
	}

	set, known := payloads[e.Type]
	if !known {
		return fmt.Errorf("unknown effect type: %s", e.Type)
	}
	if !set {
		return fmt.Errorf("effect %s missing %s payload", e.ID, e.Type)
	}
	for typ, present := range payloads {
		if typ != e.Type && present {
			return fmt.Errorf("effect %s carries a %s payload but is typed %s", e.ID, typ, e.Type)
		}
	}
	return nil
}
