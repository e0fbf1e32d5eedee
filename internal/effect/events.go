package effect

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"canonkeeper/internal/extract"
)

// Event subtypes that are allowed to produce an effect. Everything else
// is narration-only as far as the canon stores are concerned.
const (
	EventBreakthroughFailed     = "breakthrough_failed"
	EventCultivationInterrupted = "cultivation_interrupted"
)

// debuffForEvent maps an admissible event subtype to its debuff payload
// defaults. Duration is in chapters and may be overridden by the claim.
var debuffForEvent = map[string]TemporaryDebuff{
	EventBreakthroughFailed:     {Kind: "breakthrough_backlash", DurationChapters: 3},
	EventCultivationInterrupted: {Kind: "qi_deviation", DurationChapters: 2},
}

// EventResolver decides whether a narrative event claim produces an
// effect. It is a pure decision function: no store access, no mutation.
type EventResolver struct {
	log *zap.Logger
}

func NewEventResolver(log *zap.Logger) *EventResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventResolver{log: log}
}

// Resolve returns zero or one effects for the claim. Narrative claims
// never convert; unknown event subtypes are logged and dropped.
func (r *EventResolver) Resolve(chapter int, claim extract.EventClaim) []Effect {
	if claim.ClaimType == extract.ClaimNarrative {
		r.log.Debug("narrative claim is not convertible to an effect",
			zap.Int("chapter", chapter),
			zap.String("event_type", claim.EventType))
		return nil
	}

	template, ok := debuffForEvent[claim.EventType]
	if !ok {
		r.log.Debug("event type produces no effect",
			zap.Int("chapter", chapter),
			zap.String("event_type", claim.EventType))
		return nil
	}
	if claim.Character == "" {
		r.log.Warn("event claim missing character, dropping",
			zap.Int("chapter", chapter),
			zap.String("event_type", claim.EventType))
		return nil
	}

	payload := TemporaryDebuff{
		DebuffID:         "db_" + uuid.NewString(),
		Character:        claim.Character,
		Kind:             template.Kind,
		DurationChapters: template.DurationChapters,
		Description:      claim.Description,
	}
	if claim.DurationChapters > 0 {
		payload.DurationChapters = claim.DurationChapters
	}

	return []Effect{NewTemporaryDebuff(chapter, payload)}
}
