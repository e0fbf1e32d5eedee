package store

import (
	"context"
	"time"

	"canonkeeper/internal/effect"
)

// EffectRecord is the persisted effect batch for one finalized chapter.
// Slice order is creation order; rollback replays it in reverse.
type EffectRecord struct {
	Chapter   int
	Effects   []effect.Effect
	CreatedAt time.Time
}

// Store is the persistence seam for every canon document. The engine is
// single-writer per workspace; implementations do not need to make
// cross-document operations atomic (retries are made safe by the
// idempotency checks above this layer).
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	// Concepts.
	InsertConcept(ctx context.Context, c Concept) error
	GetConcept(ctx context.Context, id string) (*Concept, error)
	FindConceptByAlias(ctx context.Context, surface string) (*Concept, error)
	AddConceptAlias(ctx context.Context, id, alias string) error
	UpdateConceptDescription(ctx context.Context, id, description string) error
	ListConcepts(ctx context.Context) ([]Concept, error)

	// Facts. Append-only: no update beyond the status flag.
	InsertFact(ctx context.Context, f Fact) error
	GetFact(ctx context.Context, id string) (*Fact, error)
	DeleteFact(ctx context.Context, id string) error
	ListFacts(ctx context.Context, filter FactFilter) ([]Fact, error)
	SetFactStatus(ctx context.Context, id string, status FactStatus) error
	FactTripleExists(ctx context.Context, subject, predicate, value string) (bool, error)

	// Character state records.
	AppendStateRecord(ctx context.Context, r StateRecord) (bool, error)
	ListStateRecords(ctx context.Context, character string) ([]StateRecord, error)
	ListCharacters(ctx context.Context) ([]string, error)
	DeleteStateRecords(ctx context.Context, character, field string, fromChapter int) (int64, error)

	// Foreshadows.
	InsertForeshadow(ctx context.Context, f Foreshadow) error
	GetForeshadow(ctx context.Context, id string) (*Foreshadow, error)
	FindForeshadowByConcept(ctx context.Context, conceptID string) (*Foreshadow, error)
	UpdateForeshadowState(ctx context.Context, id string, state ForeshadowState, chapter int) error
	DeleteForeshadow(ctx context.Context, id string) error
	ListForeshadows(ctx context.Context, state ForeshadowState) ([]Foreshadow, error)

	// Plot events.
	InsertPlotEvent(ctx context.Context, e PlotEvent) error
	DeletePlotEvent(ctx context.Context, id string) error
	ListPlotEvents(ctx context.Context, chapter int) ([]PlotEvent, error)

	// Temporary debuffs.
	InsertDebuff(ctx context.Context, d Debuff) error
	DeleteDebuff(ctx context.Context, id string) error
	ListActiveDebuffs(ctx context.Context, chapter int) ([]Debuff, error)

	// Story state.
	GetStoryState(ctx context.Context) (*StoryState, error)
	PutStoryState(ctx context.Context, s StoryState) error

	// Chapter effect records.
	PutChapterEffects(ctx context.Context, r EffectRecord) error
	GetChapterEffects(ctx context.Context, chapter int) (*EffectRecord, error)
	DeleteChapterEffects(ctx context.Context, chapter int) error
	ListFinalizedChapters(ctx context.Context) ([]int, error)

	// Dependency graph and invalidation flags.
	PutDependencies(ctx context.Context, r DependencyRecord) error
	GetDependencies(ctx context.Context, chapter int) (*DependencyRecord, error)
	ListDependencies(ctx context.Context) ([]DependencyRecord, error)
	DeleteDependencies(ctx context.Context, chapter int) error
	MarkInvalidated(ctx context.Context, chapter int, reason string) error
	ClearInvalidation(ctx context.Context, chapter int) error
	ListInvalidations(ctx context.Context) ([]Invalidation, error)
	IsInvalidated(ctx context.Context, chapter int) (bool, error)

	// Inferences.
	UpsertInference(ctx context.Context, inf Inference) error
	GetInference(ctx context.Context, id string) (*Inference, error)
	ListInferences(ctx context.Context, status InferenceStatus) ([]Inference, error)
	SetInferenceStatus(ctx context.Context, id string, status InferenceStatus) error
}
