package store

import "time"

// ConfidenceTag classifies how a fact entered the canon.
type ConfidenceTag string

const (
	ConfidenceObserved  ConfidenceTag = "observed"
	ConfidenceCanonical ConfidenceTag = "canonical"
	ConfidenceMigrated  ConfidenceTag = "migrated"
)

// FactStatus is valid or superseded. Facts are never edited in place;
// a correction is a new fact plus a status flip on the old one.
type FactStatus string

const (
	FactValid      FactStatus = "valid"
	FactSuperseded FactStatus = "superseded"
)

// ForeshadowState is the monotonic lifecycle of a narrative promise.
type ForeshadowState string

const (
	ForeshadowPending   ForeshadowState = "pending"
	ForeshadowConfirmed ForeshadowState = "confirmed"
	ForeshadowRevealed  ForeshadowState = "revealed"
	ForeshadowArchived  ForeshadowState = "archived"
)

// ChangeType tags one irreversible character state change.
type ChangeType string

const (
	ChangeLevelBreakthrough ChangeType = "level-breakthrough"
	ChangeDeath             ChangeType = "death"
	ChangeAwakening         ChangeType = "awakening"
	ChangeIrreversible      ChangeType = "irreversible-change"
	ChangeRestored          ChangeType = "restored"
)

// InferenceStatus tracks manual review of sub-threshold claims.
type InferenceStatus string

const (
	InferencePending   InferenceStatus = "pending"
	InferenceConfirmed InferenceStatus = "confirmed"
	InferenceRejected  InferenceStatus = "rejected"
)

// Concept is a stable identity unifying all surface mentions of one
// narrative entity. Concepts are never deleted; they only gain aliases
// or a longer description.
type Concept struct {
	ID           string
	Name         string
	Aliases      []string
	Description  string
	FirstChapter int
	CreatedAt    time.Time
}

// Fact is an admitted, append-only statement about the world.
type Fact struct {
	ID         string
	FactType   string
	Statement  string
	Chapter    int
	Confidence ConfidenceTag
	Subject    string
	Predicate  string
	Value      string
	ConceptIDs []string
	Evidence   string
	Sources    []string
	Status     FactStatus
	CreatedAt  time.Time
}

// FactFilter narrows ListFacts. Zero values match everything.
type FactFilter struct {
	FactType  string
	Chapter   int
	Status    FactStatus
	ConceptID string
}

// StateRecord is one irreversible change to one character. The record
// set for a character, folded in chapter order, is the only source of
// truth for current state.
type StateRecord struct {
	ID         string
	Character  string
	ChangeType ChangeType
	Changes    map[string]any
	Chapter    int
	ConceptIDs []string
	CreatedAt  time.Time
}

// Foreshadow is a tracked narrative promise, one per concept.
type Foreshadow struct {
	ID                string
	ConceptID         string
	State             ForeshadowState
	ChapterIntroduced int
	ChapterUpdated    int
	ImpliedFuture     string
}

// PlotEvent is a major narrative event admitted to the canon.
type PlotEvent struct {
	ID           string
	Chapter      int
	Name         string
	Description  string
	Participants []string
}

// Debuff is a temporary character condition, active from Chapter until
// ExpiresChapter.
type Debuff struct {
	ID             string
	Character      string
	Kind           string
	Description    string
	Chapter        int
	ExpiresChapter int
}

// StoryState is the latest whole-story snapshot. Replacement is not
// reversible; rollback logs and skips it.
type StoryState struct {
	Snapshot  map[string]any
	Chapter   int
	UpdatedAt time.Time
}

// DependencyRecord lists what chapter N consumed while its effects were
// generated. Used to compute the invalidation cascade on rollback.
type DependencyRecord struct {
	Chapter   int
	EffectIDs []string
	FactIDs   []string
}

// Invalidation marks a chapter whose inputs were rolled back. Advisory
// only; nothing re-finalizes automatically.
type Invalidation struct {
	Chapter   int
	Reason    string
	CreatedAt time.Time
}

// Inference is a claim whose certainty fell below the admission
// threshold. Held for manual review, never auto-promoted.
type Inference struct {
	ID         string
	Claim      string
	Basis      string
	Confidence float64
	Chapter    int
	Status     InferenceStatus
	CreatedAt  time.Time
}
