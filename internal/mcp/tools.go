package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"canonkeeper/internal/store"
)

type CheckFactInput struct {
	Statement string `json:"statement" jsonschema:"candidate fact statement"`
	FactType  string `json:"fact_type,omitempty" jsonschema:"fact type such as character_death or breakthrough"`
	Subject   string `json:"subject,omitempty" jsonschema:"structured triple subject"`
	Predicate string `json:"predicate,omitempty" jsonschema:"structured triple predicate"`
	Value     string `json:"value,omitempty" jsonschema:"structured triple value"`
}

type ConflictOutput struct {
	Severity       string `json:"severity"`
	Reason         string `json:"reason"`
	ExistingFactID string `json:"existing_fact_id"`
}

type WarningOutput struct {
	Kind           string  `json:"kind"`
	Message        string  `json:"message"`
	ExistingFactID string  `json:"existing_fact_id,omitempty"`
	Similarity     float64 `json:"similarity,omitempty"`
}

type CheckFactOutput struct {
	WouldAccept bool             `json:"would_accept"`
	Conflicts   []ConflictOutput `json:"conflicts"`
	Warnings    []WarningOutput  `json:"warnings"`
}

type ResolveConceptInput struct {
	Surface string `json:"surface" jsonschema:"surface phrase to resolve"`
}

type ResolveConceptOutput struct {
	ConceptID    string  `json:"concept_id,omitempty"`
	Found        bool    `json:"found"`
	Similarity   float64 `json:"similarity,omitempty"`
	MatchedAlias string  `json:"matched_alias,omitempty"`
}

type GetCharacterStateInput struct {
	Character string `json:"character" jsonschema:"character name"`
}

type StateChangeOutput struct {
	Chapter    int            `json:"chapter"`
	ChangeType string         `json:"change_type"`
	Changes    map[string]any `json:"changes"`
}

type GetCharacterStateOutput struct {
	Character string              `json:"character"`
	Fields    map[string]any      `json:"fields"`
	Timeline  []StateChangeOutput `json:"timeline"`
}

type ListFactsInput struct {
	FactType  string `json:"fact_type,omitempty" jsonschema:"fact type filter"`
	Chapter   int    `json:"chapter,omitempty" jsonschema:"chapter filter"`
	Status    string `json:"status,omitempty" jsonschema:"status filter, valid or superseded"`
	ConceptID string `json:"concept_id,omitempty" jsonschema:"concept id filter"`
	Query     string `json:"query,omitempty" jsonschema:"substring match on the statement"`
}

type FactOutput struct {
	ID         string   `json:"id"`
	FactType   string   `json:"fact_type"`
	Statement  string   `json:"statement"`
	Chapter    int      `json:"chapter"`
	Confidence string   `json:"confidence"`
	Status     string   `json:"status"`
	ConceptIDs []string `json:"concept_ids,omitempty"`
}

type ListFactsOutput struct {
	Facts []FactOutput `json:"facts"`
}

type ListForeshadowsInput struct {
	State string `json:"state,omitempty" jsonschema:"state filter: pending, confirmed, revealed, or archived"`
}

type ForeshadowOutput struct {
	ID                string `json:"id"`
	ConceptID         string `json:"concept_id"`
	State             string `json:"state"`
	ChapterIntroduced int    `json:"chapter_introduced"`
	ChapterUpdated    int    `json:"chapter_updated"`
	ImpliedFuture     string `json:"implied_future,omitempty"`
}

type ListForeshadowsOutput struct {
	Foreshadows []ForeshadowOutput `json:"foreshadows"`
}

type ListPendingInferencesInput struct{}

type InferenceOutput struct {
	ID         string  `json:"id"`
	Claim      string  `json:"claim"`
	Basis      string  `json:"basis,omitempty"`
	Confidence float64 `json:"confidence"`
	Chapter    int     `json:"chapter"`
}

type ListPendingInferencesOutput struct {
	Inferences []InferenceOutput `json:"inferences"`
}

type ReviewInferenceInput struct {
	ID string `json:"id" jsonschema:"inference id"`
}

type ReviewInferenceOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ListInvalidationsInput struct{}

type InvalidationOutput struct {
	Chapter int    `json:"chapter"`
	Reason  string `json:"reason"`
}

type ListInvalidationsOutput struct {
	Chapters []InvalidationOutput `json:"chapters"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "check_fact",
		Description: "Dry-run conflict detection for a candidate fact without recording it",
	}, s.handleCheckFact)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "resolve_concept",
		Description: "Map a surface phrase to an existing concept identity",
	}, s.handleResolveConcept)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_character_state",
		Description: "Return a character's merged state and change timeline",
	}, s.handleGetCharacterState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_facts",
		Description: "List recorded facts with optional filters",
	}, s.handleListFacts)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_foreshadows",
		Description: "List foreshadow entries, optionally by lifecycle state",
	}, s.handleListForeshadows)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_pending_inferences",
		Description: "List low-confidence claims awaiting review",
	}, s.handleListPendingInferences)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "confirm_inference",
		Description: "Mark a pending inference as confirmed",
	}, s.handleConfirmInference)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "reject_inference",
		Description: "Mark a pending inference as rejected",
	}, s.handleRejectInference)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_invalidated_chapters",
		Description: "List chapters flagged for re-finalization after a rollback",
	}, s.handleListInvalidations)
}

func (s *Server) handleCheckFact(ctx context.Context, req *sdk.CallToolRequest, input CheckFactInput) (*sdk.CallToolResult, CheckFactOutput, error) {
	if input.Statement == "" {
		return nil, CheckFactOutput{}, fmt.Errorf("statement is required")
	}

	existing, err := s.db.ListFacts(ctx, store.FactFilter{Status: store.FactValid})
	if err != nil {
		return nil, CheckFactOutput{}, err
	}

	candidate := store.Fact{
		FactType:  input.FactType,
		Statement: input.Statement,
		Subject:   input.Subject,
		Predicate: input.Predicate,
		Value:     input.Value,
	}
	result := s.detector.Detect(ctx, candidate, existing)

	out := CheckFactOutput{
		WouldAccept: !result.HasConflict && !result.IsDuplicate(),
		Conflicts:   make([]ConflictOutput, 0, len(result.Conflicts)),
		Warnings:    make([]WarningOutput, 0, len(result.Warnings)),
	}
	for _, c := range result.Conflicts {
		out.Conflicts = append(out.Conflicts, ConflictOutput{
			Severity:       string(c.Severity),
			Reason:         c.Reason,
			ExistingFactID: c.ExistingFactID,
		})
	}
	for _, w := range result.Warnings {
		out.Warnings = append(out.Warnings, WarningOutput{
			Kind:           string(w.Kind),
			Message:        w.Message,
			ExistingFactID: w.ExistingFactID,
			Similarity:     w.Similarity,
		})
	}
	return nil, out, nil
}

func (s *Server) handleResolveConcept(ctx context.Context, req *sdk.CallToolRequest, input ResolveConceptInput) (*sdk.CallToolResult, ResolveConceptOutput, error) {
	if strings.TrimSpace(input.Surface) == "" {
		return nil, ResolveConceptOutput{}, fmt.Errorf("surface is required")
	}

	res, err := s.concepts.Resolve(ctx, input.Surface)
	if err != nil {
		return nil, ResolveConceptOutput{}, err
	}
	if res.IsNew {
		return nil, ResolveConceptOutput{Found: false}, nil
	}
	return nil, ResolveConceptOutput{
		ConceptID:    res.ConceptID,
		Found:        true,
		Similarity:   res.Similarity,
		MatchedAlias: res.MatchedAlias,
	}, nil
}

func (s *Server) handleGetCharacterState(ctx context.Context, req *sdk.CallToolRequest, input GetCharacterStateInput) (*sdk.CallToolResult, GetCharacterStateOutput, error) {
	if input.Character == "" {
		return nil, GetCharacterStateOutput{}, fmt.Errorf("character is required")
	}

	merged, err := s.charLedger.CurrentState(ctx, input.Character)
	if err != nil {
		return nil, GetCharacterStateOutput{}, err
	}

	out := GetCharacterStateOutput{
		Character: merged.Character,
		Fields:    merged.Fields,
		Timeline:  make([]StateChangeOutput, 0, len(merged.Timeline)),
	}
	for _, rec := range merged.Timeline {
		out.Timeline = append(out.Timeline, StateChangeOutput{
			Chapter:    rec.Chapter,
			ChangeType: string(rec.ChangeType),
			Changes:    rec.Changes,
		})
	}
	return nil, out, nil
}

func (s *Server) handleListFacts(ctx context.Context, req *sdk.CallToolRequest, input ListFactsInput) (*sdk.CallToolResult, ListFactsOutput, error) {
	facts, err := s.db.ListFacts(ctx, store.FactFilter{
		FactType:  input.FactType,
		Chapter:   input.Chapter,
		Status:    store.FactStatus(input.Status),
		ConceptID: input.ConceptID,
	})
	if err != nil {
		return nil, ListFactsOutput{}, err
	}

	out := ListFactsOutput{Facts: make([]FactOutput, 0, len(facts))}
	for _, f := range facts {
		if input.Query != "" && !strings.Contains(strings.ToLower(f.Statement), strings.ToLower(input.Query)) {
			continue
		}
		out.Facts = append(out.Facts, FactOutput{
			ID:         f.ID,
			FactType:   f.FactType,
			Statement:  f.Statement,
			Chapter:    f.Chapter,
			Confidence: string(f.Confidence),
			Status:     string(f.Status),
			ConceptIDs: append([]string{}, f.ConceptIDs...),
		})
	}
	return nil, out, nil
}

func (s *Server) handleListForeshadows(ctx context.Context, req *sdk.CallToolRequest, input ListForeshadowsInput) (*sdk.CallToolResult, ListForeshadowsOutput, error) {
	foreshadows, err := s.db.ListForeshadows(ctx, store.ForeshadowState(input.State))
	if err != nil {
		return nil, ListForeshadowsOutput{}, err
	}

	out := ListForeshadowsOutput{Foreshadows: make([]ForeshadowOutput, 0, len(foreshadows))}
	for _, f := range foreshadows {
		out.Foreshadows = append(out.Foreshadows, ForeshadowOutput{
			ID:                f.ID,
			ConceptID:         f.ConceptID,
			State:             string(f.State),
			ChapterIntroduced: f.ChapterIntroduced,
			ChapterUpdated:    f.ChapterUpdated,
			ImpliedFuture:     f.ImpliedFuture,
		})
	}
	return nil, out, nil
}

func (s *Server) handleListPendingInferences(ctx context.Context, req *sdk.CallToolRequest, input ListPendingInferencesInput) (*sdk.CallToolResult, ListPendingInferencesOutput, error) {
	pending, err := s.inferences.Pending(ctx)
	if err != nil {
		return nil, ListPendingInferencesOutput{}, err
	}

	out := ListPendingInferencesOutput{Inferences: make([]InferenceOutput, 0, len(pending))}
	for _, inf := range pending {
		out.Inferences = append(out.Inferences, InferenceOutput{
			ID:         inf.ID,
			Claim:      inf.Claim,
			Basis:      inf.Basis,
			Confidence: inf.Confidence,
			Chapter:    inf.Chapter,
		})
	}
	return nil, out, nil
}

func (s *Server) handleConfirmInference(ctx context.Context, req *sdk.CallToolRequest, input ReviewInferenceInput) (*sdk.CallToolResult, ReviewInferenceOutput, error) {
	if input.ID == "" {
		return nil, ReviewInferenceOutput{}, fmt.Errorf("id is required")
	}
	if err := s.inferences.MarkConfirmed(ctx, input.ID); err != nil {
		return nil, ReviewInferenceOutput{}, err
	}
	return nil, ReviewInferenceOutput{ID: input.ID, Status: string(store.InferenceConfirmed)}, nil
}

func (s *Server) handleRejectInference(ctx context.Context, req *sdk.CallToolRequest, input ReviewInferenceInput) (*sdk.CallToolResult, ReviewInferenceOutput, error) {
	if input.ID == "" {
		return nil, ReviewInferenceOutput{}, fmt.Errorf("id is required")
	}
	if err := s.inferences.MarkRejected(ctx, input.ID); err != nil {
		return nil, ReviewInferenceOutput{}, err
	}
	return nil, ReviewInferenceOutput{ID: input.ID, Status: string(store.InferenceRejected)}, nil
}

func (s *Server) handleListInvalidations(ctx context.Context, req *sdk.CallToolRequest, input ListInvalidationsInput) (*sdk.CallToolResult, ListInvalidationsOutput, error) {
	invalidations, err := s.db.ListInvalidations(ctx)
	if err != nil {
		return nil, ListInvalidationsOutput{}, err
	}

	out := ListInvalidationsOutput{Chapters: make([]InvalidationOutput, 0, len(invalidations))}
	for _, inv := range invalidations {
		out.Chapters = append(out.Chapters, InvalidationOutput{Chapter: inv.Chapter, Reason: inv.Reason})
	}
	return nil, out, nil
}
