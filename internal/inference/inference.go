// Package inference is the sidecar for claims whose certainty fell
// below the admission threshold. Sub-threshold claims never enter the
// fact ledger; they wait here for a human decision.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canonkeeper/internal/store"
)

// Threshold below which a claim is diverted here instead of becoming a
// fact.
const Threshold = 0.70

type Service struct {
	db  store.Store
	log *zap.Logger
}

func New(db store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

// Divert records a sub-threshold claim. Claims are deduplicated by
// (claim, chapter); re-divert keeps the maximum confidence seen.
func (s *Service) Divert(ctx context.Context, claim, basis string, confidence float64, chapter int) error {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	inf := store.Inference{
		ID:         "inf_" + uuid.NewString(),
		Claim:      claim,
		Basis:      basis,
		Confidence: confidence,
		Chapter:    chapter,
		Status:     store.InferencePending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.UpsertInference(ctx, inf); err != nil {
		return fmt.Errorf("diverting claim to inference store: %w", err)
	}

	s.log.Info("claim diverted to inference store",
		zap.String("claim", claim),
		zap.Float64("confidence", confidence),
		zap.Int("chapter", chapter))
	return nil
}

// Pending returns claims awaiting review.
func (s *Service) Pending(ctx context.Context) ([]store.Inference, error) {
	inferences, err := s.db.ListInferences(ctx, store.InferencePending)
	if err != nil {
		return nil, fmt.Errorf("listing pending inferences: %w", err)
	}

	filtered := inferences[:0]
	for _, inf := range inferences {
		if inf.Confidence < Threshold {
			filtered = append(filtered, inf)
		}
	}
	return filtered, nil
}

// MarkConfirmed records a manual confirmation. Promotion to a real fact
// stays a separate, deliberate step; nothing here writes the ledger.
func (s *Service) MarkConfirmed(ctx context.Context, id string) error {
	if err := s.db.SetInferenceStatus(ctx, id, store.InferenceConfirmed); err != nil {
		return fmt.Errorf("confirming inference %s: %w", id, err)
	}
	return nil
}

func (s *Service) MarkRejected(ctx context.Context, id string) error {
	if err := s.db.SetInferenceStatus(ctx, id, store.InferenceRejected); err != nil {
		return fmt.Errorf("rejecting inference %s: %w", id, err)
	}
	return nil
}
