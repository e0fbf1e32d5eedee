// Package concept maintains the semantic identity registry: every
// surface phrase the extractor produces maps to at most one stable
// concept identity.
package concept

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canonkeeper/internal/semantic"
	"canonkeeper/internal/store"
)

// Resolution is the outcome of mapping a surface phrase to an identity.
type Resolution struct {
	ConceptID    string
	IsNew        bool
	Similarity   float64
	MatchedAlias string
}

type Resolver struct {
	db  store.Store
	sem *semantic.Service
	log *zap.Logger
}

func NewResolver(db store.Store, sem *semantic.Service, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{db: db, sem: sem, log: log}
}

// Resolve maps surface text to a concept identity. Exact alias match
// wins outright; otherwise the embedding backend, when configured,
// picks the single best alias at or above the similarity threshold.
func (r *Resolver) Resolve(ctx context.Context, surface string) (Resolution, error) {
	surface = strings.TrimSpace(surface)
	if surface == "" {
		return Resolution{}, fmt.Errorf("surface text is empty")
	}

	existing, err := r.db.FindConceptByAlias(ctx, surface)
	if err != nil {
		return Resolution{}, fmt.Errorf("alias lookup for %q: %w", surface, err)
	}
	if existing != nil {
		return Resolution{ConceptID: existing.ID, Similarity: 1.0, MatchedAlias: surface}, nil
	}

	if r.sem != nil && r.sem.Enabled() {
		concepts, err := r.db.ListConcepts(ctx)
		if err != nil {
			return Resolution{}, fmt.Errorf("listing concepts: %w", err)
		}

		aliasOwner := map[string]string{}
		var aliases []string
		for _, c := range concepts {
			for _, alias := range c.Aliases {
				aliases = append(aliases, alias)
				aliasOwner[alias] = c.ID
			}
		}

		if best := r.sem.MostSimilar(ctx, surface, aliases); best != nil && best.Similarity >= semantic.SimilarityThreshold {
			r.log.Info("resolved concept by similarity",
				zap.String("surface", surface),
				zap.String("matched_alias", best.Text),
				zap.Float64("similarity", best.Similarity))
			return Resolution{
				ConceptID:    aliasOwner[best.Text],
				Similarity:   best.Similarity,
				MatchedAlias: best.Text,
			}, nil
		}
	}

	return Resolution{IsNew: true}, nil
}

// Create allocates a new concept with surface as its canonical name and
// first alias.
func (r *Resolver) Create(ctx context.Context, surface string, chapter int, description string) (store.Concept, error) {
	surface = strings.TrimSpace(surface)
	if surface == "" {
		return store.Concept{}, fmt.Errorf("surface text is empty")
	}

	c := store.Concept{
		ID:           "c_" + uuid.NewString(),
		Name:         surface,
		Aliases:      []string{surface},
		Description:  description,
		FirstChapter: chapter,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.db.InsertConcept(ctx, c); err != nil {
		return store.Concept{}, fmt.Errorf("creating concept %q: %w", surface, err)
	}
	return c, nil
}

// ResolveOrCreate is the normalization entry point used by the
// finalizer: unknown mentions become new concepts on the spot.
func (r *Resolver) ResolveOrCreate(ctx context.Context, surface string, chapter int, description string) (string, bool, error) {
	res, err := r.Resolve(ctx, surface)
	if err != nil {
		return "", false, err
	}
	if !res.IsNew {
		if description != "" {
			if err := r.UpdateDescription(ctx, res.ConceptID, description); err != nil {
				return "", false, err
			}
		}
		return res.ConceptID, false, nil
	}

	c, err := r.Create(ctx, surface, chapter, description)
	if err != nil {
		return "", false, err
	}
	return c.ID, true, nil
}

// AddAlias registers another surface form. Adding an existing alias is
// a no-op.
func (r *Resolver) AddAlias(ctx context.Context, conceptID, surface string) error {
	surface = strings.TrimSpace(surface)
	if surface == "" {
		return fmt.Errorf("alias is empty")
	}
	if err := r.db.AddConceptAlias(ctx, conceptID, surface); err != nil {
		return fmt.Errorf("adding alias %q: %w", surface, err)
	}
	return nil
}

// UpdateDescription only replaces the stored description when the new
// text is strictly longer. Crude, but "more information wins" is the
// intended heuristic.
func (r *Resolver) UpdateDescription(ctx context.Context, conceptID, description string) error {
	current, err := r.db.GetConcept(ctx, conceptID)
	if err != nil {
		return fmt.Errorf("loading concept %s: %w", conceptID, err)
	}
	if current == nil {
		return fmt.Errorf("concept %s not found", conceptID)
	}
	if utf8.RuneCountInString(description) <= utf8.RuneCountInString(current.Description) {
		return nil
	}
	if err := r.db.UpdateConceptDescription(ctx, conceptID, description); err != nil {
		return fmt.Errorf("updating description for %s: %w", conceptID, err)
	}
	return nil
}
