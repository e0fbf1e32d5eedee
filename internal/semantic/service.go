// Package semantic provides embedding-backed text comparison for the
// concept resolver and the conflict detector. A missing or failing
// backend is a soft signal: comparisons degrade to "not similar"
// instead of returning an error.
package semantic

import (
	"context"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Threshold above which two texts are considered the same thing.
const SimilarityThreshold = 0.75

type Match struct {
	Text       string
	Similarity float64
}

// Service caches embeddings by normalized text for the lifetime of the
// process. The cache is only reset by reconfiguration, never by time.
type Service struct {
	embedder Embedder
	log      *zap.Logger

	mu    sync.Mutex
	cache map[string][]float64
}

// New builds a Service. A nil embedder is allowed and restricts the
// service to exact-match comparison.
func New(embedder Embedder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		embedder: embedder,
		log:      log,
		cache:    map[string][]float64{},
	}
}

// Enabled reports whether an embedding backend is configured.
func (s *Service) Enabled() bool {
	return s.embedder != nil
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Embed returns the vector for text, serving repeats from cache.
func (s *Service) Embed(ctx context.Context, text string) ([]float64, error) {
	key := normalize(text)

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = vector
	s.mu.Unlock()
	return vector, nil
}

func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Similarity compares two texts. Case-insensitive equality
// short-circuits to 1.0 without touching the backend; backend failure
// degrades to 0 with a warning.
func (s *Service) Similarity(ctx context.Context, a, b string) float64 {
	if normalize(a) == normalize(b) {
		return 1.0
	}
	if s.embedder == nil {
		return 0
	}

	vecA, err := s.Embed(ctx, a)
	if err != nil {
		s.log.Warn("embedding failed, treating as not similar", zap.Error(err))
		return 0
	}
	vecB, err := s.Embed(ctx, b)
	if err != nil {
		s.log.Warn("embedding failed, treating as not similar", zap.Error(err))
		return 0
	}

	return CosineSimilarity(vecA, vecB)
}

// IsSimilar applies the fixed threshold.
func (s *Service) IsSimilar(ctx context.Context, a, b string) (bool, float64) {
	similarity := s.Similarity(ctx, a, b)
	return similarity >= SimilarityThreshold, similarity
}

// MostSimilar returns the best-scoring candidate, or nil when there are
// no candidates or every comparison scored zero.
func (s *Service) MostSimilar(ctx context.Context, text string, candidates []string) *Match {
	var best *Match
	for _, candidate := range candidates {
		similarity := s.Similarity(ctx, text, candidate)
		if similarity <= 0 {
			continue
		}
		if best == nil || similarity > best.Similarity {
			best = &Match{Text: candidate, Similarity: similarity}
		}
	}
	return best
}
