// Package conflict decides whether a candidate fact may be admitted
// into the ledger. Checks escalate from cheap string comparison through
// keyword heuristics to embedding similarity; a hard conflict means the
// caller must discard the candidate entirely.
package conflict

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"canonkeeper/internal/semantic"
	"canonkeeper/internal/store"
)

// Semantic similarity above this is flagged as a probable rephrasing.
const similarWarningThreshold = 0.90

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

type Conflict struct {
	Severity       Severity
	Reason         string
	ExistingFactID string
}

type WarningKind string

const (
	WarnDuplicate       WarningKind = "duplicate"
	WarnSimilar         WarningKind = "similar"
	WarnLevelRegression WarningKind = "level-regression"
)

type Warning struct {
	Kind           WarningKind
	Message        string
	ExistingFactID string
	Similarity     float64
}

type Result struct {
	HasConflict bool
	Conflicts   []Conflict
	Warnings    []Warning
}

// IsDuplicate reports whether the candidate restates an existing fact
// verbatim. Duplicates are not conflicts, but the caller must discard
// the candidate.
func (r Result) IsDuplicate() bool {
	for _, w := range r.Warnings {
		if w.Kind == WarnDuplicate {
			return true
		}
	}
	return false
}

type Detector struct {
	sem    *semantic.Service
	filter KeywordFilter
	log    *zap.Logger
}

func NewDetector(sem *semantic.Service, filter KeywordFilter, log *zap.Logger) *Detector {
	if filter == nil {
		filter = NewRuleFilter()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{sem: sem, filter: filter, log: log}
}

// Detect runs the ordered checks against every existing fact, stopping
// early on an exact duplicate.
func (d *Detector) Detect(ctx context.Context, candidate store.Fact, existing []store.Fact) Result {
	var result Result

	// 1. Exact duplicate ends everything.
	for _, fact := range existing {
		if fact.Statement == candidate.Statement {
			result.Warnings = append(result.Warnings, Warning{
				Kind:           WarnDuplicate,
				Message:        "identical statement already recorded",
				ExistingFactID: fact.ID,
			})
			return result
		}
	}

	candidateTokens := d.filter.Extract(candidate.Statement)

	for _, fact := range existing {
		if fact.FactType != candidate.FactType {
			continue
		}

		// 2. Near-identical phrasing is informational.
		if d.sem != nil {
			if similarity := d.sem.Similarity(ctx, candidate.Statement, fact.Statement); similarity > similarWarningThreshold {
				result.Warnings = append(result.Warnings, Warning{
					Kind:           WarnSimilar,
					Message:        fmt.Sprintf("statement resembles fact %s", fact.ID),
					ExistingFactID: fact.ID,
					Similarity:     similarity,
				})
			}
		}

		// 3. Keyword antonyms are a hard contradiction.
		if token, other, found := d.antonymHit(candidateTokens, fact.Statement); found {
			result.Conflicts = append(result.Conflicts, Conflict{
				Severity:       SeverityMedium,
				Reason:         fmt.Sprintf("contradictory keywords %q vs %q", token, other),
				ExistingFactID: fact.ID,
			})
		}
	}

	// 4. Logical duplicates.
	d.checkLogical(candidate, existing, &result)

	result.HasConflict = len(result.Conflicts) > 0
	if result.HasConflict {
		d.log.Info("candidate fact conflicts with canon",
			zap.String("statement", candidate.Statement),
			zap.Int("conflicts", len(result.Conflicts)))
	}
	return result
}

func (d *Detector) antonymHit(candidateTokens []string, existingStatement string) (string, string, bool) {
	existingTokens := d.filter.Extract(existingStatement)
	for _, token := range candidateTokens {
		for _, other := range existingTokens {
			if d.filter.AreAntonyms(token, other) {
				return token, other, true
			}
		}
	}
	return "", "", false
}

// checkLogical catches contradictions the keyword table cannot express:
// a second death for the same character, and an apparent cultivation
// level regression. The regression stays a warning because going
// backwards can be narratively valid (injury, sealed power).
func (d *Detector) checkLogical(candidate store.Fact, existing []store.Fact, result *Result) {
	subject := strings.TrimSpace(candidate.Subject)
	if subject == "" {
		return
	}

	candidateIsDeath := isDeathFact(candidate)
	candidateRank, candidateHasRank := levelRank(candidate.Statement)

	for _, fact := range existing {
		if !strings.EqualFold(strings.TrimSpace(fact.Subject), subject) {
			continue
		}

		if candidateIsDeath && isDeathFact(fact) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Severity:       SeverityHigh,
				Reason:         fmt.Sprintf("character %s already has a recorded death", subject),
				ExistingFactID: fact.ID,
			})
			continue
		}

		if candidateHasRank && isBreakthroughFact(candidate) && isBreakthroughFact(fact) {
			if existingRank, ok := levelRank(fact.Statement); ok && candidateRank < existingRank {
				result.Warnings = append(result.Warnings, Warning{
					Kind:           WarnLevelRegression,
					Message:        fmt.Sprintf("level in %q is below previously recorded level for %s", candidate.Statement, subject),
					ExistingFactID: fact.ID,
				})
			}
		}
	}
}

func isDeathFact(f store.Fact) bool {
	if strings.EqualFold(f.Predicate, "death") || f.Predicate == "死亡" {
		return true
	}
	lowered := strings.ToLower(f.Statement)
	return strings.Contains(lowered, "死亡") || strings.Contains(lowered, " died") || strings.Contains(lowered, "death of")
}

func isBreakthroughFact(f store.Fact) bool {
	if strings.EqualFold(f.Predicate, "breakthrough") || f.Predicate == "突破" {
		return true
	}
	lowered := strings.ToLower(f.Statement)
	return strings.Contains(lowered, "突破") || strings.Contains(lowered, "breakthrough")
}
