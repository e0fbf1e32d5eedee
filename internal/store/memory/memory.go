// Package memory is an in-memory Store used by tests and by the
// memory:// DSN. It mirrors the SQL stores' semantics, including the
// idempotency rules the finalizer relies on.
package memory

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"canonkeeper/internal/store"
)

var _ store.Store = (*Client)(nil)

type Client struct {
	mu sync.Mutex

	concepts     map[string]store.Concept
	facts        map[string]store.Fact
	stateRecords []store.StateRecord
	foreshadows  map[string]store.Foreshadow
	plotEvents   map[string]store.PlotEvent
	debuffs      map[string]store.Debuff
	storyState   *store.StoryState
	effects      map[int]store.EffectRecord
	dependencies map[int]store.DependencyRecord
	invalidated  map[int]store.Invalidation
	inferences   map[string]store.Inference
}

func New() *Client {
	return &Client{
		concepts:     map[string]store.Concept{},
		facts:        map[string]store.Fact{},
		foreshadows:  map[string]store.Foreshadow{},
		plotEvents:   map[string]store.PlotEvent{},
		debuffs:      map[string]store.Debuff{},
		effects:      map[int]store.EffectRecord{},
		dependencies: map[int]store.DependencyRecord{},
		invalidated:  map[int]store.Invalidation{},
		inferences:   map[string]store.Inference{},
	}
}

func (c *Client) Close(ctx context.Context) error        { return nil }
func (c *Client) EnsureSchema(ctx context.Context) error { return nil }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Concepts.

func (c *Client) InsertConcept(ctx context.Context, concept store.Concept) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.concepts[concept.ID] = cloneConcept(concept)
	return nil
}

func (c *Client) GetConcept(ctx context.Context, id string) (*store.Concept, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if concept, ok := c.concepts[id]; ok {
		out := cloneConcept(concept)
		return &out, nil
	}
	return nil, nil
}

func (c *Client) FindConceptByAlias(ctx context.Context, surface string) (*store.Concept, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target := normalize(surface)
	for _, concept := range c.concepts {
		for _, alias := range concept.Aliases {
			if normalize(alias) == target {
				out := cloneConcept(concept)
				return &out, nil
			}
		}
	}
	return nil, nil
}

func (c *Client) AddConceptAlias(ctx context.Context, id, alias string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	concept, ok := c.concepts[id]
	if !ok {
		return nil
	}
	target := normalize(alias)
	for _, existing := range concept.Aliases {
		if normalize(existing) == target {
			return nil
		}
	}
	concept.Aliases = append(concept.Aliases, alias)
	c.concepts[id] = concept
	return nil
}

func (c *Client) UpdateConceptDescription(ctx context.Context, id, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if concept, ok := c.concepts[id]; ok {
		concept.Description = description
		c.concepts[id] = concept
	}
	return nil
}

func (c *Client) ListConcepts(ctx context.Context) ([]store.Concept, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.Concept, 0, len(c.concepts))
	for _, concept := range c.concepts {
		out = append(out, cloneConcept(concept))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Facts.

func (c *Client) InsertFact(ctx context.Context, f store.Fact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.facts[f.ID] = f
	return nil
}

func (c *Client) GetFact(ctx context.Context, id string) (*store.Fact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.facts[id]; ok {
		return &f, nil
	}
	return nil, nil
}

func (c *Client) DeleteFact(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.facts, id)
	return nil
}

func (c *Client) ListFacts(ctx context.Context, filter store.FactFilter) ([]store.Fact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []store.Fact
	for _, f := range c.facts {
		if filter.FactType != "" && f.FactType != filter.FactType {
			continue
		}
		if filter.Chapter != 0 && f.Chapter != filter.Chapter {
			continue
		}
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.ConceptID != "" && !containsString(f.ConceptIDs, filter.ConceptID) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Chapter != out[j].Chapter {
			return out[i].Chapter < out[j].Chapter
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Client) SetFactStatus(ctx context.Context, id string, status store.FactStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.facts[id]; ok {
		f.Status = status
		c.facts[id] = f
	}
	return nil
}

func (c *Client) FactTripleExists(ctx context.Context, subject, predicate, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.facts {
		if f.Subject == subject && f.Predicate == predicate && f.Value == value {
			return true, nil
		}
	}
	return false, nil
}

// Character state records.

func (c *Client) AppendStateRecord(ctx context.Context, r store.StateRecord) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.stateRecords {
		if existing.Character == r.Character &&
			existing.ChangeType == r.ChangeType &&
			existing.Chapter == r.Chapter &&
			reflect.DeepEqual(existing.Changes, r.Changes) {
			return false, nil
		}
	}
	c.stateRecords = append(c.stateRecords, r)
	return true, nil
}

func (c *Client) ListStateRecords(ctx context.Context, character string) ([]store.StateRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []store.StateRecord
	for _, r := range c.stateRecords {
		if r.Character == character {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Chapter < out[j].Chapter })
	return out, nil
}

func (c *Client) ListCharacters(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range c.stateRecords {
		if !seen[r.Character] {
			seen[r.Character] = true
			out = append(out, r.Character)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *Client) DeleteStateRecords(ctx context.Context, character, field string, fromChapter int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kept []store.StateRecord
	var removed int64
	for _, r := range c.stateRecords {
		if r.Character == character && r.Chapter >= fromChapter {
			if _, has := r.Changes[field]; has {
				removed++
				continue
			}
		}
		kept = append(kept, r)
	}
	c.stateRecords = kept
	return removed, nil
}

// Foreshadows.

func (c *Client) InsertForeshadow(ctx context.Context, f store.Foreshadow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.foreshadows[f.ID] = f
	return nil
}

func (c *Client) GetForeshadow(ctx context.Context, id string) (*store.Foreshadow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.foreshadows[id]; ok {
		return &f, nil
	}
	return nil, nil
}

func (c *Client) FindForeshadowByConcept(ctx context.Context, conceptID string) (*store.Foreshadow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.foreshadows {
		if f.ConceptID == conceptID {
			out := f
			return &out, nil
		}
	}
	return nil, nil
}

func (c *Client) UpdateForeshadowState(ctx context.Context, id string, state store.ForeshadowState, chapter int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.foreshadows[id]; ok {
		f.State = state
		f.ChapterUpdated = chapter
		c.foreshadows[id] = f
	}
	return nil
}

func (c *Client) DeleteForeshadow(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.foreshadows, id)
	return nil
}

func (c *Client) ListForeshadows(ctx context.Context, state store.ForeshadowState) ([]store.Foreshadow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []store.Foreshadow
	for _, f := range c.foreshadows {
		if state != "" && f.State != state {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChapterIntroduced != out[j].ChapterIntroduced {
			return out[i].ChapterIntroduced < out[j].ChapterIntroduced
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Plot events.

func (c *Client) InsertPlotEvent(ctx context.Context, e store.PlotEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plotEvents[e.ID] = e
	return nil
}

func (c *Client) DeletePlotEvent(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.plotEvents, id)
	return nil
}

func (c *Client) ListPlotEvents(ctx context.Context, chapter int) ([]store.PlotEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []store.PlotEvent
	for _, e := range c.plotEvents {
		if chapter != 0 && e.Chapter != chapter {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Chapter != out[j].Chapter {
			return out[i].Chapter < out[j].Chapter
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Debuffs.

func (c *Client) InsertDebuff(ctx context.Context, d store.Debuff) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debuffs[d.ID] = d
	return nil
}

func (c *Client) DeleteDebuff(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.debuffs, id)
	return nil
}

func (c *Client) ListActiveDebuffs(ctx context.Context, chapter int) ([]store.Debuff, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []store.Debuff
	for _, d := range c.debuffs {
		if d.Chapter <= chapter && chapter < d.ExpiresChapter {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Story state.

func (c *Client) GetStoryState(ctx context.Context) (*store.StoryState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storyState == nil {
		return nil, nil
	}
	out := *c.storyState
	return &out, nil
}

func (c *Client) PutStoryState(ctx context.Context, s store.StoryState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storyState = &s
	return nil
}

// Chapter effect records.

func (c *Client) PutChapterEffects(ctx context.Context, r store.EffectRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.effects[r.Chapter] = r
	return nil
}

func (c *Client) GetChapterEffects(ctx context.Context, chapter int) (*store.EffectRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.effects[chapter]; ok {
		out := r
		return &out, nil
	}
	return nil, nil
}

func (c *Client) DeleteChapterEffects(ctx context.Context, chapter int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.effects, chapter)
	return nil
}

func (c *Client) ListFinalizedChapters(ctx context.Context) ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.effects))
	for chapter := range c.effects {
		out = append(out, chapter)
	}
	sort.Ints(out)
	return out, nil
}

// Dependencies and invalidations.

func (c *Client) PutDependencies(ctx context.Context, r store.DependencyRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dependencies[r.Chapter] = r
	return nil
}

func (c *Client) GetDependencies(ctx context.Context, chapter int) (*store.DependencyRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.dependencies[chapter]; ok {
		out := r
		return &out, nil
	}
	return nil, nil
}

func (c *Client) ListDependencies(ctx context.Context) ([]store.DependencyRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.DependencyRecord, 0, len(c.dependencies))
	for _, r := range c.dependencies {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chapter < out[j].Chapter })
	return out, nil
}

func (c *Client) DeleteDependencies(ctx context.Context, chapter int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dependencies, chapter)
	return nil
}

func (c *Client) MarkInvalidated(ctx context.Context, chapter int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.invalidated[chapter]; exists {
		return nil
	}
	c.invalidated[chapter] = store.Invalidation{Chapter: chapter, Reason: reason, CreatedAt: time.Now().UTC()}
	return nil
}

func (c *Client) ClearInvalidation(ctx context.Context, chapter int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.invalidated, chapter)
	return nil
}

func (c *Client) ListInvalidations(ctx context.Context) ([]store.Invalidation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.Invalidation, 0, len(c.invalidated))
	for _, inv := range c.invalidated {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chapter < out[j].Chapter })
	return out, nil
}

func (c *Client) IsInvalidated(ctx context.Context, chapter int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.invalidated[chapter]
	return ok, nil
}

// Inferences.

func (c *Client) UpsertInference(ctx context.Context, inf store.Inference) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, existing := range c.inferences {
		if existing.Claim == inf.Claim && existing.Chapter == inf.Chapter {
			if inf.Confidence > existing.Confidence {
				existing.Confidence = inf.Confidence
				c.inferences[id] = existing
			}
			return nil
		}
	}
	c.inferences[inf.ID] = inf
	return nil
}

func (c *Client) GetInference(ctx context.Context, id string) (*store.Inference, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inf, ok := c.inferences[id]; ok {
		return &inf, nil
	}
	return nil, nil
}

func (c *Client) ListInferences(ctx context.Context, status store.InferenceStatus) ([]store.Inference, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []store.Inference
	for _, inf := range c.inferences {
		if status != "" && inf.Status != status {
			continue
		}
		out = append(out, inf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Chapter != out[j].Chapter {
			return out[i].Chapter < out[j].Chapter
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Client) SetInferenceStatus(ctx context.Context, id string, status store.InferenceStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inf, ok := c.inferences[id]; ok {
		inf.Status = status
		c.inferences[id] = inf
	}
	return nil
}

func cloneConcept(c store.Concept) store.Concept {
	out := c
	out.Aliases = append([]string(nil), c.Aliases...)
	return out
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
