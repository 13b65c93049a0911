// Package memstore is an in-process implementation of the document store. It
// ranks resources by exact cosine similarity and is used for local development
// and as the reference ranker in tests.
package memstore

import (
	"context"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"ai-tutor-backend/internal/ai"
	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	embedder       ai.Embedder
	maxSearchLimit int

	mu        sync.RWMutex
	roadmaps  *collection[models.RoadmapDocument]
	quizzes   *collection[models.QuizDocument]
	resources *collection[models.ResourceDocument]
}

func New(emb ai.Embedder, maxSearchLimit int) *Store {
	if maxSearchLimit <= 0 {
		maxSearchLimit = store.DefaultMaxSearchLimit
	}
	return &Store{
		embedder:       emb,
		maxSearchLimit: maxSearchLimit,
		roadmaps:       newCollection(cloneRoadmap),
		quizzes:        newCollection(cloneQuiz),
		resources:      newCollection(cloneResource),
	}
}

func (s *Store) Roadmaps() store.RoadmapRepository   { return roadmapRepo{s} }
func (s *Store) Quizzes() store.QuizRepository       { return quizRepo{s} }
func (s *Store) Resources() store.ResourceRepository { return resourceRepo{s} }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// collection keeps documents in insertion order, which stands in for the
// database's natural order. Documents are copied on the way in and out so
// callers never share slices with the stored state.
type collection[D any] struct {
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]D
	clone func(D) D
}

func newCollection[D any](clone func(D) D) *collection[D] {
	return &collection[D]{docs: map[primitive.ObjectID]D{}, clone: clone}
}

func (c *collection[D]) insert(id primitive.ObjectID, d D) {
	c.order = append(c.order, id)
	c.docs[id] = c.clone(d)
}

func (c *collection[D]) get(id primitive.ObjectID) (D, bool) {
	d, ok := c.docs[id]
	if !ok {
		return d, false
	}
	return c.clone(d), true
}

// put replaces an existing document.
func (c *collection[D]) put(id primitive.ObjectID, d D) {
	c.docs[id] = c.clone(d)
}

func (c *collection[D]) all() []D {
	out := make([]D, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.clone(c.docs[id]))
	}
	return out
}

func (c *collection[D]) find(match func(D) bool) (D, bool) {
	for _, id := range c.order {
		if d := c.docs[id]; match(d) {
			return c.clone(d), true
		}
	}
	var zero D
	return zero, false
}

func cloneRoadmap(d models.RoadmapDocument) models.RoadmapDocument {
	if d.Steps != nil {
		steps := make([]models.RoadmapStep, len(d.Steps))
		for i, st := range d.Steps {
			st.ResourceSlugs = slices.Clone(st.ResourceSlugs)
			steps[i] = st
		}
		d.Steps = steps
	}
	return d
}

func cloneQuiz(d models.QuizDocument) models.QuizDocument {
	if d.Questions != nil {
		qs := make([]models.QuizQuestion, len(d.Questions))
		for i, q := range d.Questions {
			q.Options = slices.Clone(q.Options)
			qs[i] = q
		}
		d.Questions = qs
	}
	return d
}

func cloneResource(d models.ResourceDocument) models.ResourceDocument {
	d.Embedding = slices.Clone(d.Embedding)
	return d
}

func newIdentity(createdAt time.Time) (primitive.ObjectID, time.Time) {
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	// Mongo stores millisecond precision
	return primitive.NewObjectID(), createdAt.Truncate(time.Millisecond)
}

// cosineScore matches the vectorSearchScore scale for cosine similarity,
// (1 + cos) / 2, so scores from both backends are comparable.
func cosineScore(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0.5
	}
	return (1 + dot/(math.Sqrt(na)*math.Sqrt(nb))) / 2
}

func sortQuizzes(docs []models.QuizDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}
