package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/models"

	"go.mongodb.org/mongo-driver/bson"
)

// changed compares the business fields an update would write against the
// stored ones; a no-op update reports false like ModifiedCount does.
func changed(before, after bson.M) bool {
	return !reflect.DeepEqual(before, after)
}

type roadmapRepo struct{ s *Store }

func (r roadmapRepo) Create(ctx context.Context, roadmap models.Roadmap) (string, error) {
	doc := roadmap.ToDocument()
	doc.ID, doc.CreatedAt = newIdentity(doc.CreatedAt)
	if doc.Steps == nil {
		doc.Steps = []models.RoadmapStep{}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.roadmaps.insert(doc.ID, doc)
	return doc.ID.Hex(), nil
}

func (r roadmapRepo) Update(ctx context.Context, id string, roadmap models.Roadmap) (bool, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.roadmaps.get(oid)
	if !ok {
		return false, nil
	}
	next := roadmap.ToDocument()
	if !changed(cur.UpdateFields(), next.UpdateFields()) {
		return false, nil
	}
	next.ID, next.CreatedAt = cur.ID, cur.CreatedAt
	if next.Steps == nil {
		next.Steps = []models.RoadmapStep{}
	}
	r.s.roadmaps.put(oid, next)
	return true, nil
}

func (r roadmapRepo) GetByID(ctx context.Context, id string) (*models.Roadmap, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	doc, ok := r.s.roadmaps.get(oid)
	if !ok {
		return nil, nil
	}
	out := models.RoadmapFromDocument(doc)
	return &out, nil
}

func (r roadmapRepo) GetByTitle(ctx context.Context, title string) (*models.Roadmap, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	doc, ok := r.s.roadmaps.find(func(d models.RoadmapDocument) bool { return d.Title == title })
	if !ok {
		return nil, nil
	}
	out := models.RoadmapFromDocument(doc)
	return &out, nil
}

func (r roadmapRepo) List(ctx context.Context) ([]models.Roadmap, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	docs := r.s.roadmaps.all()
	out := make([]models.Roadmap, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.RoadmapFromDocument(d))
	}
	return out, nil
}

type quizRepo struct{ s *Store }

func (q quizRepo) Create(ctx context.Context, quiz models.Quiz) (string, error) {
	doc := quiz.ToDocument()
	doc.ID, doc.CreatedAt = newIdentity(doc.CreatedAt)
	if doc.Questions == nil {
		doc.Questions = []models.QuizQuestion{}
	}

	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	q.s.quizzes.insert(doc.ID, doc)
	return doc.ID.Hex(), nil
}

func (q quizRepo) Update(ctx context.Context, id string, quiz models.Quiz) (bool, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return false, err
	}
	q.s.mu.Lock()
	defer q.s.mu.Unlock()

	cur, ok := q.s.quizzes.get(oid)
	if !ok {
		return false, nil
	}
	next := quiz.ToDocument()
	if !changed(cur.UpdateFields(), next.UpdateFields()) {
		return false, nil
	}
	next.ID, next.CreatedAt = cur.ID, cur.CreatedAt
	if next.Questions == nil {
		next.Questions = []models.QuizQuestion{}
	}
	q.s.quizzes.put(oid, next)
	return true, nil
}

func (q quizRepo) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()
	doc, ok := q.s.quizzes.get(oid)
	if !ok {
		return nil, nil
	}
	out := models.QuizFromDocument(doc)
	return &out, nil
}

func (q quizRepo) GetBySlug(ctx context.Context, slug string) (*models.Quiz, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()
	doc, ok := q.s.quizzes.find(func(d models.QuizDocument) bool { return d.Slug == slug })
	if !ok {
		return nil, nil
	}
	out := models.QuizFromDocument(doc)
	return &out, nil
}

func (q quizRepo) List(ctx context.Context) ([]models.Quiz, error) {
	q.s.mu.RLock()
	docs := q.s.quizzes.all()
	q.s.mu.RUnlock()

	sortQuizzes(docs)
	out := make([]models.Quiz, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.QuizFromDocument(d))
	}
	return out, nil
}

type resourceRepo struct{ s *Store }

func (r resourceRepo) Create(ctx context.Context, res models.Resource) (string, error) {
	doc := res.ToDocument()
	doc.ID, doc.CreatedAt = newIdentity(doc.CreatedAt)
	doc.Embedding = nil
	if text, ok := res.EmbeddingText(); ok {
		vec, err := r.s.embedder.Embed(ctx, text)
		if err != nil {
			return "", fmt.Errorf("embed resource %q: %w", res.Slug, err)
		}
		doc.Embedding = vec
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.resources.insert(doc.ID, doc)
	return doc.ID.Hex(), nil
}

func (r resourceRepo) Update(ctx context.Context, id string, res models.Resource) (bool, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.resources.get(oid)
	if !ok {
		return false, nil
	}
	next := res.ToDocument()
	if !changed(cur.UpdateFields(), next.UpdateFields()) {
		return false, nil
	}
	next.ID, next.CreatedAt, next.Embedding = cur.ID, cur.CreatedAt, cur.Embedding
	r.s.resources.put(oid, next)
	return true, nil
}

func (r resourceRepo) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	doc, ok := r.s.resources.get(oid)
	if !ok {
		return nil, nil
	}
	out := models.ResourceFromDocument(doc)
	return &out, nil
}

func (r resourceRepo) GetBySlug(ctx context.Context, slug string) (*models.Resource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	doc, ok := r.s.resources.find(func(d models.ResourceDocument) bool { return d.Slug == slug })
	if !ok {
		return nil, nil
	}
	out := models.ResourceFromDocument(doc)
	return &out, nil
}

func (r resourceRepo) List(ctx context.Context) ([]models.Resource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	docs := r.s.resources.all()
	out := make([]models.Resource, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ResourceFromDocument(d))
	}
	return out, nil
}

func (r resourceRepo) Search(ctx context.Context, query string, limit int) ([]models.Resource, error) {
	scored, err := r.SearchScored(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Resource, 0, len(scored))
	for _, sr := range scored {
		out = append(out, sr.Resource)
	}
	return out, nil
}

// SearchScored ranks every embedded resource by exact cosine similarity.
// Search hits carry no embedding, matching the database projection.
func (r resourceRepo) SearchScored(ctx context.Context, query string, limit int) ([]models.ScoredResource, error) {
	limit, err := store.ClampLimit(limit, r.s.maxSearchLimit)
	if err != nil {
		return nil, err
	}
	vec, err := r.s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	r.s.mu.RLock()
	docs := r.s.resources.all()
	r.s.mu.RUnlock()

	hits := make([]models.ScoredResource, 0, len(docs))
	for _, d := range docs {
		if d.Embedding == nil {
			continue
		}
		score := cosineScore(vec, d.Embedding)
		d.Embedding = nil
		hits = append(hits, models.ScoredResource{Resource: models.ResourceFromDocument(d), Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (r resourceRepo) Reembed(ctx context.Context, opts store.ReembedOptions) (store.ReembedReport, error) {
	var report store.ReembedReport

	r.s.mu.RLock()
	docs := r.s.resources.all()
	r.s.mu.RUnlock()

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if opts.OnlyMissing && d.Embedding != nil {
			continue
		}
		report.Scanned++
		embedded, err := r.reembed(ctx, d)
		switch {
		case err != nil:
			report.Failed++
		case embedded:
			report.Embedded++
		default:
			report.Cleared++
		}
	}
	if report.Failed > 0 {
		return report, fmt.Errorf("%w: %d of %d failed", store.ErrReembedIncomplete, report.Failed, report.Scanned)
	}
	return report, nil
}

func (r resourceRepo) ReembedOne(ctx context.Context, id string) (bool, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return false, err
	}
	r.s.mu.RLock()
	doc, ok := r.s.resources.get(oid)
	r.s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if _, err := r.reembed(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

func (r resourceRepo) reembed(ctx context.Context, doc models.ResourceDocument) (bool, error) {
	var vec []float32
	if text, ok := models.ResourceFromDocument(doc).EmbeddingText(); ok {
		var err error
		if vec, err = r.s.embedder.Embed(ctx, text); err != nil {
			return false, err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cur, ok := r.s.resources.get(doc.ID); ok {
		cur.Embedding = vec
		r.s.resources.put(doc.ID, cur)
	}
	return vec != nil, nil
}
