package memstore

import (
	"context"
	"testing"
	"time"

	"ai-tutor-backend/internal/ai"
	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dim = 4

var _ store.Repositories = (*Store)(nil)

func seededEmbedder() *ai.StaticEmbedder {
	return ai.NewStaticEmbedder(dim, map[string][]float32{
		"Graphs\n\nBFS and DFS":           ai.UnitVector(dim, 0),
		"Trees\n\nBinary search trees":    ai.UnitVector(dim, 1),
		"Sorting\n\nQuicksort, mergesort": ai.UnitVector(dim, 2),
		"graph traversal":                 {0.9, 0.1, 0, 0},
		"tree or graph":                   {0.6, 0.8, 0, 0},
	})
}

func seedResources(t *testing.T, s *Store) map[string]string {
	t.Helper()
	ids := map[string]string{}
	for _, r := range []models.Resource{
		{Name: "Graphs", Description: "BFS and DFS", Slug: "graphs"},
		{Name: "Trees", Description: "Binary search trees", Slug: "trees"},
		{Name: "Sorting", Description: "Quicksort, mergesort", Slug: "sorting"},
		{Name: "Untitled", Slug: "no-description"},
	} {
		id, err := s.Resources().Create(context.Background(), r)
		require.NoError(t, err)
		ids[r.Slug] = id
	}
	return ids
}

func TestResources_CreateGetRoundTrip(t *testing.T) {
	s := New(seededEmbedder(), 0)
	ids := seedResources(t, s)

	got, err := s.Resources().GetByID(context.Background(), ids["graphs"])
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ids["graphs"], got.MongoID)
	assert.Equal(t, "BFS and DFS", got.Description)
	assert.Len(t, got.Embedding, dim)

	bare, err := s.Resources().GetBySlug(context.Background(), "no-description")
	require.NoError(t, err)
	require.NotNil(t, bare)
	assert.Nil(t, bare.Embedding)

	missing, err := s.Resources().GetBySlug(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	s := New(seededEmbedder(), 0)
	seedResources(t, s)
	ctx := context.Background()

	hits, err := s.Resources().SearchScored(ctx, "graph traversal", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "graphs", hits[0].Resource.Slug)
	assert.Equal(t, "trees", hits[1].Resource.Slug)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Nil(t, hits[0].Resource.Embedding)

	plain, err := s.Resources().Search(ctx, "tree or graph", 10)
	require.NoError(t, err)
	require.Len(t, plain, 3, "only embedded resources are searchable")
	assert.Equal(t, []string{"trees", "graphs", "sorting"}, []string{plain[0].Slug, plain[1].Slug, plain[2].Slug})

	_, err = s.Resources().Search(ctx, "x", 0)
	assert.ErrorIs(t, err, store.ErrInvalidLimit)
}

func TestSearch_CapsLimit(t *testing.T) {
	s := New(seededEmbedder(), 1)
	seedResources(t, s)

	hits, err := s.Resources().Search(context.Background(), "graph traversal", 50)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestUpdate(t *testing.T) {
	s := New(seededEmbedder(), 0)
	ids := seedResources(t, s)
	ctx := context.Background()

	before, err := s.Resources().GetByID(ctx, ids["graphs"])
	require.NoError(t, err)

	ok, err := s.Resources().Update(ctx, ids["graphs"], models.Resource{Name: "Graphs", Description: "Shortest paths", Slug: "graphs"})
	require.NoError(t, err)
	assert.True(t, ok)

	after, err := s.Resources().GetByID(ctx, ids["graphs"])
	require.NoError(t, err)
	assert.Equal(t, "Shortest paths", after.Description)
	assert.Equal(t, before.Embedding, after.Embedding, "update keeps the stored embedding")
	assert.Equal(t, before.CreatedAt, after.CreatedAt)

	ok, err = s.Resources().Update(ctx, ids["graphs"], models.Resource{Name: "Graphs", Description: "Shortest paths", Slug: "graphs"})
	require.NoError(t, err)
	assert.False(t, ok, "no-op update modifies nothing")

	ok, err = s.Roadmaps().Update(ctx, "0123456789abcdef01234567", models.Roadmap{Title: "x"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Quizzes().Update(ctx, "bad", models.Quiz{Slug: "x"})
	assert.ErrorIs(t, err, store.ErrInvalidID)
}

func TestQuizzes_ListNewestFirst(t *testing.T) {
	s := New(seededEmbedder(), 0)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, slug := range []string{"first", "third", "second"} {
		offset := map[string]int{"first": 0, "second": 1, "third": 2}[slug]
		_, err := s.Quizzes().Create(ctx, models.Quiz{Slug: slug, CreatedAt: base.Add(time.Duration(offset) * time.Hour)})
		require.NoError(t, err, i)
	}

	quizzes, err := s.Quizzes().List(ctx)
	require.NoError(t, err)
	require.Len(t, quizzes, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{quizzes[0].Slug, quizzes[1].Slug, quizzes[2].Slug})

	q, err := s.Quizzes().GetBySlug(ctx, "second")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.NotNil(t, q.Questions)
}

func TestRoadmaps_GetByTitle(t *testing.T) {
	s := New(seededEmbedder(), 0)
	ctx := context.Background()

	id, err := s.Roadmaps().Create(ctx, models.Roadmap{Title: "Algorithms", Steps: []models.RoadmapStep{{Title: "Graphs", ResourceSlugs: []string{"graphs"}}}})
	require.NoError(t, err)

	got, err := s.Roadmaps().GetByTitle(ctx, "Algorithms")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.MongoID)
	assert.Equal(t, []string{"graphs"}, got.Steps[0].ResourceSlugs)

	all, err := s.Roadmaps().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReembed(t *testing.T) {
	emb := seededEmbedder()
	s := New(emb, 0)
	ids := seedResources(t, s)
	ctx := context.Background()

	report, err := s.Resources().Reembed(ctx, store.ReembedOptions{OnlyMissing: true})
	require.NoError(t, err)
	assert.Equal(t, store.ReembedReport{Scanned: 1, Cleared: 1}, report)

	report, err = s.Resources().Reembed(ctx, store.ReembedOptions{})
	require.NoError(t, err)
	assert.Equal(t, store.ReembedReport{Scanned: 4, Embedded: 3, Cleared: 1}, report)

	ok, err := s.Resources().ReembedOne(ctx, ids["trees"])
	require.NoError(t, err)
	assert.True(t, ok)

	emb.Strict = true
	_, err = s.Resources().Update(ctx, ids["trees"], models.Resource{Name: "Trees", Description: "AVL", Slug: "trees"})
	require.NoError(t, err)
	_, err = s.Resources().ReembedOne(ctx, ids["trees"])
	assert.Error(t, err)
}

func TestStoredSlicesAreNotShared(t *testing.T) {
	s := New(seededEmbedder(), 0)
	ctx := context.Background()

	ids := seedResources(t, s)
	got, err := s.Resources().GetByID(ctx, ids["graphs"])
	require.NoError(t, err)
	require.Len(t, got.Embedding, dim)
	got.Embedding[0] = -1

	again, err := s.Resources().GetByID(ctx, ids["graphs"])
	require.NoError(t, err)
	assert.Equal(t, ai.UnitVector(dim, 0), again.Embedding)

	steps := []models.RoadmapStep{{Title: "Start", ResourceSlugs: []string{"graphs"}}}
	roadmapID, err := s.Roadmaps().Create(ctx, models.Roadmap{Title: "Algorithms", Steps: steps})
	require.NoError(t, err)
	steps[0].Title = "changed by caller"
	steps[0].ResourceSlugs[0] = "changed"

	listed, err := s.Roadmaps().List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed[0].Steps[0].ResourceSlugs[0] = "changed after read"

	roadmap, err := s.Roadmaps().GetByID(ctx, roadmapID)
	require.NoError(t, err)
	assert.Equal(t, "Start", roadmap.Steps[0].Title)
	assert.Equal(t, []string{"graphs"}, roadmap.Steps[0].ResourceSlugs)

	questions := []models.QuizQuestion{{Prompt: "2+2?", Options: []string{"3", "4"}, AnswerIndex: 1}}
	_, err = s.Quizzes().Create(ctx, models.Quiz{Slug: "math", Questions: questions})
	require.NoError(t, err)
	questions[0].Options[1] = "5"

	quiz, err := s.Quizzes().GetBySlug(ctx, "math")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, quiz.Questions[0].Options)
}
