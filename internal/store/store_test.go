package store

import (
	"context"
	"testing"
	"time"

	"ai-tutor-backend/internal/ai"
	"ai-tutor-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const testDim = 4

func mockStore(mt *mtest.T, emb ai.Embedder, opts ...Option) *Store {
	if emb == nil {
		emb = ai.NewStaticEmbedder(testDim, nil)
	}
	return New(mt.DB, emb, opts...)
}

func TestParseID(t *testing.T) {
	oid := primitive.NewObjectID()

	got, err := ParseID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	for _, bad := range []string{"", "abc", "zzzzzzzzzzzzzzzzzzzzzzzz", oid.Hex() + "0"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrInvalidID, bad)
	}
}

func TestInvalidIDRejectedBeforeDatabase(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("all kinds", func(mt *mtest.T) {
		s := mockStore(mt, nil)
		ctx := context.Background()

		_, err := s.Roadmaps().GetByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, ErrInvalidID)
		_, err = s.Quizzes().Update(ctx, "not-an-id", models.Quiz{Slug: "q"})
		assert.ErrorIs(t, err, ErrInvalidID)
		_, err = s.Resources().GetByID(ctx, "123")
		assert.ErrorIs(t, err, ErrInvalidID)
		_, err = s.Resources().ReembedOne(ctx, "123")
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestRoadmaps_CreateThenGet(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("round trip", func(mt *mtest.T) {
		s := mockStore(mt, nil)
		ctx := context.Background()
		created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		id, err := s.Roadmaps().Create(ctx, models.Roadmap{
			MongoID:   "ignored",
			Title:     "Backend Basics",
			Topic:     "go",
			CreatedAt: created,
		})
		require.NoError(t, err)
		oid, err := ParseID(id)
		require.NoError(t, err)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ai_tutor_db.roadmaps", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "title", Value: "Backend Basics"},
			{Key: "topic", Value: "go"},
			{Key: "steps", Value: bson.A{
				bson.D{{Key: "title", Value: "HTTP"}, {Key: "resource_slugs", Value: bson.A{"http-intro"}}},
			}},
			{Key: "created_at", Value: created},
		}))
		got, err := s.Roadmaps().GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, id, got.MongoID)
		assert.Equal(t, "Backend Basics", got.Title)
		assert.Equal(t, created, got.CreatedAt)
		require.Len(t, got.Steps, 1)
		assert.Equal(t, []string{"http-intro"}, got.Steps[0].ResourceSlugs)
	})

	mt.Run("absent title", func(mt *mtest.T) {
		s := mockStore(mt, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ai_tutor_db.roadmaps", mtest.FirstBatch))

		got, err := s.Roadmaps().GetByTitle(context.Background(), "Nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestUpdate_UnknownIDReportsFalse(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no match", func(mt *mtest.T) {
		s := mockStore(mt, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		ok, err := s.Quizzes().Update(context.Background(), primitive.NewObjectID().Hex(), models.Quiz{Slug: "q1"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	mt.Run("modified", func(mt *mtest.T) {
		s := mockStore(mt, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		ok, err := s.Resources().Update(context.Background(), primitive.NewObjectID().Hex(), models.Resource{Slug: "r1"})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	mt.Run("server error", func(mt *mtest.T) {
		s := mockStore(mt, nil)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11600, Name: "InterruptedAtShutdown", Message: "shutting down",
		}))

		_, err := s.Roadmaps().Update(context.Background(), primitive.NewObjectID().Hex(), models.Roadmap{Title: "t"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidID)
	})
}

func TestUpdateFieldsNeverTouchDerivedFields(t *testing.T) {
	fields := models.Resource{
		Name: "n", Description: "d", Slug: "s",
		Embedding: []float32{1}, CreatedAt: time.Now(),
	}.ToDocument().UpdateFields()

	assert.NotContains(t, fields, "embedding")
	assert.NotContains(t, fields, "created_at")
	assert.NotContains(t, fields, "_id")
	assert.Equal(t, "s", fields["slug"])
}

func TestQuizzes_ListNewestFirst(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "created_at", Value: -1}}, quizListOptions().Sort)

	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("preserves server order", func(mt *mtest.T) {
		s := mockStore(mt, nil)
		newer := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
		older := newer.Add(-24 * time.Hour)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ai_tutor_db.quizzes", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "slug", Value: "b"}, {Key: "created_at", Value: newer}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "slug", Value: "a"}, {Key: "created_at", Value: older}},
		))

		quizzes, err := s.Quizzes().List(context.Background())
		require.NoError(t, err)
		require.Len(t, quizzes, 2)
		for i := 1; i < len(quizzes); i++ {
			assert.False(t, quizzes[i].CreatedAt.After(quizzes[i-1].CreatedAt))
		}
	})

	mt.Run("empty collection", func(mt *mtest.T) {
		s := mockStore(mt, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ai_tutor_db.quizzes", mtest.FirstBatch))

		quizzes, err := s.Quizzes().List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, quizzes)
		assert.Empty(t, quizzes)
	})
}

func TestResources_PrepareAttachesEmbedding(t *testing.T) {
	emb := ai.NewStaticEmbedder(testDim, map[string][]float32{
		"Go Concurrency\n\nGoroutines and channels": ai.UnitVector(testDim, 2),
	})
	rs := &resourceStore{s: &Store{embedder: emb}}

	doc, err := rs.prepareResource(context.Background(), models.Resource{
		Name:        "Go Concurrency",
		Description: "Goroutines and channels",
		Slug:        "go-concurrency",
		Embedding:   []float32{9, 9},
	})
	require.NoError(t, err)
	assert.Len(t, doc.Embedding, testDim)
	assert.Equal(t, ai.UnitVector(testDim, 2), doc.Embedding)
	assert.False(t, doc.ID.IsZero())
	assert.False(t, doc.CreatedAt.IsZero())

	doc, err = rs.prepareResource(context.Background(), models.Resource{Name: "Only a name", Slug: "x", Embedding: []float32{1}})
	require.NoError(t, err)
	assert.Nil(t, doc.Embedding, "client-supplied embeddings are discarded")
	assert.Len(t, emb.Calls(), 1)
}

func TestResources_CreateFailsWhenEmbedderFails(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no insert", func(mt *mtest.T) {
		emb := ai.NewStaticEmbedder(testDim, nil)
		emb.Strict = true
		s := mockStore(mt, emb)

		_, err := s.Resources().Create(context.Background(), models.Resource{Name: "n", Description: "d", Slug: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embed resource")
	})
}

func TestResources_ReembedOne(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("absent", func(mt *mtest.T) {
		s := mockStore(mt, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ai_tutor_db.resources", mtest.FirstBatch))

		ok, err := s.Resources().ReembedOne(context.Background(), primitive.NewObjectID().Hex())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	mt.Run("refreshed", func(mt *mtest.T) {
		emb := ai.NewStaticEmbedder(testDim, nil)
		s := mockStore(mt, emb)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "ai_tutor_db.resources", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: oid},
				{Key: "name", Value: "Channels"},
				{Key: "description", Value: "CSP in Go"},
				{Key: "slug", Value: "channels"},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		ok, err := s.Resources().ReembedOne(context.Background(), oid.Hex())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"Channels\n\nCSP in Go"}, emb.Calls())
	})
}

func TestResources_Reembed(t *testing.T) {
	assert.Equal(t, bson.M{}, reembedFilter(ReembedOptions{}))
	assert.Equal(t, bson.M{"embedding": bson.M{"$exists": false}}, reembedFilter(ReembedOptions{OnlyMissing: true}))

	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("embeds and clears", func(mt *mtest.T) {
		s := mockStore(mt, nil, WithReembedWorkers(1))
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "ai_tutor_db.resources", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "A"}, {Key: "description", Value: "a"}},
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "B"}},
			),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		report, err := s.Resources().Reembed(context.Background(), ReembedOptions{})
		require.NoError(t, err)
		assert.Equal(t, ReembedReport{Scanned: 2, Embedded: 1, Cleared: 1}, report)
	})

	mt.Run("counts failures", func(mt *mtest.T) {
		emb := ai.NewStaticEmbedder(testDim, nil)
		emb.Strict = true
		s := mockStore(mt, emb, WithReembedWorkers(1))
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "ai_tutor_db.resources", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "A"}, {Key: "description", Value: "a"}},
			),
		)

		report, err := s.Resources().Reembed(context.Background(), ReembedOptions{OnlyMissing: true})
		assert.ErrorIs(t, err, ErrReembedIncomplete)
		assert.Equal(t, 1, report.Failed)
	})
}
