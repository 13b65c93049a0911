package store

import (
	"context"
	"fmt"
	"time"

	"ai-tutor-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type quizStore struct {
	s    *Store
	coll *mongo.Collection
}

// quizListOptions orders quizzes newest first.
func quizListOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
}

func (q *quizStore) Create(ctx context.Context, quiz models.Quiz) (string, error) {
	doc := quiz.ToDocument()
	doc.ID = primitive.NewObjectID()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Questions == nil {
		doc.Questions = []models.QuizQuestion{}
	}

	_, err := q.coll.InsertOne(ctx, doc)
	q.s.record("insert", QuizzesCollection, err)
	if err != nil {
		return "", fmt.Errorf("insert quiz: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (q *quizStore) Update(ctx context.Context, id string, quiz models.Quiz) (bool, error) {
	ok, err := updateFields(ctx, q.coll, id, quiz.ToDocument().UpdateFields())
	q.s.record("update", QuizzesCollection, err)
	return ok, err
}

func (q *quizStore) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return q.findOne(ctx, bson.M{"_id": oid})
}

func (q *quizStore) GetBySlug(ctx context.Context, slug string) (*models.Quiz, error) {
	return q.findOne(ctx, bson.M{"slug": slug})
}

func (q *quizStore) List(ctx context.Context) ([]models.Quiz, error) {
	docs, err := findAll[models.QuizDocument](ctx, q.coll, quizListOptions())
	q.s.record("find", QuizzesCollection, err)
	if err != nil {
		return nil, err
	}
	out := make([]models.Quiz, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.QuizFromDocument(d))
	}
	return out, nil
}

func (q *quizStore) findOne(ctx context.Context, filter bson.M) (*models.Quiz, error) {
	doc, err := findOne[models.QuizDocument](ctx, q.coll, filter)
	q.s.record("find_one", QuizzesCollection, err)
	if err != nil || doc == nil {
		return nil, err
	}
	quiz := models.QuizFromDocument(*doc)
	return &quiz, nil
}
