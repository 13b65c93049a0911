package store

import (
	"context"
	"fmt"
	"time"

	"ai-tutor-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type roadmapStore struct {
	s    *Store
	coll *mongo.Collection
}

func (r *roadmapStore) Create(ctx context.Context, roadmap models.Roadmap) (string, error) {
	doc := roadmap.ToDocument()
	doc.ID = primitive.NewObjectID()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Steps == nil {
		doc.Steps = []models.RoadmapStep{}
	}

	_, err := r.coll.InsertOne(ctx, doc)
	r.s.record("insert", RoadmapsCollection, err)
	if err != nil {
		return "", fmt.Errorf("insert roadmap: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (r *roadmapStore) Update(ctx context.Context, id string, roadmap models.Roadmap) (bool, error) {
	ok, err := updateFields(ctx, r.coll, id, roadmap.ToDocument().UpdateFields())
	r.s.record("update", RoadmapsCollection, err)
	return ok, err
}

func (r *roadmapStore) GetByID(ctx context.Context, id string) (*models.Roadmap, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *roadmapStore) GetByTitle(ctx context.Context, title string) (*models.Roadmap, error) {
	return r.findOne(ctx, bson.M{"title": title})
}

func (r *roadmapStore) List(ctx context.Context) ([]models.Roadmap, error) {
	docs, err := findAll[models.RoadmapDocument](ctx, r.coll)
	r.s.record("find", RoadmapsCollection, err)
	if err != nil {
		return nil, err
	}
	out := make([]models.Roadmap, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.RoadmapFromDocument(d))
	}
	return out, nil
}

func (r *roadmapStore) findOne(ctx context.Context, filter bson.M) (*models.Roadmap, error) {
	doc, err := findOne[models.RoadmapDocument](ctx, r.coll, filter)
	r.s.record("find_one", RoadmapsCollection, err)
	if err != nil || doc == nil {
		return nil, err
	}
	roadmap := models.RoadmapFromDocument(*doc)
	return &roadmap, nil
}
