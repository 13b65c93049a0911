package store

import (
	"context"
	"fmt"
	"time"

	"ai-tutor-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("store")

type resourceStore struct {
	s    *Store
	coll *mongo.Collection
}

// prepareResource builds the document to insert: a fresh ObjectID, created_at
// defaulted, and the embedding attached when name and description are both set.
func (r *resourceStore) prepareResource(ctx context.Context, res models.Resource) (models.ResourceDocument, error) {
	doc := res.ToDocument()
	doc.ID = primitive.NewObjectID()
	doc.Embedding = nil
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if text, ok := res.EmbeddingText(); ok {
		vec, err := r.s.embedder.Embed(ctx, text)
		if err != nil {
			return doc, fmt.Errorf("embed resource %q: %w", res.Slug, err)
		}
		doc.Embedding = vec
	}
	return doc, nil
}

func (r *resourceStore) Create(ctx context.Context, res models.Resource) (string, error) {
	ctx, span := tracer.Start(ctx, "store.resources.create")
	defer span.End()

	doc, err := r.prepareResource(ctx, res)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.Bool("resource.embedded", doc.Embedding != nil))

	_, err = r.coll.InsertOne(ctx, doc)
	r.s.record("insert", ResourcesCollection, err)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("insert resource: %w", err)
	}
	return doc.ID.Hex(), nil
}

// Update replaces business fields only. The stored embedding is left as is,
// even when name or description change; Reembed brings it back in line.
func (r *resourceStore) Update(ctx context.Context, id string, res models.Resource) (bool, error) {
	ok, err := updateFields(ctx, r.coll, id, res.ToDocument().UpdateFields())
	r.s.record("update", ResourcesCollection, err)
	return ok, err
}

func (r *resourceStore) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *resourceStore) GetBySlug(ctx context.Context, slug string) (*models.Resource, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *resourceStore) List(ctx context.Context) ([]models.Resource, error) {
	docs, err := findAll[models.ResourceDocument](ctx, r.coll)
	r.s.record("find", ResourcesCollection, err)
	if err != nil {
		return nil, err
	}
	out := make([]models.Resource, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ResourceFromDocument(d))
	}
	return out, nil
}

func (r *resourceStore) findOne(ctx context.Context, filter bson.M) (*models.Resource, error) {
	doc, err := findOne[models.ResourceDocument](ctx, r.coll, filter)
	r.s.record("find_one", ResourcesCollection, err)
	if err != nil || doc == nil {
		return nil, err
	}
	res := models.ResourceFromDocument(*doc)
	return &res, nil
}
