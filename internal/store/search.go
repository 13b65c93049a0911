package store

import (
	"context"
	"fmt"

	"ai-tutor-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
)

type scoredDocument struct {
	models.ResourceDocument `bson:",inline"`
	Score                   float64 `bson:"score"`
}

// vectorSearchPipeline is the aggregation run for a semantic query: an ANN
// stage over the embedding field followed by hydration of business fields.
func vectorSearchPipeline(vec []float32, limit int, index string) mongo.Pipeline {
	project := bson.M{"score": bson.M{"$meta": "vectorSearchScore"}}
	for field, v := range models.ResourceProjection {
		project[field] = v
	}

	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: index},
			{Key: "path", Value: "embedding"},
			{Key: "queryVector", Value: vec},
			{Key: "numCandidates", Value: limit * 10},
			{Key: "limit", Value: limit},
		}}},
		{{Key: "$project", Value: project}},
	}
}

// ClampLimit validates a requested result count and caps it at max.
func ClampLimit(limit, max int) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if max > 0 && limit > max {
		return max, nil
	}
	return limit, nil
}

func (r *resourceStore) Search(ctx context.Context, query string, limit int) ([]models.Resource, error) {
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

// SearchScored returns at most limit resources, most similar first, with the
// index's similarity score.
func (r *resourceStore) SearchScored(ctx context.Context, query string, limit int) ([]models.ScoredResource, error) {
	limit, err := ClampLimit(limit, r.s.maxSearchLimit)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "store.resources.search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("search.limit", limit),
		attribute.Int("search.query_length", len(query)),
	)

	vec, err := r.s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embed query: %w", err)
	}

	cursor, err := r.coll.Aggregate(ctx, vectorSearchPipeline(vec, limit, r.s.indexName))
	r.s.record("vector_search", ResourcesCollection, err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []scoredDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}

	out := make([]models.ScoredResource, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ScoredResource{
			Resource: models.ResourceFromDocument(d.ResourceDocument),
			Score:    d.Score,
		})
	}
	span.SetAttributes(attribute.Int("search.results", len(out)))
	r.s.metrics.RecordSearch(len(out))
	return out, nil
}
