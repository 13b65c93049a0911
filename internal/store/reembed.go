package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ErrReembedIncomplete is returned alongside the report when some resources
// could not be re-embedded.
var ErrReembedIncomplete = errors.New("re-embedding incomplete")

func reembedFilter(opts ReembedOptions) bson.M {
	if opts.OnlyMissing {
		return bson.M{"embedding": bson.M{"$exists": false}}
	}
	return bson.M{}
}

// Reembed recomputes embeddings with a bounded worker group. Resources that are
// not eligible for an embedding have it removed. A failing record is logged and
// counted; the run carries on.
func (r *resourceStore) Reembed(ctx context.Context, opts ReembedOptions) (ReembedReport, error) {
	ctx, span := tracer.Start(ctx, "store.resources.reembed")
	defer span.End()

	var (
		report ReembedReport
		mu     sync.Mutex
	)

	cursor, err := r.coll.Find(ctx, reembedFilter(opts),
		options.Find().SetProjection(bson.M{"name": 1, "description": 1, "slug": 1}))
	if err != nil {
		return report, fmt.Errorf("scan resources: %w", err)
	}
	defer cursor.Close(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.s.reembedWorkers)

	for cursor.Next(gctx) {
		var doc models.ResourceDocument
		if err := cursor.Decode(&doc); err != nil {
			logger.Warn("Skipping undecodable resource", "error", err)
			continue
		}
		report.Scanned++

		g.Go(func() error {
			embedded, err := r.reembedDocument(gctx, doc)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				if gctx.Err() != nil {
					return gctx.Err()
				}
				report.Failed++
				logger.Error("Failed to re-embed resource", "id", doc.ID.Hex(), "slug", doc.Slug, "error", err)
			case embedded:
				report.Embedded++
			default:
				report.Cleared++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := cursor.Err(); err != nil {
		return report, fmt.Errorf("scan resources: %w", err)
	}

	span.SetAttributes(
		attribute.Int("reembed.scanned", report.Scanned),
		attribute.Int("reembed.failed", report.Failed),
	)
	logger.Info("Re-embedding finished",
		"only_missing", opts.OnlyMissing,
		"scanned", report.Scanned,
		"embedded", report.Embedded,
		"cleared", report.Cleared,
		"failed", report.Failed)

	if report.Failed > 0 {
		return report, fmt.Errorf("%w: %d of %d failed", ErrReembedIncomplete, report.Failed, report.Scanned)
	}
	return report, nil
}

// ReembedOne refreshes a single resource. It reports false when the id does
// not exist.
func (r *resourceStore) ReembedOne(ctx context.Context, id string) (bool, error) {
	oid, err := ParseID(id)
	if err != nil {
		return false, err
	}
	doc, err := findOne[models.ResourceDocument](ctx, r.coll, bson.M{"_id": oid})
	if err != nil || doc == nil {
		return false, err
	}
	if _, err := r.reembedDocument(ctx, *doc); err != nil {
		return false, err
	}
	return true, nil
}

// reembedDocument writes a fresh embedding, or unsets it when the resource is
// not eligible. It reports whether an embedding was written.
func (r *resourceStore) reembedDocument(ctx context.Context, doc models.ResourceDocument) (bool, error) {
	res := models.ResourceFromDocument(doc)
	text, ok := res.EmbeddingText()
	if !ok {
		return false, r.writeEmbedding(ctx, doc.ID, bson.M{"$unset": bson.M{"embedding": ""}})
	}

	vec, err := r.s.embedder.Embed(ctx, text)
	if err != nil {
		return false, err
	}
	return true, r.writeEmbedding(ctx, doc.ID, bson.M{"$set": bson.M{"embedding": vec}})
}

func (r *resourceStore) writeEmbedding(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	r.s.record("update_embedding", ResourcesCollection, err)
	if err != nil {
		return fmt.Errorf("write embedding for %s: %w", id.Hex(), err)
	}
	return nil
}
