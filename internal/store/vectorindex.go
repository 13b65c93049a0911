package store

import (
	"context"
	"fmt"
	"time"

	"ai-tutor-backend/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
)

// DropPolicy controls what Rebuild does when an existing search index cannot
// be listed or dropped.
type DropPolicy string

const (
	DropBestEffort DropPolicy = "best_effort"
	DropStrict     DropPolicy = "strict"
)

// IndexStatus describes the vector search index as reported by the server.
type IndexStatus struct {
	Name       string `json:"name"`
	Exists     bool   `json:"exists"`
	Status     string `json:"status,omitempty"`
	Queryable  bool   `json:"queryable"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type searchIndexInfo struct {
	Name             string `bson:"name"`
	Status           string `bson:"status"`
	Queryable        bool   `bson:"queryable"`
	LatestDefinition struct {
		Mappings struct {
			Fields map[string]struct {
				Type       string `bson:"type"`
				Dimensions int    `bson:"dimensions"`
				Similarity string `bson:"similarity"`
			} `bson:"fields"`
		} `bson:"mappings"`
	} `bson:"latestDefinition"`
}

// IndexManager owns the lifecycle of the vector search index on resources.
type IndexManager struct {
	coll         *mongo.Collection
	name         string
	dimensions   int
	policy       DropPolicy
	settleDelay  time.Duration
	pollInterval time.Duration
	readyTimeout time.Duration
}

type IndexOption func(*IndexManager)

func WithDropPolicy(p DropPolicy) IndexOption {
	return func(m *IndexManager) {
		if p != "" {
			m.policy = p
		}
	}
}

func WithSearchIndexName(name string) IndexOption {
	return func(m *IndexManager) {
		if name != "" {
			m.name = name
		}
	}
}

// WithTiming sets the pause between dropping and creating, the status poll
// interval and the bound on waiting for the index to become queryable.
func WithTiming(settle, poll, ready time.Duration) IndexOption {
	return func(m *IndexManager) {
		m.settleDelay = settle
		if poll > 0 {
			m.pollInterval = poll
		}
		if ready > 0 {
			m.readyTimeout = ready
		}
	}
}

func NewIndexManager(db *mongo.Database, dimensions int, opts ...IndexOption) *IndexManager {
	m := &IndexManager{
		coll:         db.Collection(ResourcesCollection),
		name:         DefaultIndexName,
		dimensions:   dimensions,
		policy:       DropBestEffort,
		settleDelay:  2 * time.Second,
		pollInterval: time.Second,
		readyTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Definition is the search mapping created by Rebuild.
func (m *IndexManager) Definition() bson.M {
	return bson.M{
		"mappings": bson.M{
			"dynamic": true,
			"fields": bson.M{
				"embedding": bson.M{
					"type":       "knnVector",
					"dimensions": m.dimensions,
					"similarity": "cosine",
				},
			},
		},
	}
}

// Rebuild drops every search index on resources, recreates the vector index
// and blocks until it is queryable.
func (m *IndexManager) Rebuild(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "vectorindex.rebuild")
	defer span.End()
	span.SetAttributes(
		attribute.String("index.name", m.name),
		attribute.Int("index.dimensions", m.dimensions),
		attribute.String("index.drop_policy", string(m.policy)),
	)

	if err := m.dropAll(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	if err := sleepCtx(ctx, m.settleDelay); err != nil {
		return err
	}

	model := mongo.SearchIndexModel{
		Definition: m.Definition(),
		Options:    options.SearchIndexes().SetName(m.name),
	}
	if _, err := m.coll.SearchIndexes().CreateOne(ctx, model); err != nil {
		span.RecordError(err)
		return fmt.Errorf("create search index %s: %w", m.name, err)
	}
	logger.Info("Vector index created, waiting until queryable", "index", m.name, "dimensions", m.dimensions)

	if err := m.waitQueryable(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	logger.Info("Vector index ready", "index", m.name)
	return nil
}

func (m *IndexManager) dropAll(ctx context.Context) error {
	indexes, err := m.list(ctx, "")
	if err != nil {
		if m.policy == DropStrict {
			return fmt.Errorf("%w: list: %w", ErrIndexDrop, err)
		}
		logger.Warn("Could not list search indexes, continuing", "error", err)
		return nil
	}

	for _, idx := range indexes {
		if err := m.coll.SearchIndexes().DropOne(ctx, idx.Name); err != nil {
			if m.policy == DropStrict {
				return fmt.Errorf("%w: %s: %w", ErrIndexDrop, idx.Name, err)
			}
			logger.Warn("Could not drop search index, continuing", "index", idx.Name, "error", err)
			continue
		}
		logger.Info("Dropped search index", "index", idx.Name)
	}
	return nil
}

func (m *IndexManager) waitQueryable(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, m.readyTimeout)
	defer cancel()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		status, err := m.Status(waitCtx)
		switch {
		case err != nil:
			logger.Debug("Vector index status unavailable", "index", m.name, "error", err)
		case status.Queryable:
			return nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s after %s", ErrIndexNotReady, m.name, m.readyTimeout)
		}
	}
}

// Status reports the vector index. A missing index is not an error.
func (m *IndexManager) Status(ctx context.Context) (*IndexStatus, error) {
	indexes, err := m.list(ctx, m.name)
	if err != nil {
		return nil, err
	}

	status := &IndexStatus{Name: m.name}
	for _, idx := range indexes {
		if idx.Name != m.name {
			continue
		}
		status.Exists = true
		status.Status = idx.Status
		status.Queryable = idx.Queryable
		if f, ok := idx.LatestDefinition.Mappings.Fields["embedding"]; ok {
			status.Dimensions = f.Dimensions
		}
	}
	return status, nil
}

func (m *IndexManager) list(ctx context.Context, name string) ([]searchIndexInfo, error) {
	opts := options.SearchIndexes()
	if name != "" {
		opts.SetName(name)
	}
	cursor, err := m.coll.SearchIndexes().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list search indexes: %w", err)
	}
	defer cursor.Close(ctx)

	var out []searchIndexInfo
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode search indexes: %w", err)
	}
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
