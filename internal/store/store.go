package store

import (
	"context"
	"errors"
	"fmt"

	"ai-tutor-backend/internal/ai"
	"ai-tutor-backend/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	RoadmapsCollection  = "roadmaps"
	QuizzesCollection   = "quizzes"
	ResourcesCollection = "resources"

	DefaultIndexName      = "vector_index"
	DefaultMaxSearchLimit = 50
	defaultReembedWorkers = 4
)

// Store is the MongoDB-backed document store. One Store is built per process
// and shared; it holds no per-request state.
type Store struct {
	db       *mongo.Database
	embedder ai.Embedder
	metrics  *telemetry.Metrics

	indexName      string
	maxSearchLimit int
	reembedWorkers int

	roadmaps  *roadmapStore
	quizzes   *quizStore
	resources *resourceStore
}

type Option func(*Store)

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithIndexName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.indexName = name
		}
	}
}

func WithMaxSearchLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSearchLimit = n
		}
	}
}

func WithReembedWorkers(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.reembedWorkers = n
		}
	}
}

func New(db *mongo.Database, emb ai.Embedder, opts ...Option) *Store {
	s := &Store{
		db:             db,
		embedder:       emb,
		indexName:      DefaultIndexName,
		maxSearchLimit: DefaultMaxSearchLimit,
		reembedWorkers: defaultReembedWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.roadmaps = &roadmapStore{s: s, coll: db.Collection(RoadmapsCollection)}
	s.quizzes = &quizStore{s: s, coll: db.Collection(QuizzesCollection)}
	s.resources = &resourceStore{s: s, coll: db.Collection(ResourcesCollection)}
	return s
}

func (s *Store) Roadmaps() RoadmapRepository   { return s.roadmaps }
func (s *Store) Quizzes() QuizRepository       { return s.quizzes }
func (s *Store) Resources() ResourceRepository { return s.resources }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *Store) record(op, coll string, err error) {
	s.metrics.RecordDatabaseOperation(op, coll, err == nil)
}

func findOne[D any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*D, error) {
	var doc D
	err := coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	return &doc, nil
}

func findAll[D any](ctx context.Context, coll *mongo.Collection, opts ...*options.FindOptions) ([]D, error) {
	cursor, err := coll.Find(ctx, bson.M{}, opts...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := []D{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return docs, nil
}

// updateFields applies a $set and reports whether a document changed. It
// never upserts.
func updateFields(ctx context.Context, coll *mongo.Collection, id string, fields bson.M) (bool, error) {
	oid, err := ParseID(id)
	if err != nil {
		return false, err
	}
	res, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return false, fmt.Errorf("update %s %s: %w", coll.Name(), id, err)
	}
	return res.ModifiedCount > 0, nil
}
