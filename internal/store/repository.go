package store

import (
	"context"

	"ai-tutor-backend/models"
)

// RoadmapRepository persists roadmaps. Absent records are returned as nil
// with a nil error.
type RoadmapRepository interface {
	Create(ctx context.Context, r models.Roadmap) (string, error)
	Update(ctx context.Context, id string, r models.Roadmap) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Roadmap, error)
	GetByTitle(ctx context.Context, title string) (*models.Roadmap, error)
	List(ctx context.Context) ([]models.Roadmap, error)
}

// QuizRepository persists quizzes. List is ordered by created_at, newest first.
type QuizRepository interface {
	Create(ctx context.Context, q models.Quiz) (string, error)
	Update(ctx context.Context, id string, q models.Quiz) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	GetBySlug(ctx context.Context, slug string) (*models.Quiz, error)
	List(ctx context.Context) ([]models.Quiz, error)
}

// ResourceRepository persists resources and answers semantic queries over
// their embeddings.
type ResourceRepository interface {
	Create(ctx context.Context, r models.Resource) (string, error)
	Update(ctx context.Context, id string, r models.Resource) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Resource, error)
	GetBySlug(ctx context.Context, slug string) (*models.Resource, error)
	List(ctx context.Context) ([]models.Resource, error)

	Search(ctx context.Context, query string, limit int) ([]models.Resource, error)
	SearchScored(ctx context.Context, query string, limit int) ([]models.ScoredResource, error)

	Reembed(ctx context.Context, opts ReembedOptions) (ReembedReport, error)
	ReembedOne(ctx context.Context, id string) (bool, error)
}

// Repositories is the full document store as seen by the HTTP layer and the
// background workers.
type Repositories interface {
	Roadmaps() RoadmapRepository
	Quizzes() QuizRepository
	Resources() ResourceRepository
	Ping(ctx context.Context) error
}

// ReembedOptions selects which resources a bulk re-embedding touches.
type ReembedOptions struct {
	// OnlyMissing restricts the run to resources without an embedding.
	OnlyMissing bool
}

// ReembedReport summarises a bulk re-embedding run.
type ReembedReport struct {
	Scanned  int `json:"scanned"`
	Embedded int `json:"embedded"`
	Cleared  int `json:"cleared"`
	Failed   int `json:"failed"`
}
