package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-tutor-backend/internal/config"
	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

var (
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrEmptyEmbedding      = errors.New("no embedding returned")
	ErrEmbedderUnavailable = errors.New("embedding provider unavailable")
)

// Embedder turns text into a fixed-length vector. Implementations are
// deterministic for a fixed model and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension is the length of every vector Embed returns.
	Dimension() int
	// Model identifies the model version; cached vectors are keyed by it.
	Model() string
}

func checkDimension(vec []float32, want int) error {
	if len(vec) == 0 {
		return ErrEmptyEmbedding
	}
	if len(vec) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), want)
	}
	return nil
}

// VerifyEmbedder embeds a short sample text and checks the vector length
// against the configured dimension.
func VerifyEmbedder(ctx context.Context, emb Embedder) error {
	vec, err := emb.Embed(ctx, "embedding health check")
	if err != nil {
		return err
	}
	return checkDimension(vec, emb.Dimension())
}

// NewEmbedderFromConfig builds the configured provider and wraps it with the
// circuit breaker, the Redis cache (when rdb is non-nil) and the worker pool.
// Errors here are fatal for the calling process.
func NewEmbedderFromConfig(ctx context.Context, cfg *config.Config, rdb *redis.Client, metrics *telemetry.Metrics) (Embedder, func() error, error) {
	var (
		base    Embedder
		closeFn = func() error { return nil }
	)

	switch cfg.EmbeddingsProvider {
	case "tei", "":
		tei := NewTEIEmbedder(cfg.TEIURL, cfg.TEIModel, cfg.VectorDimensions, 30*time.Second)
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := tei.CheckModel(checkCtx); err != nil {
			return nil, nil, fmt.Errorf("embedding model %s not available: %w", cfg.TEIModel, err)
		}
		base = tei

	case "google":
		g, err := NewGoogleEmbedder(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.VectorDimensions)
		if err != nil {
			return nil, nil, err
		}
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := VerifyEmbedder(checkCtx, g); err != nil {
			g.Close()
			return nil, nil, fmt.Errorf("embedding model %s not usable with VECTOR_DIM=%d: %w",
				cfg.GoogleEmbeddingsModel, cfg.VectorDimensions, err)
		}
		base = g
		closeFn = g.Close

	default:
		return nil, nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	var emb Embedder = NewGuarded(base, cfg.EmbedRPS, WithMetrics(metrics))
	if rdb != nil {
		emb = NewCached(emb, rdb, cfg.EmbedCacheTTL)
	}
	emb = NewPool(emb, cfg.EmbedWorkers)

	logger.Info("Embedding provider ready",
		"provider", cfg.EmbeddingsProvider,
		"model", base.Model(),
		"dimensions", base.Dimension())

	return emb, closeFn, nil
}
