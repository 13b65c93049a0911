package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/telemetry"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// Guarded wraps an Embedder with a circuit breaker and a request rate limiter.
// Failures are never retried; an open breaker fails fast.
type Guarded struct {
	next        Embedder
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	metrics     *telemetry.Metrics
}

// GuardOption configures a Guarded embedder.
type GuardOption func(*Guarded)

// WithMetrics records embedding latency for every call.
func WithMetrics(m *telemetry.Metrics) GuardOption {
	return func(g *Guarded) { g.metrics = m }
}

// NewGuarded limits calls to rps per second (unlimited when rps <= 0).
func NewGuarded(next Embedder, rps float64, opts ...GuardOption) *Guarded {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Embeddings",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// caller cancellations say nothing about provider health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}

	g := &Guarded{
		next:        next,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guarded) Dimension() int { return g.next.Dimension() }
func (g *Guarded) Model() string  { return g.next.Model() }

func (g *Guarded) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("embeddings")
	ctx, span := tracer.Start(ctx, "embeddings.embed")
	defer span.End()

	span.SetAttributes(
		attribute.String("embedding.model", g.next.Model()),
		attribute.Int("embedding.text_length", len(text)),
	)

	if err := g.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("embedding.rate_limited", true))
		return nil, err
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Embed(ctx, text)
	})
	g.metrics.RecordEmbedding(g.next.Model(), time.Since(start).Seconds(), err == nil)

	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrEmbedderUnavailable, err)
		}
		return nil, err
	}
	return result.([]float32), nil
}
