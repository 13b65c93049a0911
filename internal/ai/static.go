package ai

import (
	"context"
	"fmt"
	"sync"
)

// StaticEmbedder maps exact texts to fixed vectors. Unknown texts get the zero
// vector unless Strict is set. Intended for tests and local development.
type StaticEmbedder struct {
	Vectors map[string][]float32
	Dim     int
	Strict  bool

	mu    sync.Mutex
	calls []string
}

func NewStaticEmbedder(dim int, vectors map[string][]float32) *StaticEmbedder {
	if vectors == nil {
		vectors = map[string][]float32{}
	}
	return &StaticEmbedder{Vectors: vectors, Dim: dim}
}

func (s *StaticEmbedder) Dimension() int { return s.Dim }
func (s *StaticEmbedder) Model() string  { return "static" }

func (s *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()

	vec, ok := s.Vectors[text]
	if !ok {
		if s.Strict {
			return nil, fmt.Errorf("static embedder: no vector for %q", text)
		}
		return make([]float32, s.Dim), nil
	}
	if err := checkDimension(vec, s.Dim); err != nil {
		return nil, err
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, nil
}

// Calls returns the texts embedded so far, in call order.
func (s *StaticEmbedder) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// UnitVector returns a dim-length vector with 1 at position i.
func UnitVector(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}
