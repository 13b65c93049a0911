package ai

import "context"

// Pool bounds the number of in-flight Embed calls. Callers over the bound
// block until a slot frees up or their context ends.
type Pool struct {
	next Embedder
	sem  chan struct{}
}

func NewPool(next Embedder, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{next: next, sem: make(chan struct{}, workers)}
}

func (p *Pool) Dimension() int { return p.next.Dimension() }
func (p *Pool) Model() string  { return p.next.Model() }

func (p *Pool) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	return p.next.Embed(ctx, text)
}
