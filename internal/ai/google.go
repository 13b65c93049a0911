package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleEmbedder uses the Google Generative AI embedding models. One client is
// created at startup and reused for every call.
type GoogleEmbedder struct {
	client    *genai.Client
	model     *genai.EmbeddingModel
	modelName string
	dimension int
}

func NewGoogleEmbedder(ctx context.Context, apiKey, modelName string, dimension int) (*GoogleEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GoogleEmbedder{
		client:    client,
		model:     client.EmbeddingModel(modelName),
		modelName: modelName,
		dimension: dimension,
	}, nil
}

func (g *GoogleEmbedder) Dimension() int { return g.dimension }
func (g *GoogleEmbedder) Model() string  { return g.modelName }

func (g *GoogleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, ErrEmptyEmbedding
	}
	// genai SDK returns []float32 for Embedding.Values
	if err := checkDimension(resp.Embedding.Values, g.dimension); err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

func (g *GoogleEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
