package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TEIEmbedder talks to a Hugging Face text-embeddings-inference server, which
// hosts the sentence-transformer model (BAAI/bge-large-en-v1.5 by default).
type TEIEmbedder struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
}

type teiRequest struct {
	Inputs    string `json:"inputs"`
	Normalize bool   `json:"normalize"`
	Truncate  bool   `json:"truncate"`
}

type teiInfo struct {
	ModelID string `json:"model_id"`
}

func NewTEIEmbedder(baseURL, model string, dimension int, timeout time.Duration) *TEIEmbedder {
	return &TEIEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *TEIEmbedder) Dimension() int { return t.dimension }
func (t *TEIEmbedder) Model() string  { return t.model }

// CheckModel checks the server is up and serving the configured model.
func (t *TEIEmbedder) CheckModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/info", nil)
	if err != nil {
		return fmt.Errorf("failed to create info request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding server unhealthy: status %d", resp.StatusCode)
	}
	var info teiInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("failed to decode info response: %w", err)
	}
	if t.model != "" && info.ModelID != "" && info.ModelID != t.model {
		return fmt.Errorf("embedding server serves %q, configured %q", info.ModelID, t.model)
	}
	return nil
}

func (t *TEIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: text, Normalize: true, Truncate: true})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if err := checkDimension(out[0], t.dimension); err != nil {
		return nil, err
	}
	return out[0], nil
}
