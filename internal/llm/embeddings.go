package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingsClient wraps an OpenAI-compatible embeddings API.
// Embedding is CPU-bound upstream and the dominant fixed per-query cost.
type EmbeddingsClient struct {
	api          *openai.Client
	model        string
	expectedSize int
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the vector dimension the index was built with; every
// returned vector is validated against it.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int) *EmbeddingsClient {
	return &EmbeddingsClient{
		api:          newAPIClient(baseURL, apiKey),
		model:        model,
		expectedSize: expectedSize,
	}
}

// EncoderTag identifies this encoder configuration. Vectors are comparable
// only when produced under the same tag.
func (c *EmbeddingsClient) EncoderTag() string {
	return fmt.Sprintf("%s/%d", c.model, c.expectedSize)
}

// Dimension returns the expected embedding dimension.
func (c *EmbeddingsClient) Dimension() int { return c.expectedSize }

// EmbedText encodes a single text into the index's embedding space.
// Empty or whitespace-only input is rejected before any network call.
func (c *EmbeddingsClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch encodes multiple texts in one request. Used by the offline
// ingestion pipeline.
func (c *EmbeddingsClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != c.expectedSize {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(data.Embedding), c.expectedSize)
		}
		vectors[i] = data.Embedding
	}

	return vectors, nil
}
