// Package retrieval indexes warranty policy documents and returns ranked,
// deduplicated excerpts that ground the analysis stage in authoritative text.
package retrieval

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Embedder turns texts into vectors. Implementations must be safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Name() string
}

// HashEmbedder is the deterministic, dependency-free fallback: each
// lowercase alphanumeric token is hashed into one of Dim buckets, counts
// accumulate, and the vector is L2-normalized. It is crude but stable, which
// is what matters when no semantic model is available.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder creates a hash embedder with the default 256 dimensions.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dim: 256}
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Embed hashes each text into a normalized bag-of-tokens vector.
func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	dim := e.Dim
	if dim <= 0 {
		dim = 256
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, dim)
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
			sum := md5.Sum([]byte(tok))
			idx := binary.BigEndian.Uint32(sum[:4]) % uint32(dim)
			vec[idx]++
		}
		var norm float64
		for _, v := range vec {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		for j := range vec {
			vec[j] /= norm
		}
		out[i] = vec
	}
	return out, nil
}

// Name identifies the embedder in retrieval traces.
func (e *HashEmbedder) Name() string { return "simple-hash" }

// OpenAIEmbedder uses the OpenAI embeddings API as the semantic primary.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder for the given API key and model.
// An empty model selects text-embedding-3-small.
func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	m := openai.EmbeddingModelTextEmbedding3Small
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

// Embed requests embeddings for all texts in one call.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Name identifies the embedder in retrieval traces.
func (e *OpenAIEmbedder) Name() string { return string(e.model) }

// fallbackEmbedder wraps a primary embedder and degrades to the hash
// fallback when the primary fails, instead of surfacing an error.
type fallbackEmbedder struct {
	primary  Embedder
	fallback *HashEmbedder
}

// WithFallback returns an embedder that tries primary first and silently
// degrades to the deterministic hash embedder on failure.
func WithFallback(primary Embedder) Embedder {
	return &fallbackEmbedder{primary: primary, fallback: NewHashEmbedder()}
}

func (e *fallbackEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vecs, err := e.primary.Embed(ctx, texts)
	if err == nil {
		return vecs, nil
	}
	return e.fallback.Embed(ctx, texts)
}

func (e *fallbackEmbedder) Name() string { return e.primary.Name() }
