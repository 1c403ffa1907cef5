package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/dgraph-io/ristretto"
	"github.com/philippgille/chromem-go"
)

// DefaultHashDims is the vector size of the built-in hash embedding.
const DefaultHashDims = 256

// HashEmbedderName identifies the built-in embedding in the settings table.
const HashEmbedderName = "hash-256"

// NewHashEmbedding returns a deterministic, offline embedding based on
// feature hashing of word unigrams and bigrams. The last dimension is a
// constant bias so that no text maps to the zero vector. Output is unit
// length, which is what chromem expects for cosine similarity.
func NewHashEmbedding(dims int) chromem.EmbeddingFunc {
	if dims < 2 {
		dims = DefaultHashDims
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dims)
		buckets := uint32(dims - 1)

		tokens := tokenize(text)
		for i, tok := range tokens {
			addFeature(vec, buckets, tok, 1)
			if i > 0 {
				addFeature(vec, buckets, tokens[i-1]+" "+tok, 0.5)
			}
		}
		vec[dims-1] = 0.25

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
		return vec, nil
	}
}

func addFeature(vec []float32, buckets uint32, feature string, weight float32) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum32()
	idx := sum % buckets
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Embedder picks an embedding function by name. It returns the function and
// the identity recorded alongside the index.
func Embedder(kind, model, baseURL, apiKey string) (chromem.EmbeddingFunc, string, error) {
	switch kind {
	case "", "hash":
		return NewHashEmbedding(DefaultHashDims), HashEmbedderName, nil
	case "ollama":
		if model == "" {
			model = "nomic-embed-text"
		}
		return chromem.NewEmbeddingFuncOllama(model, baseURL), "ollama:" + model, nil
	case "openai":
		if apiKey == "" {
			return nil, "", fmt.Errorf("openai embedder: missing API key")
		}
		m := chromem.EmbeddingModelOpenAI3Small
		if model != "" {
			m = chromem.EmbeddingModelOpenAI(model)
		}
		return chromem.NewEmbeddingFuncOpenAI(apiKey, m), "openai:" + string(m), nil
	default:
		return nil, "", fmt.Errorf("unknown embedder %q", kind)
	}
}

// CachedEmbedding memoizes embed in a ristretto cache bounded by maxBytes of
// vector data. Remote embedders are slow and every search embeds its query,
// so repeated queries hit the cache. The returned func closes the cache.
func CachedEmbedding(embed chromem.EmbeddingFunc, maxBytes int64) (chromem.EmbeddingFunc, func(), error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("embedding cache: %w", err)
	}

	cached := func(ctx context.Context, text string) ([]float32, error) {
		if v, ok := cache.Get(text); ok {
			return append([]float32(nil), v.([]float32)...), nil
		}
		vec, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		cache.Set(text, append([]float32(nil), vec...), int64(len(vec)*4))
		return vec, nil
	}
	return cached, cache.Close, nil
}
