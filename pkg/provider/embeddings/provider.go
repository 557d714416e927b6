// Package embeddings defines the Provider interface for vector embedding
// backends. The store layer uses embedding vectors to index completed session
// transcripts so they can be searched semantically.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by a single Provider instance share the same
// dimensionality, reported by Dimensions. Vectors from different Provider
// instances must not be compared unless both use the same model.
type Provider interface {
	// Embed computes the embedding vector for a single text string.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes embedding vectors for a slice of texts in one
	// provider call. The result has the same length and order as texts.
	// On error the whole result is nil; partial results are not returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector this provider
	// produces.
	Dimensions() int

	// ModelID returns the provider-specific model identifier, for logging and
	// for checking that an index was built with the same model.
	ModelID() string
}
