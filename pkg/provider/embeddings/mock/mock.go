// Package mock provides a mock implementation of embeddings.Provider for testing.
package mock

import (
	"context"
	"sync"

	"github.com/armanbance/TwinMind/pkg/provider/embeddings"
)

// Compile-time assertion that Provider implements embeddings.Provider.
var _ embeddings.Provider = (*Provider)(nil)

// Provider is a configurable mock embeddings.Provider. Call records are
// guarded by an internal mutex, so a Provider is safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// EmbedResult is returned by Embed when EmbedErr is nil.
	EmbedResult []float32

	// EmbedErr, if set, is returned by Embed.
	EmbedErr error

	// EmbedBatchResult is returned by EmbedBatch when EmbedBatchErr is nil.
	// If nil, a slice of nil vectors matching len(texts) is returned.
	EmbedBatchResult [][]float32

	// EmbedBatchErr, if set, is returned by EmbedBatch.
	EmbedBatchErr error

	// DimensionsValue is returned by Dimensions.
	DimensionsValue int

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// EmbedCalls records the text of every Embed call.
	EmbedCalls []string

	// EmbedBatchCalls records the texts of every EmbedBatch call.
	EmbedBatchCalls [][]string
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.EmbedResult, nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, cp)
	if p.EmbedBatchErr != nil {
		return nil, p.EmbedBatchErr
	}
	if p.EmbedBatchResult != nil {
		return p.EmbedBatchResult, nil
	}
	return make([][]float32, len(texts)), nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	return p.DimensionsValue
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	return p.ModelIDValue
}
