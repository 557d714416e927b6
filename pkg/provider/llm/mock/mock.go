// Package mock provides a mock implementation of llm.Provider for testing.
package mock

import (
	"context"
	"sync"

	"github.com/armanbance/TwinMind/pkg/provider/llm"
)

// Compile-time assertion that Provider implements llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// Provider is a configurable mock llm.Provider. All fields are optional; the
// zero value streams nothing and completes with an empty response. Call records
// are guarded by an internal mutex, so a Provider is safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// StreamChunks are sent, in order, on the channel returned by StreamCompletion.
	StreamChunks []llm.Chunk

	// StreamErr, if set, is returned by StreamCompletion before any chunk is sent.
	StreamErr error

	// StreamDelay, if set, is closed-on externally: StreamCompletion blocks sending
	// chunks until this channel is closed. Useful for testing cancellation.
	StreamDelay <-chan struct{}

	// CompleteResponse is returned by Complete when CompleteErr is nil.
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if set, is returned by Complete.
	CompleteErr error

	// StreamCalls records every request passed to StreamCompletion.
	StreamCalls []llm.CompletionRequest

	// CompleteCalls records every request passed to Complete.
	CompleteCalls []llm.CompletionRequest
}

// StreamCompletion implements llm.Provider.
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	p.mu.Lock()
	p.StreamCalls = append(p.StreamCalls, req)
	err := p.StreamErr
	chunks := make([]llm.Chunk, len(p.StreamChunks))
	copy(chunks, p.StreamChunks)
	delay := p.StreamDelay
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}

	ch := make(chan llm.Chunk, len(chunks))
	go func() {
		defer close(ch)
		if delay != nil {
			select {
			case <-delay:
			case <-ctx.Done():
				return
			}
		}
		for _, c := range chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, req)
	resp := p.CompleteResponse
	err := p.CompleteErr
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &llm.CompletionResponse{}, nil
	}
	return resp, nil
}

// StreamCallCount returns the number of StreamCompletion calls made so far.
func (p *Provider) StreamCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.StreamCalls)
}

// CompleteCallCount returns the number of Complete calls made so far.
func (p *Provider) CompleteCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}
