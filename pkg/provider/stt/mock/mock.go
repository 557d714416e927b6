// Package mock provides a mock implementation of stt.Transcriber for testing.
package mock

import (
	"context"
	"sync"

	"github.com/armanbance/TwinMind/pkg/provider/stt"
)

// Compile-time assertion that Transcriber implements stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber is a configurable mock stt.Transcriber. When TranscribeFunc is
// set it handles every call, letting tests control per-call results and
// completion order; otherwise Text and Err are returned as-is. Call records
// are guarded by an internal mutex, so a Transcriber is safe for concurrent use.
type Transcriber struct {
	mu sync.Mutex

	// TranscribeFunc, if set, handles Transcribe calls.
	TranscribeFunc func(ctx context.Context, wav []byte) (string, error)

	// Text is returned when TranscribeFunc is nil and Err is nil.
	Text string

	// Err, if set, is returned when TranscribeFunc is nil.
	Err error

	// Calls records the audio bytes of every Transcribe call.
	Calls [][]byte
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, wav)
	fn := t.TranscribeFunc
	text, err := t.Text, t.Err
	t.mu.Unlock()

	if fn != nil {
		return fn(ctx, wav)
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// CallCount returns the number of Transcribe calls made so far.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
