package resilience

import (
	"context"
	"errors"

	"github.com/armanbance/TwinMind/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] with automatic failover across
// multiple transcription backends. Each backend has its own circuit breaker;
// when the primary fails or its breaker is open, the next healthy fallback is
// tried.
//
// [stt.ErrInvalidAudio] never triggers failover: the same bytes would be
// rejected by every backend, and the error must reach the caller intact so the
// segment is reported as a caller fault rather than a processing failure.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *STTFallback {
	if cfg.CircuitBreaker.Classify == nil {
		cfg.CircuitBreaker.Classify = sttBackendFault
	}
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcription backend.
func (f *STTFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe runs the recording against the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, wav []byte) (string, error) {
	return ExecuteWithResult(f.group, func(t stt.Transcriber) (string, error) {
		return t.Transcribe(ctx, wav)
	})
}

func sttBackendFault(err error) bool {
	return BackendFault(err) && !errors.Is(err, stt.ErrInvalidAudio)
}
