// This file contains the NativeProvider backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers must be
// available at link time via LIBRARY_PATH and C_INCLUDE_PATH.

package whisper

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/armanbance/TwinMind/pkg/provider/stt"
)

// Compile-time assertion that NativeProvider implements stt.Transcriber.
var _ stt.Transcriber = (*NativeProvider)(nil)

// NativeProvider implements stt.Transcriber using the whisper.cpp CGO bindings
// directly, without a server process.
//
// The underlying model is not safe for concurrent inference, so Transcribe
// serializes calls with a mutex.
type NativeProvider struct {
	mu       sync.Mutex
	model    whisperlib.Model
	language string
}

// NewNative loads the ggml model at modelPath (e.g. "models/ggml-base.en.bin").
// Callers must Close the provider when done to release the model.
func NewNative(modelPath string, opts ...Option) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("whisper: modelPath must not be empty")
	}

	cfg := &config{language: "auto"}
	for _, o := range opts {
		o(cfg)
	}

	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	return &NativeProvider{
		model:    model,
		language: cfg.language,
	}, nil
}

// Transcribe implements stt.Transcriber.
func (p *NativeProvider) Transcribe(ctx context.Context, wav []byte) (string, error) {
	samples, err := samplesFromWAV(wav)
	if err != nil {
		return "", fmt.Errorf("whisper: %v: %w", err, stt.ErrInvalidAudio)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: new context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		return "", fmt.Errorf("whisper: set language %q: %w", p.language, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process: %w", err)
	}

	var sb strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: next segment: %w", err)
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.TrimSpace(segment.Text))
	}

	return sb.String(), nil
}

// Close releases the loaded model.
func (p *NativeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model.Close()
}
