// Package audio provides audio format normalization for the transcript
// pipeline. Incoming segments arrive in whatever container and codec the
// recording client produced (webm/opus, m4a, mp3, wav at arbitrary rates);
// everything downstream works on mono 16 kHz 16-bit PCM WAV.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyAudio is returned when the input contains no audio data, or when
// decoding produced no samples.
var ErrEmptyAudio = errors.New("audio: empty audio")

// TargetSampleRate is the sample rate all normalized audio is resampled to.
const TargetSampleRate = 16000

// wavHeaderSize is the size of a canonical RIFF/WAVE header; output at or
// below this size carries no samples.
const wavHeaderSize = 44

// Normalizer converts an audio blob of unknown format into mono 16 kHz
// 16-bit PCM WAV.
type Normalizer interface {
	Normalize(ctx context.Context, in []byte) ([]byte, error)
}

// NormalizeFunc adapts a function to the Normalizer interface.
type NormalizeFunc func(ctx context.Context, in []byte) ([]byte, error)

// Normalize implements Normalizer.
func (f NormalizeFunc) Normalize(ctx context.Context, in []byte) ([]byte, error) {
	return f(ctx, in)
}

// Compile-time assertion that FFmpegNormalizer implements Normalizer.
var _ Normalizer = (*FFmpegNormalizer)(nil)

// FFmpegNormalizer implements Normalizer by shelling out to ffmpeg, which
// autodetects the input container and codec. Safe for concurrent use; each
// call works on its own temp files.
type FFmpegNormalizer struct {
	binary  string
	tempDir string
	timeout time.Duration
	logger  *slog.Logger
}

// FFmpegOption is a functional option for FFmpegNormalizer.
type FFmpegOption func(*FFmpegNormalizer)

// WithBinary overrides the ffmpeg binary path. Default is "ffmpeg",
// resolved via PATH.
func WithBinary(path string) FFmpegOption {
	return func(n *FFmpegNormalizer) {
		n.binary = path
	}
}

// WithTempDir sets the directory for intermediate files. Default is the
// system temp directory.
func WithTempDir(dir string) FFmpegOption {
	return func(n *FFmpegNormalizer) {
		n.tempDir = dir
	}
}

// WithTimeout caps the runtime of a single ffmpeg invocation. Default is
// 2 minutes.
func WithTimeout(d time.Duration) FFmpegOption {
	return func(n *FFmpegNormalizer) {
		n.timeout = d
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) FFmpegOption {
	return func(n *FFmpegNormalizer) {
		n.logger = logger
	}
}

// NewFFmpegNormalizer constructs an FFmpegNormalizer.
func NewFFmpegNormalizer(opts ...FFmpegOption) *FFmpegNormalizer {
	n := &FFmpegNormalizer{
		binary:  "ffmpeg",
		tempDir: os.TempDir(),
		timeout: 2 * time.Minute,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize implements Normalizer. Empty input and input ffmpeg cannot decode
// both fail with ErrEmptyAudio wrapped in the returned error.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, in []byte) ([]byte, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("audio: normalize: %w", ErrEmptyAudio)
	}

	id := uuid.NewString()
	inPath := filepath.Join(n.tempDir, "twinmind-in-"+id)
	outPath := filepath.Join(n.tempDir, "twinmind-out-"+id+".wav")

	if err := os.WriteFile(inPath, in, 0o600); err != nil {
		return nil, fmt.Errorf("audio: write temp input: %w", err)
	}
	defer os.Remove(inPath)
	defer os.Remove(outPath)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	// ffmpeg autodetects the input format; -f wav pins the output container
	// since the temp path extension is not authoritative.
	cmd := exec.CommandContext(ctx, n.binary,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", inPath,
		"-ac", "1",
		"-ar", fmt.Sprint(TargetSampleRate),
		"-sample_fmt", "s16",
		"-f", "wav",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		n.logger.Warn("ffmpeg normalization failed",
			"error", err,
			"stderr", stderr.String(),
			"inputBytes", len(in),
		)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("audio: ffmpeg: %w", ctx.Err())
		}
		return nil, fmt.Errorf("audio: ffmpeg: %w: %s", ErrEmptyAudio, firstLine(stderr.String()))
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("audio: read temp output: %w", err)
	}
	if len(out) <= wavHeaderSize {
		return nil, fmt.Errorf("audio: normalize: no samples decoded: %w", ErrEmptyAudio)
	}

	n.logger.Debug("normalized audio segment",
		"inputBytes", len(in),
		"outputBytes", len(out),
		"duration", time.Since(start),
	)
	return out, nil
}

// firstLine returns the first non-empty line of s, for compact error messages.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return "unknown error"
}
