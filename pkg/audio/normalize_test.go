package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeEmptyInput(t *testing.T) {
	n := NewFFmpegNormalizer()
	_, err := n.Normalize(context.Background(), nil)
	if !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Normalize(nil) error = %v, want errors.Is ErrEmptyAudio", err)
	}
}

func TestNormalizeMissingBinary(t *testing.T) {
	n := NewFFmpegNormalizer(WithBinary("/nonexistent/ffmpeg"))
	_, err := n.Normalize(context.Background(), []byte("some-audio"))
	if err == nil {
		t.Fatal("Normalize() error = nil with missing binary, want error")
	}
}

func TestNormalizeWAVRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	// 0.5 s of silence at 48 kHz stereo.
	pcm := make([]byte, 48000*2*2/2)
	in := EncodeWAV(pcm, 48000, 2)

	tempDir := t.TempDir()
	n := NewFFmpegNormalizer(WithTempDir(tempDir))

	out, err := n.Normalize(context.Background(), in)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if len(out) <= wavHeaderSize {
		t.Fatalf("output too small: %d bytes", len(out))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Error("output is not a RIFF WAVE file")
	}

	// Temp files are cleaned up after each call.
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "twinmind-") {
			t.Errorf("leftover temp file %s", filepath.Join(tempDir, e.Name()))
		}
	}
}

func TestNormalizeGarbageInput(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	tempDir := t.TempDir()
	n := NewFFmpegNormalizer(WithTempDir(tempDir))
	_, err := n.Normalize(context.Background(), []byte("this is not audio at all"))
	if !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Normalize(garbage) error = %v, want errors.Is ErrEmptyAudio", err)
	}

	// The failure path removes its temp files too.
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "twinmind-") {
			t.Errorf("leftover temp file %s after failed conversion", filepath.Join(tempDir, e.Name()))
		}
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	wav := EncodeWAV(pcm, TargetSampleRate, 1)

	if len(wav) != wavHeaderSize+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), wavHeaderSize+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != TargetSampleRate {
		t.Errorf("sample rate = %d, want %d", rate, TargetSampleRate)
	}
	if ch := binary.LittleEndian.Uint16(wav[22:24]); ch != 1 {
		t.Errorf("channels = %d, want 1", ch)
	}
	if string(wav[36:40]) != "data" {
		t.Error("missing data chunk marker")
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); int(size) != len(pcm) {
		t.Errorf("data size = %d, want %d", size, len(pcm))
	}
}

func TestNormalizeFuncAdapter(t *testing.T) {
	called := false
	var n Normalizer = NormalizeFunc(func(ctx context.Context, in []byte) ([]byte, error) {
		called = true
		return in, nil
	})

	out, err := n.Normalize(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if !called || string(out) != "x" {
		t.Error("adapter did not forward to the wrapped function")
	}
}
