// Package stt defines the speech-to-text provider interface used by the
// transcript pipeline, along with the error classes callers use to decide how
// a failed transcription is reported.
//
// Implementations live in subpackages (whisper, openai) and a mock
// implementation for testing lives in the mock subpackage.
package stt

import (
	"context"
	"errors"
)

// Sentinel errors implementations wrap to classify failures. Callers use
// errors.Is to distinguish caller faults from dependency faults.
var (
	// ErrInvalidAudio indicates the submitted audio could not be decoded or was
	// rejected by the transcription backend as malformed. Retrying with the
	// same bytes will not help.
	ErrInvalidAudio = errors.New("stt: invalid audio")

	// ErrRateLimited indicates the backend refused the request due to rate
	// limiting. The request may succeed if retried later.
	ErrRateLimited = errors.New("stt: rate limited")

	// ErrUnavailable indicates the backend could not be reached or returned a
	// server-side failure.
	ErrUnavailable = errors.New("stt: service unavailable")
)

// Transcriber converts a complete audio recording into text.
type Transcriber interface {
	// Transcribe transcribes wav, which must be a mono 16 kHz 16-bit PCM WAV
	// file. It returns the recognized text, which may be empty or
	// whitespace-only when the audio contains no speech.
	//
	// Errors are wrapped with one of ErrInvalidAudio, ErrRateLimited, or
	// ErrUnavailable where the failure class is known.
	Transcribe(ctx context.Context, wav []byte) (string, error)
}
