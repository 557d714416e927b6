package whisper

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// pcmToFloat32 converts 16-bit little-endian PCM samples to the normalized
// float32 form whisper.cpp ingests.
func pcmToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// samplesFromWAV extracts the PCM payload from a WAV file and converts it to
// float32 samples. Only the data chunk is located; format validation is left
// to the caller, which is expected to have normalized the audio already.
func samplesFromWAV(wav []byte) ([]float32, error) {
	pcm, err := wavData(wav)
	if err != nil {
		return nil, err
	}
	return pcmToFloat32(pcm), nil
}

// wavData returns the contents of the first "data" chunk in a RIFF WAV file.
func wavData(wav []byte) ([]byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF WAVE file")
	}

	off := 12
	for off+8 <= len(wav) {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		off += 8
		if off+size > len(wav) {
			return nil, fmt.Errorf("truncated %q chunk", id)
		}
		if id == "data" {
			return wav[off : off+size], nil
		}
		off += size
		if size%2 == 1 {
			off++ // chunks are word-aligned
		}
	}

	return nil, errors.New("no data chunk found")
}
