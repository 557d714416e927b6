package whisper

import (
	"encoding/binary"
	"testing"
)

func TestPcmToFloat32(t *testing.T) {
	pcm := make([]byte, 6)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(int16(0)))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(pcm[4:], uint16(int16(-32768)))

	got := pcmToFloat32(pcm)
	want := []float32{0, 0.5, -1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestWavData(t *testing.T) {
	pcm := []byte{1, 0, 2, 0}

	// Minimal RIFF container: fmt chunk then data chunk.
	var wav []byte
	wav = append(wav, []byte("RIFF")...)
	wav = append(wav, 0, 0, 0, 0)
	wav = append(wav, []byte("WAVE")...)
	wav = append(wav, []byte("fmt ")...)
	wav = appendUint32(wav, 16)
	wav = append(wav, make([]byte, 16)...)
	wav = append(wav, []byte("data")...)
	wav = appendUint32(wav, uint32(len(pcm)))
	wav = append(wav, pcm...)

	got, err := wavData(wav)
	if err != nil {
		t.Fatalf("wavData() error: %v", err)
	}
	if string(got) != string(pcm) {
		t.Errorf("wavData() = %v, want %v", got, pcm)
	}
}

func TestWavDataRejectsGarbage(t *testing.T) {
	if _, err := wavData([]byte("definitely not audio")); err == nil {
		t.Error("wavData() error = nil for garbage input, want error")
	}
	if _, err := wavData(nil); err == nil {
		t.Error("wavData() error = nil for empty input, want error")
	}
}

func appendUint32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}
