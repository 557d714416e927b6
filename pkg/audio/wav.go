package audio

import "encoding/binary"

// EncodeWAV wraps raw 16-bit little-endian PCM samples in a canonical RIFF
// WAVE header.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	dataSize := len(pcm)
	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	buf := make([]byte, 0, wavHeaderSize+dataSize)
	buf = append(buf, "RIFF"...)
	buf = appendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = appendUint32(buf, 16)
	buf = appendUint16(buf, 1) // PCM
	buf = appendUint16(buf, uint16(channels))
	buf = appendUint32(buf, uint32(sampleRate))
	buf = appendUint32(buf, uint32(byteRate))
	buf = appendUint16(buf, uint16(blockAlign))
	buf = appendUint16(buf, 16) // bits per sample
	buf = append(buf, "data"...)
	buf = appendUint32(buf, uint32(dataSize))
	buf = append(buf, pcm...)
	return buf
}

func appendUint32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func appendUint16(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}
