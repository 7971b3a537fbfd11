// Package wavtrack stores PCM16 audio tracks as RIFF/WAVE files. The
// session time of the first sample is kept in an "offs" chunk ahead of the
// data chunk; other WAV readers skip it.
package wavtrack

import (
	"bytes"
	"encoding/binary"
	"time"
)

const (
	pcmFormat      = 1
	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8

	// Byte offsets patched on close.
	riffSizeOffset = 4
	dataSizeOffset = 12 + (8 + 16) + (8 + 8) + 4
	headerSize     = dataSizeOffset + 4
)

// header builds the file header with an empty data chunk.
func header(sampleRate, channels int, start time.Duration) []byte {
	var buf bytes.Buffer
	blockAlign := channels * bytesPerSample

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(headerSize-8))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(pcmFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("offs")
	binary.Write(&buf, binary.LittleEndian, uint32(8))
	binary.Write(&buf, binary.LittleEndian, int64(start))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	return buf.Bytes()
}
