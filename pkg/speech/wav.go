// Package speech holds the audio helpers behind the /speak endpoint.
package speech

import (
	"bytes"
	"encoding/binary"
	"time"
)

const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"

	// Local synthesis placeholder: 0.1s of mono 16-bit silence at 22050 Hz.
	StubSampleRate = 22050
	StubDuration   = 100 * time.Millisecond

	bitsPerSample = 16
	channels      = 1
	wavHeaderSize = 44
)

// MimeType returns the content type advertised for an audio format.
func MimeType(format string) string {
	if format == FormatMP3 {
		return "audio/mpeg"
	}
	return "audio/wav"
}

// SupportedFormat reports whether format can be requested from /speak.
func SupportedFormat(format string) bool {
	return format == FormatMP3 || format == FormatWAV
}

// SilenceWAV encodes d of 16-bit mono PCM silence as a RIFF/WAVE file.
func SilenceWAV(sampleRate int, d time.Duration) []byte {
	frames := int(float64(sampleRate) * d.Seconds())
	blockAlign := channels * bitsPerSample / 8
	dataSize := frames * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	return buf.Bytes()
}

// StubAudio is the placeholder returned when no synthesis upstream is set.
func StubAudio() []byte {
	return SilenceWAV(StubSampleRate, StubDuration)
}
