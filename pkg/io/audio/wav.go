// Package audio holds the PCM16 helpers shared by capture, recognition and
// playback.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotWAV           = errors.New("audio: not a RIFF/WAVE buffer")
	ErrUnsupportedWAV   = errors.New("audio: only 16-bit PCM wav is supported")
	ErrTruncated        = errors.New("audio: truncated buffer")
	DefaultSpeechFormat = Format{SampleRate: 16000, Channels: 1}
)

type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerSecond for 16-bit samples.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// PCM is little-endian signed 16-bit interleaved audio.
type PCM struct {
	Data []byte
	Format
}

func (p PCM) Duration() float64 {
	bps := p.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return float64(len(p.Data)) / float64(bps)
}

const wavHeaderLen = 44

// EncodeWAV wraps raw PCM16 in a canonical 44-byte wav header.
func EncodeWAV(pcm []byte, f Format) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderLen + len(pcm))

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, le, uint32(16))
	_ = binary.Write(&buf, le, uint16(1)) // PCM
	_ = binary.Write(&buf, le, uint16(f.Channels))
	_ = binary.Write(&buf, le, uint32(f.SampleRate))
	_ = binary.Write(&buf, le, uint32(f.BytesPerSecond()))
	_ = binary.Write(&buf, le, uint16(f.Channels*2))
	_ = binary.Write(&buf, le, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// DecodeWAV walks the RIFF chunks and returns the PCM payload.
func DecodeWAV(b []byte) (PCM, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return PCM{}, ErrNotWAV
	}
	le := binary.LittleEndian
	var (
		out    PCM
		hasFmt bool
	)
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(le.Uint32(b[off+4 : off+8]))
		body := off + 8
		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(b) {
				return PCM{}, ErrTruncated
			}
			tag := le.Uint16(b[body:])
			bits := le.Uint16(b[body+14:])
			if tag != 1 || bits != 16 {
				return PCM{}, fmt.Errorf("%w (format %d, %d bits)", ErrUnsupportedWAV, tag, bits)
			}
			out.Channels = int(le.Uint16(b[body+2:]))
			out.SampleRate = int(le.Uint32(b[body+4:]))
			hasFmt = true
		case "data":
			if !hasFmt {
				return PCM{}, ErrNotWAV
			}
			end := body + size
			// streamed wavs often carry a bogus data length
			if end > len(b) || size == 0 {
				end = len(b)
			}
			out.Data = b[body:end]
			return out, nil
		}
		off = body + size + size%2
	}
	return PCM{}, ErrTruncated
}

// Level returns the RMS of a PCM16 buffer normalised to 0..1.
func Level(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:])))
		sum += s * s
	}
	return math.Sqrt(sum/float64(n)) / 32768.0
}
