package playback

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strconv"

	"github.com/xpanvictor/chemtalk/pkg/io/audio"
)

var ErrUnsupportedContent = errors.New("playback: unsupported audio content type")

// Item is one fully assembled audio buffer.
type Item struct {
	Data        []byte
	ContentType string
}

type Decoder interface {
	Decode(it Item) (audio.PCM, error)
}

// PCMDecoder understands wav files and raw "audio/pcm;rate=N;channels=M"
// payloads. Everything else is rejected so the queue can move on.
type PCMDecoder struct{}

func (PCMDecoder) Decode(it Item) (audio.PCM, error) {
	if len(it.Data) == 0 {
		return audio.PCM{}, audio.ErrTruncated
	}
	if bytes.HasPrefix(it.Data, []byte("RIFF")) {
		return audio.DecodeWAV(it.Data)
	}

	mt, params, err := mime.ParseMediaType(it.ContentType)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("%w: %q", ErrUnsupportedContent, it.ContentType)
	}
	switch mt {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return audio.DecodeWAV(it.Data)
	case "audio/pcm", "audio/l16":
		f := audio.DefaultSpeechFormat
		if r, err := strconv.Atoi(params["rate"]); err == nil && r > 0 {
			f.SampleRate = r
		}
		if c, err := strconv.Atoi(params["channels"]); err == nil && c > 0 {
			f.Channels = c
		}
		if len(it.Data)%2 != 0 {
			return audio.PCM{}, audio.ErrTruncated
		}
		return audio.PCM{Data: it.Data, Format: f}, nil
	}
	return audio.PCM{}, fmt.Errorf("%w: %q", ErrUnsupportedContent, mt)
}
