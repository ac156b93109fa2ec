package playback

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/audio"
	"github.com/xpanvictor/chemtalk/pkg/io/registry"
)

var ErrNoOutput = errors.New("playback: no audio endpoint attached")

const (
	defaultFrame = 20 * time.Millisecond
	// frames sent ahead of real time so the device never starves
	leadFrames = 5
)

// DeviceSink plays PCM on the user's most recently active audio endpoint,
// paced at real time so a Stop takes effect within one frame.
type DeviceSink struct {
	reg    registry.Registry
	userID uuid.UUID
	frame  time.Duration
	logger *Logger.Logger
}

func NewDeviceSink(reg registry.Registry, userID uuid.UUID, logger *Logger.Logger) *DeviceSink {
	return &DeviceSink{
		reg:    reg,
		userID: userID,
		frame:  defaultFrame,
		logger: Logger.OrNop(logger).Named("sink"),
	}
}

type streamInfo struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Seconds    float64 `json:"seconds"`
}

func (s *DeviceSink) Play(ctx context.Context, pcm audio.PCM) error {
	ep, ok := s.reg.SelectAudioSinkMRU(s.userID)
	if !ok {
		return ErrNoOutput
	}
	if err := ep.SendEvent("audio.start", streamInfo{
		SampleRate: pcm.SampleRate,
		Channels:   pcm.Channels,
		Seconds:    pcm.Duration(),
	}); err != nil {
		return err
	}

	step := pcm.BytesPerSecond() * int(s.frame/time.Millisecond) / 1000
	step -= step % (2 * max(pcm.Channels, 1))
	if step <= 0 {
		step = len(pcm.Data)
	}

	tick := time.NewTicker(s.frame)
	defer tick.Stop()

	for seq, off := 0, 0; off < len(pcm.Data); seq, off = seq+1, off+step {
		if seq >= leadFrames {
			select {
			case <-ctx.Done():
				_ = ep.SendEvent("audio.stop", nil)
				return ctx.Err()
			case <-tick.C:
			}
		} else if ctx.Err() != nil {
			_ = ep.SendEvent("audio.stop", nil)
			return ctx.Err()
		}
		end := min(off+step, len(pcm.Data))
		if err := ep.SendAudioFrame(seq, pcm.Data[off:end]); err != nil {
			return err
		}
	}
	// let the lead drain before reporting the item done
	select {
	case <-ctx.Done():
		_ = ep.SendEvent("audio.stop", nil)
		return ctx.Err()
	case <-time.After(time.Duration(leadFrames) * s.frame):
	}
	return ep.SendEvent("audio.end", nil)
}
