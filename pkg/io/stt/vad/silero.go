package vad

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/audio"
	audioring "github.com/xpanvictor/chemtalk/pkg/io/stt/audioRing"
)

var ErrClosed = errors.New("vad: closed")

type sileroResponse struct {
	HasVoice         bool    `json:"has_voice"`
	Confidence       float32 `json:"confidence"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

// Silero asks a silero-vad HTTP service and drops to the energy gate when the
// service is unreachable.
type Silero struct {
	cfg        Config
	logger     *Logger.Logger
	serviceURL string
	httpClient *http.Client
	energy     *Energy

	mu     sync.Mutex
	closed bool
}

func NewSilero(cfg Config, serviceURL string, logger *Logger.Logger) *Silero {
	return &Silero{
		cfg:        cfg,
		logger:     Logger.OrNop(logger).Named("vad"),
		serviceURL: serviceURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		energy:     NewEnergy(cfg),
	}
}

func (s *Silero) DetectVoice(ctx context.Context, window audioring.Frame) (Result, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Result{}, ErrClosed
	}

	// the model needs at least 100ms
	if len(window.Data)/2 < int(s.cfg.SampleRate)/10 {
		return s.energy.DetectVoice(ctx, window)
	}

	res, err := s.call(ctx, window)
	if err != nil {
		s.logger.Warnf("silero unavailable, using energy gate: %v", err)
		return s.energy.DetectVoice(ctx, window)
	}
	return res, nil
}

func (s *Silero) call(ctx context.Context, window audioring.Frame) (Result, error) {
	wav := audio.EncodeWAV(window.Data, audio.Format{
		SampleRate: int(s.cfg.SampleRate),
		Channels:   1,
	})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(wav); err != nil {
		return Result{}, err
	}
	_ = w.WriteField("threshold", strconv.FormatFloat(float64(s.cfg.Threshold), 'f', 3, 32))
	_ = w.WriteField("min_speech_duration_ms", strconv.Itoa(s.cfg.MinSpeechMs))
	_ = w.WriteField("min_silence_duration_ms", strconv.Itoa(s.cfg.MinSilenceMs))
	_ = w.WriteField("sampling_rate", strconv.Itoa(int(s.cfg.SampleRate)))
	if err := w.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serviceURL+"/vad", &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("vad service returned %d: %s", resp.StatusCode, raw)
	}
	var out sileroResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("decode vad response: %w", err)
	}
	s.logger.Debugf("silero: voice=%v conf=%.3f took=%.1fms", out.HasVoice, out.Confidence, out.ProcessingTimeMs)
	return Result{HasVoice: out.HasVoice, Confidence: out.Confidence}, nil
}

func (s *Silero) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
