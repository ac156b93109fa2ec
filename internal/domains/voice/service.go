package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	pkgio "github.com/xpanvictor/chemtalk/pkg/io"
	"github.com/xpanvictor/chemtalk/pkg/io/playback"
	"github.com/xpanvictor/chemtalk/pkg/io/registry"
	"github.com/xpanvictor/chemtalk/pkg/io/stt"
	"github.com/xpanvictor/chemtalk/pkg/io/stt/capture"
	"github.com/xpanvictor/chemtalk/pkg/io/stt/vad"
	"github.com/xpanvictor/chemtalk/pkg/io/tts"
	"github.com/xpanvictor/chemtalk/pkg/io/tts/stream"
)

// Notifier shows user-visible signals; it must not block.
type Notifier interface {
	Notify(kind pkgio.NotificationKind, title, message string)
}

type Deps struct {
	Synth      tts.Synthesizer
	Recognizer stt.Recognizer
	Detector   vad.Detector
	Registry   registry.Registry
	Publisher  *pkgio.Publisher
	Capture    capture.Config
	// NotifySuccess also reports finished speech and transcripts.
	NotifySuccess bool
}

// Service owns one voice Session per user: that user's output queue and
// microphone session.
type Service struct {
	deps   Deps
	logger *Logger.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewService(deps Deps, logger *Logger.Logger) *Service {
	return &Service{
		deps:     deps,
		logger:   Logger.OrNop(logger).Named("voice"),
		sessions: make(map[uuid.UUID]*Session),
	}
}

// For returns the user's session, creating it on first use. Handing a
// session out counts as use, so Reap leaves it alone for another idle period.
func (s *Service) For(userID uuid.UUID) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.touch(0)
		return sess
	}
	sess := s.newSession(userID)
	s.sessions[userID] = sess
	return sess
}

func (s *Service) newSession(userID uuid.UUID) *Session {
	logger := s.logger.Named(userID.String()[:8])
	queue := playback.NewQueue(playback.PCMDecoder{}, playback.NewDeviceSink(s.deps.Registry, userID, logger), logger)

	var notifier Notifier = nopNotifier{}
	if s.deps.Publisher != nil {
		notifier = s.deps.Publisher.ForUser(userID)
	}
	var mic capture.Microphone
	if s.deps.Registry != nil {
		mic = capture.NewDeviceMicrophone(s.deps.Registry, userID)
	}
	return &Session{
		userID:        userID,
		streamer:      stream.New(s.deps.Synth, queue, logger),
		queue:         queue,
		capture:       capture.New(mic, s.deps.Detector, s.deps.Recognizer, s.deps.Capture, logger),
		notifier:      notifier,
		notifySuccess: s.deps.NotifySuccess,
		logger:        logger,
		lastUsed:      time.Now(),
	}
}

// Reap closes sessions that are idle and unused for longer than idle. The
// check runs under the same lock as For, so a session For just returned is
// never closed underneath its caller.
func (s *Service) Reap(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if sess.idleFor() > idle {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}
	return len(stale)
}

func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[uuid.UUID]*Session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.Close()
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(pkgio.NotificationKind, string, string) {}

type Session struct {
	userID        uuid.UUID
	streamer      *stream.Streamer
	queue         *playback.Queue
	capture       *capture.Capture
	notifier      Notifier
	notifySuccess bool
	logger        *Logger.Logger

	mu       sync.Mutex
	lastUsed time.Time
	inflight int
}

func (s *Session) touch(delta int) {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.inflight += delta
	s.mu.Unlock()
}

func (s *Session) idleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 || !s.queue.Idle() {
		return 0
	}
	return time.Since(s.lastUsed)
}

// Speak synthesizes text and queues it for playback. The channel yields one
// result; failures are also pushed to the user as error notifications.
func (s *Session) Speak(ctx context.Context, text string, opts stream.Options) <-chan stream.Result {
	s.touch(1)
	in := s.streamer.Stream(ctx, text, opts)
	out := make(chan stream.Result, 1)
	go func() {
		defer close(out)
		defer s.touch(-1)
		res := <-in
		switch {
		case res.Err != nil:
			s.notifier.Notify(pkgio.KindError, "Speech unavailable", res.Err.Error())
		case s.notifySuccess:
			s.notifier.Notify(pkgio.KindSuccess, "Speaking", "")
		}
		out <- res
	}()
	return out
}

// StopSpeaking halts playback and drops queued audio.
func (s *Session) StopSpeaking() {
	s.touch(0)
	s.queue.Stop()
}

func (s *Session) CanSpeak() bool {
	return s.streamer.Configured()
}

func (s *Session) CanListen() bool {
	return s.capture.IsSupported()
}

// Listen captures one utterance from the user's microphone endpoint.
func (s *Session) Listen(ctx context.Context) (capture.RecognitionResult, error) {
	s.touch(1)
	defer s.touch(-1)

	res, err := s.capture.Listen(ctx)
	switch {
	case err == nil:
		if s.notifySuccess {
			s.notifier.Notify(pkgio.KindInfo, "Heard you", res.Transcript)
		}
	case errors.Is(err, capture.ErrBusy), errors.Is(err, capture.ErrCanceled):
		// the caller asked for this
	default:
		s.notifier.Notify(pkgio.KindError, "Could not hear you", err.Error())
	}
	return res, err
}

func (s *Session) CancelListening() {
	s.capture.Cancel()
}

func (s *Session) Close() {
	s.capture.Cancel()
	s.queue.Close()
}
