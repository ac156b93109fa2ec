package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/chemtalk/internal/domains/voice"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/stt/capture"
	"github.com/xpanvictor/chemtalk/pkg/io/tts/stream"
)

// speakTimeout bounds a detached synthesis request.
const speakTimeout = 2 * time.Minute

type SpeechHandler struct {
	voice  *voice.Service
	logger *Logger.Logger
}

func NewSpeechHandler(voiceService *voice.Service, logger *Logger.Logger) *SpeechHandler {
	return &SpeechHandler{voice: voiceService, logger: Logger.OrNop(logger).Named("http.speech")}
}

// Speak queues text for playback on the caller's audio device
// @Summary Speak text
// @Description Synthesis runs after the response; failures reach the user as notifications.
// @Tags Speech
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SpeakRequest true "Text to speak"
// @Success 202 {object} SuccessResponse
// @Failure 503 {object} ErrorResponse "No synthesis backend configured"
// @Router /v1/speech [post]
func (h *SpeechHandler) Speak(c *gin.Context) {
	info, ok := ExtractUserInfo(c)
	if !ok {
		return
	}
	var req SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: err.Error()})
		return
	}

	sess := h.voice.For(info.UserID)
	if !sess.CanSpeak() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Speech synthesis is not configured"})
		return
	}
	speakDetached(c, sess, req.Text, req.Voice, h.logger)
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "Speaking"})
}

// StopSpeaking halts playback and drops queued audio
// @Summary Stop speaking
// @Tags Speech
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Router /v1/speech [delete]
func (h *SpeechHandler) StopSpeaking(c *gin.Context) {
	info, ok := ExtractUserInfo(c)
	if !ok {
		return
	}
	h.voice.For(info.UserID).StopSpeaking()
	c.JSON(http.StatusOK, SuccessResponse{Message: "Stopped"})
}

// Listen records one utterance from the caller's microphone device and
// returns its transcript
// @Summary Listen for one utterance
// @Tags Speech
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ListenResponse
// @Failure 409 {object} ErrorResponse "Already listening, or canceled"
// @Failure 503 {object} ErrorResponse "No microphone or recognizer"
// @Router /v1/speech/listen [post]
func (h *SpeechHandler) Listen(c *gin.Context) {
	info, ok := ExtractUserInfo(c)
	if !ok {
		return
	}
	sess := h.voice.For(info.UserID)
	if !sess.CanListen() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Speech recognition is not available"})
		return
	}

	res, err := sess.Listen(c.Request.Context())
	if err != nil {
		c.JSON(listenStatus(err), ErrorResponse{Error: "Could not hear you", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ListenResponse{Result: res})
}

// CancelListening ends an active listening session
// @Summary Cancel listening
// @Tags Speech
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Router /v1/speech/listen [delete]
func (h *SpeechHandler) CancelListening(c *gin.Context) {
	info, ok := ExtractUserInfo(c)
	if !ok {
		return
	}
	h.voice.For(info.UserID).CancelListening()
	c.JSON(http.StatusOK, SuccessResponse{Message: "Canceled"})
}

func listenStatus(err error) int {
	switch {
	case errors.Is(err, capture.ErrBusy), errors.Is(err, capture.ErrCanceled):
		return http.StatusConflict
	case errors.Is(err, capture.ErrUnsupported):
		return http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrNoSpeech):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// speakDetached lets synthesis outlive the HTTP request that asked for it.
func speakDetached(c *gin.Context, sess *voice.Session, text, voiceName string, logger *Logger.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), speakTimeout)
	results := sess.Speak(ctx, text, stream.Options{Voice: voiceName})
	go func() {
		defer cancel()
		if res := <-results; res.Err != nil {
			logger.Warnf("speak: %v", res.Err)
		}
	}()
}
