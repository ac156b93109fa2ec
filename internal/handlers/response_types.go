package handlers

import (
	"github.com/xpanvictor/chemtalk/internal/domains/reference"
	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/assistant/router"
	"github.com/xpanvictor/chemtalk/pkg/io/stt/capture"
)

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string `json:"message" example:"Operation completed successfully"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"Something went wrong"`
	Details string `json:"details,omitempty" example:"Validation error details"`
}

type ConversationResponse struct {
	Conversation types.Conversation `json:"conversation"`
}

type ConversationListResponse struct {
	Conversations []types.Conversation `json:"conversations"`
}

type MessagesResponse struct {
	Messages []types.Message `json:"messages"`
}

// AnswerRequest is an utterance with optional context. Speak also queues the
// answer for playback on the user's audio device.
type AnswerRequest struct {
	Utterance string             `json:"utterance" binding:"required" example:"Is water polar?"`
	Context   *types.ChatContext `json:"context,omitempty"`
	Speak     bool               `json:"speak,omitempty"`
}

// AnswerResponse carries the answer. Warning is set when the answer could not
// be stored; the answer itself is still good.
type AnswerResponse struct {
	Answer   types.AnswerResult `json:"answer"`
	Warning  string             `json:"warning,omitempty"`
	Speaking bool               `json:"speaking,omitempty"`
}

type SpeakRequest struct {
	Text  string `json:"text" binding:"required" example:"Water is a polar molecule."`
	Voice string `json:"voice,omitempty"`
}

type ListenResponse struct {
	Result capture.RecognitionResult `json:"result"`
}

type ModelsResponse struct {
	Active    string           `json:"active,omitempty"`
	Providers []router.Catalog `json:"providers"`
}

type ReferenceResponse struct {
	Compound reference.Compound `json:"compound"`
}
