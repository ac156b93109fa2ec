package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/chemtalk/internal/domains/conversation"
	"github.com/xpanvictor/chemtalk/internal/domains/voice"
	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
)

type ConversationHandler struct {
	convoService conversation.ConversationService
	voice        *voice.Service
	logger       *Logger.Logger
}

// NewConvoHandler builds the handler. voiceService may be nil, in which case
// requests asking to speak the answer get it as text only.
func NewConvoHandler(
	convoService conversation.ConversationService,
	voiceService *voice.Service,
	logger *Logger.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		convoService: convoService,
		voice:        voiceService,
		logger:       Logger.OrNop(logger).Named("http.conversation"),
	}
}

// StartConversation opens a new conversation
// @Summary Start a conversation
// @Tags Conversation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body types.CreateConversation false "Conversation title"
// @Success 201 {object} ConversationResponse
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /v1/conversations [post]
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req types.CreateConversation
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: err.Error()})
			return
		}
	}

	conv, err := h.convoService.Start(c.Request.Context(), req.Title)
	if err != nil {
		h.logger.Errorf("start conversation: %v", err)
		c.JSON(persistenceStatus(err), ErrorResponse{Error: "Could not start conversation"})
		return
	}
	c.JSON(http.StatusCreated, ConversationResponse{Conversation: *conv})
}

// ListConversations lists the caller's conversations
// @Summary List conversations
// @Tags Conversation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ConversationListResponse
// @Router /v1/conversations [get]
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	convs, err := h.convoService.List(c.Request.Context())
	if err != nil {
		h.logger.Errorf("list conversations: %v", err)
		c.JSON(persistenceStatus(err), ErrorResponse{Error: "Could not list conversations"})
		return
	}
	if convs == nil {
		convs = []types.Conversation{}
	}
	c.JSON(http.StatusOK, ConversationListResponse{Conversations: convs})
}

// RetrieveMessages returns a conversation's stored messages, oldest first
// @Summary Conversation history
// @Tags Conversation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation id"
// @Success 200 {object} MessagesResponse
// @Router /v1/conversations/{id}/messages [get]
func (h *ConversationHandler) RetrieveMessages(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	msgs, err := h.convoService.History(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("history %s: %v", id, err)
		c.JSON(persistenceStatus(err), ErrorResponse{Error: "Could not load messages"})
		return
	}
	if msgs == nil {
		msgs = []types.Message{}
	}
	c.JSON(http.StatusOK, MessagesResponse{Messages: msgs})
}

// EndConversation marks a conversation inactive
// @Summary End a conversation
// @Tags Conversation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation id"
// @Success 200 {object} SuccessResponse
// @Router /v1/conversations/{id} [delete]
func (h *ConversationHandler) EndConversation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.convoService.End(c.Request.Context(), id); err != nil {
		h.logger.Errorf("end %s: %v", id, err)
		c.JSON(persistenceStatus(err), ErrorResponse{Error: "Could not end conversation"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Conversation ended"})
}

// Answer answers an utterance inside a conversation and stores the exchange
// @Summary Answer within a conversation
// @Description Always returns an answer. A storage failure is reported in the warning field.
// @Tags Conversation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation id"
// @Param request body AnswerRequest true "Utterance"
// @Success 200 {object} AnswerResponse
// @Failure 400 {object} ErrorResponse "Invalid request data"
// @Failure 404 {object} ErrorResponse "Conversation not found"
// @Router /v1/conversations/{id}/answer [post]
func (h *ConversationHandler) Answer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: err.Error()})
		return
	}

	answer, err := h.convoService.Chat(c.Request.Context(), id, req.Utterance, req.Context)
	if errors.Is(err, conversation.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Conversation not found"})
		return
	}
	resp := AnswerResponse{Answer: answer}
	if err != nil {
		var perr *conversation.PersistenceError
		if !errors.As(err, &perr) {
			h.logger.Errorf("chat %s: %v", id, err)
		}
		resp.Warning = "answer was not saved"
	}
	if req.Speak {
		resp.Speaking = h.speak(c, answer.Text)
	}
	c.JSON(http.StatusOK, resp)
}

// Ask answers a single utterance with no conversation attached
// @Summary Stateless answer
// @Tags Conversation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AnswerRequest true "Utterance"
// @Success 200 {object} AnswerResponse
// @Router /v1/answer [post]
func (h *ConversationHandler) Ask(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: err.Error()})
		return
	}
	answer := h.convoService.Ask(c.Request.Context(), req.Utterance, req.Context)
	resp := AnswerResponse{Answer: answer}
	if req.Speak {
		resp.Speaking = h.speak(c, answer.Text)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) speak(c *gin.Context, text string) bool {
	if h.voice == nil {
		return false
	}
	info, ok := userInfo(c)
	if !ok {
		return false
	}
	sess := h.voice.For(info.UserID)
	if !sess.CanSpeak() {
		return false
	}
	speakDetached(c, sess, text, "", h.logger)
	return true
}
