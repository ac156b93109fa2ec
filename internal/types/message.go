package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

// ChatContext is an optional hint folded into the prompt of one call.
type ChatContext struct {
	Subject string `json:"subject,omitempty" example:"H2O"`
	Topic   string `json:"topic,omitempty" example:"bonding"`
}

func (c *ChatContext) Empty() bool {
	return c == nil || (strings.TrimSpace(c.Subject) == "" && strings.TrimSpace(c.Topic) == "")
}

// Normalized trims and collapses whitespace in both fields. Case is kept;
// "Co" and "CO" are different subjects. An empty context yields nil.
func (c *ChatContext) Normalized() *ChatContext {
	if c.Empty() {
		return nil
	}
	return &ChatContext{
		Subject: strings.Join(strings.Fields(c.Subject), " "),
		Topic:   strings.Join(strings.Fields(c.Topic), " "),
	}
}

// Annotation renders the one-line prefix used in prompts.
func (c *ChatContext) Annotation() string {
	if c.Empty() {
		return ""
	}
	var parts []string
	if s := strings.TrimSpace(c.Subject); s != "" {
		parts = append(parts, "subject="+s)
	}
	if s := strings.TrimSpace(c.Topic); s != "" {
		parts = append(parts, "topic="+s)
	}
	return fmt.Sprintf("[Context: %s]", strings.Join(parts, ", "))
}

type Origin string

const (
	OriginProvider Origin = "provider"
	OriginFallback Origin = "fallback"
)

// AnswerResult is built once per answer and never changed afterwards.
type AnswerResult struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Origin     Origin          `json:"origin"`
	Usage      *adapters.Usage `json:"usage,omitempty"`
}

type Turn struct {
	Role    adapters.MsgRole `json:"role"`
	Content string           `json:"content"`
}

func (t Turn) ToContractMessage() adapters.ContractMessage {
	return adapters.ContractMessage{Role: t.Role, Content: t.Content}
}

type Message struct {
	Id             uuid.UUID        `json:"id"`
	UserId         uuid.UUID        `json:"user_id"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	Text           string           `json:"text"`
	Timestamp      time.Time        `json:"timestamp"`
	MsgRole        adapters.MsgRole `json:"msg_role"`
}

func NewMessage(userID, conversationID uuid.UUID, role adapters.MsgRole, text string, at time.Time) Message {
	return Message{
		Id:             uuid.New(),
		UserId:         userID,
		ConversationID: conversationID,
		Text:           text,
		Timestamp:      at,
		MsgRole:        role,
	}
}

func (m *Message) ToTurn() Turn {
	return Turn{Role: m.MsgRole, Content: m.Text}
}

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateConversation request body
// @Description Conversation creation body
type CreateConversation struct {
	Title string `json:"title" example:"Acids and bases"`
}

// AskRequest request body
// @Description Utterance with optional context
type AskRequest struct {
	Utterance string       `json:"utterance" binding:"required" example:"What is water?"`
	Context   *ChatContext `json:"context,omitempty"`
}

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository is the durable store. Calls are not retried here.
type ConversationRepository interface {
	InsertConversation(ctx context.Context, c Conversation) (*Conversation, error)
	// GetConversation fails with ErrConversationNotFound for unknown ids.
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	InsertMessage(ctx context.Context, m Message) (*Message, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]Conversation, error)
	// ListMessages returns messages ordered by timestamp, oldest first.
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
	MarkConversationInactive(ctx context.Context, id uuid.UUID) error
}
