package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

// SessionProvider supplies the current user.
type SessionProvider interface {
	UserID(ctx context.Context) (uuid.UUID, bool)
}

type ConversationService interface {
	Start(ctx context.Context, title string) (*types.Conversation, error)
	List(ctx context.Context) ([]types.Conversation, error)
	History(ctx context.Context, conversationID uuid.UUID) ([]types.Message, error)
	End(ctx context.Context, conversationID uuid.UUID) error
	// Chat answers and then persists both sides of the exchange. A
	// *PersistenceError comes back together with a usable answer. ErrNotFound
	// comes back alone, for unknown ids and other users' conversations.
	Chat(ctx context.Context, conversationID uuid.UUID, utterance string, chatCtx *types.ChatContext) (types.AnswerResult, error)
	// Ask answers outside any conversation; nothing is stored.
	Ask(ctx context.Context, utterance string, chatCtx *types.ChatContext) types.AnswerResult
}

type conversationService struct {
	orch       *Orchestrator
	repository types.ConversationRepository
	sessions   SessionProvider
	logger     *Logger.Logger
	now        func() time.Time
}

func NewConversationService(
	orch *Orchestrator,
	repository types.ConversationRepository,
	sessions SessionProvider,
	logger *Logger.Logger,
) ConversationService {
	return &conversationService{
		orch:       orch,
		repository: repository,
		sessions:   sessions,
		logger:     Logger.OrNop(logger).Named("conversation"),
		now:        time.Now,
	}
}

func (c *conversationService) user(ctx context.Context, op string) (uuid.UUID, error) {
	if c.sessions == nil {
		return uuid.Nil, persistErr(op, ErrUnauthenticated)
	}
	id, ok := c.sessions.UserID(ctx)
	if !ok {
		return uuid.Nil, persistErr(op, ErrUnauthenticated)
	}
	return id, nil
}

// Start implements ConversationService.
func (c *conversationService) Start(ctx context.Context, title string) (*types.Conversation, error) {
	uid, err := c.user(ctx, "insert_conversation")
	if err != nil {
		return nil, err
	}
	now := c.now()
	conv, err := c.repository.InsertConversation(ctx, types.Conversation{
		ID:        uuid.New(),
		OwnerID:   uid,
		Title:     title,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, persistErr("insert_conversation", err)
	}
	// a fresh conversation has nothing to replay
	c.orch.Window().Rebuild(conv.ID.String(), nil)
	return conv, nil
}

// List implements ConversationService.
func (c *conversationService) List(ctx context.Context) ([]types.Conversation, error) {
	uid, err := c.user(ctx, "list_conversations")
	if err != nil {
		return nil, err
	}
	convs, err := c.repository.ListConversations(ctx, uid)
	return convs, persistErr("list_conversations", err)
}

// owned loads the conversation and checks it belongs to uid. Someone else's
// conversation is reported as not found.
func (c *conversationService) owned(ctx context.Context, uid, conversationID uuid.UUID) error {
	conv, err := c.repository.GetConversation(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return persistErr("get_conversation", err)
	}
	if conv.OwnerID != uid {
		c.logger.Warnf("user %s denied conversation %s", uid, conversationID)
		return ErrNotFound
	}
	return nil
}

// History implements ConversationService.
func (c *conversationService) History(ctx context.Context, conversationID uuid.UUID) ([]types.Message, error) {
	uid, err := c.user(ctx, "list_messages")
	if err != nil {
		return nil, err
	}
	if err := c.owned(ctx, uid, conversationID); err != nil {
		return nil, err
	}
	msgs, err := c.repository.ListMessages(ctx, conversationID)
	return msgs, persistErr("list_messages", err)
}

// End implements ConversationService.
func (c *conversationService) End(ctx context.Context, conversationID uuid.UUID) error {
	uid, err := c.user(ctx, "mark_conversation_inactive")
	if err != nil {
		return err
	}
	if err := c.owned(ctx, uid, conversationID); err != nil {
		return err
	}
	if err := c.repository.MarkConversationInactive(ctx, conversationID); err != nil {
		return persistErr("mark_conversation_inactive", err)
	}
	c.orch.Window().Forget(conversationID.String())
	return nil
}

// rehydrate replays stored messages into the window the first time an id is
// seen. A concurrent first call that loses the race keeps the winner's window.
func (c *conversationService) rehydrate(ctx context.Context, conversationID uuid.UUID) error {
	key := conversationID.String()
	if c.orch.Window().Has(key) {
		return nil
	}
	msgs, err := c.repository.ListMessages(ctx, conversationID)
	if err != nil {
		return persistErr("list_messages", err)
	}
	if c.orch.Window().Load(key, msgs) {
		c.logger.Debugf("rehydrated %s with %d messages", key, len(msgs))
	}
	return nil
}

// Chat implements ConversationService.
func (c *conversationService) Chat(
	ctx context.Context,
	conversationID uuid.UUID,
	utterance string,
	chatCtx *types.ChatContext,
) (types.AnswerResult, error) {
	uid, err := c.user(ctx, "insert_message")
	if err != nil {
		// no owner to check against, so the stored window stays out of it
		return c.orch.Answer(ctx, utterance, chatCtx, ""), err
	}
	switch err := c.owned(ctx, uid, conversationID); {
	case errors.Is(err, ErrNotFound):
		return types.AnswerResult{}, err
	case err != nil:
		// ownership is unknown, so nothing stored is replayed or written
		return c.orch.Answer(ctx, utterance, chatCtx, ""), err
	}
	if err := c.rehydrate(ctx, conversationID); err != nil {
		// continuity is lost for this turn only; the answer still goes out
		c.logger.Errorf("rehydrate %s: %v", conversationID, err)
	}
	answer := c.orch.Answer(ctx, utterance, chatCtx, conversationID.String())

	asked := c.now()
	answered := c.now()
	if !answered.After(asked) {
		answered = asked.Add(time.Millisecond)
	}
	if _, err := c.repository.InsertMessage(ctx, types.NewMessage(uid, conversationID, adapters.USER, utterance, asked)); err != nil {
		c.logger.Errorf("store user message: %v", err)
		return answer, persistErr("insert_message", err)
	}
	if _, err := c.repository.InsertMessage(ctx, types.NewMessage(uid, conversationID, adapters.ASSISTANT, answer.Text, answered)); err != nil {
		c.logger.Errorf("store assistant message: %v", err)
		return answer, persistErr("insert_message", err)
	}
	return answer, nil
}

// Ask implements ConversationService.
func (c *conversationService) Ask(ctx context.Context, utterance string, chatCtx *types.ChatContext) types.AnswerResult {
	return c.orch.Answer(ctx, utterance, chatCtx, "")
}
