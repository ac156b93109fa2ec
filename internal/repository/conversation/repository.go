package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/internal/types"
	"gorm.io/gorm"
)

var ErrNotFound = types.ErrConversationNotFound

type GormConversationRepo struct {
	db *gorm.DB
}

func NewGormConversationRepo(db *gorm.DB) types.ConversationRepository {
	return &GormConversationRepo{db: db}
}

// InsertConversation implements types.ConversationRepository.
func (g *GormConversationRepo) InsertConversation(ctx context.Context, c types.Conversation) (*types.Conversation, error) {
	var ce ConversationEntity
	ce.FromDomain(c)
	if err := g.db.WithContext(ctx).Create(&ce).Error; err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	out := ce.ToDomain()
	return &out, nil
}

// GetConversation implements types.ConversationRepository.
func (g *GormConversationRepo) GetConversation(ctx context.Context, id uuid.UUID) (*types.Conversation, error) {
	var ce ConversationEntity
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&ce).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	out := ce.ToDomain()
	return &out, nil
}

// InsertMessage implements types.ConversationRepository.
func (g *GormConversationRepo) InsertMessage(ctx context.Context, m types.Message) (*types.Message, error) {
	var me MessageEntity
	me.FromDomain(&m)
	if err := g.db.WithContext(ctx).Create(&me).Error; err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return me.ToDomain(), nil
}

// ListConversations implements types.ConversationRepository. Newest first.
func (g *GormConversationRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]types.Conversation, error) {
	var rows []ConversationEntity
	err := g.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	out := make([]types.Conversation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// ListMessages implements types.ConversationRepository. Oldest first.
func (g *GormConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]types.Message, error) {
	var rows []MessageEntity
	err := g.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]types.Message, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// MarkConversationInactive implements types.ConversationRepository.
func (g *GormConversationRepo) MarkConversationInactive(ctx context.Context, id uuid.UUID) error {
	res := g.db.WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("id = ?", id).
		Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("mark inactive: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
