package conversation

import (
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
	"gorm.io/gorm"
)

type ConversationEntity struct {
	ID        uuid.UUID      `gorm:"primaryKey;type:char(36);not null"`
	OwnerID   uuid.UUID      `gorm:"column:owner_id;type:char(36);not null;index"`
	Title     string         `gorm:"type:varchar(255)"`
	Active    bool           `gorm:"not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"` // For soft delete
}

func (ConversationEntity) TableName() string { return "conversations" }

func (c *ConversationEntity) FromDomain(conv types.Conversation) {
	c.ID = conv.ID
	c.OwnerID = conv.OwnerID
	c.Title = conv.Title
	c.Active = conv.Active
	c.CreatedAt = conv.CreatedAt
	c.UpdatedAt = conv.UpdatedAt
}

func (c *ConversationEntity) ToDomain() types.Conversation {
	return types.Conversation{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Title:     c.Title,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type MessageEntity struct {
	ID             uuid.UUID `gorm:"primaryKey;type:char(36);not null"`
	UserID         uuid.UUID `gorm:"column:user_id;type:char(36);not null"`
	ConversationID uuid.UUID `gorm:"column:conversation_id;type:char(36);not null;index:idx_conv_sent"`
	Text           string    `gorm:"type:text"`
	Role           string    `gorm:"type:varchar(16)"`
	SentAt         time.Time `gorm:"column:sent_at;index:idx_conv_sent"`
}

func (MessageEntity) TableName() string { return "messages" }

func (me *MessageEntity) FromDomain(msg *types.Message) {
	me.ID = msg.Id
	me.UserID = msg.UserId
	me.ConversationID = msg.ConversationID
	me.Text = msg.Text
	me.Role = string(msg.MsgRole)
	me.SentAt = msg.Timestamp
}

func (me *MessageEntity) ToDomain() *types.Message {
	return &types.Message{
		Id:             me.ID,
		UserId:         me.UserID,
		ConversationID: me.ConversationID,
		Text:           me.Text,
		Timestamp:      me.SentAt,
		MsgRole:        adapters.MsgRole(me.Role),
	}
}
