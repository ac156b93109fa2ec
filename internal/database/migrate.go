package database

import (
	"github.com/xpanvictor/chemtalk/internal/repository/conversation"
	"gorm.io/gorm"
)

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&conversation.ConversationEntity{},
		&conversation.MessageEntity{},
	)
}
