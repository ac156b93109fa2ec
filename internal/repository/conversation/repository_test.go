package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) types.ConversationRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ConversationEntity{}, &MessageEntity{}))
	return NewGormConversationRepo(db)
}

func TestConversationLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := uuid.New()

	conv, err := repo.InsertConversation(ctx, types.Conversation{ID: uuid.New(), OwnerID: owner, Title: "Gases", Active: true})
	require.NoError(t, err)
	_, err = repo.InsertConversation(ctx, types.Conversation{ID: uuid.New(), OwnerID: uuid.New(), Title: "other", Active: true})
	require.NoError(t, err)

	list, err := repo.ListConversations(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Gases", list[0].Title)
	assert.True(t, list[0].Active)

	require.NoError(t, repo.MarkConversationInactive(ctx, conv.ID))
	list, err = repo.ListConversations(ctx, owner)
	require.NoError(t, err)
	assert.False(t, list[0].Active)

	assert.ErrorIs(t, repo.MarkConversationInactive(ctx, uuid.New()), ErrNotFound)
}

func TestListMessagesOrderedByTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	conv := uuid.New()
	user := uuid.New()
	base := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)

	for _, m := range []types.Message{
		types.NewMessage(user, conv, adapters.ASSISTANT, "second", base.Add(2*time.Second)),
		types.NewMessage(user, conv, adapters.USER, "first", base),
		types.NewMessage(user, uuid.New(), adapters.USER, "elsewhere", base),
	} {
		_, err := repo.InsertMessage(ctx, m)
		require.NoError(t, err)
	}

	msgs, err := repo.ListMessages(ctx, conv)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, adapters.USER, msgs[0].MsgRole)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, conv, msgs[1].ConversationID)
}

func TestGetConversation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := uuid.New()

	conv, err := repo.InsertConversation(ctx, types.Conversation{ID: uuid.New(), OwnerID: owner, Title: "Redox", Active: true})
	require.NoError(t, err)

	got, err := repo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, "Redox", got.Title)

	_, err = repo.GetConversation(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, types.ErrConversationNotFound)
}
