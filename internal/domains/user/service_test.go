package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewSessionService("s3cret", nil)
	id := uuid.New()

	tok, err := svc.IssueToken(id, "ada@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID)

	ctx := WithClaims(context.Background(), claims)
	got, ok := ContextSession{}.UserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestValidateRejects(t *testing.T) {
	svc := NewSessionService("s3cret", nil)
	other := NewSessionService("other", nil)
	tok, err := other.IssueToken(uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ValidateToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewSessionService("", nil).IssueToken(uuid.New(), "", 0)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestSessionsWithoutUser(t *testing.T) {
	_, ok := ContextSession{}.UserID(context.Background())
	assert.False(t, ok)
	_, ok = StaticSession(uuid.Nil).UserID(context.Background())
	assert.False(t, ok)
}
