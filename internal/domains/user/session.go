package user

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok && c != nil
}

// ContextSession reads the user id installed by the auth middleware.
type ContextSession struct{}

func (ContextSession) UserID(ctx context.Context) (uuid.UUID, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// StaticSession always reports the same user; the CLI runs as one local user.
type StaticSession uuid.UUID

func (s StaticSession) UserID(context.Context) (uuid.UUID, bool) {
	return uuid.UUID(s), uuid.UUID(s) != uuid.Nil
}
