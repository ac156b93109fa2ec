package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret not configured")
)

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SessionService issues and checks the signed tokens sessions arrive with.
// Accounts live elsewhere; this only vouches for the user id.
type SessionService interface {
	IssueToken(userID uuid.UUID, email string, ttl time.Duration) (string, error)
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

type sessionService struct {
	logger    *Logger.Logger
	jwtSecret string
	now       func() time.Time
}

func NewSessionService(jwtSecret string, logger *Logger.Logger) SessionService {
	return &sessionService{jwtSecret: jwtSecret, logger: Logger.OrNop(logger), now: time.Now}
}

func (s *sessionService) IssueToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	if s.jwtSecret == "" {
		return "", ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := s.now()
	claims := Claims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "chemtalk",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken implements SessionService
func (s *sessionService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if s.jwtSecret == "" {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		s.logger.Debugf("token rejected: %v", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
