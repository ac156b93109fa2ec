package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/internal/domains/conversation"
)

type HTTPUserInfo struct {
	UserID uuid.UUID
	Email  string
}

// ExtractUserInfo reads the session set by AuthMiddleware and answers 401
// when there is none.
func ExtractUserInfo(c *gin.Context) (HTTPUserInfo, bool) {
	info, ok := userInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
		return HTTPUserInfo{}, false
	}
	return info, true
}

func userInfo(c *gin.Context) (HTTPUserInfo, bool) {
	userID := c.GetString("userID") // From JWT middleware
	if userID == "" {
		return HTTPUserInfo{}, false
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return HTTPUserInfo{}, false
	}
	return HTTPUserInfo{
		UserID: userUUID,
		Email:  c.GetString("email"),
	}, true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name, Details: err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

// persistenceStatus maps a conversation service error to a status code.
func persistenceStatus(err error) int {
	switch {
	case errors.Is(err, conversation.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, conversation.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
