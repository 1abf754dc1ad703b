package response

import (
	"log/slog"
	"net/http"

	"anoa.com/voteledger/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// GetOptionalUserID returns the caller's ID when the request carried a valid token.
func GetOptionalUserID(c *gin.Context) *uuid.UUID {
	userID, err := GetUserID(c)
	if err != nil {
		return nil
	}
	return &userID
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		slog.Error("internal error", "path", c.FullPath(), "error", err)
		c.JSON(code, gin.H{"error": apperror.ErrInternal.Error(), "outcome": apperror.OutcomeInternal})
		return
	}

	c.JSON(code, gin.H{"error": err.Error(), "outcome": apperror.OutcomeOf(err)})
}

// BadRequest writes a 400 with an invalid_input outcome.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "outcome": apperror.OutcomeInvalidInput})
}
