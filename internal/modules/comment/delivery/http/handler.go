package handler

import (
	"errors"
	"fmt"
	"net/http"

	commentDto "anoa.com/voteledger/internal/modules/comment/dto"
	comment "anoa.com/voteledger/internal/modules/comment/service"
	eventDto "anoa.com/voteledger/internal/modules/event/dto"
	"anoa.com/voteledger/pkg/apperror"
	"anoa.com/voteledger/pkg/dto"
	"anoa.com/voteledger/pkg/ratelimiter"
	"anoa.com/voteledger/pkg/response"
	"anoa.com/voteledger/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CommentHandler struct {
	service comment.CommentService
}

func NewCommentHandler(service comment.CommentService) *CommentHandler {
	return &CommentHandler{service: service}
}

// PostComment handles POST /api/events/:event_id/comments
func (h *CommentHandler) PostComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri eventDto.EventURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	var req commentDto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.PostComment(c.Request.Context(), uuid.MustParse(uri.EventID), userID, c.GetString("username"), req)
	if err != nil {
		var rateLimitErr *ratelimiter.RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": rateLimitErr.Message, "outcome": apperror.OutcomeRateLimitExceeded})
			return
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *CommentHandler) ListComments(c *gin.Context) {
	var uri eventDto.EventURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.ListComments(c.Request.Context(), uuid.MustParse(uri.EventID), response.GetOptionalUserID(c), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ToggleLike handles POST /api/comments/:comment_id/like
func (h *CommentHandler) ToggleLike(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commentDto.CommentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid comment id")
		return
	}

	resp, err := h.service.ToggleLike(c.Request.Context(), uuid.MustParse(uri.CommentID), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
