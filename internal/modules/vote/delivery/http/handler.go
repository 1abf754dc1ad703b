package handler

import (
	"net/http"

	eventDto "anoa.com/voteledger/internal/modules/event/dto"
	voteDto "anoa.com/voteledger/internal/modules/vote/dto"
	vote "anoa.com/voteledger/internal/modules/vote/service"
	"anoa.com/voteledger/pkg/dto"
	"anoa.com/voteledger/pkg/response"
	"anoa.com/voteledger/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type VoteHandler struct {
	service vote.VoteService
}

func NewVoteHandler(service vote.VoteService) *VoteHandler {
	return &VoteHandler{service: service}
}

// CastVote handles POST /api/events/:event_id/votes
func (h *VoteHandler) CastVote(c *gin.Context) {
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

	var req voteDto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.CastVote(c.Request.Context(), uuid.MustParse(uri.EventID), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *VoteHandler) GetStatistics(c *gin.Context) {
	var uri eventDto.EventURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	resp, err := h.service.GetStatistics(c.Request.Context(), uuid.MustParse(uri.EventID))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RebuildTallies is an admin operation: POST /api/admin/events/:event_id/tallies/rebuild
func (h *VoteHandler) RebuildTallies(c *gin.Context) {
	var uri eventDto.EventURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	resp, err := h.service.RebuildTallies(c.Request.Context(), uuid.MustParse(uri.EventID))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *VoteHandler) GetMyVote(c *gin.Context) {
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

	resp, err := h.service.GetMyVote(c.Request.Context(), uuid.MustParse(uri.EventID), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *VoteHandler) GetMyVotes(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.GetMyVotes(c.Request.Context(), userID, q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
