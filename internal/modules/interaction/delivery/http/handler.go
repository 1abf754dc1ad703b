package handler

import (
	"net/http"

	"anoa.com/voteledger/internal/entity"
	eventDto "anoa.com/voteledger/internal/modules/event/dto"
	interactionDto "anoa.com/voteledger/internal/modules/interaction/dto"
	interaction "anoa.com/voteledger/internal/modules/interaction/service"
	"anoa.com/voteledger/pkg/response"
	"anoa.com/voteledger/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InteractionHandler struct {
	service interaction.InteractionService
}

func NewInteractionHandler(service interaction.InteractionService) *InteractionHandler {
	return &InteractionHandler{service: service}
}

// RecordInteraction handles POST /api/events/:event_id/interactions
func (h *InteractionHandler) RecordInteraction(c *gin.Context) {
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

	var req interactionDto.RecordInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.RecordInteraction(c.Request.Context(), uuid.MustParse(uri.EventID), userID, entity.InteractionType(req.Type))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
