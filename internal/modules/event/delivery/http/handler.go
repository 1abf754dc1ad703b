package handler

import (
	"net/http"

	eventDto "anoa.com/voteledger/internal/modules/event/dto"
	event "anoa.com/voteledger/internal/modules/event/service"
	"anoa.com/voteledger/pkg/response"
	"anoa.com/voteledger/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventHandler struct {
	service event.EventService
}

func NewEventHandler(service event.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	var q eventDto.ListEventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.ListEvents(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) SearchEvents(c *gin.Context) {
	var q eventDto.SearchEventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.SearchEvents(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	var uri eventDto.EventURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	resp, err := h.service.GetEvent(c.Request.Context(), uuid.MustParse(uri.EventID))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateEvent is an admin operation: POST /api/admin/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req eventDto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.CreateEvent(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SetActive is an admin operation: PATCH /api/admin/events/:event_id/active
func (h *EventHandler) SetActive(c *gin.Context) {
	var uri eventDto.EventURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	var req eventDto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.SetActive(c.Request.Context(), uuid.MustParse(uri.EventID), *req.IsActive)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
