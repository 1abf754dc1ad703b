package handler

import (
	"net/http"

	activityDto "anoa.com/voteledger/internal/modules/activity/dto"
	activity "anoa.com/voteledger/internal/modules/activity/service"
	"anoa.com/voteledger/pkg/response"
	"anoa.com/voteledger/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	service activity.ActivityService
}

func NewActivityHandler(service activity.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

func (h *ActivityHandler) GetFeed(c *gin.Context) {
	var q activityDto.FeedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	items, err := h.service.GetFeed(c.Request.Context(), q.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
