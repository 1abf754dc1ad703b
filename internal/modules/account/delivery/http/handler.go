package handler

import (
	"net/http"

	accountDto "anoa.com/voteledger/internal/modules/account/dto"
	account "anoa.com/voteledger/internal/modules/account/service"
	"anoa.com/voteledger/pkg/dto"
	"anoa.com/voteledger/pkg/response"
	"anoa.com/voteledger/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AccountHandler struct {
	service account.AccountService
}

func NewAccountHandler(service account.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) GetMyAccount(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	resp, err := h.service.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AccountHandler) GetMyHistory(c *gin.Context) {
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

	resp, err := h.service.GetHistory(c.Request.Context(), userID, q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreditAccount is an admin operation: POST /api/admin/accounts/:user_id/credit
func (h *AccountHandler) CreditAccount(c *gin.Context) {
	var uri accountDto.AccountURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req accountDto.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.service.Credit(c.Request.Context(), uuid.MustParse(uri.UserID), req.Amount, req.Note)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
