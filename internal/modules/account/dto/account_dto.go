package dto

import (
	"time"

	"github.com/google/uuid"
)

type AccountResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Points    int       `json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PointLogResponse struct {
	ID          uint      `json:"id"`
	Amount      int       `json:"amount"`
	Action      string    `json:"action"`
	ReferenceID string    `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreditRequest struct {
	Amount int    `json:"amount" binding:"required,gt=0"`
	Note   string `json:"note" binding:"max=36"`
}

type AccountURI struct {
	UserID string `uri:"user_id" binding:"required,uuid"`
}
