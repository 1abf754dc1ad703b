package dto

import (
	"time"

	"anoa.com/voteledger/pkg/dto"
	"github.com/google/uuid"
)

type CreateEventRequest struct {
	Title          string     `json:"title" binding:"required,max=200"`
	Description    string     `json:"description" binding:"max=5000"`
	Options        []string   `json:"options" binding:"required,min=2,max=20,dive,required,max=200"`
	PointsRequired int        `json:"points_required" binding:"required,gt=0"`
	EndsAt         *time.Time `json:"ends_at"`
	IsActive       *bool      `json:"is_active"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type ListEventsQuery struct {
	dto.PageQuery
	Sort string `form:"sort" binding:"omitempty,oneof=newest popular"`
}

type SearchEventsQuery struct {
	dto.PageQuery
	Q string `form:"q" binding:"required,max=200"`
}

type EventURI struct {
	EventID string `uri:"event_id" binding:"required,uuid"`
}

type EventResponse struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Options          []string   `json:"options"`
	PointsRequired   int        `json:"points_required"`
	IsActive         bool       `json:"is_active"`
	IsExpired        bool       `json:"is_expired"`
	EndsAt           *time.Time `json:"ends_at"`
	ViewCount        int64      `json:"view_count"`
	VoteCount        int64      `json:"vote_count"`
	CommentCount     int64      `json:"comment_count"`
	InteractionScore int64      `json:"interaction_score"`
	CreatedAt        time.Time  `json:"created_at"`
}
