package dto

import (
	"time"

	"github.com/google/uuid"
)

const (
	KindVote    = "vote"
	KindComment = "comment"
)

type FeedQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

type ActivityItem struct {
	Kind        string    `json:"kind"`
	ID          uuid.UUID `json:"id"`
	VoteEventID uuid.UUID `json:"vote_event_id"`
	EventTitle  string    `json:"event_title"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username,omitempty"`
	Option      string    `json:"option,omitempty"`
	PointsUsed  int       `json:"points_used,omitempty"`
	Content     string    `json:"content,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
