package dto

import (
	"time"

	"github.com/google/uuid"
)

type CastVoteRequest struct {
	OptionSelected string `json:"option_selected" binding:"required,max=200"`
	// ExpectedCost is the price the client showed the user. Zero skips the check.
	ExpectedCost int `json:"expected_cost" binding:"omitempty,min=0"`
}

type VoteResponse struct {
	ID             uuid.UUID `json:"id"`
	VoteEventID    uuid.UUID `json:"vote_event_id"`
	UserID         uuid.UUID `json:"user_id"`
	OptionSelected string    `json:"option_selected"`
	PointsUsed     int       `json:"points_used"`
	CreatedAt      time.Time `json:"created_at"`
}

type OptionStatistic struct {
	Option           string `json:"option"`
	VoteCount        int64  `json:"vote_count"`
	TotalPointsSpent int64  `json:"total_points_spent"`
}

type StatisticsResponse struct {
	VoteEventID uuid.UUID         `json:"vote_event_id"`
	Options     []OptionStatistic `json:"options"`
	TotalVotes  int64             `json:"total_votes"`
	TotalPoints int64             `json:"total_points"`
}
