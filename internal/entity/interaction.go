package entity

import (
	"time"

	"github.com/google/uuid"
)

type InteractionType string

const (
	InteractionView    InteractionType = "view"
	InteractionVote    InteractionType = "vote"
	InteractionComment InteractionType = "comment"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionVote, InteractionComment:
		return true
	}
	return false
}

// Weight is the score contribution of the first interaction of this type.
func (t InteractionType) Weight() int64 {
	switch t {
	case InteractionView:
		return 1
	case InteractionVote:
		return 5
	case InteractionComment:
		return 3
	}
	return 0
}

// CounterColumn is the vote_events column counting distinct users for this type.
func (t InteractionType) CounterColumn() string {
	switch t {
	case InteractionView:
		return "view_count"
	case InteractionVote:
		return "vote_count"
	case InteractionComment:
		return "comment_count"
	}
	return ""
}

type Interaction struct {
	VoteEventID     uuid.UUID       `gorm:"type:uuid;primaryKey" json:"vote_event_id"`
	UserID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	InteractionType InteractionType `gorm:"size:20;primaryKey" json:"interaction_type"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Interaction) TableName() string {
	return "vote_interactions"
}
