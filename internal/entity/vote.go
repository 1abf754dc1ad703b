package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote is immutable once written.
type Vote struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VoteEventID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_event_user,priority:1" json:"vote_event_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_event_user,priority:2;index" json:"user_id"`
	OptionSelected string    `gorm:"size:200;not null" json:"option_selected"`
	PointsUsed     int       `gorm:"not null" json:"points_used"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Vote) TableName() string {
	return "votes"
}

func (v *Vote) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID, err = uuid.NewV7()
	}
	return
}

// VoteTally is the per-option aggregate kept in step with the votes table.
type VoteTally struct {
	VoteEventID uuid.UUID `gorm:"type:uuid;primaryKey" json:"vote_event_id"`
	Option      string    `gorm:"size:200;primaryKey" json:"option"`
	VoteCount   int64     `gorm:"not null;default:0" json:"vote_count"`
	PointsTotal int64     `gorm:"not null;default:0" json:"points_total"`
}

func (VoteTally) TableName() string {
	return "vote_tallies"
}
