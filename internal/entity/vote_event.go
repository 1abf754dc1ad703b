package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VoteEvent struct {
	ID               uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string                      `gorm:"size:200;not null" json:"title"`
	Description      string                      `gorm:"type:text" json:"description"`
	Options          datatypes.JSONSlice[string] `gorm:"type:jsonb;not null" json:"options"`
	PointsRequired   int                         `gorm:"not null;check:chk_vote_events_points_required_positive,points_required > 0" json:"points_required"`
	IsActive         bool                        `gorm:"not null;index" json:"is_active"`
	EndsAt           *time.Time                  `json:"ends_at"`
	ViewCount        int64                       `gorm:"not null;default:0" json:"view_count"`
	VoteCount        int64                       `gorm:"not null;default:0" json:"vote_count"`
	CommentCount     int64                       `gorm:"not null;default:0" json:"comment_count"`
	InteractionScore int64                       `gorm:"not null;default:0;index:idx_vote_events_popular,sort:desc" json:"interaction_score"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (VoteEvent) TableName() string {
	return "vote_events"
}

func (e *VoteEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID, err = uuid.NewV7()
	}
	return
}

func (e *VoteEvent) HasOption(option string) bool {
	for _, o := range e.Options {
		if o == option {
			return true
		}
	}
	return false
}

// ExpiredAt reports whether the event's end time is at or before now.
func (e *VoteEvent) ExpiredAt(now time.Time) bool {
	return e.EndsAt != nil && !now.Before(*e.EndsAt)
}
