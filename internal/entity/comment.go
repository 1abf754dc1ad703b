package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VoteEventID uuid.UUID `gorm:"type:uuid;not null;index:idx_vote_comments_event_date,priority:1" json:"vote_event_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Username    string    `gorm:"size:50" json:"username"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	LikeCount   int       `gorm:"not null;default:0;check:chk_vote_comments_like_count_non_negative,like_count >= 0" json:"like_count"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_vote_comments_event_date,priority:2,sort:desc;index" json:"created_at"`
}

func (Comment) TableName() string {
	return "vote_comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

type CommentLike struct {
	CommentID uuid.UUID `gorm:"type:uuid;primaryKey" json:"comment_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}
