package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type CommentURI struct {
	CommentID string `uri:"comment_id" binding:"required,uuid"`
}

type CommentResponse struct {
	ID          uuid.UUID `json:"id"`
	VoteEventID uuid.UUID `json:"vote_event_id"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	Content     string    `json:"content"`
	LikeCount   int       `json:"like_count"`
	UserLiked   bool      `json:"user_liked"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	StateLiked   = "liked"
	StateUnliked = "unliked"
)

type ToggleLikeResponse struct {
	CommentID uuid.UUID `json:"comment_id"`
	State     string    `json:"state"`
	LikeCount int       `json:"like_count"`
}
