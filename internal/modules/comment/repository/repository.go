package repository

import (
	"context"
	"errors"

	"anoa.com/voteledger/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCommentNotFound = errors.New("comment not found")

type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	// ToggleLike flips the (comment, user) like and keeps like_count in step
	// within one transaction.
	ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (liked bool, likeCount int, err error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, offset, limit int) ([]entity.Comment, int64, error)
	// LikedBy returns the subset of commentIDs the user has liked.
	LikedBy(ctx context.Context, userID uuid.UUID, commentIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	var comment entity.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (bool, int, error) {
	var liked bool
	var comment entity.Comment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&entity.CommentLike{})
		if res.Error != nil {
			return res.Error
		}

		var delta int
		if res.RowsAffected == 1 {
			delta = -1
		} else {
			liked = true
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&entity.CommentLike{CommentID: commentID, UserID: userID})
			if ins.Error != nil {
				return ins.Error
			}
			// Zero rows: a concurrent toggle by the same user already inserted it.
			if ins.RowsAffected == 1 {
				delta = 1
			}
		}

		if delta != 0 {
			upd := tx.Model(&entity.Comment{}).
				Where("id = ?", commentID).
				UpdateColumn("like_count", gorm.Expr("like_count + ?", delta))
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return ErrCommentNotFound
			}
		}

		return tx.Select("like_count").Where("id = ?", commentID).Take(&comment).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, ErrCommentNotFound
		}
		return false, 0, err
	}
	return liked, comment.LikeCount, nil
}

func (r *commentRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, offset, limit int) ([]entity.Comment, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Comment{}).Where("vote_event_id = ?", eventID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []entity.Comment
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&comments).Error
	return comments, total, err
}

func (r *commentRepository) LikedBy(ctx context.Context, userID uuid.UUID, commentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool)
	if len(commentIDs) == 0 {
		return liked, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&entity.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *commentRepository) ListRecent(ctx context.Context, limit int) ([]entity.Comment, error) {
	var comments []entity.Comment
	err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}
