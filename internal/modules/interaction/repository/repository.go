package repository

import (
	"context"

	"anoa.com/voteledger/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InteractionRepository interface {
	// Record inserts the (event, user, type) row once. Only the call that
	// inserts it bumps the event counter and score. inserted reports which call that was.
	Record(ctx context.Context, eventID, userID uuid.UUID, t entity.InteractionType) (inserted bool, err error)
	Exists(ctx context.Context, eventID, userID uuid.UUID, t entity.InteractionType) (bool, error)
	// DecayScores scales the score of every active event by (100-percent)/100,
	// rounding down. Counters are left alone.
	DecayScores(ctx context.Context, percent int) (int64, error)
}

type interactionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) Record(ctx context.Context, eventID, userID uuid.UUID, t entity.InteractionType) (bool, error) {
	var inserted bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entity.Interaction{
			VoteEventID:     eventID,
			UserID:          userID,
			InteractionType: t,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		inserted = true
		column := t.CounterColumn()
		return tx.Model(&entity.VoteEvent{}).
			Where("id = ?", eventID).
			UpdateColumns(map[string]interface{}{
				column:              gorm.Expr(column+" + 1"),
				"interaction_score": gorm.Expr("interaction_score + ?", t.Weight()),
			}).Error
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (r *interactionRepository) Exists(ctx context.Context, eventID, userID uuid.UUID, t entity.InteractionType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Interaction{}).
		Where("vote_event_id = ? AND user_id = ? AND interaction_type = ?", eventID, userID, t).
		Count(&count).Error
	return count > 0, err
}

func (r *interactionRepository) DecayScores(ctx context.Context, percent int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.VoteEvent{}).
		Where("is_active = ? AND interaction_score > 0", true).
		UpdateColumn("interaction_score", gorm.Expr("interaction_score * ? / 100", 100-percent))
	return res.RowsAffected, res.Error
}
