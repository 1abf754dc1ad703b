package repository

import (
	"context"
	"errors"

	"anoa.com/voteledger/internal/entity"
	"anoa.com/voteledger/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrDuplicateVote means the (event, user) unique key already holds a vote.
	ErrDuplicateVote = errors.New("vote already exists for this event and user")
	ErrVoteNotFound  = errors.New("vote not found")
)

type VoteRepository interface {
	WithTx(tx *gorm.DB) VoteRepository
	// Create inserts the vote. The unique key on (vote_event_id, user_id) is
	// the only at-most-once guard; a violation returns ErrDuplicateVote.
	Create(ctx context.Context, vote *entity.Vote) error
	IncrementTally(ctx context.Context, eventID uuid.UUID, option string, points int) error
	GetTallies(ctx context.Context, eventID uuid.UUID) ([]entity.VoteTally, error)
	// RebuildTallies recomputes the tally rows of one event from the votes table.
	RebuildTallies(ctx context.Context, eventID uuid.UUID, options []string) error
	FindByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*entity.Vote, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.Vote, int64, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Vote, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) WithTx(tx *gorm.DB) VoteRepository {
	return &voteRepository{db: tx}
}

func (r *voteRepository) Create(ctx context.Context, vote *entity.Vote) error {
	if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateVote
		}
		return err
	}
	return nil
}

func (r *voteRepository) IncrementTally(ctx context.Context, eventID uuid.UUID, option string, points int) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "vote_event_id"}, {Name: "option"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"vote_count":   gorm.Expr("vote_tallies.vote_count + 1"),
			"points_total": gorm.Expr("vote_tallies.points_total + ?", points),
		}),
	}).Create(&entity.VoteTally{
		VoteEventID: eventID,
		Option:      option,
		VoteCount:   1,
		PointsTotal: int64(points),
	}).Error
}

func (r *voteRepository) GetTallies(ctx context.Context, eventID uuid.UUID) ([]entity.VoteTally, error) {
	var tallies []entity.VoteTally
	err := r.db.WithContext(ctx).Where("vote_event_id = ?", eventID).Find(&tallies).Error
	return tallies, err
}

func (r *voteRepository) RebuildTallies(ctx context.Context, eventID uuid.UUID, options []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Casting holds the event row FOR SHARE, so this waits for in-flight votes.
		var event entity.VoteEvent
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", eventID).Take(&event).Error; err != nil {
			return err
		}

		if err := tx.Where("vote_event_id = ?", eventID).Delete(&entity.VoteTally{}).Error; err != nil {
			return err
		}

		zero := make([]entity.VoteTally, 0, len(options))
		for _, option := range options {
			zero = append(zero, entity.VoteTally{VoteEventID: eventID, Option: option})
		}
		if len(zero) > 0 {
			if err := tx.Create(&zero).Error; err != nil {
				return err
			}
		}

		return tx.Exec(`
			INSERT INTO vote_tallies (vote_event_id, option, vote_count, points_total)
			SELECT vote_event_id, option_selected, COUNT(*), COALESCE(SUM(points_used), 0)
			FROM votes
			WHERE vote_event_id = ?
			GROUP BY vote_event_id, option_selected
			ON CONFLICT (vote_event_id, option)
			DO UPDATE SET vote_count = EXCLUDED.vote_count, points_total = EXCLUDED.points_total
		`, eventID).Error
	})
}

func (r *voteRepository) FindByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*entity.Vote, error) {
	var vote entity.Vote
	err := r.db.WithContext(ctx).
		Where("vote_event_id = ? AND user_id = ?", eventID, userID).
		Take(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.Vote, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Vote{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var votes []entity.Vote
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&votes).Error
	return votes, total, err
}

func (r *voteRepository) ListRecent(ctx context.Context, limit int) ([]entity.Vote, error) {
	var votes []entity.Vote
	err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&votes).Error
	return votes, err
}
