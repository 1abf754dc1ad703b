package repository

import (
	"context"
	"errors"
	"net/http"

	"anoa.com/voteledger/internal/entity"
	"anoa.com/voteledger/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrEventNotFound = apperror.New(http.StatusNotFound, apperror.OutcomeNotFound, "vote event not found")

const (
	SortNewest  = "newest"
	SortPopular = "popular"
)

type EventRepository interface {
	WithTx(tx *gorm.DB) EventRepository
	// Create inserts the event together with a zero tally row per option.
	Create(ctx context.Context, event *entity.VoteEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.VoteEvent, error)
	// FindByIDForShare locks the row against concurrent updates until the
	// surrounding transaction ends. Must be called on a WithTx repository.
	FindByIDForShare(ctx context.Context, id uuid.UUID) (*entity.VoteEvent, error)
	// FindByIDs keeps the order of ids and skips missing rows.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.VoteEvent, error)
	ListActive(ctx context.Context, sort string, offset, limit int) ([]entity.VoteEvent, int64, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*entity.VoteEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) WithTx(tx *gorm.DB) EventRepository {
	return &eventRepository{db: tx}
}

func (r *eventRepository) Create(ctx context.Context, event *entity.VoteEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		tallies := make([]entity.VoteTally, 0, len(event.Options))
		for _, option := range event.Options {
			tallies = append(tallies, entity.VoteTally{VoteEventID: event.ID, Option: option})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tallies).Error
	})
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.VoteEvent, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *eventRepository) FindByIDForShare(ctx context.Context, id uuid.UUID) (*entity.VoteEvent, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}), id)
}

func (r *eventRepository) find(db *gorm.DB, id uuid.UUID) (*entity.VoteEvent, error) {
	var event entity.VoteEvent
	if err := db.Where("id = ?", id).Take(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.VoteEvent, error) {
	if len(ids) == 0 {
		return []entity.VoteEvent{}, nil
	}

	var events []entity.VoteEvent
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&events).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]entity.VoteEvent, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	ordered := make([]entity.VoteEvent, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}

func (r *eventRepository) ListActive(ctx context.Context, sort string, offset, limit int) ([]entity.VoteEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.VoteEvent{}).Where("is_active = ?", true)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// id breaks ties so pages never overlap.
	switch sort {
	case SortPopular:
		query = query.Order("interaction_score DESC").Order("created_at DESC").Order("id DESC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}

	var events []entity.VoteEvent
	if err := query.Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*entity.VoteEvent, error) {
	res := r.db.WithContext(ctx).Model(&entity.VoteEvent{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrEventNotFound
	}
	return r.FindByID(ctx, id)
}
