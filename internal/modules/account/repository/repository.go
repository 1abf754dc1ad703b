package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/voteledger/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientFunds means the conditional debit matched no row: the balance
// was too low or the account does not exist.
var ErrInsufficientFunds = errors.New("insufficient funds")

type AccountRepository interface {
	// WithTx returns a repository bound to an open transaction.
	WithTx(tx *gorm.DB) AccountRepository
	// Open creates the account with initialPoints unless it exists. created reports
	// whether this call created it.
	Open(ctx context.Context, userID uuid.UUID, initialPoints int) (account *entity.Account, created bool, err error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Account, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int, referenceID string) error
	Credit(ctx context.Context, userID uuid.UUID, amount int, action, referenceID string) (*entity.Account, error)
	ListPointLogs(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.PointLog, int64, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) WithTx(tx *gorm.DB) AccountRepository {
	return &accountRepository{db: tx}
}

func (r *accountRepository) Open(ctx context.Context, userID uuid.UUID, initialPoints int) (*entity.Account, bool, error) {
	var account entity.Account
	var created bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&entity.Account{UserID: userID, Points: initialPoints})
		if res.Error != nil {
			return res.Error
		}

		created = res.RowsAffected == 1
		if created && initialPoints > 0 {
			grant := entity.PointLog{UserID: userID, Amount: initialPoints, Action: entity.ActionGrant}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}

		return tx.Where("user_id = ?", userID).Take(&account).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &account, created, nil
}

func (r *accountRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Account, error) {
	var account entity.Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Debit(ctx context.Context, userID uuid.UUID, amount int, referenceID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Single conditional update: the balance check and the decrement cannot interleave.
		res := tx.Model(&entity.Account{}).
			Where("user_id = ? AND points >= ?", userID, amount).
			UpdateColumns(map[string]interface{}{
				"points":     gorm.Expr("points - ?", amount),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds
		}

		return tx.Create(&entity.PointLog{
			UserID:      userID,
			Amount:      -amount,
			Action:      entity.ActionVoteDebit,
			ReferenceID: referenceID,
		}).Error
	})
}

func (r *accountRepository) Credit(ctx context.Context, userID uuid.UUID, amount int, action, referenceID string) (*entity.Account, error) {
	var account entity.Account

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"points":     gorm.Expr("accounts.points + ?", amount),
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).Create(&entity.Account{UserID: userID, Points: amount}).Error
		if err != nil {
			return err
		}

		if err := tx.Create(&entity.PointLog{
			UserID:      userID,
			Amount:      amount,
			Action:      action,
			ReferenceID: referenceID,
		}).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ?", userID).Take(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) ListPointLogs(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.PointLog, int64, error) {
	var logs []entity.PointLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PointLog{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	return logs, total, err
}
