package entity

import (
	"time"

	"github.com/google/uuid"
)

// Point log actions.
const (
	ActionGrant     = "grant"
	ActionCredit    = "credit"
	ActionVoteDebit = "vote_debit"
)

type Account struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Points    int       `gorm:"not null;default:0;check:chk_accounts_points_non_negative,points >= 0" json:"points"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// PointLog is an append-only record of every balance change.
type PointLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index:idx_point_logs_user_date,priority:1;not null" json:"user_id"`
	Amount      int       `gorm:"not null" json:"amount"` // negative for debits
	Action      string    `gorm:"size:30;not null" json:"action"`
	ReferenceID string    `gorm:"size:36" json:"reference_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_point_logs_user_date,priority:2" json:"created_at"`
}

func (PointLog) TableName() string {
	return "point_logs"
}
