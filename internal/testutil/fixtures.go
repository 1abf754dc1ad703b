package testutil

import (
	"testing"

	"anoa.com/voteledger/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// CreateEvent inserts an active A/B event costing 100 points, with zeroed tally rows.
func CreateEvent(t *testing.T, db *gorm.DB, mutate ...func(e *entity.VoteEvent)) *entity.VoteEvent {
	t.Helper()

	event := &entity.VoteEvent{
		Title:          "A or B",
		Options:        []string{"A", "B"},
		PointsRequired: 100,
		IsActive:       true,
	}
	for _, fn := range mutate {
		fn(event)
	}

	require.NoError(t, db.Create(event).Error)

	for _, option := range event.Options {
		require.NoError(t, db.Create(&entity.VoteTally{VoteEventID: event.ID, Option: option}).Error)
	}
	return event
}

// OpenAccount creates an account holding points.
func OpenAccount(t *testing.T, db *gorm.DB, points int) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	require.NoError(t, db.Create(&entity.Account{UserID: userID, Points: points}).Error)
	return userID
}
