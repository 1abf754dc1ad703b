package bootstrap

import (
	"log/slog"

	"anoa.com/voteledger/internal/entity"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Account{},
		&entity.PointLog{},
		&entity.VoteEvent{},
		&entity.Vote{},
		&entity.VoteTally{},
		&entity.Interaction{},
		&entity.Comment{},
		&entity.CommentLike{},
	)
}

// SeedDemoEvent registers a sample event when the ledger has none, for local development.
func SeedDemoEvent(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.VoteEvent{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		slog.Info("vote events already exist, skipping seed")
		return nil
	}

	event := entity.VoteEvent{
		Title:          "Which option should ship first?",
		Description:    "Sample event created for local development.",
		Options:        []string{"A", "B"},
		PointsRequired: 100,
		IsActive:       true,
	}
	if err := db.Create(&event).Error; err != nil {
		return err
	}

	tallies := make([]entity.VoteTally, 0, len(event.Options))
	for _, option := range event.Options {
		tallies = append(tallies, entity.VoteTally{VoteEventID: event.ID, Option: option})
	}
	if err := db.Create(&tallies).Error; err != nil {
		return err
	}

	slog.Info("seeded demo vote event", "vote_event_id", event.ID)
	return nil
}
