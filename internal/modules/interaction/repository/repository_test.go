package repository

import (
	"context"
	"os"
	"sync"
	"testing"

	"anoa.com/voteledger/internal/entity"
	"anoa.com/voteledger/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.Main(m, testutil.Options{Postgres: true}))
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) entity.VoteEvent {
	t.Helper()
	var e entity.VoteEvent
	require.NoError(t, db.Where("id = ?", id).Take(&e).Error)
	return e
}

func TestRecord_ViewIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	repo := NewInteractionRepository(db)
	event := testutil.CreateEvent(t, db)
	userID := uuid.New()

	inserted, err := repo.Record(context.Background(), event.ID, userID, entity.InteractionView)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Record(context.Background(), event.ID, userID, entity.InteractionView)
	require.NoError(t, err)
	assert.False(t, inserted)

	got := reload(t, db, event.ID)
	assert.EqualValues(t, 1, got.ViewCount)
	assert.EqualValues(t, 1, got.InteractionScore)
}

func TestRecord_WeightsPerType(t *testing.T) {
	db := testutil.DB(t)
	repo := NewInteractionRepository(db)
	event := testutil.CreateEvent(t, db)
	userID := uuid.New()

	for _, typ := range []entity.InteractionType{entity.InteractionView, entity.InteractionVote, entity.InteractionComment} {
		_, err := repo.Record(context.Background(), event.ID, userID, typ)
		require.NoError(t, err)
	}
	_, err := repo.Record(context.Background(), event.ID, uuid.New(), entity.InteractionComment)
	require.NoError(t, err)

	got := reload(t, db, event.ID)
	assert.EqualValues(t, 1, got.ViewCount)
	assert.EqualValues(t, 1, got.VoteCount)
	assert.EqualValues(t, 2, got.CommentCount)
	assert.EqualValues(t, 1+5+3+3, got.InteractionScore)

	exists, err := repo.Exists(context.Background(), event.ID, userID, entity.InteractionVote)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRecord_ConcurrentSameViewCountsOnce(t *testing.T) {
	db := testutil.DB(t)
	repo := NewInteractionRepository(db)
	event := testutil.CreateEvent(t, db)
	userID := uuid.New()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Record(context.Background(), event.ID, userID, entity.InteractionView)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.EqualValues(t, 1, reload(t, db, event.ID).ViewCount)
}

func TestDecayScores(t *testing.T) {
	db := testutil.DB(t)
	repo := NewInteractionRepository(db)

	hot := testutil.CreateEvent(t, db, func(e *entity.VoteEvent) {
		e.InteractionScore = 15
		e.ViewCount = 15
	})
	closed := testutil.CreateEvent(t, db, func(e *entity.VoteEvent) {
		e.IsActive = false
		e.InteractionScore = 15
	})

	rows, err := repo.DecayScores(context.Background(), 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	got := reload(t, db, hot.ID)
	assert.EqualValues(t, 13, got.InteractionScore, "15 * 90 / 100 rounds down")
	assert.EqualValues(t, 15, got.ViewCount)
	assert.EqualValues(t, 15, reload(t, db, closed.ID).InteractionScore)
}
