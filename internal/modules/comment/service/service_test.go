package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/voteledger/internal/entity"
	commentDto "anoa.com/voteledger/internal/modules/comment/dto"
	commentRepo "anoa.com/voteledger/internal/modules/comment/repository"
	eventRepo "anoa.com/voteledger/internal/modules/event/repository"
	interactionRepo "anoa.com/voteledger/internal/modules/interaction/repository"
	interaction "anoa.com/voteledger/internal/modules/interaction/service"
	realtime "anoa.com/voteledger/internal/modules/realtime/service"
	"anoa.com/voteledger/internal/testutil"
	"anoa.com/voteledger/pkg/apperror"
	"anoa.com/voteledger/pkg/dto"
	"anoa.com/voteledger/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.Main(m, testutil.Options{Postgres: true, Redis: true}))
}

func newService(t *testing.T, cooldown time.Duration) (CommentService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	rdb := testutil.Redis(t)

	events := eventRepo.NewEventRepository(db)
	limiter := ratelimiter.NewRedisLimiter(rdb)
	recorder := interaction.NewInteractionService(interactionRepo.NewInteractionRepository(db), events, limiter, realtime.NewNopNotifier(), time.Hour)

	return NewCommentService(commentRepo.NewCommentRepository(db), events, recorder, limiter, realtime.NewNopNotifier(), cooldown), db
}

func post(body string) commentDto.CreateCommentRequest {
	return commentDto.CreateCommentRequest{Content: body}
}

func TestPostComment(t *testing.T) {
	svc, db := newService(t, 0)
	event := testutil.CreateEvent(t, db)
	userID := uuid.New()

	resp, err := svc.PostComment(context.Background(), event.ID, userID, "dina", post("  Go A!\n "))
	require.NoError(t, err)
	assert.Equal(t, "Go A!", resp.Content)
	assert.Equal(t, "dina", resp.Username)
	assert.Zero(t, resp.LikeCount)

	var reloaded entity.VoteEvent
	require.NoError(t, db.Where("id = ?", event.ID).Take(&reloaded).Error)
	assert.EqualValues(t, 1, reloaded.CommentCount)
	assert.EqualValues(t, 3, reloaded.InteractionScore)
}

func TestPostComment_Validation(t *testing.T) {
	svc, db := newService(t, 0)
	event := testutil.CreateEvent(t, db)

	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := svc.PostComment(context.Background(), event.ID, uuid.New(), "", post(body))
		assert.ErrorIs(t, err, ErrEmptyComment, "body %q", body)
		assert.Equal(t, "empty_comment", apperror.OutcomeOf(err))
	}

	_, err := svc.PostComment(context.Background(), event.ID, uuid.New(), "", post(strings.Repeat("x", MaxCommentLength+1)))
	assert.ErrorIs(t, err, ErrCommentTooLong)

	_, err = svc.PostComment(context.Background(), uuid.New(), uuid.New(), "", post("hello"))
	assert.ErrorIs(t, err, eventRepo.ErrEventNotFound)

	var count int64
	require.NoError(t, db.Model(&entity.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPostComment_Cooldown(t *testing.T) {
	svc, db := newService(t, time.Minute)
	event := testutil.CreateEvent(t, db)
	userID := uuid.New()

	_, err := svc.PostComment(context.Background(), event.ID, userID, "", post("first"))
	require.NoError(t, err)

	_, err = svc.PostComment(context.Background(), event.ID, userID, "", post("second"))
	var rlErr *ratelimiter.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)

	// Other users are not affected.
	_, err = svc.PostComment(context.Background(), event.ID, uuid.New(), "", post("third"))
	require.NoError(t, err)

	// The cooldown is per event.
	other := testutil.CreateEvent(t, db)
	_, err = svc.PostComment(context.Background(), other.ID, userID, "", post("elsewhere"))
	require.NoError(t, err)
}

func TestPostComment_StoresBodyVerbatim(t *testing.T) {
	svc, db := newService(t, 0)
	event := testutil.CreateEvent(t, db)

	bodies := []string{"a<b and c>d", "<Option A>", "I think List<String> wins", "<br>", "Tom &amp; Jerry"}
	for _, body := range bodies {
		resp, err := svc.PostComment(context.Background(), event.ID, uuid.New(), "", post(body))
		require.NoError(t, err, "body %q", body)
		assert.Equal(t, body, resp.Content)

		var stored entity.Comment
		require.NoError(t, db.Where("id = ?", resp.ID).Take(&stored).Error)
		assert.Equal(t, body, stored.Content)
	}
}

type unavailableLimiter struct {
	acquires int
}

func (l *unavailableLimiter) Acquire(context.Context, uuid.UUID, string, time.Duration) error {
	l.acquires++
	return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func (l *unavailableLimiter) Release(context.Context, uuid.UUID, string) error {
	return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func TestPostComment_CooldownFailsOpen(t *testing.T) {
	db := testutil.DB(t)
	events := eventRepo.NewEventRepository(db)
	limiter := &unavailableLimiter{}
	recorder := interaction.NewInteractionService(interactionRepo.NewInteractionRepository(db), events, limiter, realtime.NewNopNotifier(), time.Hour)
	svc := NewCommentService(commentRepo.NewCommentRepository(db), events, recorder, limiter, realtime.NewNopNotifier(), time.Minute)

	event := testutil.CreateEvent(t, db)
	userID := uuid.New()

	for _, body := range []string{"first", "second"} {
		_, err := svc.PostComment(context.Background(), event.ID, userID, "", post(body))
		require.NoError(t, err)
	}
	assert.Positive(t, limiter.acquires)

	var count int64
	require.NoError(t, db.Model(&entity.Comment{}).Where("vote_event_id = ?", event.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestToggleLike_IsSelfInverse(t *testing.T) {
	svc, db := newService(t, 0)
	event := testutil.CreateEvent(t, db)
	ctx := context.Background()

	c, err := svc.PostComment(ctx, event.ID, uuid.New(), "", post("pick A"))
	require.NoError(t, err)

	userID := uuid.New()
	liked, err := svc.ToggleLike(ctx, c.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, commentDto.StateLiked, liked.State)
	assert.Equal(t, 1, liked.LikeCount)

	unliked, err := svc.ToggleLike(ctx, c.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, commentDto.StateUnliked, unliked.State)
	assert.Equal(t, 0, unliked.LikeCount)

	var likes int64
	require.NoError(t, db.Model(&entity.CommentLike{}).Where("comment_id = ?", c.ID).Count(&likes).Error)
	assert.Zero(t, likes)
}

func TestToggleLike_ConcurrentUsers(t *testing.T) {
	svc, db := newService(t, 0)
	event := testutil.CreateEvent(t, db)
	ctx := context.Background()

	c, err := svc.PostComment(ctx, event.ID, uuid.New(), "", post("pick B"))
	require.NoError(t, err)

	const users = 20
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ToggleLike(ctx, c.ID, uuid.New())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var stored entity.Comment
	require.NoError(t, db.Where("id = ?", c.ID).Take(&stored).Error)
	assert.Equal(t, users, stored.LikeCount)
}

func TestToggleLike_ConcurrentSameUserConverges(t *testing.T) {
	svc, db := newService(t, 0)
	event := testutil.CreateEvent(t, db)
	ctx := context.Background()

	c, err := svc.PostComment(ctx, event.ID, uuid.New(), "", post("pick B"))
	require.NoError(t, err)
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ToggleLike(ctx, c.ID, userID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var stored entity.Comment
	require.NoError(t, db.Where("id = ?", c.ID).Take(&stored).Error)
	var likes int64
	require.NoError(t, db.Model(&entity.CommentLike{}).Where("comment_id = ?", c.ID).Count(&likes).Error)

	assert.EqualValues(t, likes, stored.LikeCount, "counter matches like rows")
	assert.LessOrEqual(t, likes, int64(1))
}

func TestToggleLike_UnknownComment(t *testing.T) {
	svc, _ := newService(t, 0)

	_, err := svc.ToggleLike(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestListComments_MarksViewerLikes(t *testing.T) {
	svc, db := newService(t, 0)
	event := testutil.CreateEvent(t, db)
	ctx := context.Background()

	older, err := svc.PostComment(ctx, event.ID, uuid.New(), "", post("older"))
	require.NoError(t, err)
	newer, err := svc.PostComment(ctx, event.ID, uuid.New(), "", post("newer"))
	require.NoError(t, err)

	viewer := uuid.New()
	_, err = svc.ToggleLike(ctx, older.ID, viewer)
	require.NoError(t, err)

	page, err := svc.ListComments(ctx, event.ID, &viewer, dto.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, newer.ID, page.Data[0].ID)
	assert.False(t, page.Data[0].UserLiked)
	assert.Equal(t, older.ID, page.Data[1].ID)
	assert.True(t, page.Data[1].UserLiked)
	assert.Equal(t, 1, page.Data[1].LikeCount)

	anonymous, err := svc.ListComments(ctx, event.ID, nil, dto.PageQuery{})
	require.NoError(t, err)
	assert.False(t, anonymous.Data[1].UserLiked)
}
