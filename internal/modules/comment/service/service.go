package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"anoa.com/voteledger/internal/entity"
	"anoa.com/voteledger/internal/metrics"
	commentDto "anoa.com/voteledger/internal/modules/comment/dto"
	commentRepo "anoa.com/voteledger/internal/modules/comment/repository"
	eventRepo "anoa.com/voteledger/internal/modules/event/repository"
	interaction "anoa.com/voteledger/internal/modules/interaction/service"
	realtime "anoa.com/voteledger/internal/modules/realtime/service"
	"anoa.com/voteledger/pkg/apperror"
	"anoa.com/voteledger/pkg/dto"
	"anoa.com/voteledger/pkg/ratelimiter"
	"github.com/google/uuid"
)

const MaxCommentLength = 2000

var (
	ErrEmptyComment    = apperror.New(http.StatusBadRequest, "empty_comment", "comment must not be empty")
	ErrCommentTooLong  = apperror.New(http.StatusBadRequest, apperror.OutcomeInvalidInput, fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
	ErrCommentNotFound = apperror.New(http.StatusNotFound, apperror.OutcomeNotFound, "comment not found")
)

type CommentService interface {
	PostComment(ctx context.Context, eventID, userID uuid.UUID, username string, req commentDto.CreateCommentRequest) (*commentDto.CommentResponse, error)
	ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (*commentDto.ToggleLikeResponse, error)
	ListComments(ctx context.Context, eventID uuid.UUID, viewerID *uuid.UUID, q dto.PageQuery) (*dto.Paginated[commentDto.CommentResponse], error)
}

type commentService struct {
	repo         commentRepo.CommentRepository
	events       eventRepo.EventRepository
	interactions interaction.Recorder
	limiter      ratelimiter.Limiter
	notifier     realtime.Notifier
	cooldown     time.Duration
}

func NewCommentService(
	repo commentRepo.CommentRepository,
	events eventRepo.EventRepository,
	interactions interaction.Recorder,
	limiter ratelimiter.Limiter,
	notifier realtime.Notifier,
	cooldown time.Duration,
) CommentService {
	return &commentService{
		repo:         repo,
		events:       events,
		interactions: interactions,
		limiter:      limiter,
		notifier:     notifier,
		cooldown:     cooldown,
	}
}

func cooldownScope(eventID uuid.UUID) string {
	return ratelimiter.ScopeComment + ":" + eventID.String()
}

// acquireCooldown reports whether a marker was set. Only an active cooldown
// rejects the comment; an unavailable limiter lets it through.
func (s *commentService) acquireCooldown(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	if s.cooldown <= 0 {
		return false, nil
	}

	err := s.limiter.Acquire(ctx, userID, cooldownScope(eventID), s.cooldown)
	var rlErr *ratelimiter.RateLimitError
	switch {
	case errors.As(err, &rlErr):
		return false, err
	case err != nil:
		slog.Warn("comment cooldown unavailable", "event_id", eventID, "user_id", userID, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *commentService) PostComment(ctx context.Context, eventID, userID uuid.UUID, username string, req commentDto.CreateCommentRequest) (*commentDto.CommentResponse, error) {
	// Stored verbatim; escaping belongs to the renderer.
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyComment
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}

	marked, err := s.acquireCooldown(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		VoteEventID: eventID,
		UserID:      userID,
		Username:    username,
		Content:     content,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		if marked {
			if relErr := s.limiter.Release(context.WithoutCancel(ctx), userID, cooldownScope(eventID)); relErr != nil {
				slog.Warn("failed to release comment cooldown", "user_id", userID, "error", relErr)
			}
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if _, err := s.interactions.RecordInteraction(ctx, eventID, userID, entity.InteractionComment); err != nil {
		slog.Warn("failed to record comment interaction", "event_id", eventID, "user_id", userID, "error", err)
	}

	commentID := comment.ID
	s.notifier.Publish(ctx, realtime.Change{
		Type:        realtime.ChangeCommentCreated,
		VoteEventID: eventID,
		EntityID:    &commentID,
	}, realtime.EventTopic(eventID), realtime.TopicActivity)

	return toCommentResponse(comment, false), nil
}

func (s *commentService) ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (*commentDto.ToggleLikeResponse, error) {
	comment, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, commentRepo.ErrCommentNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	liked, likeCount, err := s.repo.ToggleLike(ctx, commentID, userID)
	if err != nil {
		if errors.Is(err, commentRepo.ErrCommentNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	state := commentDto.StateUnliked
	if liked {
		state = commentDto.StateLiked
	}
	metrics.CommentLikeToggles.WithLabelValues(state).Inc()

	s.notifier.Publish(ctx, realtime.Change{
		Type:        realtime.ChangeCommentLikeToggled,
		VoteEventID: comment.VoteEventID,
		EntityID:    &commentID,
	}, realtime.EventTopic(comment.VoteEventID))

	return &commentDto.ToggleLikeResponse{
		CommentID: commentID,
		State:     state,
		LikeCount: likeCount,
	}, nil
}

func (s *commentService) ListComments(ctx context.Context, eventID uuid.UUID, viewerID *uuid.UUID, q dto.PageQuery) (*dto.Paginated[commentDto.CommentResponse], error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}

	q = q.Normalize()
	comments, total, err := s.repo.ListByEvent(ctx, eventID, q.Offset(), q.Limit)
	if err != nil {
		return nil, err
	}

	liked := map[uuid.UUID]bool{}
	if viewerID != nil && len(comments) > 0 {
		ids := make([]uuid.UUID, 0, len(comments))
		for _, c := range comments {
			ids = append(ids, c.ID)
		}
		if liked, err = s.repo.LikedBy(ctx, *viewerID, ids); err != nil {
			return nil, err
		}
	}

	data := make([]commentDto.CommentResponse, 0, len(comments))
	for i := range comments {
		data = append(data, *toCommentResponse(&comments[i], liked[comments[i].ID]))
	}

	return &dto.Paginated[commentDto.CommentResponse]{
		Data: data,
		Meta: dto.NewPaginationMeta(q, total),
	}, nil
}

func toCommentResponse(c *entity.Comment, userLiked bool) *commentDto.CommentResponse {
	return &commentDto.CommentResponse{
		ID:          c.ID,
		VoteEventID: c.VoteEventID,
		UserID:      c.UserID,
		Username:    c.Username,
		Content:     c.Content,
		LikeCount:   c.LikeCount,
		UserLiked:   userLiked,
		CreatedAt:   c.CreatedAt,
	}
}
