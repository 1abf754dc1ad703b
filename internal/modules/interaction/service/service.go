package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"anoa.com/voteledger/internal/entity"
	"anoa.com/voteledger/internal/metrics"
	eventRepo "anoa.com/voteledger/internal/modules/event/repository"
	interactionDto "anoa.com/voteledger/internal/modules/interaction/dto"
	interactionRepo "anoa.com/voteledger/internal/modules/interaction/repository"
	realtime "anoa.com/voteledger/internal/modules/realtime/service"
	"anoa.com/voteledger/pkg/apperror"
	"anoa.com/voteledger/pkg/ratelimiter"
	"github.com/google/uuid"
)

var ErrInvalidInteraction = apperror.New(http.StatusBadRequest, apperror.OutcomeInvalidInput, "interaction type must be view, vote or comment")

// Recorder is what other modules need after their own write commits.
type Recorder interface {
	RecordInteraction(ctx context.Context, eventID, userID uuid.UUID, t entity.InteractionType) (*interactionDto.InteractionResponse, error)
}

type InteractionService interface {
	Recorder
}

type interactionService struct {
	repo       interactionRepo.InteractionRepository
	events     eventRepo.EventRepository
	limiter    ratelimiter.Limiter
	notifier   realtime.Notifier
	viewWindow time.Duration
}

// NewInteractionService dedupes views through limiter for viewWindow before
// touching the database. The interaction table stays authoritative.
func NewInteractionService(repo interactionRepo.InteractionRepository, events eventRepo.EventRepository, limiter ratelimiter.Limiter, notifier realtime.Notifier, viewWindow time.Duration) InteractionService {
	return &interactionService{
		repo:       repo,
		events:     events,
		limiter:    limiter,
		notifier:   notifier,
		viewWindow: viewWindow,
	}
}

func viewScope(eventID uuid.UUID) string {
	return ratelimiter.ScopeView + ":" + eventID.String()
}

func (s *interactionService) RecordInteraction(ctx context.Context, eventID, userID uuid.UUID, t entity.InteractionType) (*interactionDto.InteractionResponse, error) {
	if !t.Valid() {
		return nil, ErrInvalidInteraction
	}
	resp := &interactionDto.InteractionResponse{Type: string(t)}

	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}

	marked := false
	if t == entity.InteractionView {
		err := s.limiter.Acquire(ctx, userID, viewScope(eventID), s.viewWindow)
		var rlErr *ratelimiter.RateLimitError
		switch {
		case errors.As(err, &rlErr):
			metrics.InteractionsRecorded.WithLabelValues(string(t), "deduped").Inc()
			return resp, nil
		case err != nil:
			// The marker is only a shortcut; fall through to the database.
			slog.Warn("view marker unavailable", "event_id", eventID, "error", err)
		default:
			marked = true
		}
	}

	inserted, err := s.repo.Record(ctx, eventID, userID, t)
	if err != nil {
		if marked {
			if relErr := s.limiter.Release(context.WithoutCancel(ctx), userID, viewScope(eventID)); relErr != nil {
				slog.Warn("failed to release view marker", "event_id", eventID, "error", relErr)
			}
		}
		return nil, err
	}

	if !inserted {
		metrics.InteractionsRecorded.WithLabelValues(string(t), "duplicate").Inc()
		return resp, nil
	}

	metrics.InteractionsRecorded.WithLabelValues(string(t), "recorded").Inc()
	resp.Recorded = true

	s.notifier.Publish(ctx, realtime.Change{
		Type:        realtime.ChangeInteraction,
		VoteEventID: eventID,
	}, realtime.EventTopic(eventID), realtime.TopicEvents)

	return resp, nil
}
