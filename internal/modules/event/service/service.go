package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"anoa.com/voteledger/internal/entity"
	eventDto "anoa.com/voteledger/internal/modules/event/dto"
	eventRepo "anoa.com/voteledger/internal/modules/event/repository"
	realtime "anoa.com/voteledger/internal/modules/realtime/service"
	search "anoa.com/voteledger/internal/modules/search/service"
	"anoa.com/voteledger/pkg/apperror"
	"anoa.com/voteledger/pkg/dto"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	ErrInvalidOptions = apperror.New(http.StatusBadRequest, apperror.OutcomeInvalidInput, "options must be distinct and non-empty")
	ErrEndsInPast     = apperror.New(http.StatusBadRequest, apperror.OutcomeInvalidInput, "ends_at must be in the future")
)

type EventService interface {
	CreateEvent(ctx context.Context, req eventDto.CreateEventRequest) (*eventDto.EventResponse, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*eventDto.EventResponse, error)
	ListEvents(ctx context.Context, q eventDto.ListEventsQuery) (*dto.Paginated[eventDto.EventResponse], error)
	SearchEvents(ctx context.Context, q eventDto.SearchEventsQuery) (*dto.Paginated[eventDto.EventResponse], error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*eventDto.EventResponse, error)
}

type eventService struct {
	repo     eventRepo.EventRepository
	index    search.EventIndex
	notifier realtime.Notifier
	clock    clockwork.Clock
}

func NewEventService(repo eventRepo.EventRepository, index search.EventIndex, notifier realtime.Notifier, clock clockwork.Clock) EventService {
	return &eventService{repo: repo, index: index, notifier: notifier, clock: clock}
}

func (s *eventService) CreateEvent(ctx context.Context, req eventDto.CreateEventRequest) (*eventDto.EventResponse, error) {
	options, err := normalizeOptions(req.Options)
	if err != nil {
		return nil, err
	}
	if req.EndsAt != nil && !req.EndsAt.After(s.clock.Now()) {
		return nil, ErrEndsInPast
	}

	event := &entity.VoteEvent{
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Options:        options,
		PointsRequired: req.PointsRequired,
		IsActive:       req.IsActive == nil || *req.IsActive,
		EndsAt:         req.EndsAt,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create vote event: %w", err)
	}

	if err := s.index.IndexEvent(ctx, event); err != nil {
		slog.Warn("failed to index vote event", "event_id", event.ID, "error", err)
	}

	id := event.ID
	s.notifier.Publish(ctx, realtime.Change{
		Type:        realtime.ChangeEventCreated,
		VoteEventID: event.ID,
		EntityID:    &id,
	}, realtime.TopicEvents)

	return s.toResponse(event), nil
}

// normalizeOptions trims labels and keeps the declared order.
func normalizeOptions(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	options := make([]string, 0, len(raw))
	for _, o := range raw {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, ErrInvalidOptions
		}
		if _, dup := seen[o]; dup {
			return nil, ErrInvalidOptions
		}
		seen[o] = struct{}{}
		options = append(options, o)
	}
	if len(options) < 2 {
		return nil, apperror.New(http.StatusBadRequest, apperror.OutcomeInvalidInput, "at least two options are required")
	}
	return options, nil
}

func (s *eventService) GetEvent(ctx context.Context, id uuid.UUID) (*eventDto.EventResponse, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(event), nil
}

func (s *eventService) ListEvents(ctx context.Context, q eventDto.ListEventsQuery) (*dto.Paginated[eventDto.EventResponse], error) {
	page := q.PageQuery.Normalize()

	events, total, err := s.repo.ListActive(ctx, q.Sort, page.Offset(), page.Limit)
	if err != nil {
		return nil, err
	}

	return &dto.Paginated[eventDto.EventResponse]{
		Data: s.toResponses(events),
		Meta: dto.NewPaginationMeta(page, total),
	}, nil
}

func (s *eventService) SearchEvents(ctx context.Context, q eventDto.SearchEventsQuery) (*dto.Paginated[eventDto.EventResponse], error) {
	page := q.PageQuery.Normalize()

	ids, total, err := s.index.SearchEvents(ctx, strings.TrimSpace(q.Q), page.Offset(), page.Limit)
	if err != nil {
		return nil, err
	}

	// The index can lag behind; the database decides what exists.
	events, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &dto.Paginated[eventDto.EventResponse]{
		Data: s.toResponses(events),
		Meta: dto.NewPaginationMeta(page, total),
	}, nil
}

func (s *eventService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*eventDto.EventResponse, error) {
	event, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	if err := s.index.IndexEvent(ctx, event); err != nil {
		slog.Warn("failed to reindex vote event", "event_id", event.ID, "error", err)
	}

	s.notifier.Publish(ctx, realtime.Change{
		Type:        realtime.ChangeEventUpdated,
		VoteEventID: event.ID,
		EntityID:    &id,
	}, realtime.EventTopic(event.ID), realtime.TopicEvents)

	return s.toResponse(event), nil
}

func (s *eventService) toResponses(events []entity.VoteEvent) []eventDto.EventResponse {
	out := make([]eventDto.EventResponse, 0, len(events))
	for i := range events {
		out = append(out, *s.toResponse(&events[i]))
	}
	return out
}

func (s *eventService) toResponse(e *entity.VoteEvent) *eventDto.EventResponse {
	return &eventDto.EventResponse{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		Options:          e.Options,
		PointsRequired:   e.PointsRequired,
		IsActive:         e.IsActive,
		IsExpired:        e.ExpiredAt(s.clock.Now()),
		EndsAt:           e.EndsAt,
		ViewCount:        e.ViewCount,
		VoteCount:        e.VoteCount,
		CommentCount:     e.CommentCount,
		InteractionScore: e.InteractionScore,
		CreatedAt:        e.CreatedAt,
	}
}
