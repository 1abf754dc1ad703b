package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"anoa.com/voteledger/internal/entity"
	"anoa.com/voteledger/internal/metrics"
	account "anoa.com/voteledger/internal/modules/account/service"
	eventRepo "anoa.com/voteledger/internal/modules/event/repository"
	interaction "anoa.com/voteledger/internal/modules/interaction/service"
	realtime "anoa.com/voteledger/internal/modules/realtime/service"
	voteDto "anoa.com/voteledger/internal/modules/vote/dto"
	voteRepo "anoa.com/voteledger/internal/modules/vote/repository"
	"anoa.com/voteledger/pkg/apperror"
	"anoa.com/voteledger/pkg/database"
	"anoa.com/voteledger/pkg/dto"
	"anoa.com/voteledger/pkg/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Cast outcomes. Each is terminal and reaches the client verbatim.
var (
	ErrAlreadyVoted       = apperror.New(http.StatusConflict, "already_voted", "you have already voted on this event")
	ErrInsufficientPoints = apperror.New(http.StatusPaymentRequired, "insufficient_points", "not enough points to vote")
	ErrEventInactive      = apperror.New(http.StatusConflict, "event_inactive", "vote event is not active")
	ErrEventExpired       = apperror.New(http.StatusGone, "event_expired", "vote event has ended")
	ErrInvalidOption      = apperror.New(http.StatusBadRequest, "invalid_option", "option is not part of this vote event")
	ErrCostMismatch       = apperror.New(http.StatusConflict, "cost_mismatch", "vote cost has changed, refresh and try again")
	ErrVoteNotFound       = apperror.New(http.StatusNotFound, apperror.OutcomeNotFound, "vote not found")
)

const OutcomeOK = "ok"

var statisticsRetry = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: 50 * time.Millisecond,
	MaxBackoff:     200 * time.Millisecond,
}

type VoteService interface {
	CastVote(ctx context.Context, eventID, userID uuid.UUID, req voteDto.CastVoteRequest) (*voteDto.VoteResponse, error)
	GetStatistics(ctx context.Context, eventID uuid.UUID) (*voteDto.StatisticsResponse, error)
	RebuildTallies(ctx context.Context, eventID uuid.UUID) (*voteDto.StatisticsResponse, error)
	GetMyVote(ctx context.Context, eventID, userID uuid.UUID) (*voteDto.VoteResponse, error)
	GetMyVotes(ctx context.Context, userID uuid.UUID, q dto.PageQuery) (*dto.Paginated[voteDto.VoteResponse], error)
}

type voteService struct {
	tx           database.Transactor
	votes        voteRepo.VoteRepository
	events       eventRepo.EventRepository
	accounts     account.AccountService
	interactions interaction.Recorder
	notifier     realtime.Notifier
	clock        clockwork.Clock
}

func NewVoteService(
	tx database.Transactor,
	votes voteRepo.VoteRepository,
	events eventRepo.EventRepository,
	accounts account.AccountService,
	interactions interaction.Recorder,
	notifier realtime.Notifier,
	clock clockwork.Clock,
) VoteService {
	return &voteService{
		tx:           tx,
		votes:        votes,
		events:       events,
		accounts:     accounts,
		interactions: interactions,
		notifier:     notifier,
		clock:        clock,
	}
}

// CastVote records one vote and debits its cost in a single transaction.
// Lock order is event (FOR SHARE), vote row, account row, tally row.
func (s *voteService) CastVote(ctx context.Context, eventID, userID uuid.UUID, req voteDto.CastVoteRequest) (*voteDto.VoteResponse, error) {
	start := s.clock.Now()

	var vote *entity.Vote
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		event, err := s.events.WithTx(tx).FindByIDForShare(ctx, eventID)
		if err != nil {
			return err
		}
		if !event.IsActive {
			return ErrEventInactive
		}
		if event.ExpiredAt(s.clock.Now()) {
			return ErrEventExpired
		}
		if !event.HasOption(req.OptionSelected) {
			return ErrInvalidOption
		}
		if req.ExpectedCost > 0 && req.ExpectedCost != event.PointsRequired {
			return ErrCostMismatch
		}

		vote = &entity.Vote{
			VoteEventID:    eventID,
			UserID:         userID,
			OptionSelected: req.OptionSelected,
			PointsUsed:     event.PointsRequired,
		}
		if err := s.votes.WithTx(tx).Create(ctx, vote); err != nil {
			if errors.Is(err, voteRepo.ErrDuplicateVote) {
				return ErrAlreadyVoted
			}
			return err
		}

		if err := s.accounts.WithTx(tx).Debit(ctx, userID, vote.PointsUsed, vote.ID.String()); err != nil {
			if errors.Is(err, account.ErrInsufficientFunds) {
				return ErrInsufficientPoints
			}
			return err
		}

		return s.votes.WithTx(tx).IncrementTally(ctx, eventID, vote.OptionSelected, vote.PointsUsed)
	})

	metrics.VoteCastDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		metrics.VoteOutcomes.WithLabelValues(apperror.OutcomeOf(err)).Inc()
		return nil, err
	}
	metrics.VoteOutcomes.WithLabelValues(OutcomeOK).Inc()
	metrics.PointsDebited.Add(float64(vote.PointsUsed))

	s.afterCast(ctx, vote)
	return toVoteResponse(vote), nil
}

// afterCast runs once the vote is durable. Failures here are logged only.
func (s *voteService) afterCast(ctx context.Context, vote *entity.Vote) {
	if _, err := s.interactions.RecordInteraction(ctx, vote.VoteEventID, vote.UserID, entity.InteractionVote); err != nil {
		slog.Warn("failed to record vote interaction", "event_id", vote.VoteEventID, "user_id", vote.UserID, "error", err)
	}

	voteID := vote.ID
	s.notifier.Publish(ctx, realtime.Change{
		Type:        realtime.ChangeVoteCast,
		VoteEventID: vote.VoteEventID,
		EntityID:    &voteID,
	}, realtime.EventTopic(vote.VoteEventID), realtime.TopicActivity)
}

func (s *voteService) GetStatistics(ctx context.Context, eventID uuid.UUID) (*voteDto.StatisticsResponse, error) {
	return retry.Do(ctx, statisticsRetry, retry.StopOn(eventRepo.ErrEventNotFound), func() (*voteDto.StatisticsResponse, error) {
		return s.statistics(ctx, eventID)
	})
}

func (s *voteService) statistics(ctx context.Context, eventID uuid.UUID) (*voteDto.StatisticsResponse, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tallies, err := s.votes.GetTallies(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return buildStatistics(event, tallies), nil
}

// buildStatistics lists every declared option in order, zero rows included.
func buildStatistics(event *entity.VoteEvent, tallies []entity.VoteTally) *voteDto.StatisticsResponse {
	byOption := make(map[string]entity.VoteTally, len(tallies))
	for _, t := range tallies {
		byOption[t.Option] = t
	}

	resp := &voteDto.StatisticsResponse{
		VoteEventID: event.ID,
		Options:     make([]voteDto.OptionStatistic, 0, len(event.Options)),
	}
	for _, option := range event.Options {
		t := byOption[option]
		resp.Options = append(resp.Options, voteDto.OptionStatistic{
			Option:           option,
			VoteCount:        t.VoteCount,
			TotalPointsSpent: t.PointsTotal,
		})
		resp.TotalVotes += t.VoteCount
		resp.TotalPoints += t.PointsTotal
	}
	return resp
}

func (s *voteService) RebuildTallies(ctx context.Context, eventID uuid.UUID) (*voteDto.StatisticsResponse, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if err := s.votes.RebuildTallies(ctx, eventID, event.Options); err != nil {
		return nil, err
	}
	slog.Info("vote tallies rebuilt", "event_id", eventID)

	return s.statistics(ctx, eventID)
}

func (s *voteService) GetMyVote(ctx context.Context, eventID, userID uuid.UUID) (*voteDto.VoteResponse, error) {
	vote, err := s.votes.FindByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, voteRepo.ErrVoteNotFound) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}
	return toVoteResponse(vote), nil
}

func (s *voteService) GetMyVotes(ctx context.Context, userID uuid.UUID, q dto.PageQuery) (*dto.Paginated[voteDto.VoteResponse], error) {
	q = q.Normalize()

	votes, total, err := s.votes.ListByUser(ctx, userID, q.Offset(), q.Limit)
	if err != nil {
		return nil, err
	}

	data := make([]voteDto.VoteResponse, 0, len(votes))
	for i := range votes {
		data = append(data, *toVoteResponse(&votes[i]))
	}

	return &dto.Paginated[voteDto.VoteResponse]{
		Data: data,
		Meta: dto.NewPaginationMeta(q, total),
	}, nil
}

func toVoteResponse(v *entity.Vote) *voteDto.VoteResponse {
	return &voteDto.VoteResponse{
		ID:             v.ID,
		VoteEventID:    v.VoteEventID,
		UserID:         v.UserID,
		OptionSelected: v.OptionSelected,
		PointsUsed:     v.PointsUsed,
		CreatedAt:      v.CreatedAt,
	}
}
