package service

import (
	"context"
	"sort"

	activityDto "anoa.com/voteledger/internal/modules/activity/dto"
	commentRepo "anoa.com/voteledger/internal/modules/comment/repository"
	eventRepo "anoa.com/voteledger/internal/modules/event/repository"
	voteRepo "anoa.com/voteledger/internal/modules/vote/repository"
	"github.com/google/uuid"
)

const defaultFeedLimit = 20

type ActivityService interface {
	// GetFeed merges the latest votes and comments, newest first.
	GetFeed(ctx context.Context, limit int) ([]activityDto.ActivityItem, error)
}

type activityService struct {
	votes    voteRepo.VoteRepository
	comments commentRepo.CommentRepository
	events   eventRepo.EventRepository
}

func NewActivityService(votes voteRepo.VoteRepository, comments commentRepo.CommentRepository, events eventRepo.EventRepository) ActivityService {
	return &activityService{votes: votes, comments: comments, events: events}
}

func (s *activityService) GetFeed(ctx context.Context, limit int) ([]activityDto.ActivityItem, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	votes, err := s.votes.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	items := make([]activityDto.ActivityItem, 0, len(votes)+len(comments))
	for _, v := range votes {
		items = append(items, activityDto.ActivityItem{
			Kind:        activityDto.KindVote,
			ID:          v.ID,
			VoteEventID: v.VoteEventID,
			UserID:      v.UserID,
			Option:      v.OptionSelected,
			PointsUsed:  v.PointsUsed,
			CreatedAt:   v.CreatedAt,
		})
	}
	for _, c := range comments {
		items = append(items, activityDto.ActivityItem{
			Kind:        activityDto.KindComment,
			ID:          c.ID,
			VoteEventID: c.VoteEventID,
			UserID:      c.UserID,
			Username:    c.Username,
			Content:     c.Content,
			CreatedAt:   c.CreatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}

	if err := s.attachTitles(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *activityService) attachTitles(ctx context.Context, items []activityDto.ActivityItem) error {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, it := range items {
		if _, ok := seen[it.VoteEventID]; !ok {
			seen[it.VoteEventID] = struct{}{}
			ids = append(ids, it.VoteEventID)
		}
	}

	events, err := s.events.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}

	titles := make(map[uuid.UUID]string, len(events))
	for _, e := range events {
		titles[e.ID] = e.Title
	}
	for i := range items {
		items[i].EventTitle = titles[items[i].VoteEventID]
	}
	return nil
}
