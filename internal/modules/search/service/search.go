package service

import (
	"context"
	"net/http"

	"anoa.com/voteledger/internal/entity"
	"anoa.com/voteledger/pkg/apperror"
	"github.com/google/uuid"
)

var ErrSearchDisabled = apperror.New(http.StatusServiceUnavailable, "search_disabled", "search is not configured")

// EventIndex keeps a full-text index of vote events. The database stays the
// source of truth; index failures are logged by callers and never fail a write.
type EventIndex interface {
	IndexEvent(ctx context.Context, event *entity.VoteEvent) error
	RemoveEvent(ctx context.Context, id uuid.UUID) error
	// SearchEvents returns matching active event IDs in relevance order.
	SearchEvents(ctx context.Context, query string, offset, limit int) ([]uuid.UUID, int64, error)
}

type nopIndex struct{}

// NewNopIndex is used when MEILISEARCH_HOST is empty.
func NewNopIndex() EventIndex {
	return nopIndex{}
}

func (nopIndex) IndexEvent(context.Context, *entity.VoteEvent) error { return nil }
func (nopIndex) RemoveEvent(context.Context, uuid.UUID) error        { return nil }

func (nopIndex) SearchEvents(context.Context, string, int, int) ([]uuid.UUID, int64, error) {
	return nil, 0, ErrSearchDisabled
}
