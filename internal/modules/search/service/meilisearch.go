package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"anoa.com/voteledger/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const eventsIndex = "vote_events"

type meiliEventDoc struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Options          []string `json:"options"`
	IsActive         bool     `json:"is_active"`
	InteractionScore int64    `json:"interaction_score"`
	CreatedAt        int64    `json:"created_at"`
}

type meiliIndex struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliIndex(client meilisearch.ServiceManager) EventIndex {
	idx := &meiliIndex{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	idx.initIndex()
	return idx
}

func (m *meiliIndex) initIndex() {
	filterable := []any{"is_active"}
	if _, err := m.client.Index(eventsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("failed to update filterable attributes", "index", eventsIndex, "error", err)
	}

	sortable := []string{"created_at", "interaction_score"}
	if _, err := m.client.Index(eventsIndex).UpdateSortableAttributes(&sortable); err != nil {
		slog.Warn("failed to update sortable attributes", "index", eventsIndex, "error", err)
	}
}

// cleanText strips markup so only readable text is indexed.
func (m *meiliIndex) cleanText(s string) string {
	s = strings.NewReplacer("</p>", " ", "<br>", " ", "</div>", " ").Replace(s)
	s = html.UnescapeString(m.sanitizer.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

func (m *meiliIndex) IndexEvent(_ context.Context, event *entity.VoteEvent) error {
	doc := meiliEventDoc{
		ID:               event.ID.String(),
		Title:            m.cleanText(event.Title),
		Description:      m.cleanText(event.Description),
		Options:          event.Options,
		IsActive:         event.IsActive,
		InteractionScore: event.InteractionScore,
		CreatedAt:        event.CreatedAt.Unix(),
	}

	primaryKey := "id"
	task, err := m.client.Index(eventsIndex).AddDocuments([]meiliEventDoc{doc}, &primaryKey)
	if err != nil {
		return fmt.Errorf("index vote event %s: %w", event.ID, err)
	}
	slog.Debug("indexed vote event", "event_id", event.ID, "task_uid", task.TaskUID)
	return nil
}

func (m *meiliIndex) RemoveEvent(_ context.Context, id uuid.UUID) error {
	_, err := m.client.Index(eventsIndex).DeleteDocument(id.String())
	return err
}

type meiliSearchResult struct {
	Hits []struct {
		ID string `json:"id"`
	} `json:"hits"`
	EstimatedTotalHits int64 `json:"estimatedTotalHits"`
}

func (m *meiliIndex) SearchEvents(_ context.Context, query string, offset, limit int) ([]uuid.UUID, int64, error) {
	raw, err := m.client.Index(eventsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Offset:               int64(offset),
		Limit:                int64(limit),
		Filter:               "is_active = true",
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search vote events: %w", err)
	}

	var result meiliSearchResult
	if err := json.Unmarshal(*raw, &result); err != nil {
		return nil, 0, fmt.Errorf("decode search result: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, result.EstimatedTotalHits, nil
}
