package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	TopicActivity = "feed:activity"
	TopicEvents   = "feed:events"

	eventTopicPrefix = "vote_event:"
	maxTopics        = 20
)

// Change types.
const (
	ChangeVoteCast           = "vote.cast"
	ChangeCommentCreated     = "comment.created"
	ChangeCommentLikeToggled = "comment.like_toggled"
	ChangeInteraction        = "interaction.recorded"
	ChangeEventCreated       = "event.created"
	ChangeEventUpdated       = "event.updated"
)

func EventTopic(eventID uuid.UUID) string {
	return eventTopicPrefix + eventID.String()
}

// ParseTopics validates a comma separated subscription list.
func ParseTopics(raw string) ([]string, error) {
	seen := make(map[string]struct{})
	var topics []string

	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !validTopic(t) {
			return nil, fmt.Errorf("unknown topic %q", t)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}

	if len(topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}
	if len(topics) > maxTopics {
		return nil, fmt.Errorf("at most %d topics per connection", maxTopics)
	}
	return topics, nil
}

func validTopic(t string) bool {
	switch t {
	case TopicActivity, TopicEvents:
		return true
	}
	if id, ok := strings.CutPrefix(t, eventTopicPrefix); ok {
		_, err := uuid.Parse(id)
		return err == nil
	}
	return false
}
