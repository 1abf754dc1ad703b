package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anoa.com/voteledger/internal/entity"
	eventRepo "anoa.com/voteledger/internal/modules/event/repository"
	interactionDto "anoa.com/voteledger/internal/modules/interaction/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockInteractionService struct {
	calls    int
	recordFn func(ctx context.Context, eventID, userID uuid.UUID, t entity.InteractionType) (*interactionDto.InteractionResponse, error)
}

func (m *mockInteractionService) RecordInteraction(ctx context.Context, eventID, userID uuid.UUID, t entity.InteractionType) (*interactionDto.InteractionResponse, error) {
	m.calls++
	return m.recordFn(ctx, eventID, userID, t)
}

func record(svc *mockInteractionService, userID, eventID, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.POST("/api/events/:event_id/interactions", NewInteractionHandler(svc).RecordInteraction)

	req := httptest.NewRequest(http.MethodPost, "/api/events/"+eventID+"/interactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRecordInteraction_View(t *testing.T) {
	var gotType entity.InteractionType
	svc := &mockInteractionService{
		recordFn: func(_ context.Context, _, _ uuid.UUID, t entity.InteractionType) (*interactionDto.InteractionResponse, error) {
			gotType = t
			return &interactionDto.InteractionResponse{Type: string(t), Recorded: true}, nil
		},
	}

	rec := record(svc, uuid.NewString(), uuid.NewString(), `{"type":"view"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.InteractionView, gotType)
	var body interactionDto.InteractionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Recorded)
}

func TestRecordInteraction_ClientCannotRecordVotes(t *testing.T) {
	svc := &mockInteractionService{}

	for _, typ := range []string{"vote", "comment", ""} {
		rec := record(svc, uuid.NewString(), uuid.NewString(), `{"type":"`+typ+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, typ)
	}
	assert.Zero(t, svc.calls)
}

func TestRecordInteraction_UnknownEvent(t *testing.T) {
	svc := &mockInteractionService{
		recordFn: func(context.Context, uuid.UUID, uuid.UUID, entity.InteractionType) (*interactionDto.InteractionResponse, error) {
			return nil, eventRepo.ErrEventNotFound
		},
	}

	rec := record(svc, uuid.NewString(), uuid.NewString(), `{"type":"view"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordInteraction_Unauthenticated(t *testing.T) {
	svc := &mockInteractionService{}
	rec := record(svc, "", uuid.NewString(), `{"type":"view"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, svc.calls)
}
