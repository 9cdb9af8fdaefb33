package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	return log
}

func TestFindOrCreateActiveReusesOpenConversation(t *testing.T) {
	svc := NewConversationService(nil, testLogger(t))
	ctx := context.Background()

	first, err := svc.FindOrCreateActive(ctx, "co-1", "cust-1", "conn-1")
	require.NoError(t, err)
	assert.True(t, first.IsAIHandling, "new conversations start AI-handled")
	assert.Equal(t, model.ConversationOpen, first.Status)

	second, err := svc.FindOrCreateActive(ctx, "co-1", "cust-1", "conn-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrCreateActiveSeparatesTuples(t *testing.T) {
	svc := NewConversationService(nil, testLogger(t))
	ctx := context.Background()

	a, err := svc.FindOrCreateActive(ctx, "co-1", "cust-1", "conn-1")
	require.NoError(t, err)
	b, err := svc.FindOrCreateActive(ctx, "co-1", "cust-1", "conn-2")
	require.NoError(t, err)
	c, err := svc.FindOrCreateActive(ctx, "co-2", "cust-1", "conn-1")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID, "different connection starts a new thread")
	assert.NotEqual(t, a.ID, c.ID, "different company starts a new thread")
}

func TestFindOrCreateActiveAfterClose(t *testing.T) {
	svc := NewConversationService(nil, testLogger(t))
	ctx := context.Background()

	first, err := svc.FindOrCreateActive(ctx, "co-1", "cust-1", "conn-1")
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, "co-1", first.ID))

	second, err := svc.FindOrCreateActive(ctx, "co-1", "cust-1", "conn-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "closed conversations are never reopened")
}

func TestGetScopesByCompany(t *testing.T) {
	svc := NewConversationService(nil, testLogger(t))
	ctx := context.Background()

	conv, err := svc.FindOrCreateActive(ctx, "co-1", "cust-1", "conn-1")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "co-2", conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(ctx, "co-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
}

func TestSetAIHandlingTakeover(t *testing.T) {
	svc := NewConversationService(nil, testLogger(t))
	ctx := context.Background()

	conv, err := svc.FindOrCreateActive(ctx, "co-1", "cust-1", "conn-1")
	require.NoError(t, err)

	updated, err := svc.SetAIHandling(ctx, "co-1", conv.ID, false, "agent-7")
	require.NoError(t, err)
	assert.False(t, updated.IsAIHandling)
	require.NotNil(t, updated.AssignedAgent)
	assert.Equal(t, "agent-7", *updated.AssignedAgent)

	restored, err := svc.SetAIHandling(ctx, "co-1", conv.ID, true, "")
	require.NoError(t, err)
	assert.True(t, restored.IsAIHandling)
	assert.Nil(t, restored.AssignedAgent)
}

func TestListPaginates(t *testing.T) {
	svc := NewConversationService(nil, testLogger(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.FindOrCreateActive(ctx, "co-1", "cust-"+string(rune('a'+i)), "conn-1")
		require.NoError(t, err)
	}
	_, err := svc.FindOrCreateActive(ctx, "co-2", "cust-x", "conn-9")
	require.NoError(t, err)

	page, total, err := svc.List(ctx, "co-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)

	rest, _, err := svc.List(ctx, "co-1", 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}
