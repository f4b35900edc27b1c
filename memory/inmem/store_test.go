package inmem_test

import (
	"context"
	"testing"

	"github.com/agentloom/agentcore/memory/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RememberAndRecall(t *testing.T) {
	s := inmem.New()
	require.NoError(t, s.Remember(context.Background(), "the workspace root is /srv/app", map[string]any{"tags": []string{"project"}}))
	require.NoError(t, s.Remember(context.Background(), "user prefers dark mode", map[string]any{"tags": []string{"preference"}}))

	items, err := s.Recall(context.Background(), "workspace root", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Text, "/srv/app")
}

func TestStore_RecallRespectsTopK(t *testing.T) {
	s := inmem.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Remember(context.Background(), "note about apples", nil))
	}
	items, err := s.Recall(context.Background(), "apples", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStore_RecallCancelledContext(t *testing.T) {
	s := inmem.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Recall(ctx, "anything", 5)
	assert.ErrorIs(t, err, context.Canceled)
}
