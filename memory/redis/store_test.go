package redis_test

import (
	"context"
	"testing"

	redismock "github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/agentcore/memory/redis"
)

func TestNewStore_RequiresClient(t *testing.T) {
	_, err := redis.NewStore(redis.Options{})
	assert.Error(t, err)
}

func TestStore_Recall_EmptyWindow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store, err := redis.NewStore(redis.Options{Client: db})
	require.NoError(t, err)

	mock.ExpectZRevRange("agentcore:memory:items", 0, 199).SetVal(nil)

	items, err := store.Recall(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Recall_MatchesSubstring(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store, err := redis.NewStore(redis.Options{Client: db})
	require.NoError(t, err)

	mock.ExpectZRevRange("agentcore:memory:items", 0, 199).SetVal([]string{"1"})
	mock.ExpectHMGet("agentcore:memory:payloads", "1").SetVal([]interface{}{
		`{"text":"the workspace root is /srv/app","tags":["project"]}`,
	})

	items, err := store.Recall(context.Background(), "workspace", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Text, "/srv/app")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Remember_Pipelines(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store, err := redis.NewStore(redis.Options{Client: db})
	require.NoError(t, err)

	mock.MatchExpectationsInOrder(false)
	mock.CustomMatch(func(expected, actual []interface{}) error { return nil })
	mock.ExpectTxPipeline()
	mock.ExpectZAdd("agentcore:memory:items", goredis.Z{}).SetVal(1)
	mock.ExpectHSet("agentcore:memory:payloads").SetVal(1)
	mock.ExpectTxPipelineExec()

	err = store.Remember(context.Background(), "note", map[string]any{"tags": []string{"project"}})
	require.NoError(t, err)
}
