package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"promptlime/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "test payload"))
	assert.NoError(t, n.PublishEvent(context.Background(), 0, models.NotificationEvent{Title: "t"}))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := ParseUserChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}

	_, ok := ParseUserChannel(BroadcastChannel)
	assert.False(t, ok)
	_, ok = ParseUserChannel("notifications:user:0")
	assert.False(t, ok)
}

func TestNotifier_DeliversToHub(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	hub := NewHub()
	client, err := hub.Register(42, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishEvent(context.Background(), 42, models.NotificationEvent{
		ID: 9, Title: "Welcome", Message: "Thanks for joining",
	}))

	var payload []byte
	require.Eventually(t, func() bool {
		select {
		case payload = <-client.Send:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	var evt models.NotificationEvent
	require.NoError(t, json.Unmarshal(payload, &evt))
	assert.Equal(t, EventNotification, evt.Type)
	assert.Equal(t, uint(9), evt.ID)
	assert.Equal(t, "Welcome", evt.Title)
}
