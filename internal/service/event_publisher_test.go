package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pawtograder/platform-sub009/internal/middleware"
)

func TestEventPublisherWritesEnvelopeToRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "classops:due_date_exceptions")
	defer func() { _ = sub.Close() }()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewEventPublisher(client, "classops", nil, testLogger())
	require.NoError(t, publisher.Publish(middleware.ContextWithCorrelation(ctx, "corr-1"), EventDueDateExceptionCreated, map[string]int{"hours": 24}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	require.Equal(t, EventDueDateExceptionCreated, event.Type)
	require.NotEmpty(t, event.Source)
	require.Equal(t, "corr-1", event.CorrelationID)
	require.False(t, event.SentAt.IsZero())
	require.JSONEq(t, `{"hours":24}`, string(event.Payload))
}

func TestEventPublisherWithoutBrokersIsNoop(t *testing.T) {
	publisher := NewEventPublisher(nil, "classops", nil, testLogger())
	require.NoError(t, publisher.Publish(context.Background(), EventDueDateExceptionDeleted, struct{}{}))

	unnamed := NewEventPublisher(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "", nil, testLogger())
	require.NoError(t, unnamed.Publish(context.Background(), EventDueDateExceptionDeleted, struct{}{}))
}
