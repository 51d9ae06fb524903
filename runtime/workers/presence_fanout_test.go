package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"match-lab/domain"
	"match-lab/domain/event"
	"match-lab/mocks"
	"match-lab/observability"
)

func TestPresenceFanout_BroadcastsPresenceChanges(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registryMock := mocks.NewMockIRegistry(ctrl)
	stats := observability.NewMatchStats()
	events := make(chan event.Event, 1)

	// Given a broadcast expectation carrying the serialized status
	delivered := make(chan []byte, 1)
	registryMock.EXPECT().
		Broadcast(domain.PresenceGroup, gomock.Any()).
		DoAndReturn(func(group string, payload []byte) int {
			delivered <- payload
			return 1
		}).
		Times(1)

	worker := NewPresenceFanout(slog.Default(), registryMock, events, stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// When a presence change is emitted
	events <- event.PresenceChanged{Username: "alice", Online: true, At: time.Now()}

	// Then the presence group receives the wire frame
	select {
	case payload := <-delivered:
		var status domain.PresenceStatus
		req.NoError(json.Unmarshal(payload, &status))
		req.Equal(domain.Identity("alice"), status.Username)
		req.True(status.OnlineStatus)
	case <-time.After(time.Second):
		req.Fail("presence change was never broadcast")
	}

	req.Eventually(func() bool {
		return stats.Snapshot()["presence_updates"] == uint64(1)
	}, time.Second, 10*time.Millisecond)
}

func TestPresenceFanout_StopsOnContextCancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registryMock := mocks.NewMockIRegistry(ctrl)
	events := make(chan event.Event)
	worker := NewPresenceFanout(slog.Default(), registryMock, events, observability.NewMatchStats())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("fanout should stop when the context cancels")
	}
}
