package services

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"match-lab/domain"
	"match-lab/domain/event"
	"match-lab/errors"
	"match-lab/mocks"
)

func TestPresenceService_WritesThroughAndEmits(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := mocks.NewMockIPresenceRepository(ctrl)
	events := make(chan event.Event, 1)
	service := NewPresenceService(repoMock, events, slog.Default())

	// Given a successful store write
	repoMock.EXPECT().Set(domain.Identity("alice"), true).Return(nil).Times(1)

	// When presence flips
	service.SetPresence("alice", true)

	// Then the change was emitted for fan-out
	evt := <-events
	changed, ok := evt.(event.PresenceChanged)
	req.True(ok)
	req.Equal(domain.Identity("alice"), changed.Username)
	req.True(changed.Online)
}

func TestPresenceService_SwallowsStoreFailures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := mocks.NewMockIPresenceRepository(ctrl)
	events := make(chan event.Event, 2)
	service := NewPresenceService(repoMock, events, slog.Default())

	// Given the store failing in both known ways
	repoMock.EXPECT().Set(domain.Identity("alice"), false).
		Return(fmt.Errorf("%w: alice", errors.ErrUnknownIdentity)).Times(1)
	repoMock.EXPECT().Set(domain.Identity("bob"), true).
		Return(fmt.Errorf("disk on fire")).Times(1)

	// When presence flips, nothing panics and nothing is propagated
	service.SetPresence("alice", false)
	service.SetPresence("bob", true)

	// And the changes are still broadcast to observers
	req.Len(events, 2)
}

func TestPresenceService_SkipsAnonymousConnections(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No repository call is expected at all
	repoMock := mocks.NewMockIPresenceRepository(ctrl)
	events := make(chan event.Event, 1)
	service := NewPresenceService(repoMock, events, slog.Default())

	service.SetPresence(domain.Anonymous, true)

	req.Empty(events)
}

func TestPresenceService_DropsEventWhenChannelFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := mocks.NewMockIPresenceRepository(ctrl)
	repoMock.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	// Given a fanout channel with a single saturated slot
	events := make(chan event.Event, 1)
	service := NewPresenceService(repoMock, events, slog.Default())

	// Both writes land in the store; the second event is dropped,
	// never blocking the connection handler
	service.SetPresence("alice", true)
	service.SetPresence("bob", true)
}
