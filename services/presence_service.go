//go:generate go run go.uber.org/mock/mockgen -source=presence_service.go -destination=../mocks/mock_presence_service.go -package=mocks
package services

import (
	stderrors "errors"
	"log/slog"
	"time"

	"match-lab/domain"
	"match-lab/domain/event"
	"match-lab/errors"
	"match-lab/repositories"
)

type IPresenceService interface {
	SetPresence(id domain.Identity, online bool)
}

// PresenceService is the write-through glue between the connection
// lifecycle and the presence store.
//
// Presence tracking is best-effort relative to the connection: a failed
// write is logged and swallowed so the connection stays usable. After
// the write attempt the change is emitted to the fanout worker, which
// broadcasts it to the presence group.
type PresenceService struct {
	repository repositories.IPresenceRepository
	events     chan<- event.Event
	log        *slog.Logger
}

func NewPresenceService(repository repositories.IPresenceRepository,
	events chan<- event.Event, log *slog.Logger) *PresenceService {
	return &PresenceService{repository: repository, events: events, log: log}
}

func (s *PresenceService) SetPresence(id domain.Identity, online bool) {
	if id.IsAnonymous() {
		s.log.Debug("Skipping presence write for anonymous connection")
		return
	}

	if err := s.repository.Set(id, online); err != nil {
		if stderrors.Is(err, errors.ErrUnknownIdentity) {
			s.log.Warn("Presence record missing", "identity", id)
		} else {
			s.log.Error("Presence write failed", "identity", id, "error", err)
		}
		// Never propagated: the connection lifecycle must not depend on
		// the presence store being reachable.
	}

	select {
	case s.events <- event.PresenceChanged{Username: id, Online: online, At: time.Now()}:
	default:
		s.log.Warn("Presence event dropped, fanout channel full", "identity", id)
	}
}
