//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"match-lab/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// ConnectionSink is the outbound-delivery capability of one live
// connection. A failed Deliver means the frame is dropped; delivery is
// best-effort and never retried.
type ConnectionSink interface {
	Deliver(payload []byte) error
}

type IRegistry interface {
	Register(id domain.Identity, sink ConnectionSink)
	Lookup(id domain.Identity) (ConnectionSink, bool)
	Unregister(id domain.Identity)
	Deliver(id domain.Identity, payload []byte) bool
	JoinGroup(group string, id domain.Identity)
	LeaveGroup(group string, id domain.Identity)
	Broadcast(group string, payload []byte) int
}

type IMatchmaker interface {
	Join(ctx context.Context, id domain.Identity) error
	Leave(ctx context.Context, id domain.Identity) error
	PostResponse(id domain.Identity, accepted bool) bool
}
