//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"relay-lab/domain"
	"relay-lab/domain/event"
)

// EventSink is one live connection's delivery endpoint. Implementations must
// never block the caller: a sink that cannot accept the event fails fast.
type EventSink interface {
	Consume(ctx context.Context, e event.ServerEvent) error
}

// IRegistry maps user identities to their active connection. At most one
// entry per user identity at any instant (last-register-wins).
type IRegistry interface {
	AddSession(id domain.ConnID, sink EventSink)
	RemoveSession(id domain.ConnID)
	Register(userID string, id domain.ConnID)
	UnregisterByConn(id domain.ConnID) []string
	Lookup(userID string) (EventSink, bool)
	SnapshotUserIDs() domain.Snapshot
	Sinks() []EventSink
}

// PublishStrategy turns a presence snapshot into the events broadcast after a
// registry mutation. The full-snapshot strategy is the wire default; an
// incremental-diff strategy can replace it without touching the registry.
type PublishStrategy interface {
	Events(snapshot domain.Snapshot) []event.ServerEvent
}

type WorkerName string

// Worker doesn't protect itself. Supervision, restarts and panic recovery
// belong to the Supervisor.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding manual naming in the Worker interface.
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
