package runtime

import (
	"context"
	"log/slog"

	"relay-lab/contract"
	"relay-lab/domain"
	"relay-lab/domain/event"
)

// Broadcaster publishes presence changes to every connected transport.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering across sinks, or retries. One publish per registry mutation, no
// debouncing: a burst of connects yields a burst of broadcasts, an accepted
// cost given how infrequent connect/disconnect events are.
type Broadcaster struct {
	log      *slog.Logger
	strategy contract.PublishStrategy
}

func NewBroadcaster(log *slog.Logger, strategy contract.PublishStrategy) *Broadcaster {
	return &Broadcaster{log: log, strategy: strategy}
}

// Publish computes the current snapshot and emits it to every live sink, not
// just the affected one. Callers must invoke it synchronously right after the
// mutation, before any other mutation can interleave.
func (b *Broadcaster) Publish(ctx context.Context, registry contract.IRegistry) {
	snapshot := registry.SnapshotUserIDs()
	events := b.strategy.Events(snapshot)
	sinks := registry.Sinks()
	for _, evt := range events {
		for _, sink := range sinks {
			if err := sink.Consume(ctx, evt); err != nil {
				// A slow or dead sink only loses its own update; the
				// disconnect path will reconcile it.
				b.log.Debug("presence publish dropped for one sink", "error", err)
			}
		}
	}
}

// FullSnapshot is the wire-contract strategy: the complete post-mutation set
// of registered identities as a single online-users event.
type FullSnapshot struct{}

func (FullSnapshot) Events(snapshot domain.Snapshot) []event.ServerEvent {
	return []event.ServerEvent{event.OnlineUsers(snapshot)}
}
