package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"relay-lab/domain"
	"relay-lab/domain/event"
	"relay-lab/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type captureSink struct {
	mu     sync.Mutex
	events []event.ServerEvent
}

func (c *captureSink) Consume(_ context.Context, e event.ServerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captureSink) Events() []event.ServerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.ServerEvent(nil), c.events...)
}

func TestBroadcaster_Publishes_Snapshot_To_Every_Transport(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(log, FullSnapshot{})

	identified := &captureSink{}
	anonymous := &captureSink{}
	registry.AddSession("c1", identified)
	registry.AddSession("c2", anonymous)
	registry.Register("alice", "c1")

	// When a mutation is published
	broadcaster.Publish(context.Background(), registry)

	// Then every transport receives the exact post-mutation snapshot
	for _, sink := range []*captureSink{identified, anonymous} {
		events := sink.Events()
		req.Len(events, 1)
		online, ok := events[0].(event.OnlineUsers)
		req.True(ok)
		req.ElementsMatch([]string{"alice"}, []string(online))
	}
}

func TestBroadcaster_Uses_The_Configured_Strategy(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	sink := &captureSink{}
	registry.AddSession("c1", sink)
	registry.Register("alice", "c1")

	strategy := mocks.NewMockPublishStrategy(ctrl)
	strategy.EXPECT().
		Events(gomock.Any()).
		DoAndReturn(func(snapshot domain.Snapshot) []event.ServerEvent {
			req.ElementsMatch(domain.Snapshot{"alice"}, snapshot)
			return []event.ServerEvent{event.OnlineUsers(snapshot)}
		}).
		Times(1)

	broadcaster := NewBroadcaster(log, strategy)
	broadcaster.Publish(context.Background(), registry)

	req.Len(sink.Events(), 1)
}

func TestFullSnapshot_Emits_One_OnlineUsers_Event(t *testing.T) {
	req := require.New(t)

	events := FullSnapshot{}.Events(domain.Snapshot{"alice", "bob"})

	req.Len(events, 1)
	req.Equal(event.NameOnlineUsers, events[0].EventName())
	req.ElementsMatch([]string{"alice", "bob"}, []string(events[0].(event.OnlineUsers)))
}
