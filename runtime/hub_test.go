package runtime

import (
	"context"
	"log/slog"
	"testing"

	"relay-lab/domain/event"
	"relay-lab/errors"
	"relay-lab/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestHub() (*Hub, *Registry) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics()
	registry := NewRegistry()
	broadcaster := NewBroadcaster(log, FullSnapshot{})
	relay := NewRelay(log, registry, metrics)
	return NewHub(log, registry, broadcaster, relay, metrics), registry
}

func onlineUsers(t *testing.T, events []event.ServerEvent) [][]string {
	t.Helper()
	var snapshots [][]string
	for _, e := range events {
		if online, ok := e.(event.OnlineUsers); ok {
			snapshots = append(snapshots, []string(online))
		}
	}
	return snapshots
}

func TestHub_Connect_Does_Not_Broadcast(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub()
	sink := &captureSink{}

	// An anonymous connection changes the audience, not the snapshot
	session := hub.Connect("c1", "alice", sink)

	req.Equal(StateConnected, session.State())
	req.Empty(sink.Events())
}

func TestHub_RegisterUser_Broadcasts_To_All(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub()
	ctx := context.Background()

	sinkA := &captureSink{}
	sinkB := &captureSink{}
	sessionA := hub.Connect("c1", "alice", sinkA)
	sessionB := hub.Connect("c2", "bob", sinkB)

	req.NoError(hub.RegisterUser(ctx, sessionA, "alice"))
	req.NoError(hub.RegisterUser(ctx, sessionB, "bob"))
	req.Equal(StateIdentified, sessionA.State())

	// First mutation: {alice} to both. Second: {alice, bob} to both.
	snapshotsA := onlineUsers(t, sinkA.Events())
	req.Len(snapshotsA, 2)
	req.ElementsMatch([]string{"alice"}, snapshotsA[0])
	req.ElementsMatch([]string{"alice", "bob"}, snapshotsA[1])

	snapshotsB := onlineUsers(t, sinkB.Events())
	req.Len(snapshotsB, 2)
	req.ElementsMatch([]string{"alice"}, snapshotsB[0])
	req.ElementsMatch([]string{"alice", "bob"}, snapshotsB[1])
}

func TestHub_RegisterUser_Rejects_Foreign_Identity(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub()
	sink := &captureSink{}
	session := hub.Connect("c1", "alice", sink)

	// The bound identity must match the authenticated one
	err := hub.RegisterUser(context.Background(), session, "mallory")

	req.ErrorIs(err, errors.ErrIdentityMismatch)
	req.Equal(StateConnected, session.State())
	req.Empty(sink.Events())
}

func TestHub_UnregisterUser_Keeps_Transport_Open(t *testing.T) {
	req := require.New(t)
	hub, registry := newTestHub()
	ctx := context.Background()
	sink := &captureSink{}
	session := hub.Connect("c1", "alice", sink)
	req.NoError(hub.RegisterUser(ctx, session, "alice"))

	req.NoError(hub.UnregisterUser(ctx, session))

	// Identity gone, session still identified and re-registrable
	req.Empty(registry.SnapshotUserIDs())
	req.Equal(StateIdentified, session.State())
	snapshots := onlineUsers(t, sink.Events())
	req.ElementsMatch([]string{}, snapshots[len(snapshots)-1])

	req.NoError(hub.RegisterUser(ctx, session, "alice"))
	req.ElementsMatch([]string{"alice"}, []string(registry.SnapshotUserIDs()))
}

func TestHub_UnregisterUser_Without_Identity_Is_Noop(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub()
	sink := &captureSink{}
	session := hub.Connect("c1", "alice", sink)

	req.NoError(hub.UnregisterUser(context.Background(), session))

	req.Empty(sink.Events())
}

func TestHub_Disconnect_Broadcasts_And_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	hub, registry := newTestHub()
	ctx := context.Background()

	sinkA := &captureSink{}
	sinkB := &captureSink{}
	sessionA := hub.Connect("c1", "alice", sinkA)
	sessionB := hub.Connect("c2", "bob", sinkB)
	req.NoError(hub.RegisterUser(ctx, sessionA, "alice"))
	req.NoError(hub.RegisterUser(ctx, sessionB, "bob"))

	hub.Disconnect(ctx, sessionB)
	countAfterFirst := len(sinkA.Events())

	// Duplicate close notification: strictly a no-op
	hub.Disconnect(ctx, sessionB)

	req.Equal(StateClosed, sessionB.State())
	req.ElementsMatch([]string{"alice"}, []string(registry.SnapshotUserIDs()))
	req.Len(sinkA.Events(), countAfterFirst)
	snapshots := onlineUsers(t, sinkA.Events())
	req.ElementsMatch([]string{"alice"}, snapshots[len(snapshots)-1])
}

func TestHub_Disconnect_Of_Unregistered_Connection_Is_Silent(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub()
	ctx := context.Background()

	observer := &captureSink{}
	observerSession := hub.Connect("c1", "alice", observer)
	req.NoError(hub.RegisterUser(ctx, observerSession, "alice"))
	baseline := len(observer.Events())

	// A connection that never registered comes and goes without a broadcast
	anonymous := hub.Connect("c2", "ghost", &captureSink{})
	hub.Disconnect(ctx, anonymous)

	req.Len(observer.Events(), baseline)
}

func TestHub_Registered_Users_Gauge_Tracks_The_Registry(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics()
	registry := NewRegistry()
	broadcaster := NewBroadcaster(log, FullSnapshot{})
	relay := NewRelay(log, registry, metrics)
	hub := NewHub(log, registry, broadcaster, relay, metrics)
	ctx := context.Background()

	gauge := func() int64 { return metrics.GetLatest().RegisteredUsers }

	// Fully unwinding one session must land the gauge back on zero
	session := hub.Connect("c1", "alice", &captureSink{})
	req.NoError(hub.RegisterUser(ctx, session, "alice"))
	req.Equal(int64(1), gauge())
	req.NoError(hub.UnregisterUser(ctx, session))
	req.Equal(int64(0), gauge())
	req.NoError(hub.RegisterUser(ctx, session, "alice"))
	req.Equal(int64(1), gauge())
	hub.Disconnect(ctx, session)
	req.Equal(int64(0), gauge())

	// Last-register-wins across two connections counts the identity once,
	// and the evicted connection's disconnect changes nothing
	first := hub.Connect("c2", "bob", &captureSink{})
	second := hub.Connect("c3", "bob", &captureSink{})
	req.NoError(hub.RegisterUser(ctx, first, "bob"))
	req.NoError(hub.RegisterUser(ctx, second, "bob"))
	req.Equal(int64(1), gauge())
	hub.Disconnect(ctx, first)
	req.Equal(int64(1), gauge())
	hub.Disconnect(ctx, second)
	req.Equal(int64(0), gauge())
}

func TestHub_Relay_Stamps_The_Authenticated_Sender(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub()
	ctx := context.Background()

	recipient := &captureSink{}
	recipientSession := hub.Connect("c1", "bob", recipient)
	req.NoError(hub.RegisterUser(ctx, recipientSession, "bob"))

	// The payload claims to be from bob, but the connection belongs to alice
	sender := hub.Connect("c2", "alice", &captureSink{})
	hub.Relay(ctx, sender, event.SendMessage{From: "bob", To: "bob", Text: "hi"})

	var received event.ReceiveMessage
	for _, e := range recipient.Events() {
		if msg, ok := e.(event.ReceiveMessage); ok {
			received = msg
		}
	}
	req.Equal("alice", received.From)
	req.Equal("hi", received.Text)
}

func TestHub_RegisterUser_On_Closed_Session_Fails(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub()
	ctx := context.Background()
	session := hub.Connect("c1", "alice", &captureSink{})
	hub.Disconnect(ctx, session)

	err := hub.RegisterUser(ctx, session, "alice")

	req.ErrorIs(err, errors.ErrSessionClosed)
}
