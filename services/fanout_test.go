package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	raffle "github.com/streamraffle/go-raffle"
	"github.com/streamraffle/go-raffle/common/loggers"
	"github.com/streamraffle/go-raffle/models"
)

func newTestHub() (*Hub, *FakeMetricService) {
	metricService := NewFakeMetricService()
	return NewHub(loggers.NewTestLogger(), metricService), metricService
}

func receiveEvent(t *testing.T, conn *models.LiveConnection) models.BroadcastEvent {
	t.Helper()
	select {
	case data, ok := <-conn.Events:
		if !ok {
			t.Fatalf("connection closed while waiting for an event")
		}
		event := models.BroadcastEvent{}
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for an event")
	}
	return models.BroadcastEvent{}
}

func TestBroadcastScopedToChannel(t *testing.T) {
	hub, _ := newTestHub()
	u1a := hub.Register("u1")
	u1b := hub.Register("u1")
	u2 := hub.Register("u2")

	delivered := hub.Broadcast(context.Background(), "u1", models.BroadcastEvent{Type: models.EventType_EntryAdded})
	if delivered != 2 {
		t.Fatalf("delivered to %d connections, expected 2", delivered)
	}
	for _, conn := range []*models.LiveConnection{u1a, u1b} {
		if event := receiveEvent(t, conn); event.Type != models.EventType_EntryAdded {
			t.Errorf("received %s, expected %s", event.Type, models.EventType_EntryAdded)
		}
	}
	select {
	case <-u2.Events:
		t.Errorf("u2 must not receive u1 events")
	default:
	}
}

func TestBroadcastNoConnections(t *testing.T) {
	hub, _ := newTestHub()
	if delivered := hub.Broadcast(context.Background(), "u1", models.BroadcastEvent{Type: models.EventType_EntryAdded}); delivered != 0 {
		t.Errorf("broadcast to an empty channel delivered %d, expected 0", delivered)
	}
}

func TestBroadcastPrunesStalledConnection(t *testing.T) {
	hub, metricService := newTestHub()
	stalled := hub.Register("u1")
	healthy := hub.Register("u1")

	// Fill the stalled connection's buffer without reading from it
	for i := 0; i <= DefaultEventBuffer; i++ {
		hub.Broadcast(context.Background(), "u1", models.BroadcastEvent{Type: models.EventType_Heartbeat})
		receiveEvent(t, healthy)
	}

	if hub.ConnectionCount("u1") != 1 {
		t.Fatalf("stalled connection should have been pruned, %d connections remain", hub.ConnectionCount("u1"))
	}
	if metricService.getCount(models.MetricName_ConnectionPruned) != 1 {
		t.Errorf("expected one pruned-connection count")
	}

	// The pruned channel is drained and closed, so it receives nothing more
	hub.Broadcast(context.Background(), "u1", models.BroadcastEvent{Type: models.EventType_EntryAdded})
	receiveEvent(t, healthy)
	closed := false
	for !closed {
		select {
		case _, ok := <-stalled.Events:
			closed = !ok
		case <-time.After(time.Second):
			t.Fatalf("pruned connection's channel was not closed")
		}
	}

	// Unregistering a pruned connection is a no-op
	hub.Unregister(stalled)
}

func TestUnregister(t *testing.T) {
	hub, _ := newTestHub()
	conn := hub.Register("u1")
	hub.Unregister(conn)
	if _, ok := <-conn.Events; ok {
		t.Errorf("unregister should close the event channel")
	}
	if hub.ConnectionCount("u1") != 0 {
		t.Errorf("unregister should remove the connection")
	}
	hub.Unregister(conn)
}

func TestShutdown(t *testing.T) {
	hub, _ := newTestHub()
	u1 := hub.Register("u1")
	u2 := hub.Register("u2")

	hub.Shutdown(context.Background())

	for _, conn := range []*models.LiveConnection{u1, u2} {
		if event := receiveEvent(t, conn); event.Type != models.EventType_ServerShutdown {
			t.Errorf("received %s, expected %s", event.Type, models.EventType_ServerShutdown)
		}
		if _, ok := <-conn.Events; ok {
			t.Errorf("connections should be closed after shutdown")
		}
	}

	// Registrations after shutdown are refused with a closed channel
	late := hub.Register("u1")
	if _, ok := <-late.Events; ok {
		t.Errorf("registration after shutdown should return a closed connection")
	}
}

func TestHeartbeat(t *testing.T) {
	t.Setenv(raffle.Env_HeartbeatInterval, "10ms")
	hub, _ := newTestHub()
	conn := hub.Register("u1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	if event := receiveEvent(t, conn); event.Type != models.EventType_Heartbeat {
		t.Errorf("received %s, expected %s", event.Type, models.EventType_Heartbeat)
	}
}
