package services

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	raffle "github.com/streamraffle/go-raffle"
	"github.com/streamraffle/go-raffle/models"
)

// Buffered sends mean one stalled viewer cannot block the fanout pass; a
// connection whose buffer is full is considered dead and pruned.
const DefaultEventBuffer = 16

// Hub owns every live viewer connection, keyed by channel id. Broadcasts
// serialize the event once and deliver best-effort: a dropped connection
// loses events until it reconnects.
type Hub struct {
	logger        models.Logger
	metricService models.MetricService
	heartbeat     time.Duration

	mu       sync.Mutex
	channels map[string]map[uuid.UUID]*models.LiveConnection
	closed   bool
}

func NewHub(logger models.Logger, metricService models.MetricService) *Hub {
	heartbeat := raffle.DefaultHeartbeatInterval
	if configHeartbeat, found := os.LookupEnv(raffle.Env_HeartbeatInterval); found {
		if parsedHeartbeat, err := time.ParseDuration(configHeartbeat); err == nil {
			heartbeat = parsedHeartbeat
		}
	}
	return &Hub{
		logger:        logger,
		metricService: metricService,
		heartbeat:     heartbeat,
		channels:      make(map[string]map[uuid.UUID]*models.LiveConnection),
	}
}

// Register opens a connection scoped to one channel and returns it. The
// caller reads events from conn.Events until it is closed.
func (h *Hub) Register(channelID string) *models.LiveConnection {
	conn := &models.LiveConnection{
		Token:       uuid.New(),
		ChannelID:   channelID,
		Events:      make(chan []byte, DefaultEventBuffer),
		ConnectedAt: time.Now().UTC(),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(conn.Events)
		return conn
	}
	conns, found := h.channels[channelID]
	if !found {
		conns = make(map[uuid.UUID]*models.LiveConnection)
		h.channels[channelID] = conns
	}
	conns[conn.Token] = conn
	h.metricService.Count(context.Background(), models.MetricName_ConnectionOpened, 1)
	return conn
}

// Unregister removes the connection and closes its channel. Safe to call
// after the hub already pruned the connection during a broadcast.
func (h *Hub) Unregister(conn *models.LiveConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *models.LiveConnection) {
	conns, found := h.channels[conn.ChannelID]
	if !found {
		return
	}
	if _, registered := conns[conn.Token]; !registered {
		return
	}
	delete(conns, conn.Token)
	if len(conns) == 0 {
		delete(h.channels, conn.ChannelID)
	}
	close(conn.Events)
}

// Broadcast serializes the event once and delivers it to every connection
// of the channel. Connections that cannot accept the event are pruned in
// the same pass. Returns the number of successful deliveries; broadcasting
// to a channel with no connections is a no-op.
func (h *Hub) Broadcast(ctx context.Context, channelID string, event models.BroadcastEvent) int {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("fanout: failed to serialize %s event: %v", event.Type, err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := h.broadcastLocked(channelID, data)
	if delivered > 0 {
		h.metricService.Count(ctx, models.MetricName_FanoutDelivery, delivered)
		h.metricService.Distribution(ctx, models.MetricName_FanoutSize, delivered)
	}
	return delivered
}

func (h *Hub) broadcastLocked(channelID string, data []byte) int {
	delivered := 0
	for _, conn := range h.channels[channelID] {
		select {
		case conn.Events <- data:
			delivered++
		default:
			// Full buffer means the consumer stopped reading.
			h.logger.Debugf("fanout: pruning stalled connection %s on channel %s", conn.Token, channelID)
			h.removeLocked(conn)
			h.metricService.Count(context.Background(), models.MetricName_ConnectionPruned, 1)
		}
	}
	return delivered
}

// Run drives the periodic heartbeat until the context is canceled. The
// heartbeat both detects dead peers and defeats idle timeouts in proxies.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.heartbeatAll(ctx)
		}
	}
}

func (h *Hub) heartbeatAll(ctx context.Context) {
	event := models.BroadcastEvent{Type: models.EventType_Heartbeat, Timestamp: time.Now().UTC()}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("fanout: failed to serialize heartbeat: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for channelID := range h.channels {
		sent += h.broadcastLocked(channelID, data)
	}
	if sent > 0 {
		h.metricService.Count(ctx, models.MetricName_HeartbeatSent, sent)
	}
}

// Shutdown fans a terminal server_shutdown event to every open connection,
// then closes them all, so clients can tell a graceful stop from a network
// fault. The hub accepts no registrations afterwards.
func (h *Hub) Shutdown(ctx context.Context) {
	event := models.BroadcastEvent{Type: models.EventType_ServerShutdown, Timestamp: time.Now().UTC()}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("fanout: failed to serialize shutdown event: %v", err)
		data = nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, conns := range h.channels {
		for _, conn := range conns {
			if data != nil {
				select {
				case conn.Events <- data:
				default:
				}
			}
			close(conn.Events)
		}
	}
	h.channels = make(map[string]map[uuid.UUID]*models.LiveConnection)
}

// ConnectionCount reports the open connections for one channel.
func (h *Hub) ConnectionCount(channelID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channelID])
}
