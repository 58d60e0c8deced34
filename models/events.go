package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventType_ConnectionStatus        EventType = "connection_status"
	EventType_Heartbeat               EventType = "heartbeat"
	EventType_EntryAdded              EventType = "entry_added"
	EventType_RedemptionStatusChanged EventType = "redemption_status_changed"
	EventType_SubscriptionRevoked     EventType = "subscription_revoked"
	EventType_ServerShutdown          EventType = "server_shutdown"
)

// BroadcastEvent is what viewers receive on the live stream. The hub
// serializes it once per fanout pass.
type BroadcastEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

type RedemptionStatusEvent struct {
	RedemptionID string `json:"redemptionId"`
	RewardID     string `json:"rewardId"`
	Status       string `json:"status"`
}

type RevocationEvent struct {
	SubscriptionID string `json:"subscriptionId"`
	Reason         string `json:"reason"`
}

// LiveConnection is one open viewer stream. Ephemeral: created on stream
// open, destroyed on close or failed write, never persisted.
type LiveConnection struct {
	Token       uuid.UUID
	ChannelID   string
	Events      chan []byte
	ConnectedAt time.Time
}
