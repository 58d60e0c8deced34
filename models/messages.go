package models

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageType_Verification MessageType = "webhook_callback_verification"
	MessageType_Notification MessageType = "notification"
	MessageType_Revocation   MessageType = "revocation"
)

const (
	SubscriptionType_RedemptionAdd    = "channel.channel_points_custom_reward_redemption.add"
	SubscriptionType_RedemptionUpdate = "channel.channel_points_custom_reward_redemption.update"
	SubscriptionType_Follow           = "channel.follow"
	SubscriptionType_Subscribe        = "channel.subscribe"
)

// WebhookMessage is the envelope shared by all three message types. The
// event body stays raw until the dispatcher knows the subscription type.
type WebhookMessage struct {
	Challenge    string               `json:"challenge,omitempty"`
	Subscription EventSubSubscription `json:"subscription"`
	Event        json.RawMessage      `json:"event,omitempty"`
}

type EventSubSubscription struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Status    string            `json:"status,omitempty"`
	Condition map[string]string `json:"condition,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
}

// RedemptionEvent is the body of redemption add/update notifications.
type RedemptionEvent struct {
	ID               string           `json:"id"`
	BroadcasterID    string           `json:"broadcaster_user_id"`
	BroadcasterLogin string           `json:"broadcaster_user_login,omitempty"`
	UserID           string           `json:"user_id"`
	UserLogin        string           `json:"user_login,omitempty"`
	UserName         string           `json:"user_name"`
	UserInput        string           `json:"user_input,omitempty"`
	Status           string           `json:"status,omitempty"`
	Reward           RedemptionReward `json:"reward"`
	RedeemedAt       time.Time        `json:"redeemed_at"`
}

type RedemptionReward struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Cost   int    `json:"cost"`
	Prompt string `json:"prompt,omitempty"`
}

// GenericEvent covers the non-redemption subtypes that are forwarded to
// viewers untouched (follows, subscriptions).
type GenericEvent struct {
	BroadcasterID string `json:"broadcaster_user_id"`
	UserID        string `json:"user_id,omitempty"`
	UserName      string `json:"user_name,omitempty"`
}
