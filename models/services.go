package models

import (
	"context"
)

// SessionRepository is the tenant session registry. Implementations return
// copies so callers never share the registry's backing structs.
type SessionRepository interface {
	Put(session TenantSession)
	Get(channelID string) (TenantSession, bool)
	Delete(channelID string) bool
	FindBySubscription(subscriptionID string) (TenantSession, bool)
	List() []TenantSession
}

// CampaignRepository is the per-tenant giveaway state machine.
type CampaignRepository interface {
	Provision(channelID, rewardID string) Campaign
	Start(channelID string) bool
	Stop(channelID string) bool
	Append(entry Entry) AppendResult
	Get(channelID string) (Campaign, bool)
	Stats(channelID string) (CampaignStats, bool)
	Clear(channelID string) bool
}

// ConnectionHub registers live viewer streams and fans events out to them.
type ConnectionHub interface {
	Register(channelID string) *LiveConnection
	Unregister(conn *LiveConnection)
	Broadcast(ctx context.Context, channelID string, event BroadcastEvent) int
	Shutdown(ctx context.Context)
}

type Notifier interface {
	SendAlert(title, desc, content string) error
	SendInfo(title, desc, content string) error
}

type MetricService interface {
	Count(ctx context.Context, name MetricName, val int) error
	Distribution(ctx context.Context, name MetricName, val int) error
	Shutdown(ctx context.Context)
}

type Logger interface {
	Debugf(template string, args ...interface{})
	Debugw(msg string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Infoln(args ...interface{})
	Sync() error
}
