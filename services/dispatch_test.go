package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/streamraffle/go-raffle/common/loggers"
	"github.com/streamraffle/go-raffle/models"
)

type dispatchFixture struct {
	sessions   *SessionRegistry
	campaigns  *CampaignRegistry
	hub        *FakeConnectionHub
	notifier   *FakeNotifier
	metrics    *FakeMetricService
	dispatcher *DispatchService
}

func newDispatchFixture() *dispatchFixture {
	logger := loggers.NewTestLogger()
	f := &dispatchFixture{
		sessions:  NewSessionRegistry(logger),
		campaigns: NewCampaignRegistry(logger),
		hub:       NewFakeConnectionHub(),
		notifier:  &FakeNotifier{},
		metrics:   NewFakeMetricService(),
	}
	f.dispatcher = NewDispatchService(f.sessions, f.campaigns, f.hub, f.notifier, f.metrics, logger)
	return f
}

func redemptionBody(t *testing.T, subscriptionType, channelID, rewardID, userName, userID, redemptionID string, cost int, status string) []byte {
	t.Helper()
	msg := models.WebhookMessage{
		Subscription: models.EventSubSubscription{ID: "sub-1", Type: subscriptionType},
	}
	event, err := json.Marshal(models.RedemptionEvent{
		ID:            redemptionID,
		BroadcasterID: channelID,
		UserID:        userID,
		UserName:      userName,
		Status:        status,
		Reward:        models.RedemptionReward{ID: rewardID, Cost: cost},
		RedeemedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to encode event: %v", err)
	}
	msg.Event = event
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to encode message: %v", err)
	}
	return body
}

func TestDispatchChallenge(t *testing.T) {
	f := newDispatchFixture()
	body := []byte(`{"challenge":"xyz123","subscription":{"id":"sub-1","type":"channel.channel_points_custom_reward_redemption.add"}}`)

	response, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Verification, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response != "xyz123" {
		t.Errorf("challenge response was %q, expected it verbatim", response)
	}
	// The handshake must not touch any state
	if len(f.hub.getBroadcasts("u1")) != 0 {
		t.Errorf("challenge must not fan out")
	}
	if _, found := f.campaigns.Get("u1"); found {
		t.Errorf("challenge must not create campaign state")
	}
}

func TestDispatchRedemptionCreated(t *testing.T) {
	tests := map[string]struct {
		provision        bool
		start            bool
		rewardID         string
		expectEntry      bool
		expectedDropped  int
		expectedAppended int
	}{
		"appends and fans out": {
			provision: true, start: true, rewardID: "r1",
			expectEntry: true, expectedAppended: 1,
		},
		"drops on reward mismatch": {
			provision: true, start: true, rewardID: "r2",
			expectedDropped: 1,
		},
		"drops while inactive": {
			provision: true, rewardID: "r1",
			expectedDropped: 1,
		},
		"drops for unknown tenant": {
			rewardID:        "r1",
			expectedDropped: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			f := newDispatchFixture()
			if test.provision {
				f.campaigns.Provision("u1", "r1")
			}
			if test.start {
				f.campaigns.Start("u1")
			}
			body := redemptionBody(t, models.SubscriptionType_RedemptionAdd, "u1", test.rewardID, "alice", "user-1", "red-1", 500, "unfulfilled")

			response, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Notification, body)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if response != ackBody {
				t.Errorf("response was %q, expected %q", response, ackBody)
			}

			broadcasts := f.hub.getBroadcasts("u1")
			if test.expectEntry {
				if len(broadcasts) != 1 || broadcasts[0].Type != models.EventType_EntryAdded {
					t.Fatalf("expected one entry_added broadcast, got %+v", broadcasts)
				}
				entry, ok := broadcasts[0].Data.(models.Entry)
				if !ok {
					t.Fatalf("entry_added should carry the entry, got %T", broadcasts[0].Data)
				}
				if entry.DisplayName != "alice" || entry.Cost != 500 || entry.RedemptionID != "red-1" {
					t.Errorf("unexpected entry payload: %+v", entry)
				}
			} else if len(broadcasts) != 0 {
				t.Errorf("dropped redemption must not fan out, got %+v", broadcasts)
			}
			if f.metrics.getCount(models.MetricName_EntryAppended) != test.expectedAppended {
				t.Errorf("appended count was %d, expected %d", f.metrics.getCount(models.MetricName_EntryAppended), test.expectedAppended)
			}
			if f.metrics.getCount(models.MetricName_EntryDropped) != test.expectedDropped {
				t.Errorf("dropped count was %d, expected %d", f.metrics.getCount(models.MetricName_EntryDropped), test.expectedDropped)
			}
		})
	}
}

func TestDispatchScenarioStats(t *testing.T) {
	f := newDispatchFixture()
	f.campaigns.Provision("u1", "r1")
	f.campaigns.Start("u1")

	body := redemptionBody(t, models.SubscriptionType_RedemptionAdd, "u1", "r1", "alice", "user-1", "red-1", 500, "unfulfilled")
	if _, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Notification, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, _ := f.campaigns.Stats("u1")
	if stats.TotalEntries != 1 || stats.UniqueParticipants != 1 || stats.TotalPointsSpent != 500 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	// Second notification for a different reward leaves stats unchanged
	body = redemptionBody(t, models.SubscriptionType_RedemptionAdd, "u1", "r2", "bob", "user-2", "red-2", 300, "unfulfilled")
	if _, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Notification, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, _ = f.campaigns.Stats("u1")
	if stats.TotalEntries != 1 {
		t.Errorf("stats should be unchanged, found %d entries", stats.TotalEntries)
	}
}

func TestDispatchRedemptionUpdated(t *testing.T) {
	f := newDispatchFixture()
	f.campaigns.Provision("u1", "r1")
	f.campaigns.Start("u1")
	addBody := redemptionBody(t, models.SubscriptionType_RedemptionAdd, "u1", "r1", "alice", "user-1", "red-1", 500, "unfulfilled")
	if _, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Notification, addBody); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updateBody := redemptionBody(t, models.SubscriptionType_RedemptionUpdate, "u1", "r1", "alice", "user-1", "red-1", 500, "canceled")
	if _, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Notification, updateBody); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The stored entry is never mutated or removed by a status change
	campaign, _ := f.campaigns.Get("u1")
	if len(campaign.Entries) != 1 || campaign.Entries[0].RedemptionID != "red-1" {
		t.Fatalf("entry log should be untouched: %+v", campaign.Entries)
	}

	broadcasts := f.hub.getBroadcasts("u1")
	if len(broadcasts) != 2 || broadcasts[1].Type != models.EventType_RedemptionStatusChanged {
		t.Fatalf("expected a redemption_status_changed broadcast, got %+v", broadcasts)
	}
	statusEvent, ok := broadcasts[1].Data.(models.RedemptionStatusEvent)
	if !ok || statusEvent.Status != "canceled" || statusEvent.RedemptionID != "red-1" {
		t.Errorf("unexpected status event: %+v", broadcasts[1].Data)
	}
}

func TestDispatchPassthroughSubtypes(t *testing.T) {
	f := newDispatchFixture()
	body := []byte(fmt.Sprintf(
		`{"subscription":{"id":"sub-1","type":%q},"event":{"broadcaster_user_id":"u1","user_name":"carol"}}`,
		models.SubscriptionType_Follow,
	))
	if _, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Notification, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	broadcasts := f.hub.getBroadcasts("u1")
	if len(broadcasts) != 1 || string(broadcasts[0].Type) != models.SubscriptionType_Follow {
		t.Fatalf("expected one follow broadcast, got %+v", broadcasts)
	}
	// No campaign effect
	if _, found := f.campaigns.Get("u1"); found {
		t.Errorf("passthrough subtypes must not create campaign state")
	}
}

func TestDispatchUnrecognizedSubtype(t *testing.T) {
	f := newDispatchFixture()
	body := []byte(`{"subscription":{"id":"sub-1","type":"channel.cheer"},"event":{"broadcaster_user_id":"u1"}}`)

	response, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Notification, body)
	// Unrecognized subtypes are dropped, but the sender is still acked
	if err != nil || response != ackBody {
		t.Fatalf("unrecognized subtype should ack, got %q, %v", response, err)
	}
	if len(f.hub.getBroadcasts("u1")) != 0 {
		t.Errorf("unrecognized subtype must not fan out")
	}
	if f.metrics.getCount(models.MetricName_NotificationDropped) != 1 {
		t.Errorf("expected one dropped-notification count")
	}
}

func TestDispatchMalformedPayload(t *testing.T) {
	f := newDispatchFixture()
	tests := map[string]struct {
		msgType models.MessageType
		body    []byte
	}{
		"invalid json":                   {models.MessageType_Notification, []byte("not json")},
		"verification without challenge": {models.MessageType_Verification, []byte(`{"subscription":{"id":"sub-1"}}`)},
		"redemption with invalid event":  {models.MessageType_Notification, []byte(`{"subscription":{"type":"channel.channel_points_custom_reward_redemption.add"},"event":"nope"}`)},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := f.dispatcher.Dispatch(context.Background(), test.msgType, test.body); !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestDispatchRevocation(t *testing.T) {
	f := newDispatchFixture()
	f.sessions.Put(models.TenantSession{ChannelID: "u1", SubscriptionID: "sub-1"})
	f.sessions.Put(models.TenantSession{ChannelID: "u2", SubscriptionID: "sub-2"})
	body := []byte(`{"subscription":{"id":"sub-1","type":"channel.channel_points_custom_reward_redemption.add","status":"authorization_revoked"}}`)

	response, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Revocation, body)
	if err != nil || response != ackBody {
		t.Fatalf("revocation should ack, got %q, %v", response, err)
	}

	broadcasts := f.hub.getBroadcasts("u1")
	if len(broadcasts) != 1 || broadcasts[0].Type != models.EventType_SubscriptionRevoked {
		t.Fatalf("expected one subscription_revoked broadcast, got %+v", broadcasts)
	}
	revocation, ok := broadcasts[0].Data.(models.RevocationEvent)
	if !ok || revocation.Reason != "authorization_revoked" || revocation.SubscriptionID != "sub-1" {
		t.Errorf("unexpected revocation payload: %+v", broadcasts[0].Data)
	}
	if len(f.hub.getBroadcasts("u2")) != 0 {
		t.Errorf("u2 must not receive u1's revocation")
	}
	if len(f.notifier.getAlerts()) != 1 {
		t.Errorf("expected one operator alert")
	}
	// The session survives; re-provisioning is an operator action
	if _, found := f.sessions.Get("u1"); !found {
		t.Errorf("revocation must not delete the session")
	}
}

func TestDispatchRevocationUnknownSubscription(t *testing.T) {
	f := newDispatchFixture()
	body := []byte(`{"subscription":{"id":"sub-9","status":"authorization_revoked"}}`)
	if _, err := f.dispatcher.Dispatch(context.Background(), models.MessageType_Revocation, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.notifier.getAlerts()) != 0 {
		t.Errorf("unknown subscription should not alert")
	}
}
