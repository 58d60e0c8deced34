package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/streamraffle/go-raffle/models"
)

// ErrMalformedPayload marks deliveries whose body cannot be parsed as the
// expected structure. The HTTP layer maps it to a 400 response.
var ErrMalformedPayload = errors.New("malformed payload")

const ackBody = "OK"

// DispatchService routes verified webhook deliveries: challenge handshakes
// are answered verbatim, notifications mutate campaign state and fan out,
// revocations fan out and alert the operator. It performs at most one
// campaign mutation and one fanout per delivery and never calls the
// upstream platform.
type DispatchService struct {
	sessions      models.SessionRepository
	campaigns     models.CampaignRepository
	hub           models.ConnectionHub
	notifier      models.Notifier
	metricService models.MetricService
	logger        models.Logger
}

func NewDispatchService(
	sessions models.SessionRepository,
	campaigns models.CampaignRepository,
	hub models.ConnectionHub,
	notifier models.Notifier,
	metricService models.MetricService,
	logger models.Logger,
) *DispatchService {
	return &DispatchService{sessions, campaigns, hub, notifier, metricService, logger}
}

// Dispatch handles one admitted delivery and returns the response body to
// ack it with. Expected races (unknown tenant, reward mismatch, inactive
// campaign, duplicates, unrecognized subtypes) are dropped without error so
// the platform does not retry them.
func (d DispatchService) Dispatch(ctx context.Context, msgType models.MessageType, body []byte) (string, error) {
	msg := new(models.WebhookMessage)
	if err := json.Unmarshal(body, msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	switch msgType {
	case models.MessageType_Verification:
		if len(msg.Challenge) == 0 {
			return "", fmt.Errorf("%w: verification without challenge", ErrMalformedPayload)
		}
		d.metricService.Count(ctx, models.MetricName_VerificationChallenges, 1)
		// The challenge must be echoed verbatim and must not touch state.
		return msg.Challenge, nil
	case models.MessageType_Notification:
		if err := d.notification(ctx, msg); err != nil {
			return "", err
		}
		return ackBody, nil
	case models.MessageType_Revocation:
		d.revocation(ctx, msg)
		return ackBody, nil
	default:
		d.logger.Debugf("dispatch: dropping unrecognized message type %q", msgType)
		d.metricService.Count(ctx, models.MetricName_NotificationDropped, 1)
		return ackBody, nil
	}
}

func (d DispatchService) notification(ctx context.Context, msg *models.WebhookMessage) error {
	switch msg.Subscription.Type {
	case models.SubscriptionType_RedemptionAdd:
		return d.redemptionAdded(ctx, msg.Event)
	case models.SubscriptionType_RedemptionUpdate:
		return d.redemptionUpdated(ctx, msg.Event)
	case models.SubscriptionType_Follow, models.SubscriptionType_Subscribe:
		return d.passthrough(ctx, msg.Subscription.Type, msg.Event)
	default:
		d.logger.Debugf("dispatch: dropping unrecognized event type %q", msg.Subscription.Type)
		d.metricService.Count(ctx, models.MetricName_NotificationDropped, 1)
		return nil
	}
}

func (d DispatchService) redemptionAdded(ctx context.Context, body json.RawMessage) error {
	event := new(models.RedemptionEvent)
	if err := json.Unmarshal(body, event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	entry := models.Entry{
		ChannelID:    event.BroadcasterID,
		DisplayName:  event.UserName,
		UserID:       event.UserID,
		RedemptionID: event.ID,
		RewardID:     event.Reward.ID,
		Cost:         event.Reward.Cost,
		RedeemedAt:   event.RedeemedAt,
	}
	if result := d.campaigns.Append(entry); result != models.AppendResult_Appended {
		// Normal race between the subscription lifecycle and delivery, or a
		// repeated at-least-once delivery. Ack without fanout.
		d.logger.Debugw("dispatch: dropping redemption",
			"reason", result.String(),
			"channel", entry.ChannelID,
			"redemption", entry.RedemptionID,
		)
		d.metricService.Count(ctx, models.MetricName_EntryDropped, 1)
		return nil
	}
	d.metricService.Count(ctx, models.MetricName_EntryAppended, 1)
	d.hub.Broadcast(ctx, entry.ChannelID, models.BroadcastEvent{
		Type: models.EventType_EntryAdded,
		Data: entry,
	})
	return nil
}

// redemptionUpdated never mutates the stored entry; status transitions are
// surfaced to viewers as a separate event.
func (d DispatchService) redemptionUpdated(ctx context.Context, body json.RawMessage) error {
	event := new(models.RedemptionEvent)
	if err := json.Unmarshal(body, event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	d.hub.Broadcast(ctx, event.BroadcasterID, models.BroadcastEvent{
		Type: models.EventType_RedemptionStatusChanged,
		Data: models.RedemptionStatusEvent{
			RedemptionID: event.ID,
			RewardID:     event.Reward.ID,
			Status:       event.Status,
		},
	})
	return nil
}

func (d DispatchService) passthrough(ctx context.Context, eventType string, body json.RawMessage) error {
	event := new(models.GenericEvent)
	if err := json.Unmarshal(body, event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	d.hub.Broadcast(ctx, event.BroadcasterID, models.BroadcastEvent{
		Type: models.EventType(eventType),
		Data: body,
	})
	return nil
}

// revocation notifies the affected tenant's viewers and the operator. No
// session or campaign state is deleted; re-provisioning is an explicit
// administrative action.
func (d DispatchService) revocation(ctx context.Context, msg *models.WebhookMessage) {
	d.metricService.Count(ctx, models.MetricName_RevocationReceived, 1)
	subscriptionID := msg.Subscription.ID
	reason := msg.Subscription.Status
	session, found := d.sessions.FindBySubscription(subscriptionID)
	if !found {
		d.logger.Debugf("dispatch: revocation for unknown subscription %q (%s)", subscriptionID, reason)
		return
	}
	d.hub.Broadcast(ctx, session.ChannelID, models.BroadcastEvent{
		Type: models.EventType_SubscriptionRevoked,
		Data: models.RevocationEvent{
			SubscriptionID: subscriptionID,
			Reason:         reason,
		},
	})
	if err := d.notifier.SendAlert(
		models.AlertTitle,
		models.AlertDesc_Revocation,
		fmt.Sprintf(models.AlertFmt_Revocation, session.ChannelID, subscriptionID, reason),
	); err != nil {
		d.logger.Errorf("dispatch: failed to send revocation alert for channel %s: %v", session.ChannelID, err)
	}
}
