package services

import (
	"sync"
	"time"

	"github.com/streamraffle/go-raffle/models"
)

const DefaultRecentEntries = 10

type campaignState struct {
	campaign models.Campaign
	// Redemption ids already counted, so at-least-once upstream delivery
	// cannot double-count an entry.
	seen map[string]struct{}
}

// CampaignRegistry is the per-tenant giveaway state machine. All state is
// in-memory and keyed by channel id; a coarse registry lock is enough since
// no operation spans tenants.
type CampaignRegistry struct {
	logger    models.Logger
	mu        sync.RWMutex
	byChannel map[string]*campaignState
}

func NewCampaignRegistry(logger models.Logger) *CampaignRegistry {
	return &CampaignRegistry{
		logger:    logger,
		byChannel: make(map[string]*campaignState),
	}
}

// Provision creates the campaign row for a channel, inactive, bound to the
// given reward. Re-provisioning with the same reward is a no-op; binding a
// different reward resets the entry log, since old entries belong to a
// reward this campaign no longer tracks.
func (c *CampaignRegistry) Provision(channelID, rewardID string) models.Campaign {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, found := c.byChannel[channelID]; found {
		if state.campaign.RewardID == rewardID {
			return copyCampaign(state.campaign)
		}
		c.logger.Infof("campaign: rebinding channel %s from reward %s to %s", channelID, state.campaign.RewardID, rewardID)
	}
	state := &campaignState{
		campaign: models.Campaign{
			ChannelID: channelID,
			RewardID:  rewardID,
			CreatedAt: time.Now().UTC(),
		},
		seen: make(map[string]struct{}),
	}
	c.byChannel[channelID] = state
	return copyCampaign(state.campaign)
}

func (c *CampaignRegistry) Start(channelID string) bool {
	return c.setActive(channelID, true)
}

func (c *CampaignRegistry) Stop(channelID string) bool {
	return c.setActive(channelID, false)
}

func (c *CampaignRegistry) setActive(channelID string, active bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, found := c.byChannel[channelID]
	if !found {
		return false
	}
	state.campaign.Active = active
	return true
}

// Append records one redemption. The entry is accepted only when a campaign
// exists for its channel, the campaign is active, the reward matches, and
// the redemption id has not been counted before. Entries are append-only:
// later status changes for the same redemption never touch them.
func (c *CampaignRegistry) Append(entry models.Entry) models.AppendResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, found := c.byChannel[entry.ChannelID]
	if !found {
		return models.AppendResult_NoCampaign
	}
	if state.campaign.RewardID != entry.RewardID {
		return models.AppendResult_RewardMismatch
	}
	if !state.campaign.Active {
		return models.AppendResult_Inactive
	}
	if _, dup := state.seen[entry.RedemptionID]; dup {
		return models.AppendResult_Duplicate
	}
	state.seen[entry.RedemptionID] = struct{}{}
	state.campaign.Entries = append(state.campaign.Entries, entry)
	return models.AppendResult_Appended
}

func (c *CampaignRegistry) Get(channelID string) (models.Campaign, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, found := c.byChannel[channelID]
	if !found {
		return models.Campaign{}, false
	}
	return copyCampaign(state.campaign), true
}

func (c *CampaignRegistry) Stats(channelID string) (models.CampaignStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, found := c.byChannel[channelID]
	if !found {
		return models.CampaignStats{}, false
	}
	participants := make(map[string]struct{}, len(state.campaign.Entries))
	totalSpent := 0
	for _, entry := range state.campaign.Entries {
		participants[entry.UserID] = struct{}{}
		totalSpent += entry.Cost
	}
	recentFrom := len(state.campaign.Entries) - DefaultRecentEntries
	if recentFrom < 0 {
		recentFrom = 0
	}
	recent := make([]models.Entry, len(state.campaign.Entries)-recentFrom)
	copy(recent, state.campaign.Entries[recentFrom:])
	return models.CampaignStats{
		Active:             state.campaign.Active,
		TotalEntries:       len(state.campaign.Entries),
		UniqueParticipants: len(participants),
		TotalPointsSpent:   totalSpent,
		RecentEntries:      recent,
	}, true
}

// Clear drops the entry log and the dedup set. The activation state and
// reward binding are untouched.
func (c *CampaignRegistry) Clear(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, found := c.byChannel[channelID]
	if !found {
		return false
	}
	state.campaign.Entries = nil
	state.seen = make(map[string]struct{})
	return true
}

func copyCampaign(campaign models.Campaign) models.Campaign {
	entries := make([]models.Entry, len(campaign.Entries))
	copy(entries, campaign.Entries)
	campaign.Entries = entries
	return campaign
}
