package models

import "time"

// Entry is one accepted redemption counted toward a campaign. Entries are
// immutable once appended: a later status change for the same redemption is
// surfaced as a separate broadcast, never an in-place edit.
type Entry struct {
	ChannelID    string    `json:"channelId"`
	DisplayName  string    `json:"displayName"`
	UserID       string    `json:"userId"`
	RedemptionID string    `json:"redemptionId"`
	RewardID     string    `json:"rewardId"`
	Cost         int       `json:"cost"`
	RedeemedAt   time.Time `json:"redeemedAt"`
}

// Campaign is the giveaway instance for one broadcaster, scoped to a single
// reward. Entries accumulate across start/stop windows of the same reward
// until an operator explicitly clears them.
type Campaign struct {
	ChannelID string    `json:"channelId"`
	RewardID  string    `json:"rewardId"`
	Active    bool      `json:"active"`
	Entries   []Entry   `json:"entries"`
	CreatedAt time.Time `json:"createdAt"`
}

// CampaignStats is the read model served to the admin dashboard.
type CampaignStats struct {
	Active             bool    `json:"active"`
	TotalEntries       int     `json:"totalEntries"`
	UniqueParticipants int     `json:"uniqueParticipants"`
	TotalPointsSpent   int     `json:"totalPointsSpent"`
	RecentEntries      []Entry `json:"mostRecentEntries"`
}

// AppendResult explains why an entry was or was not recorded. Everything
// except Appended is an expected race with the subscription lifecycle and is
// dropped without an error response to the sender.
type AppendResult uint8

const (
	AppendResult_Appended AppendResult = iota
	AppendResult_NoCampaign
	AppendResult_RewardMismatch
	AppendResult_Inactive
	AppendResult_Duplicate
)

func (r AppendResult) String() string {
	switch r {
	case AppendResult_Appended:
		return "appended"
	case AppendResult_NoCampaign:
		return "no campaign"
	case AppendResult_RewardMismatch:
		return "reward mismatch"
	case AppendResult_Inactive:
		return "campaign inactive"
	case AppendResult_Duplicate:
		return "duplicate redemption"
	default:
		return "unknown"
	}
}
