package models

import "time"

// TenantSession holds everything the gateway knows about one authorized
// broadcaster. Sessions are created by the provisioning collaborator after
// the OAuth exchange and are never expired automatically; staleness is only
// discovered reactively (revocation notifications, credential rejections).
type TenantSession struct {
	ChannelID    string `json:"channelId"`
	DisplayName  string `json:"displayName"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	// Empty until a reward is provisioned upstream
	RewardID string `json:"rewardId,omitempty"`
	// Empty until the webhook subscription is registered upstream
	SubscriptionID string    `json:"subscriptionId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
