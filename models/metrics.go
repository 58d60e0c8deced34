package models

type MetricName string

// Counts
const (
	MetricName_ConnectionOpened       MetricName = "connection_opened"
	MetricName_ConnectionPruned       MetricName = "connection_pruned"
	MetricName_EntryAppended          MetricName = "entry_appended"
	MetricName_EntryDropped           MetricName = "entry_dropped"
	MetricName_FanoutDelivery         MetricName = "fanout_delivery"
	MetricName_HeartbeatSent          MetricName = "heartbeat_sent"
	MetricName_NotificationDropped    MetricName = "notification_dropped"
	MetricName_RevocationReceived     MetricName = "revocation_received"
	MetricName_WebhookAdmitted        MetricName = "webhook_admitted"
	MetricName_WebhookMalformed       MetricName = "webhook_malformed"
	MetricName_WebhookRejected        MetricName = "webhook_rejected"
	MetricName_VerificationChallenges MetricName = "verification_challenges"
)

// Distributions
const (
	MetricName_FanoutSize MetricName = "fanout_size"
)

const MetricsCallerName = "go-raffle"
