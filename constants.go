package raffle

import "time"

const (
	Env_DiscordAlertWebhook   = "DISCORD_ALERT_WEBHOOK"
	Env_DiscordTestWebhook    = "DISCORD_TEST_WEBHOOK"
	Env_DiscordWarningWebhook = "DISCORD_WARNING_WEBHOOK"
	Env_Env                   = "ENV"
	Env_HeartbeatInterval     = "HEARTBEAT_INTERVAL"
	Env_ListenAddress         = "LISTEN_ADDRESS"
	Env_LogLevel              = "LOG_LEVEL"
	Env_MetricsEndpoint       = "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"
	Env_WebhookSecret         = "EVENTSUB_WEBHOOK_SECRET"
)

const ServiceName = "raffle-gateway"

const DefaultHeartbeatInterval = 30 * time.Second
const DefaultListenAddress = ":8080"
const DefaultHttpWaitTime = 10 * time.Second

// Deliveries older than this are treated as replays and rejected.
const MaxMessageAge = 10 * time.Minute
