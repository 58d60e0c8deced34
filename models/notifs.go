package models

const AlertTitle = "Raffle Gateway Alert"

const (
	AlertDesc_Revocation = "Subscription Revoked"
	AlertDesc_Startup    = "Service Online"
)

const (
	AlertFmt_Revocation string = "Channel %s lost its webhook subscription (%s): %s. Re-provisioning is required before new entries can arrive."
	AlertFmt_Startup    string = "Listening on %s"
)
