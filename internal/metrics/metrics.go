package metrics

import (
	"sync/atomic"
)

// Metrics tracks operational metrics.
type Metrics struct {
	CommandsReceived     uint64 `json:"commands_received"`
	CommandsCompleted    uint64 `json:"commands_completed"`
	CommandsFailed       uint64 `json:"commands_failed"`
	CommandsInvalid      uint64 `json:"commands_invalid"`
	BuildsTriggered      uint64 `json:"builds_triggered"`
	DeploymentsCompleted uint64 `json:"deployments_completed"`
	DeploymentsCancelled uint64 `json:"deployments_cancelled"`
	WebhooksReceived     uint64 `json:"webhooks_received"`
	WebhooksProcessed    uint64 `json:"webhooks_processed"`
}

var global = &Metrics{}

// CommandReceived increments the count of commands received.
func CommandReceived() { atomic.AddUint64(&global.CommandsReceived, 1) }

// CommandCompleted increments the count of commands that succeeded.
func CommandCompleted() { atomic.AddUint64(&global.CommandsCompleted, 1) }

// CommandFailed increments the count of recognized commands that failed.
func CommandFailed() { atomic.AddUint64(&global.CommandsFailed, 1) }

// CommandInvalid increments the count of commands that were not recognized.
func CommandInvalid() { atomic.AddUint64(&global.CommandsInvalid, 1) }

// BuildTriggered increments the count of builds and deployments created.
func BuildTriggered() { atomic.AddUint64(&global.BuildsTriggered, 1) }

// DeploymentCompleted increments the count of simulated deployments that reached 100%.
func DeploymentCompleted() { atomic.AddUint64(&global.DeploymentsCompleted, 1) }

// DeploymentCancelled increments the count of simulated deployments stopped early.
func DeploymentCancelled() { atomic.AddUint64(&global.DeploymentsCancelled, 1) }

// WebhookReceived increments the count of webhooks received.
func WebhookReceived() { atomic.AddUint64(&global.WebhooksReceived, 1) }

// WebhookProcessed increments the count of webhooks processed.
func WebhookProcessed() { atomic.AddUint64(&global.WebhooksProcessed, 1) }

// Get returns a snapshot of the current metrics.
func Get() Metrics {
	return Metrics{
		CommandsReceived:     atomic.LoadUint64(&global.CommandsReceived),
		CommandsCompleted:    atomic.LoadUint64(&global.CommandsCompleted),
		CommandsFailed:       atomic.LoadUint64(&global.CommandsFailed),
		CommandsInvalid:      atomic.LoadUint64(&global.CommandsInvalid),
		BuildsTriggered:      atomic.LoadUint64(&global.BuildsTriggered),
		DeploymentsCompleted: atomic.LoadUint64(&global.DeploymentsCompleted),
		DeploymentsCancelled: atomic.LoadUint64(&global.DeploymentsCancelled),
		WebhooksReceived:     atomic.LoadUint64(&global.WebhooksReceived),
		WebhooksProcessed:    atomic.LoadUint64(&global.WebhooksProcessed),
	}
}

// Reset resets all metrics to zero (useful for testing).
func Reset() {
	atomic.StoreUint64(&global.CommandsReceived, 0)
	atomic.StoreUint64(&global.CommandsCompleted, 0)
	atomic.StoreUint64(&global.CommandsFailed, 0)
	atomic.StoreUint64(&global.CommandsInvalid, 0)
	atomic.StoreUint64(&global.BuildsTriggered, 0)
	atomic.StoreUint64(&global.DeploymentsCompleted, 0)
	atomic.StoreUint64(&global.DeploymentsCancelled, 0)
	atomic.StoreUint64(&global.WebhooksReceived, 0)
	atomic.StoreUint64(&global.WebhooksProcessed, 0)
}
