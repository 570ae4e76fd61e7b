package domain

import "time"

// BuildStatus is the lifecycle state of a simulated CI build.
type BuildStatus string

const (
	BuildQueued          BuildStatus = "QUEUED"
	BuildRunning         BuildStatus = "RUNNING"
	BuildSuccess         BuildStatus = "SUCCESS"
	BuildFailed          BuildStatus = "FAILED"
	BuildAborted         BuildStatus = "ABORTED"
	BuildPendingApproval BuildStatus = "PENDING_APPROVAL"
)

// Active reports whether the build can still be aborted.
func (s BuildStatus) Active() bool {
	return s == BuildRunning || s == BuildQueued
}

// Terminal reports whether the build has finished.
func (s BuildStatus) Terminal() bool {
	return s == BuildSuccess || s == BuildFailed || s == BuildAborted
}

// Build is a CI run or deployment tracked by the simulated build system.
type Build struct {
	ID               int64
	BuildID          string // external id, e.g. PROD-1001
	JobName          string
	Branch           string
	Number           int64
	Status           BuildStatus
	Environment      string
	RequiresApproval bool
	TriggeredBy      string
	ApprovedBy       string
	ApprovedAt       *time.Time
	APIName          string
	Progress         int
	URL              string
	StartedAt        time.Time
	CompletedAt      *time.Time
	DurationSeconds  int64
}

// Environments a build can target.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)
