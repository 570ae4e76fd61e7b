package intent

import (
	"fmt"
	"strings"
)

// Role selects which command catalog and dispatch table apply to a caller.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole converts a stored role name into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Action is a recognized command from a role's catalog.
type Action string

// Admin actions.
const (
	ActionApproveBuild            Action = "APPROVE_BUILD"
	ActionDeployProduction        Action = "DEPLOY_PRODUCTION"
	ActionDeployAPI               Action = "DEPLOY_API"
	ActionDeployRewardsDetails    Action = "DEPLOY_REWARDS_DETAILS"
	ActionAbortBuild              Action = "ABORT_BUILD"
	ActionShowApprovals           Action = "SHOW_APPROVALS"
	ActionGenerateReport          Action = "GENERATE_REPORT"
	ActionDeploymentOrchestration Action = "DEPLOYMENT_ORCHESTRATION"
	ActionDeploymentAnalysis      Action = "DEPLOYMENT_ANALYSIS"
)

// User actions.
const (
	ActionBuildBranch   Action = "BUILD_BRANCH"
	ActionCreatePR      Action = "CREATE_PR"
	ActionDeployStaging Action = "DEPLOY_STAGING"
	ActionShowBuilds    Action = "SHOW_BUILDS"
	ActionCheckStatus   Action = "CHECK_STATUS"
)

// Unrecognized is recorded in place of an action when no pattern matched.
const Unrecognized Action = "UNRECOGNIZED"

// Parameter keys produced by Extract.
const (
	ParamBuildID = "buildId"
	ParamBranch  = "branch"
	ParamTarget  = "target"
	ParamAPIName = "apiName"
	ParamPRID    = "prId"
	ParamReason  = "reason"
)

// Intent is the result of recognizing a command.
type Intent struct {
	Action Action
	Params map[string]string

	// Text is the normalized input the intent was recognized from.
	Text string
}

// Param returns the named parameter, or "" if it was not extracted.
func (i Intent) Param(key string) string {
	return i.Params[key]
}

// ParamOr returns the named parameter, or def if it was not extracted.
func (i Intent) ParamOr(key, def string) string {
	if v := i.Params[key]; v != "" {
		return v
	}
	return def
}
