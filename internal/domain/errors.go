// Package domain holds the records shared by the command pipeline and its
// collaborators, plus the sentinel errors they report.
package domain

import "errors"

var (
	// ErrCallerNotFound indicates the command's caller is not a known user.
	ErrCallerNotFound = errors.New("caller not found")

	// ErrNotRecognized indicates no catalog pattern matched the command text.
	ErrNotRecognized = errors.New("command not recognized")

	// ErrParameterMissing indicates a handler lacked a required parameter.
	ErrParameterMissing = errors.New("required parameter missing")

	// ErrNotFound indicates the requested build, pull request or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous indicates a spoken build number matched more than one build.
	ErrAmbiguous = errors.New("ambiguous build id")

	// ErrInvalidState indicates a transition not allowed from the entity's current state.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrUnknownTarget indicates a deployment target other than production or staging.
	ErrUnknownTarget = errors.New("unknown target environment")

	// ErrUnavailable indicates a collaborator (database, SCM, container runtime) failed.
	ErrUnavailable = errors.New("collaborator unavailable")
)
