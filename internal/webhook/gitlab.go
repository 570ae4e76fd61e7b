package webhook

import (
	"crypto/subtle"
	"net/http"
)

// GitLabEvent represents a parsed GitLab webhook event.
type GitLabEvent struct {
	EventType        string
	ObjectKind       string `json:"object_kind"`
	Ref              string `json:"ref"`
	ObjectAttributes struct {
		Action       string `json:"action"`
		SourceBranch string `json:"source_branch"`
		TargetBranch string `json:"target_branch"`
	} `json:"object_attributes"`
	RawPayload []byte
}

// Branches returns the branches the event touched: the pushed branch, or the
// source and target of a merge request.
func (e *GitLabEvent) Branches() []string {
	if e.ObjectKind == "merge_request" {
		return compact(e.ObjectAttributes.TargetBranch, e.ObjectAttributes.SourceBranch)
	}
	return compact(branchFromRef(e.Ref))
}

// GitLabEventHandler is called when a valid GitLab webhook is received.
type GitLabEventHandler func(event *GitLabEvent) error

// GitLabHandler handles GitLab webhook requests.
type GitLabHandler struct {
	secret  string
	handler GitLabEventHandler
}

// NewGitLabHandler creates a new GitLab webhook handler.
func NewGitLabHandler(secret string, handler GitLabEventHandler) *GitLabHandler {
	return &GitLabHandler{
		secret:  secret,
		handler: handler,
	}
}

// ServeHTTP implements http.Handler.
func (h *GitLabHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, ok := readVerified(w, r, func([]byte) error {
		return h.verify(r.Header.Get("X-Gitlab-Token"))
	})
	if !ok {
		return
	}

	event := &GitLabEvent{
		EventType:  r.Header.Get("X-Gitlab-Event"),
		RawPayload: body,
	}
	deliver(w, body, event, func() error {
		return h.handler(event)
	})
}

// verify compares the X-Gitlab-Token header with the configured secret.
func (h *GitLabHandler) verify(token string) error {
	if token == "" {
		return errMissingToken
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		return errInvalidToken
	}
	return nil
}
