package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// GitHubEvent represents a parsed GitHub webhook event.
type GitHubEvent struct {
	EventType   string
	Action      string `json:"action"`
	Number      int    `json:"number"`
	Ref         string `json:"ref"`
	PullRequest *struct {
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
	RawPayload []byte
}

// Branches returns the branches the event touched: the pushed branch, or the
// source and target of a pull request.
func (e *GitHubEvent) Branches() []string {
	if e.PullRequest != nil {
		return compact(e.PullRequest.Base.Ref, e.PullRequest.Head.Ref)
	}
	return compact(branchFromRef(e.Ref))
}

// GitHubEventHandler is called when a valid GitHub webhook is received.
type GitHubEventHandler func(event *GitHubEvent) error

// GitHubHandler handles GitHub webhook requests.
type GitHubHandler struct {
	secret  string
	handler GitHubEventHandler
}

// NewGitHubHandler creates a new GitHub webhook handler.
func NewGitHubHandler(secret string, handler GitHubEventHandler) *GitHubHandler {
	return &GitHubHandler{
		secret:  secret,
		handler: handler,
	}
}

// ServeHTTP implements http.Handler. Ping deliveries, sent when the hook is
// created, are acknowledged without reaching the handler.
func (h *GitHubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, ok := readVerified(w, r, func(body []byte) error {
		return h.verify(body, r.Header.Get("X-Hub-Signature-256"))
	})
	if !ok {
		return
	}

	event := &GitHubEvent{
		EventType:  r.Header.Get("X-GitHub-Event"),
		RawPayload: body,
	}
	deliver(w, body, event, func() error {
		if event.EventType == "ping" {
			return nil
		}
		return h.handler(event)
	})
}

// verify checks the X-Hub-Signature-256 HMAC of payload.
func (h *GitHubHandler) verify(payload []byte, signature string) error {
	if signature == "" {
		return errMissingSignature
	}

	hexSig, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return errInvalidSignature
	}
	sig, err := hex.DecodeString(hexSig)
	if err != nil {
		return errInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return errInvalidSignature
	}
	return nil
}
