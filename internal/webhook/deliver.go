package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/drewdunne/voiceops/internal/metrics"
)

// maxPayload bounds webhook bodies. Push events for large merges stay well
// under it.
const maxPayload = 1 << 20

var (
	errMissingSignature = errors.New("missing signature")
	errInvalidSignature = errors.New("invalid signature")
	errMissingToken     = errors.New("missing token")
	errInvalidToken     = errors.New("invalid token")
)

// readVerified reads the body and authenticates it with verify. On failure it
// writes the response and returns false.
func readVerified(w http.ResponseWriter, r *http.Request, verify func(body []byte) error) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "failed to read body", http.StatusBadRequest)
		}
		return nil, false
	}

	if err := verify(body); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil, false
	}

	metrics.WebhookReceived()
	return body, true
}

// deliver decodes body into event and runs handle.
func deliver(w http.ResponseWriter, body []byte, event any, handle func() error) {
	if err := json.Unmarshal(body, event); err != nil {
		http.Error(w, "failed to parse payload", http.StatusBadRequest)
		return
	}

	if err := handle(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.WebhookProcessed()

	w.WriteHeader(http.StatusOK)
}
