package api

import (
	"net/http"
	"time"

	apperrors "github.com/time-economy/internal/errors"
)

// handleIssueNonce handles GET /auth/nonce. The nonce goes on the "Nonce:"
// line of the next signed message and can be used once.
func (s *Server) handleIssueNonce(w http.ResponseWriter, r *http.Request) {
	nonce, expiresAt, err := s.nonces.Issue(r.Context())
	if err != nil {
		respondServiceError(w, r, apperrors.NewStoreError("issue nonce", err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"nonce":     nonce,
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}
