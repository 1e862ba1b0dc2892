package api

import (
	"net/http"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/service"
	"github.com/time-economy/internal/types"
)

// handleGetProfile handles GET /profile?socialId=
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("socialId")
	if raw == "" {
		respondServiceError(w, r, apperrors.NewValidationError("socialId", "is required"))
		return
	}
	socialID, err := types.ParseSocialID(raw)
	if err != nil {
		respondServiceError(w, r, apperrors.NewValidationError("socialId", "must be a positive integer"))
		return
	}

	profile, err := s.profileService.GetProfile(r.Context(), socialID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"profile": profile,
	})
}

// handleSaveProfile handles POST /profile
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var input service.SaveProfileInput
	if err := parseJSONBody(r, &input, false); err != nil {
		respondServiceError(w, r, err)
		return
	}

	if _, err := s.profileService.SaveProfile(r.Context(), r.Header.Get(s.config.IdentityHeader), &input); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
