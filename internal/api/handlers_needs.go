package api

import (
	"net/http"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/service"
	"github.com/time-economy/internal/types"
)

// deleteNeedBody is the proof carried by DELETE /needs; the target is in the query
type deleteNeedBody struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature,omitempty"`
	Message       string `json:"message,omitempty"`
}

// handleListNeeds handles GET /needs
func (s *Server) handleListNeeds(w http.ResponseWriter, r *http.Request) {
	needs, err := s.needService.ListNeeds(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"needs": needs,
	})
}

// handleCreateNeed handles POST /needs
func (s *Server) handleCreateNeed(w http.ResponseWriter, r *http.Request) {
	var input service.CreateNeedInput
	if err := parseJSONBody(r, &input, false); err != nil {
		respondServiceError(w, r, err)
		return
	}

	need, err := s.needService.CreateNeed(r.Context(), r.Header.Get(s.config.IdentityHeader), &input)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"need":    need,
	})
}

// handleDeleteNeed handles DELETE /needs?id=&socialId=
func (s *Server) handleDeleteNeed(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	socialID, err := types.ParseSocialID(query.Get("socialId"))
	if err != nil {
		respondServiceError(w, r, apperrors.NewValidationError("socialId", "must be a positive integer"))
		return
	}

	var body deleteNeedBody
	if err := parseJSONBody(r, &body, true); err != nil {
		respondServiceError(w, r, err)
		return
	}

	err = s.needService.DeleteNeed(r.Context(), r.Header.Get(s.config.IdentityHeader), &service.DeleteNeedInput{
		ID:            query.Get("id"),
		SocialID:      socialID,
		WalletAddress: body.WalletAddress,
		Signature:     body.Signature,
		Message:       body.Message,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
