package api

import (
	"net/http"
)

// handleSearch handles GET /search?q=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	users, err := s.searchService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}
