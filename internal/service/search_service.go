package service

import (
	"context"
	"strings"
	"unicode/utf8"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/models"
	"github.com/time-economy/internal/storage"
)

// MinSearchLength is the shortest query that reaches the store.
const MinSearchLength = 2

// ProfileSearcher defines the profile lookup used by SearchService
type ProfileSearcher interface {
	Search(ctx context.Context, term string) ([]*models.Profile, error)
}

// SearchService finds profiles by display name, city or bio
type SearchService struct {
	searcher ProfileSearcher
}

// NewSearchService creates a new search service
func NewSearchService(searcher ProfileSearcher) *SearchService {
	return &SearchService{searcher: searcher}
}

// Search returns at most storage.SearchLimit profiles matching q. Queries
// shorter than two characters after trimming return an empty list.
func (s *SearchService) Search(ctx context.Context, q string) ([]*models.Profile, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinSearchLength {
		return []*models.Profile{}, nil
	}

	profiles, err := s.searcher.Search(ctx, q)
	if err != nil {
		return nil, apperrors.NewStoreError("search profiles", err)
	}
	if len(profiles) > storage.SearchLimit {
		profiles = profiles[:storage.SearchLimit]
	}
	return profiles, nil
}
