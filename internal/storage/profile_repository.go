package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/time-economy/internal/models"
	"github.com/time-economy/internal/types"
)

// SearchLimit caps the number of profiles returned by Search.
const SearchLimit = 10

const profileColumns = `social_id, display_name, avatar_url, city, bio, wallet_address, updated_at`

// ProfileRepository handles profile persistence
type ProfileRepository struct {
	db *PostgresDB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *PostgresDB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var socialID int64
	err := row.Scan(
		&socialID,
		&p.DisplayName,
		&p.AvatarURL,
		&p.City,
		&p.Bio,
		&p.WalletAddress,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SocialID = types.SocialID(socialID)
	return &p, nil
}

// GetBySocialID retrieves the profile of an identity; ErrNotFound when absent.
func (r *ProfileRepository) GetBySocialID(ctx context.Context, socialID types.SocialID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE social_id = $1`

	profile, err := scanProfile(r.db.Pool().QueryRow(ctx, query, int64(socialID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// BoundWallet returns the wallet bound to socialID, or "" when none is bound.
func (r *ProfileRepository) BoundWallet(ctx context.Context, socialID types.SocialID) (string, error) {
	var wallet *string
	err := r.db.Pool().QueryRow(ctx,
		`SELECT wallet_address FROM profiles WHERE social_id = $1`,
		int64(socialID),
	).Scan(&wallet)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get bound wallet: %w", err)
	}
	if wallet == nil {
		return "", nil
	}
	return *wallet, nil
}

// Upsert inserts the profile or replaces the existing row for its social id.
// UpdatedAt is set from the database clock.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (social_id, display_name, avatar_url, city, bio, wallet_address, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (social_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			city = EXCLUDED.city,
			bio = EXCLUDED.bio,
			wallet_address = EXCLUDED.wallet_address,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		int64(profile.SocialID),
		profile.DisplayName,
		profile.AvatarURL,
		profile.City,
		profile.Bio,
		profile.WalletAddress,
	).Scan(&profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Search returns up to SearchLimit profiles whose display name, city or bio
// contains term, case-insensitively.
func (r *ProfileRepository) Search(ctx context.Context, term string) ([]*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE display_name ILIKE $1 ESCAPE '\' OR city ILIKE $1 ESCAPE '\' OR bio ILIKE $1 ESCAPE '\'
		ORDER BY updated_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, likePattern(term), SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*models.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// likePattern wraps term in % after escaping LIKE metacharacters
func likePattern(term string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(term) + "%"
}
