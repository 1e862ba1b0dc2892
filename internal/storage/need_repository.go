package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/time-economy/internal/models"
	"github.com/time-economy/internal/types"
)

const needColumns = `id, social_id, display_name, location, text, reward_amount::text, wallet_address, created_at`

// NeedRepository handles need persistence
type NeedRepository struct {
	db *PostgresDB
}

// NewNeedRepository creates a new need repository
func NewNeedRepository(db *PostgresDB) *NeedRepository {
	return &NeedRepository{db: db}
}

func scanNeed(row pgx.Row) (*models.Need, error) {
	var n models.Need
	var id uuid.UUID
	var socialID int64
	var amount string
	err := row.Scan(
		&id,
		&socialID,
		&n.DisplayName,
		&n.Location,
		&n.Text,
		&amount,
		&n.WalletAddress,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.ID = id.String()
	n.SocialID = types.SocialID(socialID)
	n.RewardAmount, err = canonicalAmount(amount)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// canonicalAmount strips the scale padding NUMERIC(38,18) adds on output,
// so "2.000000000000000000" reads back as "2".
func canonicalAmount(stored string) (string, error) {
	amount, err := decimal.NewFromString(stored)
	if err != nil {
		return "", fmt.Errorf("invalid reward amount %q: %w", stored, err)
	}
	return amount.String(), nil
}

// List returns needs newest first
func (r *NeedRepository) List(ctx context.Context) ([]*models.Need, error) {
	query := `SELECT ` + needColumns + ` FROM needs ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list needs: %w", err)
	}
	defer rows.Close()

	needs := make([]*models.Need, 0)
	for rows.Next() {
		n, err := scanNeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan need: %w", err)
		}
		needs = append(needs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating needs: %w", err)
	}

	return needs, nil
}

// GetByID retrieves a need; ErrNotFound when absent.
func (r *NeedRepository) GetByID(ctx context.Context, id string) (*models.Need, error) {
	needID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	query := `SELECT ` + needColumns + ` FROM needs WHERE id = $1`
	need, err := scanNeed(r.db.Pool().QueryRow(ctx, query, needID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get need: %w", err)
	}
	return need, nil
}

// CountCreatedSince counts the identity's needs created strictly after since
// and returns the oldest such creation time.
func (r *NeedRepository) CountCreatedSince(ctx context.Context, socialID types.SocialID, since time.Time) (int, time.Time, error) {
	return countCreatedSince(ctx, r.db.Pool(), socialID, since)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func countCreatedSince(ctx context.Context, q queryRower, socialID types.SocialID, since time.Time) (int, time.Time, error) {
	var count int
	var oldest *time.Time
	err := q.QueryRow(ctx,
		`SELECT count(*), min(created_at) FROM needs WHERE social_id = $1 AND created_at > $2`,
		int64(socialID), since,
	).Scan(&count, &oldest)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to count needs: %w", err)
	}
	if oldest == nil {
		return count, time.Time{}, nil
	}
	return count, *oldest, nil
}

// CreateWithinLimit inserts need only if the identity has fewer than maxCount
// needs created after since. Concurrent creates for one identity serialize on
// a transaction-scoped advisory lock, so the count and the insert agree.
// It returns false with the current count and oldest time when the cap is reached.
func (r *NeedRepository) CreateWithinLimit(ctx context.Context, need *models.Need, since time.Time, maxCount int) (bool, int, time.Time, error) {
	if need.ID == "" {
		need.ID = uuid.NewString()
	}
	needID, err := uuid.Parse(need.ID)
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("invalid need id: %w", err)
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // nolint:errcheck // no-op after commit
	}()

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended('needs:' || $1::text, 0))`,
		int64(need.SocialID),
	); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to lock identity: %w", err)
	}

	count, oldest, err := countCreatedSince(ctx, tx, need.SocialID, since)
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if count >= maxCount {
		return false, count, oldest, nil
	}

	query := `
		INSERT INTO needs (id, social_id, display_name, location, text, reward_amount, wallet_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, NOW())
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, query,
		needID,
		int64(need.SocialID),
		need.DisplayName,
		need.Location,
		need.Text,
		need.RewardAmount,
		need.WalletAddress,
	).Scan(&need.CreatedAt)
	if err != nil {
		return false, count, oldest, fmt.Errorf("failed to insert need: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, count, oldest, fmt.Errorf("failed to commit need: %w", err)
	}

	return true, count + 1, oldest, nil
}

// Delete removes the need owned by socialID and reports whether a row was removed.
func (r *NeedRepository) Delete(ctx context.Context, id string, socialID types.SocialID) (bool, error) {
	needID, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}

	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM needs WHERE id = $1 AND social_id = $2`,
		needID, int64(socialID),
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete need: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
