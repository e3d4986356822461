package postgres

import (
	"context"
	"errors"
	"fmt"

	"rubi-trail/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// RewardRepo implements ports.RewardRepository.
type RewardRepo struct {
	pool Pool
}

// NewRewardRepo creates a new RewardRepo.
func NewRewardRepo(pool Pool) *RewardRepo {
	return &RewardRepo{pool: pool}
}

// GetByID fetches a catalog entry.
func (r *RewardRepo) GetByID(ctx context.Context, id int64) (*domain.Reward, error) {
	query := `SELECT id, title, description, price, partner FROM rewards WHERE id = $1`

	rw := &domain.Reward{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&rw.ID, &rw.Title, &rw.Description, &rw.Price, &rw.Partner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reward by id: %w", err)
	}
	return rw, nil
}

// List returns the whole catalog ordered by id.
func (r *RewardRepo) List(ctx context.Context) ([]domain.Reward, error) {
	query := `SELECT id, title, description, price, partner FROM rewards ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []domain.Reward
	for rows.Next() {
		var rw domain.Reward
		if err := rows.Scan(&rw.ID, &rw.Title, &rw.Description, &rw.Price, &rw.Partner); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewards: %w", err)
	}
	return rewards, nil
}
