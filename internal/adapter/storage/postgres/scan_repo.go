package postgres

import (
	"context"
	"fmt"

	"rubi-trail/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ScanRepo implements ports.ScanRepository.
type ScanRepo struct{}

// NewScanRepo creates a new ScanRepo. All of its writes go through the caller's tx.
func NewScanRepo() *ScanRepo {
	return &ScanRepo{}
}

// Insert records a scan. It reports false, without error, when the
// (account_id, location_code) pair was already recorded.
func (r *ScanRepo) Insert(ctx context.Context, tx pgx.Tx, s *domain.ScanRecord) (bool, error) {
	query := `INSERT INTO scan_records (id, account_id, location_code, scanned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, location_code) DO NOTHING`

	tag, err := tx.Exec(ctx, query, s.ID, s.AccountID, s.LocationCode, s.ScannedAt)
	if err != nil {
		return false, fmt.Errorf("insert scan record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
