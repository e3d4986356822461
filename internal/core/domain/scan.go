package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxLocationCodeLength bounds the scanned QR text stored per record.
const MaxLocationCodeLength = 512

// ScanRecord marks that an account has been credited for a location code.
// The (AccountID, LocationCode) pair is unique and the record is never updated.
type ScanRecord struct {
	ID           uuid.UUID `json:"id"`
	AccountID    uuid.UUID `json:"account_id"`
	LocationCode string    `json:"location_code"`
	ScannedAt    time.Time `json:"scanned_at"`
}

// ScanResult is the outcome of a scan credit. A duplicate scan is reported
// with Credited=false and AmountAdded=0.
type ScanResult struct {
	Credited    bool  `json:"credited"`
	AmountAdded int64 `json:"amount_added"`
	NewBalance  int64 `json:"new_balance"`
}
