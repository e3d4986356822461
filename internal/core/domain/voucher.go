package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VoucherStatus is the voucher lifecycle state.
type VoucherStatus string

const (
	VoucherStatusActive   VoucherStatus = "ACTIVE"
	VoucherStatusRedeemed VoucherStatus = "REDEEMED"
)

// Voucher is a purchased reward. Status only moves ACTIVE -> REDEEMED, once.
type Voucher struct {
	ID         uuid.UUID     `json:"id"`
	AccountID  uuid.UUID     `json:"account_id"`
	RewardID   int64         `json:"reward_id"`
	Token      string        `json:"token"`
	Status     VoucherStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	RedeemedAt *time.Time    `json:"redeemed_at,omitempty"`
}

// IsRedeemable returns true if the voucher has not been redeemed yet.
func (v *Voucher) IsRedeemable() bool {
	return v.Status == VoucherStatusActive
}

// VoucherDetails joins a voucher with its reward for display.
type VoucherDetails struct {
	Voucher Voucher `json:"voucher"`
	Reward  Reward  `json:"reward"`
}

// PurchaseResult is returned by a successful purchase.
type PurchaseResult struct {
	Voucher    Voucher `json:"voucher"`
	Reward     Reward  `json:"reward"`
	RedeemURL  string  `json:"redeem_url"`
	NewBalance int64   `json:"new_balance"`
}

// RedeemURL builds the public redemption link for a voucher token.
func RedeemURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/voucher/" + token
}
