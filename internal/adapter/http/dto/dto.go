package dto

import (
	"time"

	"rubi-trail/internal/core/domain"
)

// TelegramAuthRequest is the request body for Mini App sign-in.
type TelegramAuthRequest struct {
	InitData string `json:"initData" binding:"required,max=8192"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Coins int64  `json:"coins"`
}

// AuthResponse is returned after a successful sign-in.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"` // Unix timestamp
	User      UserResponse `json:"user"`
}

// ScanRequest is the request body for a location scan.
type ScanRequest struct {
	QRText string `json:"qrText" binding:"required,location_code"`
}

// ScanResponse reports a scan outcome. A repeated scan has Success=false.
type ScanResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	AddedCoins int64  `json:"addedCoins"`
	NewBalance int64  `json:"newBalance"`
}

// VoucherLink identifies a freshly issued voucher.
type VoucherLink struct {
	Code      string `json:"code"`
	RedeemURL string `json:"redeemUrl"`
}

// PurchaseResponse reports a purchase outcome.
type PurchaseResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	NewBalance int64        `json:"newBalance"`
	Voucher    *VoucherLink `json:"voucher,omitempty"`
}

// RedeemResponse reports a redemption outcome.
type RedeemResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RewardResponse is a catalog entry.
type RewardResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Partner     string `json:"partner"`
}

// VoucherResponse is the public view of a voucher.
type VoucherResponse struct {
	Code       string         `json:"code"`
	Status     string         `json:"status"`
	Reward     RewardResponse `json:"reward"`
	CreatedAt  string         `json:"created_at"`
	RedeemedAt *string        `json:"redeemed_at"`
}

// VoucherSummary is one entry of the caller's voucher list.
type VoucherSummary struct {
	Code       string  `json:"code"`
	Status     string  `json:"status"`
	RewardID   int64   `json:"reward_id"`
	RedeemURL  string  `json:"redeemUrl"`
	CreatedAt  string  `json:"created_at"`
	RedeemedAt *string `json:"redeemed_at"`
}

// NewUserResponse maps an account to its public view.
func NewUserResponse(a *domain.Account) UserResponse {
	return UserResponse{ID: a.ID.String(), Name: a.DisplayName, Coins: a.Balance}
}

// NewRewardResponse maps a catalog entry.
func NewRewardResponse(r domain.Reward) RewardResponse {
	return RewardResponse{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Partner:     r.Partner,
	}
}

// NewVoucherResponse maps voucher details.
func NewVoucherResponse(d *domain.VoucherDetails) VoucherResponse {
	return VoucherResponse{
		Code:       d.Voucher.Token,
		Status:     string(d.Voucher.Status),
		Reward:     NewRewardResponse(d.Reward),
		CreatedAt:  formatTime(d.Voucher.CreatedAt),
		RedeemedAt: formatTimePtr(d.Voucher.RedeemedAt),
	}
}

// NewVoucherSummary maps a voucher for the list view.
func NewVoucherSummary(v domain.Voucher, baseURL string) VoucherSummary {
	return VoucherSummary{
		Code:       v.Token,
		Status:     string(v.Status),
		RewardID:   v.RewardID,
		RedeemURL:  domain.RedeemURL(baseURL, v.Token),
		CreatedAt:  formatTime(v.CreatedAt),
		RedeemedAt: formatTimePtr(v.RedeemedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
