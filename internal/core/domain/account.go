package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDisplayName is used when the identity payload carries no usable name.
const DefaultDisplayName = "Telegram User"

// Account is a loyalty account bound to one external (Telegram) identity.
type Account struct {
	ID          uuid.UUID `json:"id"`
	ExternalID  string    `json:"external_id"`
	DisplayName string    `json:"display_name"`
	Balance     int64     `json:"balance"` // coins, never negative
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NeedsRename reports whether name is a non-empty name different from the stored one.
func (a *Account) NeedsRename(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && name != a.DisplayName
}

// ExternalIdentity is the verified output of the Telegram initData check.
type ExternalIdentity struct {
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
}

// NameOrDefault returns the display name, falling back to DefaultDisplayName.
func (i ExternalIdentity) NameOrDefault() string {
	if n := strings.TrimSpace(i.DisplayName); n != "" {
		return n
	}
	return DefaultDisplayName
}
