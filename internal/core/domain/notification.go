package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies the message template.
type NotificationKind string

const (
	NotificationVoucherCreated NotificationKind = "VOUCHER_CREATED"
)

// Notification is an outbound chat message queued after a committed state change.
// It is serialized as JSON onto the notification queue.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	Kind        NotificationKind `json:"kind"`
	ChatID      string           `json:"chat_id"`
	VoucherID   uuid.UUID        `json:"voucher_id"`
	Token       string           `json:"token"`
	RewardTitle string           `json:"reward_title"`
	RedeemURL   string           `json:"redeem_url"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewVoucherCreatedNotification builds the message sent after a purchase.
func NewVoucherCreatedNotification(chatID string, v Voucher, r Reward, redeemURL string) Notification {
	return Notification{
		ID:          uuid.New(),
		Kind:        NotificationVoucherCreated,
		ChatID:      chatID,
		VoucherID:   v.ID,
		Token:       v.Token,
		RewardTitle: r.Title,
		RedeemURL:   redeemURL,
		CreatedAt:   time.Now().UTC(),
	}
}

// Text renders the message body.
func (n Notification) Text() string {
	switch n.Kind {
	case NotificationVoucherCreated:
		return fmt.Sprintf("🎫 Voucher created!\n%s\nCode: %s\n%s", n.RewardTitle, n.Token, n.RedeemURL)
	default:
		return n.RedeemURL
	}
}
