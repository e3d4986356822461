package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAccount_NeedsRename(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		newName string
		want    bool
	}{
		{"same name", "Nino", "Nino", false},
		{"empty new name", "Nino", "", false},
		{"blank new name", "Nino", "   ", false},
		{"different name", "Nino", "Giorgi", true},
		{"stored default", DefaultDisplayName, "Nino", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{DisplayName: tt.stored}
			assert.Equal(t, tt.want, a.NeedsRename(tt.newName))
		})
	}
}

func TestExternalIdentity_NameOrDefault(t *testing.T) {
	assert.Equal(t, "Nino", ExternalIdentity{DisplayName: "Nino"}.NameOrDefault())
	assert.Equal(t, DefaultDisplayName, ExternalIdentity{}.NameOrDefault())
	assert.Equal(t, DefaultDisplayName, ExternalIdentity{DisplayName: " "}.NameOrDefault())
}

func TestVoucher_IsRedeemable(t *testing.T) {
	tests := []struct {
		name   string
		status VoucherStatus
		want   bool
	}{
		{"active", VoucherStatusActive, true},
		{"redeemed", VoucherStatusRedeemed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Voucher{Status: tt.status}
			assert.Equal(t, tt.want, v.IsRedeemable())
		})
	}
}

func TestRedeemURL(t *testing.T) {
	assert.Equal(t, "https://trail.ge/voucher/abc", RedeemURL("https://trail.ge", "abc"))
	assert.Equal(t, "https://trail.ge/voucher/abc", RedeemURL("https://trail.ge/", "abc"))
}

func TestNotification_Text(t *testing.T) {
	v := Voucher{ID: uuid.New(), Token: "tok123"}
	r := Reward{Title: "Cafe : Art House"}

	n := NewVoucherCreatedNotification("42", v, r, "https://trail.ge/voucher/tok123")

	assert.Equal(t, NotificationVoucherCreated, n.Kind)
	assert.Equal(t, "42", n.ChatID)
	assert.Equal(t, v.ID, n.VoucherID)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, "🎫 Voucher created!\nCafe : Art House\nCode: tok123\nhttps://trail.ge/voucher/tok123", n.Text())
}

func TestVoucherStatus_Constants(t *testing.T) {
	assert.Equal(t, VoucherStatus("ACTIVE"), VoucherStatusActive)
	assert.Equal(t, VoucherStatus("REDEEMED"), VoucherStatusRedeemed)
}
