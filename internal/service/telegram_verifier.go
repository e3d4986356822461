package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/pkg/apperror"
)

// webAppKeySalt is the HMAC key Telegram uses to derive the Mini App signing key.
const webAppKeySalt = "WebAppData"

// maxClockSkew tolerates auth_date values slightly ahead of the local clock.
const maxClockSkew = time.Minute

// TelegramVerifier implements ports.IdentityVerifier for Telegram Mini App initData.
type TelegramVerifier struct {
	signingKey []byte
	maxAge     time.Duration
	now        func() time.Time
}

// NewTelegramVerifier creates a verifier for botToken. maxAge <= 0 disables the auth_date check.
func NewTelegramVerifier(botToken string, maxAge time.Duration) *TelegramVerifier {
	return &TelegramVerifier{
		signingKey: hmacSHA256([]byte(webAppKeySalt), []byte(botToken)),
		maxAge:     maxAge,
		now:        time.Now,
	}
}

type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Verify checks the initData signature and extracts the user identity.
func (v *TelegramVerifier) Verify(initData string) (*domain.ExternalIdentity, error) {
	if initData == "" {
		return nil, apperror.ErrAuthInvalid()
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, authFailure(fmt.Errorf("parse initData: %w", err))
	}

	fields := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			fields[k] = vs[len(vs)-1]
		}
	}

	received, ok := fields["hash"]
	if !ok {
		return nil, apperror.ErrAuthInvalid()
	}
	delete(fields, "hash")

	expected := hex.EncodeToString(hmacSHA256(v.signingKey, []byte(BuildDataCheckString(fields))))
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return nil, apperror.ErrAuthInvalid()
	}

	if err := v.checkAuthDate(fields["auth_date"]); err != nil {
		return nil, authFailure(err)
	}

	raw, ok := fields["user"]
	if !ok {
		return nil, apperror.ErrAuthInvalid()
	}
	var user telegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, authFailure(fmt.Errorf("decode user: %w", err))
	}
	if user.ID == 0 {
		return nil, apperror.ErrAuthInvalid()
	}

	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		name = strings.TrimSpace(user.Username)
	}
	if name == "" {
		name = domain.DefaultDisplayName
	}

	return &domain.ExternalIdentity{
		ExternalID:  strconv.FormatInt(user.ID, 10),
		DisplayName: name,
	}, nil
}

func (v *TelegramVerifier) checkAuthDate(raw string) error {
	if v.maxAge <= 0 {
		return nil
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid auth_date %q", raw)
	}
	issued := time.Unix(ts, 0)
	now := v.now()
	if now.Sub(issued) > v.maxAge {
		return fmt.Errorf("initData expired at %s", issued.Add(v.maxAge).UTC().Format(time.RFC3339))
	}
	if issued.Sub(now) > maxClockSkew {
		return fmt.Errorf("auth_date in the future")
	}
	return nil
}

// BuildDataCheckString joins key=value pairs sorted by key with newlines.
func BuildDataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// SignInitData encodes fields with a valid hash, as the Telegram client would. Test helper.
func SignInitData(botToken string, fields map[string]string) string {
	key := hmacSHA256([]byte(webAppKeySalt), []byte(botToken))
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", hex.EncodeToString(hmacSHA256(key, []byte(BuildDataCheckString(fields)))))
	return values.Encode()
}

func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

func authFailure(err error) *apperror.AppError {
	e := apperror.ErrAuthInvalid()
	e.Err = err
	return e
}
