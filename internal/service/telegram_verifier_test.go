package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"testing"
	"time"

	"rubi-trail/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:TEST-bot-token"

func signedInitData(t *testing.T, fields map[string]string) string {
	t.Helper()
	return SignInitData(testBotToken, fields)
}

func freshFields(user string) map[string]string {
	return map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      user,
	}
}

func TestTelegramVerifier_ValidPayload(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 24*time.Hour)

	id, err := v.Verify(signedInitData(t, freshFields(`{"id":279058397,"first_name":"Nino","username":"nino_g"}`)))
	require.NoError(t, err)
	assert.Equal(t, "279058397", id.ExternalID)
	assert.Equal(t, "Nino", id.DisplayName)
}

func TestTelegramVerifier_MatchesPublishedAlgorithm(t *testing.T) {
	// Compute the hash independently of BuildDataCheckString.
	authDate := strconv.FormatInt(time.Now().Unix(), 10)
	user := `{"id":42,"first_name":"A"}`
	check := "auth_date=" + authDate + "\nuser=" + user

	k := hmac.New(sha256.New, []byte("WebAppData"))
	k.Write([]byte(testBotToken))
	mac := hmac.New(sha256.New, k.Sum(nil))
	mac.Write([]byte(check))

	q := url.Values{}
	q.Set("auth_date", authDate)
	q.Set("user", user)
	q.Set("hash", hex.EncodeToString(mac.Sum(nil)))

	v := NewTelegramVerifier(testBotToken, time.Hour)
	id, err := v.Verify(q.Encode())
	require.NoError(t, err)
	assert.Equal(t, "42", id.ExternalID)
}

func TestTelegramVerifier_NameFallbacks(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 0)

	tests := []struct {
		name     string
		user     string
		expected string
	}{
		{"first name", `{"id":1,"first_name":"Gio","username":"gio"}`, "Gio"},
		{"username when first name empty", `{"id":1,"first_name":"","username":"gio"}`, "gio"},
		{"default", `{"id":1}`, "Telegram User"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(signedInitData(t, map[string]string{"user": tt.user}))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id.DisplayName)
		})
	}
}

func TestTelegramVerifier_Rejects(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 24*time.Hour)
	valid := signedInitData(t, freshFields(`{"id":7,"first_name":"X"}`))

	tampered, err := url.ParseQuery(valid)
	require.NoError(t, err)
	tampered.Set("user", `{"id":8,"first_name":"X"}`)

	noHash, _ := url.ParseQuery(valid)
	noHash.Del("hash")

	old := freshFields(`{"id":7}`)
	old["auth_date"] = strconv.FormatInt(time.Now().Add(-48*time.Hour).Unix(), 10)

	future := freshFields(`{"id":7}`)
	future["auth_date"] = strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)

	noDate := map[string]string{"user": `{"id":7}`}

	tests := []struct {
		name     string
		initData string
	}{
		{"empty", ""},
		{"tampered field", tampered.Encode()},
		{"missing hash", noHash.Encode()},
		{"wrong bot token", SignInitData("other-token", freshFields(`{"id":7}`))},
		{"missing user", signedInitData(t, map[string]string{"auth_date": strconv.FormatInt(time.Now().Unix(), 10)})},
		{"malformed user", signedInitData(t, freshFields(`{"id":`))},
		{"zero user id", signedInitData(t, freshFields(`{"id":0,"first_name":"X"}`))},
		{"expired", signedInitData(t, old)},
		{"future auth_date", signedInitData(t, future)},
		{"missing auth_date", signedInitData(t, noDate)},
		{"bad query", "%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(tt.initData)
			assert.Nil(t, id)
			assert.True(t, apperror.Is(err, apperror.CodeAuthInvalid), "got %v", err)
		})
	}
}

func flipHexChar(c byte) byte {
	if c == '0' {
		return '1'
	}
	return '0'
}

func TestTelegramVerifier_AnySingleHashCharChangeRejected(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 24*time.Hour)
	values, err := url.ParseQuery(signedInitData(t, freshFields(`{"id":7,"first_name":"X"}`)))
	require.NoError(t, err)
	hash := values.Get("hash")
	require.Len(t, hash, 64)

	verifyWithHash := func(h string) error {
		tampered := url.Values{}
		for k, vs := range values {
			tampered[k] = vs
		}
		tampered.Set("hash", h)
		_, err := v.Verify(tampered.Encode())
		return err
	}

	require.NoError(t, verifyWithHash(hash))

	for i := 0; i < len(hash); i++ {
		b := []byte(hash)
		b[i] = flipHexChar(b[i])
		err := verifyWithHash(string(b))
		assert.True(t, apperror.Is(err, apperror.CodeAuthInvalid), "hash char %d changed: got %v", i, err)

		if c := hash[i]; c >= 'a' && c <= 'f' {
			b = []byte(hash)
			b[i] = c - 'a' + 'A'
			err := verifyWithHash(string(b))
			assert.True(t, apperror.Is(err, apperror.CodeAuthInvalid), "hash char %d upper-cased: got %v", i, err)
		}
	}
}

func TestTelegramVerifier_AnySignedFieldChangeRejected(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 24*time.Hour)
	values, err := url.ParseQuery(signedInitData(t, freshFields(`{"id":7,"first_name":"X"}`)))
	require.NoError(t, err)

	for key := range values {
		if key == "hash" {
			continue
		}
		original := values.Get(key)
		for i := 0; i < len(original); i++ {
			b := []byte(original)
			b[i] ^= 0x01

			tampered := url.Values{}
			for k, vs := range values {
				tampered[k] = vs
			}
			tampered.Set(key, string(b))

			id, err := v.Verify(tampered.Encode())
			assert.Nil(t, id)
			assert.True(t, apperror.Is(err, apperror.CodeAuthInvalid), "%s char %d changed: got %v", key, i, err)
		}
	}
}

func TestTelegramVerifier_LastRepeatedValueWins(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 0)
	signed := signedInitData(t, map[string]string{"user": `{"id":5,"first_name":"Last"}`})

	// A leading duplicate is ignored because the later value is the one that was signed.
	payload := "user=" + url.QueryEscape(`{"id":6,"first_name":"First"}`) + "&" + signed
	id, err := v.Verify(payload)
	require.NoError(t, err)
	assert.Equal(t, "5", id.ExternalID)
}

func TestTelegramVerifier_BlankValuesAreSigned(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 0)
	fields := map[string]string{"user": `{"id":9}`, "start_param": ""}

	id, err := v.Verify(signedInitData(t, fields))
	require.NoError(t, err)
	assert.Equal(t, "9", id.ExternalID)
}

func TestBuildDataCheckString(t *testing.T) {
	got := BuildDataCheckString(map[string]string{"b": "2", "a": "1", "c": ""})
	assert.Equal(t, "a=1\nb=2\nc=", got)
}
