// Package telegram is a minimal Telegram Bot API client used to deliver
// voucher notifications.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const (
	// Bot API limits.
	maxCaptionLength = 1024
	maxMessageLength = 4096
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a Bot API response with ok=false or a non-2xx status.
type APIError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: status %d code %d: %s", e.Method, e.StatusCode, e.ErrorCode, e.Description)
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// BotClient implements ports.Notifier over the Bot API.
type BotClient struct {
	baseURL    string
	token      string
	httpClient HTTPClient
}

// NewBotClient creates a client. baseURL is normally https://api.telegram.org.
func NewBotClient(baseURL, token string, httpClient HTTPClient) *BotClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BotClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Notify sends image as a photo with text as its caption, or text alone when
// image is empty. The caller owns the deadline via ctx.
func (b *BotClient) Notify(ctx context.Context, chatID, text string, image []byte) error {
	if len(image) > 0 {
		return b.SendPhoto(ctx, chatID, text, image)
	}
	return b.SendMessage(ctx, chatID, text)
}

// SendMessage calls sendMessage.
func (b *BotClient) SendMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    truncate(text, maxMessageLength),
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}
	return b.call(ctx, "sendMessage", "application/json", bytes.NewReader(body))
}

// SendPhoto calls sendPhoto with a multipart PNG upload.
func (b *BotClient) SendPhoto(ctx context.Context, chatID, caption string, png []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("chat_id", chatID); err != nil {
		return fmt.Errorf("write chat_id: %w", err)
	}
	if caption != "" {
		if err := mw.WriteField("caption", truncate(caption, maxCaptionLength)); err != nil {
			return fmt.Errorf("write caption: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("photo", "voucher.png")
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := fw.Write(png); err != nil {
		return fmt.Errorf("write photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	return b.call(ctx, "sendPhoto", mw.FormDataContentType(), &buf)
}

func (b *BotClient) call(ctx context.Context, method, contentType string, body io.Reader) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("telegram %s: create request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of the error.
		return fmt.Errorf("telegram %s: request failed: %w", method, unwrapURLError(err))
	}
	defer resp.Body.Close()

	var out apiResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || decodeErr != nil || !out.OK {
		desc := out.Description
		if desc == "" && decodeErr != nil {
			desc = "unreadable response"
		}
		return &APIError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			ErrorCode:   out.ErrorCode,
			Description: desc,
		}
	}
	return nil
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
