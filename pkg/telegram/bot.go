package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnreachable означает, что получатель в принципе недоступен для бота:
// чат не найден, бот заблокирован или аккаунт удалён. Повторять такую
// отправку бессмысленно.
var ErrUnreachable = errors.New("telegram: recipient unreachable")

type Bot struct {
	token   string
	baseURL string
	client  *http.Client
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func NewBot(token string, timeout time.Duration) *Bot {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bot{
		token:   token,
		baseURL: "https://api.telegram.org/bot" + token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Send отправляет текст в чат. Таймаут ограничен и клиентом,
// и переданным контекстом.
func (b *Bot) Send(ctx context.Context, chatID, text string) error {
	params := url.Values{}
	params.Add("chat_id", chatID)
	params.Add("text", text)

	return b.call(ctx, "/sendMessage", params)
}

// SendPhoto отправляет изображение по URL с подписью.
func (b *Bot) SendPhoto(ctx context.Context, chatID, photoURL, caption string) error {
	params := url.Values{}
	params.Add("chat_id", chatID)
	params.Add("photo", photoURL)
	if caption != "" {
		params.Add("caption", caption)
	}

	return b.call(ctx, "/sendPhoto", params)
}

func (b *Bot) call(ctx context.Context, method string, params url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("telegram: decode response: %w", err)
	}

	if api.OK {
		return nil
	}

	if unreachable(api) {
		return fmt.Errorf("%w: %s", ErrUnreachable, api.Description)
	}

	return fmt.Errorf("telegram API error %d: %s", api.ErrorCode, api.Description)
}

// unreachable отделяет "получатель недоступен" от временных сбоев API.
func unreachable(api apiResponse) bool {
	if api.ErrorCode == http.StatusForbidden {
		return true
	}
	desc := strings.ToLower(api.Description)
	return strings.Contains(desc, "chat not found") ||
		strings.Contains(desc, "user is deactivated") ||
		strings.Contains(desc, "bot was blocked")
}

// IsUnreachable reports whether err is an unreachable-recipient failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
