package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nsedesk/signalengine/internal/apperr"
)

const priorityPrefix = "⚡ *HIGH CONFIDENCE SIGNAL* ⚡\n\n"

// TelegramDeliverer implements Deliverer against Telegram's Bot API,
// grounded on the teacher corpus's TelegramNotifier.send_message: one
// sendMessage call per recipient, Markdown parse mode, and a priority
// banner prepended ahead of the message body. No Telegram client library
// appears anywhere in the example pack, so this talks to the Bot API
// directly over net/http, the same style internal/sentiment/llm.go uses
// for its LLM providers.
type TelegramDeliverer struct {
	httpClient *http.Client
	token      string
}

// NewTelegramDeliverer builds a TelegramDeliverer that sends through the
// bot identified by token.
func NewTelegramDeliverer(token string) *TelegramDeliverer {
	return &TelegramDeliverer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		token:      token,
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

// Send posts message to address (a Telegram chat ID) via sendMessage,
// prepending the priority banner when priority is set.
func (d *TelegramDeliverer) Send(ctx context.Context, address, message string, priority bool) error {
	if priority {
		message = priorityPrefix + message
	}

	form := url.Values{}
	form.Set("chat_id", address)
	form.Set("text", message)
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", d.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return apperr.New(apperr.DeliveryFailed, "telegram", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return apperr.New(apperr.DeliveryFailed, "telegram", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.New(apperr.DeliveryFailed, "telegram", "read response", err)
	}

	var parsed telegramResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode == http.StatusTooManyRequests {
		return apperr.New(apperr.DeliveryFailed, "telegram", "rate limited", nil)
	}
	if !parsed.OK {
		return apperr.New(apperr.DeliveryFailed, "telegram", fmt.Sprintf("status %d: %s", resp.StatusCode, parsed.Description), nil)
	}
	return nil
}
