package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram delivers plain-text messages to a channel via the Bot API.
type Telegram struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewTelegram creates a sender for the given bot token and channel.
func NewTelegram(token, chatID string, timeout time.Duration) *Telegram {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Telegram{
		token:   token,
		chatID:  chatID,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: timeout},
	}
}

// Send posts one message, retrying transient failures with backoff. A
// non-200 response is an error; the first 200 bytes of the body go into it
// for diagnostics.
func (t *Telegram) Send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	form := url.Values{
		"chat_id": {t.chatID},
		"text":    {text},
	}

	retrier := repeater.NewBackoff(3, time.Second, repeater.WithMaxDelay(10*time.Second))
	return retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
			return fmt.Errorf("telegram send failed %d: %s", resp.StatusCode, string(body))
		}
		return nil
	})
}
