package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

const maxResponseBytes = 1 << 20

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken  string
	ChatID    string
	APIURL    string
	ParseMode string
	Client    *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support. Empty
// credentials are accepted here and reported by Send.
func NewTelegramNotifier(botToken, chatID, proxyURL string, timeout time.Duration) *TelegramNotifier {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TelegramNotifier{
		BotToken:  botToken,
		ChatID:    chatID,
		APIURL:    DefaultAPIURL,
		ParseMode: "Markdown",
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Message is the part of the sent message the relay cares about.
type Message struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
	Chat      struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	} `json:"chat"`
}

// Receipt is the Bot API acknowledgement. It marshals back to the exact JSON
// the provider returned.
type Receipt struct {
	OK     bool            `json:"ok"`
	Result *Message        `json:"result,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

func (r *Receipt) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain Receipt
	return json.Marshal((*plain)(r))
}

// MessageID returns the id of the delivered message, or 0 if unknown.
func (r *Receipt) MessageID() int64 {
	if r == nil || r.Result == nil {
		return 0
	}
	return r.Result.MessageID
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Send posts text to the configured chat in a single attempt.
func (t *TelegramNotifier) Send(ctx context.Context, text string) (*Receipt, error) {
	if err := t.checkConfig(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.ChatID,
		Text:                  text,
		ParseMode:             t.ParseMode,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: redact(err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode <= 299

	var result apiResponse
	if err := json.Unmarshal(raw, &result); err != nil && success {
		// A 2xx that is not Bot API JSON comes from something in between, not Telegram.
		return nil, &TransportError{Err: fmt.Errorf("decode telegram response (status %d): %w", resp.StatusCode, err)}
	}
	if !success || !result.OK {
		return nil, &DeliveryError{StatusCode: resp.StatusCode, Description: result.Description}
	}

	receipt := &Receipt{OK: result.OK, Raw: json.RawMessage(raw)}
	if len(result.Result) > 0 {
		var msg Message
		if err := json.Unmarshal(result.Result, &msg); err == nil {
			receipt.Result = &msg
		}
	}
	return receipt, nil
}

func (t *TelegramNotifier) checkConfig() error {
	var missing []string
	if strings.TrimSpace(t.BotToken) == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if strings.TrimSpace(t.ChatID) == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

func (t *TelegramNotifier) endpoint(method string) string {
	base := t.APIURL
	if base == "" {
		base = DefaultAPIURL
	}
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(base, "/"), t.BotToken, method)
}

// redact strips the request URL, which embeds the bot token, from transport errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
