package alert

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

func newClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	return client
}

type WebhookPayload struct {
	Project string `json:"project"`
	Event   string `json:"event"`
	Message string `json:"message"`
	Alert   Alert  `json:"alert"`
}

type WebhookSender struct {
	URL     string
	Project string
	client  *resty.Client
}

func NewWebhookSender(rawURL, project string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{URL: strings.TrimSpace(rawURL), Project: project, client: newClient(timeout)}
}

func (s *WebhookSender) Send(ctx context.Context, a Alert) error {
	if s == nil || s.client == nil || s.URL == "" {
		return errors.New("webhook url not configured")
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(WebhookPayload{Project: s.Project, Event: a.Event, Message: a.Message(), Alert: a}).
		Post(s.URL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook http %d", resp.StatusCode())
	}
	return nil
}

type telegramSendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type TelegramSender struct {
	BotToken string
	ChatID   string
	// BaseURL defaults to the public Bot API.
	BaseURL string
	client  *resty.Client
}

func NewTelegramSender(botToken, chatID string, timeout time.Duration) *TelegramSender {
	return &TelegramSender{BotToken: botToken, ChatID: chatID, client: newClient(timeout)}
}

func (s *TelegramSender) Send(ctx context.Context, a Alert) error {
	if s == nil || s.client == nil || s.BotToken == "" || s.ChatID == "" {
		return errors.New("missing bot_token/chat_id")
	}
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", base, url.PathEscape(s.BotToken))
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(telegramSendMessageRequest{ChatID: s.ChatID, Text: a.Message()}).
		Post(endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("telegram http %d", resp.StatusCode())
	}
	return nil
}
