package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier 定义告警输送接口。Delivery is best-effort, at-most-once.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// WeComNotifier 通过企业微信机器人 Webhook 推送文本消息。
type WeComNotifier struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

// NewWeComNotifier 构造企业微信告警器。
func NewWeComNotifier(webhookURL string, timeout time.Duration, logger zerolog.Logger) *WeComNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeComNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "alert_wecom").Logger(),
	}
}

type wecomPayload struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type wecomResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Notify POSTs the message as a WeCom text payload.
func (n *WeComNotifier) Notify(ctx context.Context, text string) error {
	payload := wecomPayload{MsgType: "text"}
	payload.Text.Content = text

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal wecom payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create wecom request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send wecom request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wecom 响应码异常: %d", resp.StatusCode)
	}

	var result wecomResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if result.ErrCode != 0 {
			return fmt.Errorf("wecom 返回 errcode=%d: %s", result.ErrCode, result.ErrMsg)
		}
	}

	n.logger.Info().Msg("告警已发送 (WeCom)")
	return nil
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Msg("告警已发送 (Telegram)")
	return nil
}

// MultiNotifier fans a message out to every configured channel. Each sink
// failure is logged; the joined error is returned for the caller's log line.
type MultiNotifier struct {
	sinks  []Notifier
	logger zerolog.Logger
}

// NewMultiNotifier 构造多通道告警器。
func NewMultiNotifier(logger zerolog.Logger, sinks ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		sinks:  sinks,
		logger: logger.With().Str("component", "alert_multi").Logger(),
	}
}

// Notify delivers to all sinks, best-effort.
func (n *MultiNotifier) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, sink := range n.sinks {
		if err := sink.Notify(ctx, text); err != nil {
			n.logger.Warn().Err(err).Msg("通道发送失败")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Notifier = (*WeComNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*MultiNotifier)(nil)
)
