// Package notify delivers operator notifications over Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ErrMissingCredentials is reported when the bot token or chat ID is unset
var ErrMissingCredentials = errors.New("telegram credentials are not configured")

// NotifierError wraps a failed delivery attempt
type NotifierError struct {
	Op  string
	Err error
}

func (e *NotifierError) Error() string {
	return fmt.Sprintf("notifier %s: %v", e.Op, e.Err)
}

func (e *NotifierError) Unwrap() error {
	return e.Err
}

// TelegramConfig holds the destination and credentials
type TelegramConfig struct {
	Token    string
	ChatID   string        // Numeric chat ID or @channel username
	Endpoint string        // Bot API endpoint format, defaults to tgbotapi.APIEndpoint
	Timeout  time.Duration // HTTP timeout per request
}

// TelegramNotifier sends plain-text messages to one Telegram chat.
// The bot API is initialized lazily on the first send, so a Telegram outage at
// startup does not prevent the service from running.
type TelegramNotifier struct {
	cfg    TelegramConfig
	client *http.Client
	logger *zap.Logger

	mu  sync.Mutex
	api *tgbotapi.BotAPI
}

// NewTelegramNotifier creates a notifier. Missing credentials are not an
// error here; Send reports false instead.
func NewTelegramNotifier(cfg TelegramConfig, logger *zap.Logger) *TelegramNotifier {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Token == "" || cfg.ChatID == "" {
		logger.Warn("Telegram notifier is disabled (TG_BOT_TOKEN or TG_CHAT_ID is empty)")
	}

	return &TelegramNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Send delivers text and reports success. It never returns an error or panics;
// failures are logged.
func (n *TelegramNotifier) Send(ctx context.Context, text string) bool {
	if err := n.send(ctx, text); err != nil {
		if errors.Is(err, ErrMissingCredentials) {
			n.logger.Debug("Skipping notification, Telegram not configured")
		} else {
			n.logger.Error("Failed to send notification", zap.Error(err))
		}
		return false
	}
	return true
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	if n.cfg.Token == "" || n.cfg.ChatID == "" {
		return &NotifierError{Op: "send", Err: ErrMissingCredentials}
	}
	if err := ctx.Err(); err != nil {
		return &NotifierError{Op: "send", Err: err}
	}

	api, err := n.botAPI()
	if err != nil {
		return &NotifierError{Op: "connect", Err: err}
	}

	msg, err := n.newMessage(text)
	if err != nil {
		return &NotifierError{Op: "send", Err: err}
	}

	if _, err := api.Send(msg); err != nil {
		return &NotifierError{Op: "send", Err: err}
	}
	return nil
}

// botAPI returns the cached client, authorizing the bot on first use
func (n *TelegramNotifier) botAPI() (*tgbotapi.BotAPI, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.api != nil {
		return n.api, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(n.cfg.Token, n.cfg.Endpoint, n.client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}
	n.logger.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))
	n.api = api
	return api, nil
}

// newMessage addresses text to a numeric chat or a @channel
func (n *TelegramNotifier) newMessage(text string) (tgbotapi.MessageConfig, error) {
	chat := strings.TrimSpace(n.cfg.ChatID)
	if strings.HasPrefix(chat, "@") {
		return tgbotapi.NewMessageToChannel(chat, text), nil
	}
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, fmt.Errorf("invalid chat id %q: %w", chat, err)
	}
	return tgbotapi.NewMessage(id, text), nil
}
