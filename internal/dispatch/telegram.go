package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fieldmap/internal/model"
	"fieldmap/internal/secrets"
	"fieldmap/internal/template"
)

// SecretPurposeTelegram scopes sealed Telegram webhook credentials.
const SecretPurposeTelegram = "webhook-telegram"

// TelegramSender delivers rendered reports as Telegram messages. Bot
// credentials are opened from the webhook's sealed options right before
// each delivery, never held in memory between calls.
type TelegramSender struct {
	keyring  *secrets.Keyring
	client   *http.Client
	endpoint string
	renderer *template.Renderer
}

// NewTelegramSender creates a TelegramSender talking to the public
// Telegram Bot API.
func NewTelegramSender(keyring *secrets.Keyring, client *http.Client) *TelegramSender {
	return NewTelegramSenderWithEndpoint(keyring, client, tgbotapi.APIEndpoint)
}

// NewTelegramSenderWithEndpoint overrides the Bot API endpoint
// (useful for testing).
func NewTelegramSenderWithEndpoint(keyring *secrets.Keyring, client *http.Client, endpoint string) *TelegramSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &TelegramSender{
		keyring:  keyring,
		client:   client,
		endpoint: endpoint,
		renderer: template.New(),
	}
}

// Deliver renders the hook body with the escape matching its parse mode
// and sends it to the chat named in the hook target.
func (s *TelegramSender) Deliver(ctx context.Context, hook model.Webhook, rctx *template.Context) error {
	sealed, err := s.keyring.Open(hook.Options, SecretPurposeTelegram)
	if err != nil {
		return fmt.Errorf("open telegram options: %w", err)
	}
	opts := telegramOptions(sealed)
	if opts.BotToken == "" {
		return fmt.Errorf("telegram options missing bot_token")
	}

	chatID, err := chatIDFromTarget(hook.Target)
	if err != nil {
		return err
	}

	var escape template.EscapeFunc
	var parseMode string
	switch opts.ParseMode {
	case model.ParseMarkdown:
		escape = template.EscapeMarkdown
		parseMode = tgbotapi.ModeMarkdown
	case model.ParseHTML:
		escape = template.EscapeHTML
		parseMode = tgbotapi.ModeHTML
	default:
		escape = template.EscapePlain
	}

	body := s.renderer.Render(hook.Body, rctx, escape)

	bot, err := tgbotapi.NewBotAPIWithClient(opts.BotToken, s.endpoint, s.client)
	if err != nil {
		return fmt.Errorf("init telegram bot: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, body)
	msg.ParseMode = parseMode
	msg.DisableNotification = opts.DisableNotification
	msg.DisableWebPagePreview = opts.DisableLinkPreview

	if _, err := request(ctx, bot, msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// request sends through the bot while honoring context cancellation;
// the bot API itself has no context-aware send.
func request(ctx context.Context, bot *tgbotapi.BotAPI, msg tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	type result struct {
		msg tgbotapi.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := bot.Send(msg)
		done <- result{m, err}
	}()
	select {
	case <-ctx.Done():
		return tgbotapi.Message{}, ctx.Err()
	case r := <-done:
		return r.msg, r.err
	}
}

// telegramOptions decodes an opened options blob into its typed form.
// Boolean flags are stored as the strings "true"/"false".
func telegramOptions(sealed map[string]string) model.TelegramOptions {
	return model.TelegramOptions{
		BotToken:            sealed["bot_token"],
		ParseMode:           model.ParseMode(sealed["parse_mode"]),
		DisableNotification: sealed["disable_notification"] == "true",
		DisableLinkPreview:  sealed["disable_link_preview"] == "true",
	}
}

// chatIDFromTarget extracts the numeric chat ID from a target of the
// form "tg://send?to=<chat-id>".
func chatIDFromTarget(target string) (int64, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "tg" {
		return 0, fmt.Errorf("invalid telegram target %q", target)
	}
	to := u.Query().Get("to")
	if to == "" {
		return 0, fmt.Errorf("telegram target %q missing chat id", target)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q", to)
	}
	return id, nil
}
