package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nudge/internal/config"
	"nudge/internal/ports"
)

// Telegram caps messages at 4096 characters; leave room for markup.
const maxMessageLen = 4000

var (
	reHeading = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic  = regexp.MustCompile(`(?m)^_(.+)_$`)
	reAutoURL = regexp.MustCompile(`<(https?://[^>\s]+)>`)
)

// Bot is the part of tgbotapi.BotAPI the notifier needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotFactory builds a bot for a token and API endpoint.
type BotFactory func(token, endpoint string, client *http.Client) (Bot, error)

func defaultBotFactory(token, endpoint string, client *http.Client) (Bot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, err
	}
	return bot, nil
}

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	endpoint string
	client   *http.Client
	factory  BotFactory
	logger   *slog.Logger

	mu  sync.Mutex
	bot Bot
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. The bot is created on
// first use because tgbotapi calls getMe while constructing it.
func NewNotifier(cfg config.TelegramConfig, logger *slog.Logger) *Notifier {
	return NewNotifierWithEndpoint(cfg, tgbotapi.APIEndpoint, nil, logger)
}

// NewNotifierWithEndpoint points the bot at a different Bot API server.
// endpoint uses the tgbotapi format with two %s verbs (token, method).
func NewNotifierWithEndpoint(cfg config.TelegramConfig, endpoint string, client *http.Client, logger *slog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		endpoint: endpoint,
		client:   client,
		factory:  defaultBotFactory,
		logger:   logger.With("component", "telegram"),
	}
}

// SetBot replaces the lazily created bot, mostly for tests.
func (n *Notifier) SetBot(bot Bot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bot = bot
}

// PublishDigest posts a Markdown digest, converted to Telegram HTML and split
// into chunks under the message limit.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	chatID, err := strconv.ParseInt(n.chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", n.chatID, err)
	}

	bot, err := n.ensureBot()
	if err != nil {
		return err
	}

	chunks := splitMessage(digest, maxMessageLen)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(chatID, toTelegramHTML(chunk))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := bot.Send(msg); err != nil {
			n.logger.Warn("html send failed, retrying as plain text", "chunk", i, "error", err)
			msg.ParseMode = ""
			msg.Text = chunk
			if _, err := bot.Send(msg); err != nil {
				return fmt.Errorf("send telegram message: %w", err)
			}
		}
	}

	n.logger.Info("digest sent", "chunks", len(chunks))
	return nil
}

func (n *Notifier) ensureBot() (Bot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bot != nil {
		return n.bot, nil
	}
	bot, err := n.factory(n.botToken, n.endpoint, n.client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	n.bot = bot
	return bot, nil
}

// splitMessage cuts s into pieces of at most limit bytes, preferring line breaks.
func splitMessage(s string, limit int) []string {
	s = strings.TrimSpace(s)
	var chunks []string
	for len(s) > limit {
		cut := strings.LastIndex(s[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// toTelegramHTML maps the digest's Markdown subset onto Telegram HTML.
func toTelegramHTML(s string) string {
	s = reAutoURL.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")

	s = reHeading.ReplaceAllString(s, "<b>$1</b>")
	s = reBold.ReplaceAllString(s, "<b>$1</b>")
	s = reItalic.ReplaceAllString(s, "<i>$1</i>")
	return s
}
