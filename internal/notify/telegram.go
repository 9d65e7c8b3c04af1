package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Telegram rejects messages longer than this
const maxMessageLen = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends reports to one chat through the bot API
type Telegram struct {
	api    sender
	chatID int64
}

// NewTelegram connects the bot and verifies the token
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, chatID)
}

// NewTelegramWithEndpoint is NewTelegram against a custom API endpoint
// (format "https://host/bot%s/%s").
func NewTelegramWithEndpoint(token, endpoint string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot connected")
	return &Telegram{api: api, chatID: chatID}, nil
}

// Send posts title and body, split into as many messages as needed. Each
// part goes out as Markdown first and as plain text if Telegram rejects it.
func (t *Telegram) Send(ctx context.Context, title, body string) error {
	text := body
	if title != "" {
		text = "*" + escapeMarkdown(title) + "*\n\n" + body
	}

	parts := chunk(text, maxMessageLen)
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.sendMarkdown(part); err != nil {
			log.Debug().Err(err).Int("part", i+1).Msg("Markdown rejected, sending plain text")
			if err := t.sendText(part); err != nil {
				return fmt.Errorf("telegram send part %d/%d: %w", i+1, len(parts), err)
			}
		}
	}
	log.Info().Int64("chat", t.chatID).Int("parts", len(parts)).Msg("📤 Report pushed to Telegram")
	return nil
}

func (t *Telegram) sendText(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) sendMarkdown(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	_, err := t.api.Send(msg)
	return err
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}

// chunk splits text into pieces of at most limit runes, preferring line
// breaks. Lines longer than limit are cut hard.
func chunk(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			n -= limit
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return parts
}
