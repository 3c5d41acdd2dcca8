// Package bot connects the pipeline to the Telegram group: a long-poll loop
// feeds incoming messages to a bounded worker pool, and a notifier posts
// web-submitted reports back into the group.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MessageHandler processes one chat message. receivedAt is the message time,
// minute-truncated UTC, which is all the precision a report needs.
type MessageHandler func(ctx context.Context, receivedAt time.Time, text string)

// Bot runs the long-poll loop against the Telegram API.
type Bot struct {
	api        *tgbotapi.BotAPI
	miniAppURL string
	poolSize   int
	handler    MessageHandler
}

// New authenticates against the Telegram API. poolSize bounds how many
// messages are processed concurrently.
func New(token, miniAppURL string, poolSize int, handler MessageHandler) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("telegram bot authorized")
	return &Bot{
		api:        api,
		miniAppURL: miniAppURL,
		poolSize:   poolSize,
		handler:    handler,
	}, nil
}

// Run polls for updates until the context is canceled. Messages are handed
// to the worker pool; workers never block each other and a slow catalog call
// only delays its own message.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(b.poolSize)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return group.Wait()
		case update, ok := <-updates:
			if !ok {
				return group.Wait()
			}
			message := update.Message
			if message == nil {
				continue
			}
			if message.IsCommand() {
				b.handleCommand(message)
				continue
			}

			// Photos of inspectors usually carry the report in the caption.
			text := message.Text
			if text == "" {
				text = message.Caption
			}
			if text == "" {
				continue
			}

			receivedAt := time.Unix(int64(message.Date), 0).UTC().Truncate(time.Minute)
			group.Go(func() error {
				b.handler(ctx, receivedAt, text)
				return nil
			})
		}
	}
}

// API exposes the underlying client, which the notifier sends through.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	if message.Command() != "start" {
		return
	}
	reply := tgbotapi.NewMessage(message.Chat.ID, "Melde Kontrollen direkt über die FreiFahren App:")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("FreiFahren öffnen", b.miniAppURL),
		),
	)
	if _, err := b.api.Send(reply); err != nil {
		log.Error().Err(err).Int64("chat", message.Chat.ID).Msg("failed to send start reply")
	}
}
