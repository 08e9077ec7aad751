package telegram

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"code.sztanpet.net/zvpsz/async-buzzer/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"golang.org/x/time/rate"
)

// MaxSendDurr configures the limiter to send at most 1 message per MaxSendDurr
var MaxSendDurr = 500 * time.Millisecond

const maxMessageSize = 4096

type Bot struct {
	ctx       context.Context
	channelID int64
	api       *tgbotapi.BotAPI
	limiter   *rate.Limiter
}

func New(ctx context.Context, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}

	t := &Bot{
		ctx:       ctx,
		channelID: cfg.TelegramChannelID,
		api:       api,
		// limit message spam to once every MaxSendDurr
		limiter: rate.NewLimiter(rate.Every(MaxSendDurr), 1),
	}
	return t, nil
}

// Send sends a message to the channel, optionally sending notifications
// depending on disableNotification. Messages over the telegram size limit
// are truncated, the log file keeps the full line anyway.
func (t *Bot) Send(txt string, disableNotification bool) error {
	if err := t.limiter.Wait(t.ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.channelID, truncate(txt))
	msg.DisableNotification = disableNotification
	_, err := t.api.Send(msg)
	return err
}

// truncate trims txt to the telegram message size limit, backing up to a
// rune boundary so the cut never leaves a partial utf-8 sequence behind.
func truncate(txt string) string {
	if len(txt) <= maxMessageSize {
		return txt
	}

	cut := maxMessageSize - 3
	for cut > 0 && !utf8.RuneStart(txt[cut]) {
		cut--
	}
	return txt[:cut] + "..."
}

// HandleUpdates receives bot events and calls callback with every message
// text. Old events are replayed unless onlyNewUpdates is set.
func (t *Bot) HandleUpdates(callback func(msg string), onlyNewUpdates bool) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return err
	}
	if onlyNewUpdates {
		updates.Clear()
	}

	for {
		select {
		case <-t.ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}

			if u.Message != nil {
				callback(u.Message.Text)
			}
			if u.EditedMessage != nil {
				callback(u.EditedMessage.Text)
			}
			if u.ChannelPost != nil {
				callback(u.ChannelPost.Text)
			}
			if u.EditedChannelPost != nil {
				callback(u.EditedChannelPost.Text)
			}
		}
	}
}

// SelfMessage differentiates between messages sent to the bot
func (t *Bot) SelfMessage(txt string) bool {
	return strings.Contains(txt, "@"+t.api.Self.UserName)
}
