// Package bot connects the booking conversation to the Telegram Bot API.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tripfriend_bot/internal/calendar"
	"tripfriend_bot/internal/conversation"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Conversation is the dialog logic driven by incoming updates.
type Conversation interface {
	Start(ctx context.Context, chatID int64) error
	Help(ctx context.Context, chatID int64) error
	HandleText(ctx context.Context, chatID int64, text string) error
	HandleDate(ctx context.Context, chatID int64, date time.Time) error
	HandleCancel(ctx context.Context, chatID int64) error
	Picker(ctx context.Context, chatID int64) (calendar.Picker, bool)
}

const chatQueueSize = 32

const busyText = "Подождите, я ещё обрабатываю предыдущие сообщения."

// Bot receives Telegram updates and delivers conversation output.
type Bot struct {
	api      telegramAPI
	conv     Conversation
	dispatch *dispatcher
	log      *slog.Logger
}

// New creates a Bot with the given Telegram token.
func New(token string, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("authorized", "username", api.Self.UserName)

	return &Bot{
		api:      api,
		dispatch: newDispatcher(chatQueueSize),
		log:      log,
	}, nil
}

// Run starts the long-polling loop, blocking until ctx is cancelled or the
// updates channel closes, and the chat workers have stopped. Updates of one
// chat are handled in order; different chats are handled concurrently. An
// update for a chat with a full queue is answered with a busy notice.
func (b *Bot) Run(ctx context.Context, conv Conversation) {
	b.conv = conv

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.dispatch.wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.dispatch.wait()
				return
			}
			chatID, ok := updateChatID(update)
			if !ok {
				continue
			}
			accepted := b.dispatch.submit(ctx, chatID, func(ctx context.Context) {
				b.handleUpdate(ctx, update)
			})
			if !accepted {
				b.rejectBusy(chatID, update)
			}
		}
	}
}

func updateChatID(u tgbotapi.Update) (int64, bool) {
	switch {
	case u.Message != nil && u.Message.Chat != nil:
		return u.Message.Chat.ID, true
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil && u.CallbackQuery.Message.Chat != nil:
		return u.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

func (b *Bot) rejectBusy(chatID int64, u tgbotapi.Update) {
	b.log.Warn("chat queue full, dropping update", "chat_id", chatID, "update_id", u.UpdateID)
	if u.CallbackQuery != nil {
		b.ack(u.CallbackQuery, busyText, false)
		return
	}
	b.SendMessage(chatID, busyText)
}

func (b *Bot) handleUpdate(ctx context.Context, u tgbotapi.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	}
}

// logResult logs the outcome of a conversation call. Invalid input is
// expected and only logged at debug level.
func (b *Bot) logResult(chatID int64, op string, err error) {
	if err == nil {
		return
	}
	var ve *conversation.ValidationError
	if errors.As(err, &ve) {
		b.log.Debug("invalid input", "chat_id", chatID, "op", op, "state", ve.State, "input", ve.Input)
		return
	}
	b.log.Error("handle update", "chat_id", chatID, "op", op, "error", err)
}
