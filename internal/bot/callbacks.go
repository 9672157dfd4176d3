package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tripfriend_bot/internal/calendar"
)

const (
	staleCalendarText  = "Этот календарь уже неактуален."
	dateOutOfRangeText = "Эту дату выбрать нельзя."
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		b.ack(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	action, err := calendar.ParseCallback(cb.Data)
	if err != nil {
		b.log.Debug("ignore callback", "chat_id", chatID, "data", cb.Data, "error", err)
		b.ack(cb, "", false)
		return
	}

	var userID int64
	if cb.From != nil {
		userID = cb.From.ID
	}
	b.log.Debug("callback", "chat_id", chatID, "user_id", userID, "data", cb.Data)

	switch action.Kind {
	case calendar.KindIgnore:
		b.ack(cb, "", false)

	case calendar.KindCancel:
		b.ack(cb, "", false)
		b.clearMarkup(chatID, messageID)
		b.logResult(chatID, "cancel", b.conv.HandleCancel(ctx, chatID))

	case calendar.KindMonth:
		picker, ok := b.conv.Picker(ctx, chatID)
		if !ok {
			b.ack(cb, staleCalendarText, true)
			b.clearMarkup(chatID, messageID)
			return
		}
		b.ack(cb, "", false)
		picker = picker.WithMonth(action.Date.Year(), action.Date.Month())
		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, calendarMarkup(picker))
		if _, err := b.api.Request(edit); err != nil {
			b.log.Error("switch calendar month", "chat_id", chatID, "error", err)
		}

	case calendar.KindDay:
		picker, ok := b.conv.Picker(ctx, chatID)
		if !ok {
			b.ack(cb, staleCalendarText, true)
			b.clearMarkup(chatID, messageID)
			return
		}
		if !picker.Contains(action.Date) {
			b.ack(cb, dateOutOfRangeText, true)
			return
		}
		b.ack(cb, "", false)
		b.clearMarkup(chatID, messageID)
		b.logResult(chatID, "date", b.conv.HandleDate(ctx, chatID, action.Date))
	}
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string, alert bool) {
	callback := tgbotapi.NewCallback(cb.ID, text)
	if alert {
		callback = tgbotapi.NewCallbackWithAlert(cb.ID, text)
	}
	if _, err := b.api.Request(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
}

// clearMarkup removes the inline keyboard from a message.
func (b *Bot) clearMarkup(chatID int64, messageID int) {
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty)
	if _, err := b.api.Request(edit); err != nil {
		b.log.Warn("clear inline keyboard", "chat_id", chatID, "error", err)
	}
}
