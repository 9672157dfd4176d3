package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tripfriend_bot/internal/calendar"
)

// SendMessage sends a plain text message, logging failures.
func (b *Bot) SendMessage(chatID int64, text string) {
	if err := b.SendText(chatID, text); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

// SendText sends a plain text message.
func (b *Bot) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendKeyboard sends text with a reply keyboard.
func (b *Bot) SendKeyboard(chatID int64, text string, rows [][]string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = replyKeyboard(rows)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send keyboard: %w", err)
	}
	return nil
}

// SendDatePicker sends text with an inline calendar.
func (b *Bot) SendDatePicker(chatID int64, text string, picker calendar.Picker) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = calendarMarkup(picker)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send date picker: %w", err)
	}
	return nil
}

// SendExcursion sends an HTML caption as a photo. Without an image, or when
// Telegram rejects the photo, the caption is sent as a text message.
func (b *Bot) SendExcursion(chatID int64, imageURL, caption string) error {
	if imageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(imageURL))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		_, err := b.api.Send(photo)
		if err == nil {
			return nil
		}
		b.log.Warn("send photo, falling back to text", "chat_id", chatID, "image", imageURL, "error", err)
	}

	msg := tgbotapi.NewMessage(chatID, caption)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send excursion: %w", err)
	}
	return nil
}
