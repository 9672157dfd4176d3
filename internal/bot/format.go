package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tripfriend_bot/internal/calendar"
)

// replyKeyboard builds a resized reply keyboard from rows of labels.
func replyKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	buttons := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			line = append(line, tgbotapi.NewKeyboardButton(label))
		}
		buttons = append(buttons, tgbotapi.NewKeyboardButtonRow(line...))
	}
	return tgbotapi.NewReplyKeyboard(buttons...)
}

// calendarMarkup renders the picker's month grid as an inline keyboard.
func calendarMarkup(p calendar.Picker) tgbotapi.InlineKeyboardMarkup {
	grid := p.Grid()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(grid))
	for _, line := range grid {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(line))
		for _, btn := range line {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
