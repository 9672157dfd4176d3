package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	unknownCommandText = "Неизвестная команда. Используйте /help, чтобы узнать, что я умею."
	textOnlyText       = "Я понимаю только текстовые сообщения. Введите название города или выберите вариант на клавиатуре."
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.reply(chatID, textOnlyText)
		return
	}

	b.log.Debug("message", "chat_id", chatID, "text", text)
	b.logResult(chatID, "text", b.conv.HandleText(ctx, chatID, text))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	chatID := msg.Chat.ID

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	b.log.Debug("command", "cmd", cmd, "chat_id", chatID, "user_id", userID)

	switch cmd {
	case "start":
		b.logResult(chatID, cmd, b.conv.Start(ctx, chatID))
	case "help":
		b.logResult(chatID, cmd, b.conv.Help(ctx, chatID))
	default:
		b.reply(chatID, unknownCommandText)
	}
}
