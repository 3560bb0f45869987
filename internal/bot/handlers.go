package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			msg := tgbotapi.NewMessage(message.Chat.ID, "Algo salió mal. Inténtalo otra vez.")
			b.sendMessage(msg)
		}
	}()

	if !message.IsCommand() {
		return
	}

	ctx := context.Background()

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "perfil":
		b.handleProfile(message)
	case "edad":
		b.handleAge(message)
	case "libro":
		b.handleSpinStart(message)
	case "diario":
		b.handleDiary(ctx, message)
	case "nivel":
		b.handleLevel(ctx, message)
	case "logros":
		b.handleAchievements(ctx, message)
	case "reto":
		b.handleChallenge(ctx, message)
	default:
		msg := tgbotapi.NewMessage(message.Chat.ID, "No conozco ese comando. Usa /start para ver la lista.")
		b.sendMessage(msg)
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	ctx := context.Background()

	// Answer the callback query to remove loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	if b.api != nil {
		b.api.Request(callback)
	}

	data := query.Data
	switch {
	case strings.HasPrefix(data, "perfil:"):
		b.handleProfileCallback(query)
	case strings.HasPrefix(data, "modo:"):
		b.handleModeCallback(ctx, query)
	case strings.HasPrefix(data, "leido:"):
		b.handleReadCallback(ctx, query)
	case strings.HasPrefix(data, "fav:"):
		b.handleFavoriteCallback(ctx, query)
	}
}
