package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lecturas/internal/models"
)

// sendMessage sends a message, logging failures
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.api == nil {
		return // For testing
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", msg.ChatID),
		)
	}
}

// sendError tells the user something went wrong without leaking detail
func (b *Bot) sendError(chatID int64, err error) {
	b.logger.Error("Handler error", zap.Error(err))
	msg := tgbotapi.NewMessage(chatID, "Algo salió mal. Inténtalo otra vez.")
	b.sendMessage(msg)
}

// profileHistory loads a fresh catalog snapshot and projects it into
// the profile's reading history
func (b *Bot) profileHistory(ctx context.Context, profile string) ([]models.HistoryRow, error) {
	books, err := b.store.ReadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return models.HistoryFor(books, profile), nil
}

// remainingDays counts the days left in the assignment's week,
// including today
func remainingDays(weekStart time.Time, now time.Time) int {
	weekEnd := weekStart.AddDate(0, 0, 6)
	days := int(weekEnd.Sub(midnight(now)).Hours()/24) + 1
	if days < 0 {
		return 0
	}
	return days
}

// progressBar renders a ten-segment text progress bar
func progressBar(progress, goal int) string {
	if goal <= 0 {
		return ""
	}
	filled := progress * 10 / goal
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("🟩", filled) + strings.Repeat("⬜", 10-filled)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
