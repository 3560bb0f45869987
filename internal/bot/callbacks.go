package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lecturas/internal/models"
	"lecturas/internal/picker"
	"lecturas/internal/rewards"
)

// handleProfileCallback switches the session's active profile
func (b *Bot) handleProfileCallback(query *tgbotapi.CallbackQuery) {
	profile := strings.TrimPrefix(query.Data, "perfil:")

	valid := false
	for _, p := range b.profiles {
		if p == profile {
			valid = true
			break
		}
	}
	if !valid {
		return
	}

	s := b.session(query.From.ID)
	s.Profile = profile
	s.PendingBookID = 0

	msg := tgbotapi.NewMessage(query.Message.Chat.ID, fmt.Sprintf("¡Hola, %s! 👋 Gira la ruleta con /libro", profile))
	b.sendMessage(msg)
}

// handleModeCallback runs the roulette for the chosen mode and shows
// the drawn book with read/favorite buttons
func (b *Bot) handleModeCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	s := b.session(query.From.ID)
	chatID := query.Message.Chat.ID

	opts := picker.DefaultOptions()
	switch strings.TrimPrefix(query.Data, "modo:") {
	case "cortito":
		opts.MaxDuration = 7
		opts.Mode = picker.ModeShort
	case "favoritos":
		opts.Mode = picker.ModeOnlyFavorites
	case "nuevos":
		opts.Mode = picker.ModeOnlyNew
	case "sorpresa":
		// defaults
	default:
		return
	}

	books, err := b.store.ReadCatalog(ctx)
	if err != nil {
		b.logger.Error("Failed to read catalog for spin",
			zap.Error(err),
			zap.String("profile", s.Profile),
		)
		b.sendError(chatID, err)
		return
	}

	book, err := picker.Pick(books, s.Profile, s.Age, opts, time.Now(), b.rng)
	if err != nil {
		var noCandidates *picker.NoCandidatesError
		if errors.As(err, &noCandidates) {
			msg := tgbotapi.NewMessage(chatID, noCandidates.Message())
			b.sendMessage(msg)
			return
		}
		b.sendError(chatID, err)
		return
	}

	s.PendingBookID = book.ID
	s.PendingTitle = book.Title

	text := fmt.Sprintf("📖 %s\n\n👧 Lectora: %s\n⏱️ %d minutos\n📍 %s",
		book.Title, s.Profile, book.DurationMin, book.Location)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ ¡Lo leímos!", fmt.Sprintf("leido:%d", book.ID)),
			tgbotapi.NewInlineKeyboardButtonData("⭐ ¡Es mi favorito!", fmt.Sprintf("fav:%d", book.ID)),
		),
	)
	b.sendMessage(msg)
}

// handleReadCallback records a read and announces any newly unlocked
// achievement and challenge completion
func (b *Bot) handleReadCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	s := b.session(query.From.ID)
	chatID := query.Message.Chat.ID

	bookID, err := strconv.Atoi(strings.TrimPrefix(query.Data, "leido:"))
	if err != nil {
		return
	}

	now := time.Now()

	// Snapshot the history before the write so new unlocks can be
	// detected afterwards
	before, err := b.profileHistory(ctx, s.Profile)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	if err := b.store.MarkRead(ctx, bookID, s.Profile, now); err != nil {
		b.logger.Error("Failed to mark book as read",
			zap.Error(err),
			zap.Int("book_id", bookID),
			zap.String("profile", s.Profile),
		)
		b.sendError(chatID, err)
		return
	}

	// Re-read: the snapshot is stale after any write
	after, err := b.profileHistory(ctx, s.Profile)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	s.PendingBookID = 0
	msg := tgbotapi.NewMessage(chatID, "✅ ¡Lectura guardada! 🎉")
	b.sendMessage(msg)

	if id, ok := rewards.NewlyUnlocked(before, after, now); ok {
		if a, found := models.AchievementByID(id); found {
			congrats := tgbotapi.NewMessage(chatID,
				fmt.Sprintf("🎊 ¡Desbloqueaste: %s %s!\n%s", a.Icon, a.Name, a.Desc))
			b.sendMessage(congrats)
		}
	}

	done, assignment, err := b.challenges.CheckCompletion(ctx, after, s.Profile, now)
	if err != nil {
		b.logger.Error("Failed to check challenge completion",
			zap.Error(err),
			zap.String("profile", s.Profile),
		)
		return
	}
	if done {
		if def, found := models.ChallengeByID(assignment.ChallengeID); found {
			congrats := tgbotapi.NewMessage(chatID,
				fmt.Sprintf("🎯 ¡Reto completado: %s!\n🎁 Ganaste: %s", def.Name, def.Reward))
			b.sendMessage(congrats)
		}
	}
}

// handleFavoriteCallback marks the pending book as a favorite
func (b *Bot) handleFavoriteCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	s := b.session(query.From.ID)
	chatID := query.Message.Chat.ID

	bookID, err := strconv.Atoi(strings.TrimPrefix(query.Data, "fav:"))
	if err != nil {
		return
	}

	if err := b.store.MarkFavorite(ctx, bookID, s.Profile); err != nil {
		b.logger.Error("Failed to mark favorite",
			zap.Error(err),
			zap.Int("book_id", bookID),
			zap.String("profile", s.Profile),
		)
		b.sendError(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, "⭐ ¡Favorito guardado!")
	b.sendMessage(msg)
}
