package bot

import (
	"math/rand"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lecturas/internal/challenges"
	"lecturas/internal/storage"
)

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          *tgbotapi.BotAPI
	store        storage.Store
	challenges   *challenges.Engine
	profiles     []string
	allowedUsers map[int64]bool
	sessions     map[int64]*Session
	rng          *rand.Rand
	logger       *zap.Logger
}

// Session tracks one user's UI state between messages: which profile
// they act as, the age filter, and the last drawn book awaiting a
// "we read it" / "favorite" decision. This state belongs to the
// presentation layer; the core packages never see it.
type Session struct {
	Profile       string
	Age           int
	PendingBookID int
	PendingTitle  string
}
