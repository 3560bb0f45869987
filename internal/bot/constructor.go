package bot

import (
	"fmt"
	"math/rand"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lecturas/internal/challenges"
	"lecturas/internal/storage"
)

// NewBot creates a new Telegram bot
func NewBot(token string, store storage.Store, engine *challenges.Engine, profiles []string, allowedUserIDs []int64, rng *rand.Rand, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	allowedUsers := make(map[int64]bool)
	for _, id := range allowedUserIDs {
		allowedUsers[id] = true
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return &Bot{
		api:          api,
		store:        store,
		challenges:   engine,
		profiles:     profiles,
		allowedUsers: allowedUsers,
		sessions:     make(map[int64]*Session),
		rng:          rng,
		logger:       logger,
	}, nil
}

// GetAPI returns the bot API for testing
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}

// session returns the user's session, creating one with defaults on
// first contact
func (b *Bot) session(userID int64) *Session {
	s, ok := b.sessions[userID]
	if !ok {
		s = &Session{Profile: b.profiles[0], Age: 5}
		b.sessions[userID] = s
	}
	return s
}
