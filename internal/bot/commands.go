package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lecturas/internal/challenges"
	"lecturas/internal/models"
	"lecturas/internal/rewards"
)

// handleStart shows welcome message and available commands
func (b *Bot) handleStart(message *tgbotapi.Message) {
	s := b.session(message.From.ID)

	text := fmt.Sprintf(`¡Hola! Soy el bot de la Noche de Lectura 📚

Perfil activo: %s (edad %d)

Comandos:
/libro - Girar la ruleta y elegir libro
/perfil - Cambiar de lectora
/edad - Cambiar la edad (por ejemplo: /edad 6)
/diario - Últimas lecturas
/nivel - Nivel, racha y progreso
/logros - Logros desbloqueados
/reto - Reto de la semana`, s.Profile, s.Age)

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	b.sendMessage(msg)
}

// handleProfile shows the profile picker
func (b *Bot) handleProfile(message *tgbotapi.Message) {
	var buttons []tgbotapi.InlineKeyboardButton
	for _, p := range b.profiles {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(p, "perfil:"+p))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "¿Quién eres?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	b.sendMessage(msg)
}

// handleAge updates the session's age filter
func (b *Bot) handleAge(message *tgbotapi.Message) {
	s := b.session(message.From.ID)

	arg := strings.TrimSpace(message.CommandArguments())
	age, err := strconv.Atoi(arg)
	if err != nil || age < 1 || age > 12 {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Dime una edad entre 1 y 12, por ejemplo: /edad 6")
		b.sendMessage(msg)
		return
	}

	s.Age = age
	msg := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("👧 Edad guardada: %d años", age))
	b.sendMessage(msg)
}

// handleSpinStart shows the mode keyboard for a roulette spin
func (b *Bot) handleSpinStart(message *tgbotapi.Message) {
	s := b.session(message.From.ID)

	msg := tgbotapi.NewMessage(message.Chat.ID,
		fmt.Sprintf("🎡 ¡A girar la ruleta, %s! ¿Qué te apetece?", s.Profile))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎡 Sorpresa", "modo:sorpresa"),
			tgbotapi.NewInlineKeyboardButtonData("🌙 Cortito", "modo:cortito"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Favoritos", "modo:favoritos"),
			tgbotapi.NewInlineKeyboardButtonData("🆕 Nuevos", "modo:nuevos"),
		),
	)
	b.sendMessage(msg)
}

// handleDiary shows the profile's last 10 reads, newest first
func (b *Bot) handleDiary(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(message.From.ID)

	history, err := b.profileHistory(ctx, s.Profile)
	if err != nil {
		b.sendError(message.Chat.ID, err)
		return
	}
	if len(history) == 0 {
		msg := tgbotapi.NewMessage(message.Chat.ID, "¡Aún no hay lecturas! Gira la ruleta con /libro 🎡")
		b.sendMessage(msg)
		return
	}

	sort.Slice(history, func(i, j int) bool { return history[j].LastRead.Before(history[i].LastRead) })
	if len(history) > 10 {
		history = history[:10]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 Diario de %s:\n\n", s.Profile)
	for _, h := range history {
		fav := ""
		if h.Favorite {
			fav = " ⭐"
		}
		fmt.Fprintf(&sb, "• %s%s\n  📅 %s · ⏱️ %d min · 🔄 %dx\n",
			h.Title, fav, h.LastRead.Format("02 Jan 2006"), h.DurationMin, h.TimesRead)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, sb.String())
	b.sendMessage(msg)
}

// handleLevel shows streak, level, and next-level progress
func (b *Bot) handleLevel(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(message.From.ID)

	history, err := b.profileHistory(ctx, s.Profile)
	if err != nil {
		b.sendError(message.Chat.ID, err)
		return
	}

	now := time.Now()
	total := rewards.TotalReads(history)
	level := rewards.LevelFor(total)
	streak := rewards.Streak(history, now)
	minutes := rewards.TotalMinutes(history)

	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 %s\n\n%s Nivel %d: %s\n🔥 Racha: %d días\n📚 Lecturas: %d\n⏱️ Minutos: %d\n",
		s.Profile, level.Icon, level.Number, level.Name, streak, total, minutes)

	if next, ok := rewards.NextLevel(total); ok {
		fmt.Fprintf(&sb, "\n📚 %d/%d lecturas para %s %s", total, next.MinReads, next.Icon, next.Name)
	} else {
		sb.WriteString("\n🎉 ¡Has alcanzado el nivel máximo!")
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, sb.String())
	b.sendMessage(msg)
}

// handleAchievements shows unlocked and locked achievements
func (b *Bot) handleAchievements(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(message.From.ID)

	history, err := b.profileHistory(ctx, s.Profile)
	if err != nil {
		b.sendError(message.Chat.ID, err)
		return
	}

	unlocked := make(map[string]bool)
	for _, id := range rewards.Unlocked(history, time.Now()) {
		unlocked[id] = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 Logros de %s:\n\n", s.Profile)
	for _, a := range models.Achievements {
		if unlocked[a.ID] {
			fmt.Fprintf(&sb, "%s %s — %s\n", a.Icon, a.Name, a.Desc)
		} else {
			fmt.Fprintf(&sb, "🔒 ??? — %s\n", a.Desc)
		}
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, sb.String())
	b.sendMessage(msg)
}

// handleChallenge shows the weekly challenge with progress
func (b *Bot) handleChallenge(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(message.From.ID)
	now := time.Now()

	assignment, err := b.challenges.GetOrAssign(ctx, s.Profile, now)
	if err != nil {
		b.sendError(message.Chat.ID, err)
		return
	}
	def, ok := models.ChallengeByID(assignment.ChallengeID)
	if !ok {
		b.sendError(message.Chat.ID, fmt.Errorf("unknown challenge %s", assignment.ChallengeID))
		return
	}

	history, err := b.profileHistory(ctx, s.Profile)
	if err != nil {
		b.sendError(message.Chat.ID, err)
		return
	}

	progress := challenges.Progress(history, assignment)
	daysLeft := remainingDays(assignment.WeekStart, now)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎯 RETO DE LA SEMANA")
	if assignment.Completed {
		sb.WriteString(" ✅ ¡COMPLETADO!")
	} else {
		fmt.Fprintf(&sb, " • quedan %d días", daysLeft)
	}
	fmt.Fprintf(&sb, "\n\n%s\n%s\n\n%s %d/%d\n", def.Name, def.Desc, progressBar(progress, def.Goal), progress, def.Goal)
	if assignment.Completed {
		fmt.Fprintf(&sb, "\n🎁 ¡Ganaste: %s!", def.Reward)
	} else {
		fmt.Fprintf(&sb, "\n🎁 Premio: %s", def.Reward)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, sb.String())
	b.sendMessage(msg)
}
