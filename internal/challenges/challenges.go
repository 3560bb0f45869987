// Package challenges manages the weekly reading challenge: one
// challenge definition assigned per profile per calendar week, with
// progress computed over that week's reads.
package challenges

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"lecturas/internal/models"
	"lecturas/internal/storage"
)

// WeekStart returns Monday 00:00:00 (local time) of now's week
func WeekStart(now time.Time) time.Time {
	// time.Weekday has Sunday=0; the week here starts on Monday
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
}

// Engine assigns and evaluates weekly challenges. Assignments are
// persisted through the store so they survive restarts; randomness is
// injected so tests can pin the draw.
type Engine struct {
	store  storage.Store
	rng    *rand.Rand
	logger *zap.Logger
}

// NewEngine creates a challenge engine backed by the given store
func NewEngine(store storage.Store, rng *rand.Rand, logger *zap.Logger) *Engine {
	return &Engine{store: store, rng: rng, logger: logger}
}

// GetOrAssign returns the profile's assignment for the current week,
// drawing a new random challenge if none is stored or the stored one
// belongs to a prior week. A superseded assignment is left in the
// store; the new row replaces it as "current".
func (e *Engine) GetOrAssign(ctx context.Context, profile string, now time.Time) (models.Assignment, error) {
	week := WeekStart(now)

	stored, ok, err := e.store.GetAssignment(ctx, profile)
	if err != nil {
		return models.Assignment{}, fmt.Errorf("failed to load challenge assignment: %w", err)
	}
	if ok && sameWeek(stored.WeekStart, week) {
		return stored, nil
	}

	def := models.Challenges[e.rng.Intn(len(models.Challenges))]
	a := models.Assignment{
		Profile:     profile,
		ChallengeID: def.ID,
		WeekStart:   week,
		Completed:   false,
	}
	if err := e.store.SaveAssignment(ctx, a); err != nil {
		return models.Assignment{}, fmt.Errorf("failed to save challenge assignment: %w", err)
	}

	e.logger.Info("Assigned weekly challenge",
		zap.String("profile", profile),
		zap.String("challenge_id", def.ID),
		zap.Time("week_start", week),
	)
	return a, nil
}

// sameWeek compares week keys by wall date. A store backend may hand
// back the Monday normalized to another zone (a date column has no
// zone); that must not read as a different week.
func sameWeek(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// Progress computes how far the profile is toward the assignment's
// goal, clipped to [0, goal]. Only history rows whose last read falls
// inside the assignment's week count.
//
// The favorites metric counts favorite books read this week, not
// favorites marked this week; marking an old book favorite does not
// move the needle until it is read again. This mirrors how the tracker
// has always behaved.
func Progress(history []models.HistoryRow, a models.Assignment) int {
	def, ok := models.ChallengeByID(a.ChallengeID)
	if !ok {
		return 0
	}

	var week []models.HistoryRow
	for _, h := range history {
		if !h.LastRead.IsZero() && !h.LastRead.Before(a.WeekStart) {
			week = append(week, h)
		}
	}

	progress := 0
	switch def.Metric {
	case models.MetricDistinctDays:
		days := make(map[string]bool)
		for _, h := range week {
			days[h.LastRead.Format("2006-01-02")] = true
		}
		progress = len(days)
	case models.MetricTotalMinutes:
		for _, h := range week {
			progress += h.DurationMin
		}
	case models.MetricFirstReads:
		for _, h := range week {
			if h.TimesRead == 1 {
				progress++
			}
		}
	case models.MetricFavorites:
		for _, h := range week {
			if h.Favorite {
				progress++
			}
		}
	case models.MetricReadEvents:
		progress = len(week)
	}

	if progress > def.Goal {
		progress = def.Goal
	}
	return progress
}

// CheckCompletion re-evaluates the profile's current assignment and
// reports whether it just completed. The completion signal fires
// exactly once per week: the flag is persisted, and later qualifying
// calls return false.
func (e *Engine) CheckCompletion(ctx context.Context, history []models.HistoryRow, profile string, now time.Time) (bool, models.Assignment, error) {
	a, err := e.GetOrAssign(ctx, profile, now)
	if err != nil {
		return false, models.Assignment{}, err
	}

	def, ok := models.ChallengeByID(a.ChallengeID)
	if !ok {
		return false, a, fmt.Errorf("unknown challenge ID %q in stored assignment", a.ChallengeID)
	}

	if a.Completed || Progress(history, a) < def.Goal {
		return false, a, nil
	}

	a.Completed = true
	if err := e.store.SaveAssignment(ctx, a); err != nil {
		return false, a, fmt.Errorf("failed to persist challenge completion: %w", err)
	}

	e.logger.Info("Weekly challenge completed",
		zap.String("profile", profile),
		zap.String("challenge_id", a.ChallengeID),
	)
	return true, a, nil
}
