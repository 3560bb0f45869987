// Package rewards derives streaks, reader levels, and achievement
// unlocks from a profile's reading history. Every function is pure:
// history and the current time come in as arguments, so date-boundary
// behavior is fully testable.
package rewards

import (
	"sort"
	"time"

	"lecturas/internal/models"
)

// Streak returns the number of consecutive calendar days (local time,
// ending today or yesterday) on which the profile read something.
//
// A history whose most recent read date is before yesterday scores 0:
// the streak is broken by absence. Counting walks backward from the
// most recent date and stops at the first gap.
func Streak(history []models.HistoryRow, now time.Time) int {
	dates := distinctDates(history)
	if len(dates) == 0 {
		return 0
	}

	// newest first
	sort.Slice(dates, func(i, j int) bool { return dates[j].Before(dates[i]) })

	yesterday := midnight(now).AddDate(0, 0, -1)
	if dates[0].Before(yesterday) {
		return 0
	}

	streak := 1
	for i := 0; i < len(dates)-1; i++ {
		if dates[i].AddDate(0, 0, -1).Equal(dates[i+1]) {
			streak++
		} else {
			break
		}
	}
	return streak
}

// TotalReads sums times-read across the history
func TotalReads(history []models.HistoryRow) int {
	total := 0
	for _, h := range history {
		total += h.TimesRead
	}
	return total
}

// TotalMinutes sums the duration of every book in the history
func TotalMinutes(history []models.HistoryRow) int {
	total := 0
	for _, h := range history {
		total += h.DurationMin
	}
	return total
}

// LevelFor returns the highest level whose threshold the total
// times-read sum has reached
func LevelFor(totalReads int) models.Level {
	level := models.Levels[0]
	for _, l := range models.Levels {
		if totalReads >= l.MinReads {
			level = l
		}
	}
	return level
}

// NextLevel returns the first level above the total, or false at max
func NextLevel(totalReads int) (models.Level, bool) {
	for _, l := range models.Levels {
		if l.MinReads > totalReads {
			return l, true
		}
	}
	return models.Level{}, false
}

// Unlocked evaluates every achievement predicate over the history and
// returns the unlocked IDs in catalog order.
//
// Time-of-day achievements only see each book's latest read timestamp;
// the model keeps no full read-event log, so an earlier qualifying
// read that was since overwritten does not count.
func Unlocked(history []models.HistoryRow, now time.Time) []string {
	if len(history) == 0 {
		return nil
	}

	totalReads := TotalReads(history)
	distinctBooks := len(history)
	streak := Streak(history, now)

	favorites := 0
	longBook := false
	night := false
	early := false
	for _, h := range history {
		if h.Favorite {
			favorites++
		}
		if h.DurationMin > 15 {
			longBook = true
		}
		if !h.LastRead.IsZero() {
			hour := h.LastRead.Hour()
			if hour >= 20 {
				night = true
			}
			if hour < 9 {
				early = true
			}
		}
	}

	met := map[string]bool{
		"primera_lectura": totalReads >= 1,
		"racha_3":         streak >= 3,
		"racha_7":         streak >= 7,
		"explorador_5":    distinctBooks >= 5,
		"explorador_20":   distinctBooks >= 20,
		"favoritos_3":     favorites >= 3,
		"libro_largo":     longBook,
		"nocturna":        night,
		"madrugadora":     early,
	}

	var unlocked []string
	for _, a := range models.Achievements {
		if met[a.ID] {
			unlocked = append(unlocked, a.ID)
		}
	}
	return unlocked
}

// NewlyUnlocked compares achievement sets before and after an action
// and returns one freshly unlocked ID. When several unlock at once the
// first in catalog order wins; the caller surfaces a single
// celebration per action.
func NewlyUnlocked(before, after []models.HistoryRow, now time.Time) (string, bool) {
	had := make(map[string]bool)
	for _, id := range Unlocked(before, now) {
		had[id] = true
	}
	for _, id := range Unlocked(after, now) {
		if !had[id] {
			return id, true
		}
	}
	return "", false
}

func distinctDates(history []models.HistoryRow) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, h := range history {
		if h.LastRead.IsZero() {
			continue
		}
		d := midnight(h.LastRead)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	return dates
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
