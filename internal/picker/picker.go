package picker

import (
	"fmt"
	"math/rand"
	"time"

	"lecturas/internal/models"
)

// NoRepeatDays is the cooldown window: in the default mode a book read
// within this many days is not offered again.
const NoRepeatDays = 5

// Mode narrows which books are eligible. Exactly one mode applies per
// pick; OnlyFavorites and OnlyNew replace the default cooldown filter.
type Mode string

const (
	ModeDefault       Mode = "default"
	ModeOnlyFavorites Mode = "favoritos"
	ModeOnlyNew       Mode = "nuevos"
	// ModeShort is ModeDefault with a duration cap. Tracked separately
	// only so the empty-result message can say "no short books".
	ModeShort Mode = "cortito"
)

// Options constrains a pick
type Options struct {
	MaxDuration      int // minutes, 0 means unlimited
	AllowInteractive bool
	Mode             Mode
}

// DefaultOptions allows every book the base filter allows
func DefaultOptions() Options {
	return Options{AllowInteractive: true, Mode: ModeDefault}
}

// NoCandidatesError reports that filtering left no eligible books.
// It is a normal outcome, not a failure; the mode tells the caller
// which empty-state message to show.
type NoCandidatesError struct {
	Mode Mode
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("no eligible books (mode %s)", e.effectiveMode())
}

func (e *NoCandidatesError) effectiveMode() Mode {
	if e.Mode == "" {
		return ModeDefault
	}
	return e.Mode
}

// Message returns a child-friendly explanation for the empty result
func (e *NoCandidatesError) Message() string {
	switch e.effectiveMode() {
	case ModeOnlyFavorites:
		return "😢 No tienes favoritos aún. ¡Marca algunos libros con ⭐!"
	case ModeOnlyNew:
		return "🎉 ¡Ya leíste todos los libros! ¡Eres increíble!"
	case ModeShort:
		return "📚 No hay libros cortitos disponibles ahora."
	default:
		return "📖 No hay libros disponibles con estos filtros."
	}
}

// Pick selects one book for a profile using weighted random sampling.
//
// Filtering:
// 1. Only active books whose age range includes age.
// 2. Duration cap, if set.
// 3. Interactive books excluded unless allowed.
// 4. One of: favorites only, never-read only, or the default cooldown
//    (skip books the profile read within the last NoRepeatDays days;
//    never-read books always pass).
//
// Weighting starts at 1.0 per candidate and multiplies by 1.5 for
// favorites (outside favorites mode), 1.4 for never-read books (outside
// new-only mode), 1.2 for interactive books, and 1.1 for books read
// fewer than 3 times.
//
// Pick never mutates the snapshot; committing a "read" or "favorite"
// is the caller's job through the store.
func Pick(books []models.BookRecord, profile string, age int, opts Options, now time.Time, rng *rand.Rand) (models.BookRecord, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeDefault
	}

	cooldownCutoff := now.Add(-NoRepeatDays * 24 * time.Hour)

	var candidates []models.BookRecord
	for _, b := range books {
		if !b.Active || b.AgeMin > age || b.AgeMax < age {
			continue
		}
		if opts.MaxDuration > 0 && b.DurationMin > opts.MaxDuration {
			continue
		}
		if !opts.AllowInteractive && b.Interactive {
			continue
		}

		rs := b.State(profile)
		switch mode {
		case ModeOnlyFavorites:
			if !rs.Favorite {
				continue
			}
		case ModeOnlyNew:
			if rs.TimesRead != 0 {
				continue
			}
		default:
			// cooldown: recently read books sit out for a few days
			if !rs.LastRead.IsZero() && !rs.LastRead.Before(cooldownCutoff) {
				continue
			}
		}

		candidates = append(candidates, b)
	}

	if len(candidates) == 0 {
		return models.BookRecord{}, &NoCandidatesError{Mode: mode}
	}

	weights := make([]float64, len(candidates))
	var total float64
	for i, b := range candidates {
		w := weight(b, b.State(profile), mode)
		weights[i] = w
		total += w
	}

	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return candidates[i], nil
		}
	}
	// Float64 rounding can leave r at exactly 0 after the last weight
	return candidates[len(candidates)-1], nil
}

func weight(b models.BookRecord, rs models.ReadState, mode Mode) float64 {
	w := 1.0
	if mode != ModeOnlyFavorites && rs.Favorite {
		w *= 1.5
	}
	if mode != ModeOnlyNew && rs.TimesRead == 0 {
		w *= 1.4
	}
	if b.Interactive {
		w *= 1.2
	}
	if rs.TimesRead > 0 && rs.TimesRead < 3 {
		w *= 1.1
	}
	return w
}
