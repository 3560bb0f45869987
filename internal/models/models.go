package models

import "time"

// BookRecord represents one book in the household catalog
type BookRecord struct {
	ID          int
	Title       string
	AgeMin      int
	AgeMax      int // inclusive
	DurationMin int
	Location    string
	Interactive bool
	Active      bool
	CoverURL    string

	// ReadStates holds each profile's view of this book, keyed by
	// profile name. How the backing store lays this out (suffixed
	// columns, separate rows) is a storage concern.
	ReadStates map[string]ReadState
}

// ReadState is one profile's read-state for one book
type ReadState struct {
	Favorite  bool
	TimesRead int
	LastRead  time.Time // zero value means never read
}

// State returns the read-state for a profile, zero-valued if absent
func (b BookRecord) State(profile string) ReadState {
	return b.ReadStates[profile]
}

// SetState stores a profile's read-state on the record
func (b *BookRecord) SetState(profile string, rs ReadState) {
	if b.ReadStates == nil {
		b.ReadStates = make(map[string]ReadState)
	}
	b.ReadStates[profile] = rs
}

// HistoryRow is one entry of a profile's reading history: the book
// joined with that profile's read-state
type HistoryRow struct {
	BookID      int
	Title       string
	DurationMin int
	Favorite    bool
	TimesRead   int
	LastRead    time.Time
}

// HistoryFor projects a catalog snapshot into one profile's reading
// history. Only books the profile has actually read are included.
func HistoryFor(books []BookRecord, profile string) []HistoryRow {
	var history []HistoryRow
	for _, b := range books {
		rs := b.State(profile)
		if rs.TimesRead <= 0 {
			continue
		}
		history = append(history, HistoryRow{
			BookID:      b.ID,
			Title:       b.Title,
			DurationMin: b.DurationMin,
			Favorite:    rs.Favorite,
			TimesRead:   rs.TimesRead,
			LastRead:    rs.LastRead,
		})
	}
	return history
}

// Assignment is one profile's weekly challenge for one calendar week,
// identified by the Monday of that week
type Assignment struct {
	Profile     string
	ChallengeID string
	WeekStart   time.Time
	Completed   bool
}
