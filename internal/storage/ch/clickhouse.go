package ch

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lecturas/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseStore persists the catalog in ClickHouse. Read-states and
// assignments live in ReplacingMergeTree tables keyed per (book,
// profile) and (profile, week), so MarkRead/MarkFavorite are genuine
// field-granular writes: two devices updating different fields never
// clobber each other's rows.
type ClickHouseStore struct {
	conn clickhouse.Conn
}

// NewClickHouseStore creates a new ClickHouse connection
func NewClickHouseStore(host string, port int, database, user, password string, useTLS bool) (*ClickHouseStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseStore{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (s *ClickHouseStore) Initialize(ctx context.Context) error {
	// Tables are managed via migrations (see migrations/ directory)
	return nil
}

// ReadCatalog returns every book joined with all per-profile read-states
func (s *ClickHouseStore) ReadCatalog(ctx context.Context) ([]models.BookRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, titulo, edad_min, edad_max, duracion_min, ubicacion, interactivo, activa, portada
		FROM books FINAL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	defer rows.Close()

	var books []models.BookRecord
	index := make(map[int]int)
	for rows.Next() {
		var (
			b                            models.BookRecord
			id, ageMin, ageMax, duration int32
			interactive, active          bool
		)
		if err := rows.Scan(&id, &b.Title, &ageMin, &ageMax, &duration, &b.Location, &interactive, &active, &b.CoverURL); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		b.ID = int(id)
		b.AgeMin = int(ageMin)
		b.AgeMax = int(ageMax)
		b.DurationMin = int(duration)
		b.Interactive = interactive
		b.Active = active
		index[b.ID] = len(books)
		books = append(books, b)
	}

	stateRows, err := s.conn.Query(ctx, `
		SELECT book_id, perfil, favorito, veces, ultima
		FROM read_states FINAL`)
	if err != nil {
		return nil, fmt.Errorf("failed to read read-states: %w", err)
	}
	defer stateRows.Close()

	for stateRows.Next() {
		var (
			bookID   int32
			profile  string
			favorite bool
			times    int32
			last     time.Time
		)
		if err := stateRows.Scan(&bookID, &profile, &favorite, &times, &last); err != nil {
			return nil, fmt.Errorf("failed to scan read-state: %w", err)
		}
		i, ok := index[int(bookID)]
		if !ok {
			continue // state for a deleted book
		}
		rs := models.ReadState{Favorite: favorite, TimesRead: int(times)}
		// ClickHouse has no NULL here; the epoch zero means never read
		if last.Unix() > 0 {
			rs.LastRead = last.Local()
		}
		books[i].SetState(profile, rs)
	}

	return books, nil
}

// WriteCatalog replaces the book table with the given rows. Read-states
// travel with the records and are rewritten too.
func (s *ClickHouseStore) WriteCatalog(ctx context.Context, books []models.BookRecord) error {
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE books`); err != nil {
		return fmt.Errorf("failed to truncate books: %w", err)
	}

	for _, b := range books {
		err := s.conn.Exec(ctx, `
			INSERT INTO books (id, titulo, edad_min, edad_max, duracion_min, ubicacion, interactivo, activa, portada)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int32(b.ID), b.Title, int32(b.AgeMin), int32(b.AgeMax), int32(b.DurationMin),
			b.Location, b.Interactive, b.Active, b.CoverURL)
		if err != nil {
			return fmt.Errorf("failed to insert book %d: %w", b.ID, err)
		}
		for profile, rs := range b.ReadStates {
			if err := s.insertReadState(ctx, b.ID, profile, rs); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarkRead bumps times-read and the last-read timestamp for one
// (book, profile) pair
func (s *ClickHouseStore) MarkRead(ctx context.Context, bookID int, profile string, at time.Time) error {
	rs, err := s.readState(ctx, bookID, profile)
	if err != nil {
		return err
	}
	rs.TimesRead++
	rs.LastRead = at
	return s.insertReadState(ctx, bookID, profile, rs)
}

// MarkFavorite sets the favorite flag for one (book, profile) pair
func (s *ClickHouseStore) MarkFavorite(ctx context.Context, bookID int, profile string) error {
	rs, err := s.readState(ctx, bookID, profile)
	if err != nil {
		return err
	}
	rs.Favorite = true
	return s.insertReadState(ctx, bookID, profile, rs)
}

func (s *ClickHouseStore) readState(ctx context.Context, bookID int, profile string) (models.ReadState, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT favorito, veces, ultima
		FROM read_states FINAL
		WHERE book_id = ? AND perfil = ?`,
		int32(bookID), profile)

	var (
		favorite bool
		times    int32
		last     time.Time
	)
	if err := row.Scan(&favorite, &times, &last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// no row yet: the profile has never touched this book
			return models.ReadState{}, nil
		}
		// anything else must not read as a fresh state: an increment on
		// top of zeros would wipe the real counters
		return models.ReadState{}, fmt.Errorf("failed to read state for book %d: %w", bookID, err)
	}
	rs := models.ReadState{Favorite: favorite, TimesRead: int(times)}
	if last.Unix() > 0 {
		rs.LastRead = last.Local()
	}
	return rs, nil
}

func (s *ClickHouseStore) insertReadState(ctx context.Context, bookID int, profile string, rs models.ReadState) error {
	last := time.Unix(0, 0)
	if !rs.LastRead.IsZero() {
		last = rs.LastRead
	}
	err := s.conn.Exec(ctx, `
		INSERT INTO read_states (book_id, perfil, favorito, veces, ultima, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		int32(bookID), profile, rs.Favorite, int32(rs.TimesRead), last, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write read-state for book %d: %w", bookID, err)
	}
	return nil
}

// GetAssignment returns the profile's most recent weekly assignment
func (s *ClickHouseStore) GetAssignment(ctx context.Context, profile string) (models.Assignment, bool, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT reto_id, semana, completado
		FROM assignments FINAL
		WHERE perfil = ?
		ORDER BY semana DESC
		LIMIT 1`, profile)

	var (
		challengeID string
		week        time.Time
		completed   bool
	)
	if err := row.Scan(&challengeID, &week, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Assignment{}, false, nil
		}
		return models.Assignment{}, false, fmt.Errorf("failed to read assignment: %w", err)
	}
	return models.Assignment{
		Profile:     profile,
		ChallengeID: challengeID,
		// a Date column keeps only the wall date; rebuild the local
		// Monday so week-window comparisons line up
		WeekStart:   time.Date(week.Year(), week.Month(), week.Day(), 0, 0, 0, 0, time.Local),
		Completed:   completed,
	}, true, nil
}

// SaveAssignment upserts the assignment row for (profile, week)
func (s *ClickHouseStore) SaveAssignment(ctx context.Context, a models.Assignment) error {
	err := s.conn.Exec(ctx, `
		INSERT INTO assignments (perfil, semana, reto_id, completado, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.Profile, a.WeekStart, a.ChallengeID, a.Completed, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *ClickHouseStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
