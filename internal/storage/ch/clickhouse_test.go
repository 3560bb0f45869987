package ch

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"go.uber.org/zap"

	"lecturas/internal/challenges"
	"lecturas/internal/models"
)

// runMigrations manually runs ClickHouse migrations
func runMigrations(ctx context.Context, store *ClickHouseStore) error {
	// Drop existing tables
	_ = store.conn.Exec(ctx, "DROP TABLE IF EXISTS assignments")
	_ = store.conn.Exec(ctx, "DROP TABLE IF EXISTS read_states")
	_ = store.conn.Exec(ctx, "DROP TABLE IF EXISTS books")

	// Create books table
	err := store.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS books (
			id Int32,
			titulo String,
			edad_min Int32,
			edad_max Int32,
			duracion_min Int32,
			ubicacion String,
			interactivo Bool,
			activa Bool,
			portada String
		) ENGINE = ReplacingMergeTree()
		ORDER BY id
	`)
	if err != nil {
		return err
	}

	// Create read_states table
	err = store.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS read_states (
			book_id Int32,
			perfil String,
			favorito Bool,
			veces Int32,
			ultima DateTime,
			updated_at DateTime
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (book_id, perfil)
	`)
	if err != nil {
		return err
	}

	// Create assignments table
	err = store.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS assignments (
			perfil String,
			semana Date,
			reto_id String,
			completado Bool,
			updated_at DateTime
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (perfil, semana)
	`)
	return err
}

// setupTestStore creates a test ClickHouse instance using testcontainers
func setupTestStore(t *testing.T) (*ClickHouseStore, func()) {
	ctx := context.Background()

	// Start ClickHouse container
	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")

	// Get connection details
	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	// Create database connection
	store, err := NewClickHouseStore(host, port.Int(), "default", "default", "", false)
	require.NoError(t, err, "Failed to connect to ClickHouse")

	// Run migrations manually (goose doesn't work well with ClickHouse)
	err = runMigrations(ctx, store)
	require.NoError(t, err, "Failed to run migrations")

	// Cleanup function
	cleanup := func() {
		store.Close()
		clickhouseContainer.Terminate(ctx)
	}

	return store, cleanup
}

func TestClickHouseStore_WriteAndReadCatalog(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// Initially should be empty
	books, err := store.ReadCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	lastRead := time.Date(2026, 3, 17, 20, 15, 0, 0, time.Local)
	catalog := []models.BookRecord{
		{
			ID: 2, Title: "¿A Qué Sabe la Luna?", AgeMin: 3, AgeMax: 8,
			DurationMin: 10, Location: "Dormitorio", Interactive: true, Active: true,
		},
		{
			ID: 1, Title: "El Monstruo de Colores", AgeMin: 2, AgeMax: 6,
			DurationMin: 8, Location: "Salón", Active: true,
			CoverURL: "https://example.com/monstruo.jpg",
			ReadStates: map[string]models.ReadState{
				"Clara": {Favorite: true, TimesRead: 3, LastRead: lastRead},
			},
		},
	}
	require.NoError(t, store.WriteCatalog(ctx, catalog))

	// Should return books sorted by id, with read-states joined in
	books, err = store.ReadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, 1, books[0].ID)
	assert.Equal(t, "El Monstruo de Colores", books[0].Title)
	assert.Equal(t, 2, books[0].AgeMin)
	assert.Equal(t, 6, books[0].AgeMax)
	assert.Equal(t, 8, books[0].DurationMin)
	assert.Equal(t, "Salón", books[0].Location)
	assert.False(t, books[0].Interactive)
	assert.True(t, books[0].Active)
	assert.Equal(t, "https://example.com/monstruo.jpg", books[0].CoverURL)

	clara := books[0].State("Clara")
	assert.True(t, clara.Favorite)
	assert.Equal(t, 3, clara.TimesRead)
	assert.WithinDuration(t, lastRead, clara.LastRead, time.Second)

	gracia := books[0].State("Gracia")
	assert.Zero(t, gracia.TimesRead)
	assert.True(t, gracia.LastRead.IsZero())

	assert.Equal(t, 2, books[1].ID)
	assert.True(t, books[1].Interactive)
}

func TestClickHouseStore_WriteCatalogReplaces(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.WriteCatalog(ctx, []models.BookRecord{
		{ID: 1, Title: "Viejo", AgeMin: 2, AgeMax: 7, DurationMin: 5, Active: true},
		{ID: 2, Title: "También Viejo", AgeMin: 2, AgeMax: 7, DurationMin: 5, Active: true},
	}))
	require.NoError(t, store.WriteCatalog(ctx, []models.BookRecord{
		{ID: 3, Title: "Nuevo", AgeMin: 2, AgeMax: 7, DurationMin: 5, Active: true},
	}))

	books, err := store.ReadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Nuevo", books[0].Title)
}

func TestClickHouseStore_MarkRead(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.WriteCatalog(ctx, []models.BookRecord{
		{ID: 7, Title: "Adivina Cuánto te Quiero", AgeMin: 2, AgeMax: 7, DurationMin: 6, Active: true},
	}))

	first := time.Date(2026, 3, 17, 19, 30, 0, 0, time.Local)
	require.NoError(t, store.MarkRead(ctx, 7, "Gracia", first))

	second := first.Add(24 * time.Hour)
	require.NoError(t, store.MarkRead(ctx, 7, "Gracia", second))

	books, err := store.ReadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)

	rs := books[0].State("Gracia")
	assert.Equal(t, 2, rs.TimesRead)
	assert.WithinDuration(t, second, rs.LastRead, time.Second)

	// The other profile's state is untouched
	assert.Zero(t, books[0].State("Clara").TimesRead)
}

func TestClickHouseStore_MarkFavorite(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.WriteCatalog(ctx, []models.BookRecord{
		{ID: 1, Title: "Uno", AgeMin: 2, AgeMax: 7, DurationMin: 6, Active: true},
		{ID: 2, Title: "Dos", AgeMin: 2, AgeMax: 7, DurationMin: 6, Active: true},
	}))

	// Favoriting a book a read already touched keeps its counters
	readAt := time.Date(2026, 3, 17, 19, 30, 0, 0, time.Local)
	require.NoError(t, store.MarkRead(ctx, 2, "Clara", readAt))
	require.NoError(t, store.MarkFavorite(ctx, 2, "Clara"))

	books, err := store.ReadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.False(t, books[0].State("Clara").Favorite)

	rs := books[1].State("Clara")
	assert.True(t, rs.Favorite)
	assert.Equal(t, 1, rs.TimesRead)
	assert.WithinDuration(t, readAt, rs.LastRead, time.Second)
}

func TestClickHouseStore_Assignments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	_, found, err := store.GetAssignment(ctx, "Clara")
	require.NoError(t, err)
	assert.False(t, found)

	week := time.Date(2026, 3, 16, 0, 0, 0, 0, time.Local)
	require.NoError(t, store.SaveAssignment(ctx, models.Assignment{
		Profile: "Clara", ChallengeID: "leer_3_dias", WeekStart: week,
	}))

	stored, found, err := store.GetAssignment(ctx, "Clara")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "leer_3_dias", stored.ChallengeID)
	// the Date column drops the zone; the store must hand back the
	// local Monday, not a UTC instant
	assert.True(t, stored.WeekStart.Equal(week), "expected %v, got %v", week, stored.WeekStart)
	assert.False(t, stored.Completed)

	// Re-saving the same week flips the completed flag in place
	stored.Completed = true
	require.NoError(t, store.SaveAssignment(ctx, stored))

	stored, found, err = store.GetAssignment(ctx, "Clara")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "leer_3_dias", stored.ChallengeID)
	assert.True(t, stored.Completed)

	// A later week supersedes the previous one
	require.NoError(t, store.SaveAssignment(ctx, models.Assignment{
		Profile: "Clara", ChallengeID: "leer_45_min", WeekStart: week.AddDate(0, 0, 7),
	}))

	stored, found, err = store.GetAssignment(ctx, "Clara")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "leer_45_min", stored.ChallengeID)
	assert.False(t, stored.Completed)

	// Profiles are isolated
	_, found, err = store.GetAssignment(ctx, "Gracia")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClickHouseStore_AssignmentWeekKeyRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	engine := challenges.NewEngine(store, rand.New(rand.NewSource(1)), zap.NewNop())

	now := time.Date(2026, 3, 18, 19, 0, 0, 0, time.Local)
	a, err := engine.GetOrAssign(ctx, "Clara", now)
	require.NoError(t, err)
	assert.False(t, a.Completed)

	// The persisted week key must satisfy the engine on later calls in
	// the same week; a mismatch would re-draw and reset completion on
	// every consultation
	b, err := engine.GetOrAssign(ctx, "Clara", now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, a.ChallengeID, b.ChallengeID)

	stored, found, err := store.GetAssignment(ctx, "Clara")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, stored.WeekStart.Equal(challenges.WeekStart(now)))
}

func TestClickHouseStore_QueryErrorsPropagate(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.WriteCatalog(ctx, []models.BookRecord{
		{ID: 1, Title: "Uno", AgeMin: 2, AgeMax: 7, DurationMin: 6, Active: true},
	}))
	require.NoError(t, store.MarkRead(ctx, 1, "Clara", time.Now()))

	// A failed state lookup must surface as an error, never read as an
	// absent row: incrementing on top of zeros would wipe the counters
	require.NoError(t, store.conn.Exec(ctx, "DROP TABLE read_states"))
	err := store.MarkRead(ctx, 1, "Clara", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read state")

	// Same for assignments: a failed read must not look like "none yet"
	require.NoError(t, store.conn.Exec(ctx, "DROP TABLE assignments"))
	_, _, err = store.GetAssignment(ctx, "Clara")
	assert.Error(t, err)
}

func TestClickHouseStore_ConcurrentMarkRead(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.WriteCatalog(ctx, []models.BookRecord{
		{ID: 1, Title: "Concurrente", AgeMin: 2, AgeMax: 7, DurationMin: 6, Active: true},
	}))

	// Reads for different profiles land in different rows, so they
	// never race against each other
	profiles := []string{"Clara", "Gracia"}
	done := make(chan error, len(profiles))
	for _, p := range profiles {
		go func(profile string) {
			done <- store.MarkRead(ctx, 1, profile, time.Now())
		}(p)
	}
	for range profiles {
		require.NoError(t, <-done)
	}

	books, err := store.ReadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 1, books[0].State("Clara").TimesRead)
	assert.Equal(t, 1, books[0].State("Gracia").TimesRead)
}

func TestClickHouseStore_Close(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.Close()
	assert.NoError(t, err)
}
