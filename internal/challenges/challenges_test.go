package challenges

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lecturas/internal/models"
	"lecturas/internal/storage/stubs"
)

// Wednesday evening
var testNow = time.Date(2026, 3, 18, 19, 0, 0, 0, time.Local)

func newTestEngine(t *testing.T) (*Engine, *stubs.MockStore) {
	t.Helper()
	store := stubs.NewMockStore()
	return NewEngine(store, rand.New(rand.NewSource(1)), zap.NewNop()), store
}

func TestWeekStart(t *testing.T) {
	monday := time.Date(2026, 3, 16, 0, 0, 0, 0, time.Local)

	testCases := []struct {
		name string
		now  time.Time
	}{
		{"monday midnight", monday},
		{"monday noon", monday.Add(12 * time.Hour)},
		{"wednesday", testNow},
		{"sunday night", time.Date(2026, 3, 22, 23, 59, 0, 0, time.Local)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, monday, WeekStart(tc.now))
		})
	}

	// Sunday belongs to the week that started six days earlier, never
	// the next one
	prevSunday := time.Date(2026, 3, 15, 10, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.Local), WeekStart(prevSunday))
}

func TestGetOrAssign_CreatesAndPersists(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	a, err := engine.GetOrAssign(ctx, "Clara", testNow)
	require.NoError(t, err)
	assert.Equal(t, "Clara", a.Profile)
	assert.Equal(t, WeekStart(testNow), a.WeekStart)
	assert.False(t, a.Completed)
	_, ok := models.ChallengeByID(a.ChallengeID)
	assert.True(t, ok, "assigned challenge must come from the catalog")

	// Stored: a second call in the same week returns the same pick
	b, err := engine.GetOrAssign(ctx, "Clara", testNow.Add(2*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, a.ChallengeID, b.ChallengeID)
	assert.Equal(t, a.WeekStart, b.WeekStart)

	stored, found, err := store.GetAssignment(ctx, "Clara")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, a.ChallengeID, stored.ChallengeID)
}

func TestGetOrAssign_PerProfile(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := engine.GetOrAssign(ctx, "Clara", testNow)
	require.NoError(t, err)
	g, err := engine.GetOrAssign(ctx, "Gracia", testNow)
	require.NoError(t, err)

	// Each profile has its own stored row; the IDs may coincide by
	// chance but the assignments are independent
	assert.Equal(t, "Clara", a.Profile)
	assert.Equal(t, "Gracia", g.Profile)
}

func TestGetOrAssign_WeekKeySurvivesZoneNormalization(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	// A backend keeping the week as a bare date hands it back at
	// midnight UTC: same wall date, different zone. That must read as
	// the same week, not trigger a re-draw.
	madrid := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 18, 19, 0, 0, 0, madrid)
	require.NoError(t, store.SaveAssignment(ctx, models.Assignment{
		Profile:     "Clara",
		ChallengeID: "leer_3_dias",
		WeekStart:   time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		Completed:   true,
	}))

	a, err := engine.GetOrAssign(ctx, "Clara", now)
	require.NoError(t, err)
	assert.Equal(t, "leer_3_dias", a.ChallengeID)
	assert.True(t, a.Completed, "completion survives the zone round-trip")

	// The one-shot invariant holds across the round-trip too
	history := []models.HistoryRow{
		{TimesRead: 1, LastRead: now},
		{TimesRead: 1, LastRead: now.Add(-24 * time.Hour)},
		{TimesRead: 1, LastRead: now.Add(-48 * time.Hour)},
	}
	done, _, err := engine.CheckCompletion(ctx, history, "Clara", now)
	require.NoError(t, err)
	assert.False(t, done, "an already completed week must not re-fire")
}

func TestGetOrAssign_WeekRolloverSupersedes(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	lastWeek := models.Assignment{
		Profile:     "Clara",
		ChallengeID: "leer_3_dias",
		WeekStart:   WeekStart(testNow).AddDate(0, 0, -7),
		Completed:   true,
	}
	require.NoError(t, store.SaveAssignment(ctx, lastWeek))

	a, err := engine.GetOrAssign(ctx, "Clara", testNow)
	require.NoError(t, err)
	assert.Equal(t, WeekStart(testNow), a.WeekStart)
	assert.False(t, a.Completed, "completion resets with the new week")
}

func TestProgress(t *testing.T) {
	week := WeekStart(testNow)
	inWeek := func(day int, hour int) time.Time {
		return week.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
	}
	beforeWeek := week.Add(-24 * time.Hour)

	testCases := []struct {
		name        string
		challengeID string
		history     []models.HistoryRow
		expected    int
	}{
		{
			name:        "distinct days",
			challengeID: "leer_3_dias",
			history: []models.HistoryRow{
				{TimesRead: 1, LastRead: inWeek(0, 18)},
				{TimesRead: 1, LastRead: inWeek(0, 20)},
				{TimesRead: 1, LastRead: inWeek(1, 18)},
			},
			expected: 2,
		},
		{
			name:        "reads before the week are invisible",
			challengeID: "leer_3_dias",
			history: []models.HistoryRow{
				{TimesRead: 3, LastRead: beforeWeek},
			},
			expected: 0,
		},
		{
			name:        "total minutes",
			challengeID: "leer_20_min",
			history: []models.HistoryRow{
				{TimesRead: 1, DurationMin: 8, LastRead: inWeek(0, 18)},
				{TimesRead: 1, DurationMin: 7, LastRead: inWeek(1, 18)},
			},
			expected: 15,
		},
		{
			name:        "minutes clip at the goal",
			challengeID: "leer_20_min",
			history: []models.HistoryRow{
				{TimesRead: 1, DurationMin: 45, LastRead: inWeek(0, 18)},
			},
			expected: 20,
		},
		{
			name:        "first reads count times_read == 1 only",
			challengeID: "dos_libros_nuevos",
			history: []models.HistoryRow{
				{TimesRead: 1, LastRead: inWeek(0, 18)},
				{TimesRead: 2, LastRead: inWeek(1, 18)},
				{TimesRead: 1, LastRead: inWeek(2, 18)},
			},
			expected: 2,
		},
		{
			name:        "favorites read this week",
			challengeID: "favorito_nuevo",
			history: []models.HistoryRow{
				{TimesRead: 2, Favorite: true, LastRead: inWeek(0, 18)},
				{TimesRead: 2, Favorite: false, LastRead: inWeek(1, 18)},
				// favorite read before the week does not count
				{TimesRead: 2, Favorite: true, LastRead: beforeWeek},
			},
			expected: 1,
		},
		{
			name:        "read events",
			challengeID: "tres_lecturas",
			history: []models.HistoryRow{
				{TimesRead: 5, LastRead: inWeek(0, 18)},
				{TimesRead: 1, LastRead: inWeek(1, 18)},
			},
			expected: 2,
		},
		{
			name:        "empty history",
			challengeID: "leer_5_dias",
			history:     nil,
			expected:    0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := models.Assignment{Profile: "Clara", ChallengeID: tc.challengeID, WeekStart: week}
			assert.Equal(t, tc.expected, Progress(tc.history, a))
		})
	}
}

func TestProgress_UnknownChallenge(t *testing.T) {
	a := models.Assignment{ChallengeID: "no_existe", WeekStart: WeekStart(testNow)}
	assert.Equal(t, 0, Progress([]models.HistoryRow{{TimesRead: 1, LastRead: testNow}}, a))
}

func TestCheckCompletion_FiresOnce(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	week := WeekStart(testNow)

	// Pin the assignment so the qualifying history is known
	require.NoError(t, store.SaveAssignment(ctx, models.Assignment{
		Profile:     "Clara",
		ChallengeID: "tres_lecturas",
		WeekStart:   week,
	}))

	history := []models.HistoryRow{
		{TimesRead: 1, LastRead: week.Add(18 * time.Hour)},
		{TimesRead: 1, LastRead: week.AddDate(0, 0, 1).Add(18 * time.Hour)},
		{TimesRead: 1, LastRead: week.AddDate(0, 0, 2).Add(18 * time.Hour)},
	}

	done, a, err := engine.CheckCompletion(ctx, history, "Clara", testNow)
	require.NoError(t, err)
	assert.True(t, done, "first qualifying evaluation completes the challenge")
	assert.True(t, a.Completed)

	// One-shot: the same history does not re-fire
	done, a, err = engine.CheckCompletion(ctx, history, "Clara", testNow)
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, a.Completed)

	// And the flag survived in the store
	stored, found, err := store.GetAssignment(ctx, "Clara")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, stored.Completed)
}

func TestCheckCompletion_BelowGoal(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	week := WeekStart(testNow)

	require.NoError(t, store.SaveAssignment(ctx, models.Assignment{
		Profile:     "Clara",
		ChallengeID: "leer_5_dias",
		WeekStart:   week,
	}))

	history := []models.HistoryRow{
		{TimesRead: 1, LastRead: week.Add(18 * time.Hour)},
	}

	done, a, err := engine.CheckCompletion(ctx, history, "Clara", testNow)
	require.NoError(t, err)
	assert.False(t, done)
	assert.False(t, a.Completed)
}
