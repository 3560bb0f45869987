package stubs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lecturas/internal/models"
)

// MockStore is an in-memory implementation of the Store interface for
// testing and for USE_MOCK_DB runs. Challenge assignments kept here are
// volatile: a restart loses the week's assignment and a fresh one is
// drawn.
type MockStore struct {
	mu          sync.RWMutex
	books       map[int]models.BookRecord
	assignments map[string][]models.Assignment // newest last
}

// NewMockStore creates a new empty in-memory store
func NewMockStore() *MockStore {
	return &MockStore{
		books:       make(map[int]models.BookRecord),
		assignments: make(map[string][]models.Assignment),
	}
}

// Initialize seeds a small demo catalog so a mock run has something to
// draw from
func (m *MockStore) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.books) > 0 {
		return nil
	}

	demo := []models.BookRecord{
		{ID: 1, Title: "El Monstruo de Colores", AgeMin: 2, AgeMax: 6, DurationMin: 8, Location: "Salón", Active: true},
		{ID: 2, Title: "¿A Qué Sabe la Luna?", AgeMin: 3, AgeMax: 8, DurationMin: 10, Location: "Dormitorio", Active: true},
		{ID: 3, Title: "Adivina Cuánto te Quiero", AgeMin: 2, AgeMax: 7, DurationMin: 6, Location: "Salón", Active: true},
		{ID: 4, Title: "El Pequeño Libro de los Sonidos", AgeMin: 2, AgeMax: 5, DurationMin: 5, Location: "Salón", Interactive: true, Active: true},
		{ID: 5, Title: "Cuentos de Buenas Noches para Niñas Rebeldes", AgeMin: 6, AgeMax: 9, DurationMin: 20, Location: "Dormitorio", Active: true},
	}
	for _, b := range demo {
		m.books[b.ID] = b
	}
	return nil
}

// ReadCatalog returns a snapshot of all books ordered by ID
func (m *MockStore) ReadCatalog(ctx context.Context) ([]models.BookRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	books := make([]models.BookRecord, 0, len(m.books))
	for _, b := range m.books {
		books = append(books, cloneBook(b))
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// WriteCatalog replaces the whole catalog
func (m *MockStore) WriteCatalog(ctx context.Context, books []models.BookRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.books = make(map[int]models.BookRecord, len(books))
	for _, b := range books {
		m.books[b.ID] = cloneBook(b)
	}
	return nil
}

// MarkRead increments the profile's times-read and stamps last-read
func (m *MockStore) MarkRead(ctx context.Context, bookID int, profile string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[bookID]
	if !ok {
		return fmt.Errorf("book %d not found", bookID)
	}
	rs := b.State(profile)
	rs.TimesRead++
	rs.LastRead = at
	b.SetState(profile, rs)
	m.books[bookID] = b
	return nil
}

// MarkFavorite sets the profile's favorite flag on a book
func (m *MockStore) MarkFavorite(ctx context.Context, bookID int, profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[bookID]
	if !ok {
		return fmt.Errorf("book %d not found", bookID)
	}
	rs := b.State(profile)
	rs.Favorite = true
	b.SetState(profile, rs)
	m.books[bookID] = b
	return nil
}

// GetAssignment returns the profile's most recently saved assignment
func (m *MockStore) GetAssignment(ctx context.Context, profile string) (models.Assignment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.assignments[profile]
	if len(list) == 0 {
		return models.Assignment{}, false, nil
	}
	return list[len(list)-1], true, nil
}

// SaveAssignment upserts an assignment by (profile, week)
func (m *MockStore) SaveAssignment(ctx context.Context, a models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.assignments[a.Profile]
	for i := range list {
		if list[i].WeekStart.Equal(a.WeekStart) {
			list[i] = a
			return nil
		}
	}
	m.assignments[a.Profile] = append(list, a)
	return nil
}

// Close is a no-op for the in-memory store
func (m *MockStore) Close() error {
	return nil
}

func cloneBook(b models.BookRecord) models.BookRecord {
	c := b
	if b.ReadStates != nil {
		c.ReadStates = make(map[string]models.ReadState, len(b.ReadStates))
		for p, rs := range b.ReadStates {
			c.ReadStates[p] = rs
		}
	}
	return c
}
