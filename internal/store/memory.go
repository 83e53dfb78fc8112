package store

import (
	"context"
	"sort"
	"sync"

	"github.com/civicgrid/civic-report-service/internal/domain"
)

// Memory is the in-memory store: a mutex-guarded mirror of the report list
// and user set for a single logical actor. Listing returns copies sorted by
// report ID so iteration order is stable across calls.
type Memory struct {
	mu          sync.RWMutex
	reports     map[string]domain.Report
	users       map[string]domain.User
	currentUser string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		reports: make(map[string]domain.Report),
		users:   make(map[string]domain.User),
	}
}

func (m *Memory) ListReports(_ context.Context) ([]domain.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetReport(_ context.Context, id string) (domain.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return domain.Report{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) SaveReport(_ context.Context, r domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports[r.ID] = r
	return nil
}

func (m *Memory) UpdateReport(_ context.Context, id string, mutate func(*domain.Report)) (domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return domain.Report{}, ErrNotFound
	}
	mutate(&r)
	m.reports[id] = r
	return r, nil
}

func (m *Memory) GetUser(_ context.Context, email string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) SaveUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[u.Email] = u
	return nil
}

func (m *Memory) CurrentUser(_ context.Context) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.currentUser == "" {
		return domain.User{}, ErrNotFound
	}
	u, ok := m.users[m.currentUser]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) SetCurrentUser(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentUser = email
	return nil
}

func (m *Memory) Close() error { return nil }
