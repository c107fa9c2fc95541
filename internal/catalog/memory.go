package catalog

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"court-booking-service/internal/domain"
)

// MemoryStore keeps academies in process memory. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	academies map[string]*domain.Academy
	order     []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{academies: make(map[string]*domain.Academy)}
}

func (m *MemoryStore) CreateAcademy(ctx context.Context, a *domain.Academy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.academies {
		if existing.Email == a.Email {
			return fmt.Errorf("%w: academy with email %s", domain.ErrAlreadyExists, a.Email)
		}
	}
	m.academies[a.ID] = cloneAcademy(a)
	m.order = append(m.order, a.ID)
	return nil
}

func (m *MemoryStore) AcademyByID(ctx context.Context, id string) (*domain.Academy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.academies[id]
	if !ok {
		return nil, fmt.Errorf("%w: academy %s", domain.ErrNotFound, id)
	}
	return cloneAcademy(a), nil
}

func (m *MemoryStore) AcademyByEmail(ctx context.Context, email string) (*domain.Academy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.academies {
		if a.Email == email {
			return cloneAcademy(a), nil
		}
	}
	return nil, fmt.Errorf("%w: academy with email %s", domain.ErrNotFound, email)
}

func (m *MemoryStore) SaveSports(ctx context.Context, academyID string, cfgs ...domain.SportConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.academies[academyID]
	if !ok {
		return fmt.Errorf("%w: academy %s", domain.ErrNotFound, academyID)
	}
	for _, cfg := range cfgs {
		cfg = cloneSport(cfg)
		i := slices.IndexFunc(a.Sports, func(s domain.SportConfig) bool { return s.SportName == cfg.SportName })
		if i >= 0 {
			a.Sports[i] = cfg
		} else {
			a.Sports = append(a.Sports, cfg)
		}
	}
	return nil
}

func (m *MemoryStore) Cities(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := map[string]bool{}
	for _, a := range m.academies {
		set[a.City] = true
	}
	return sortedKeys(set), nil
}

func (m *MemoryStore) SportsInCity(ctx context.Context, city string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := map[string]bool{}
	for _, a := range m.academies {
		if a.City != city {
			continue
		}
		for _, s := range a.Sports {
			set[s.SportName] = true
		}
	}
	return sortedKeys(set), nil
}

func (m *MemoryStore) AcademiesInCity(ctx context.Context, city, sport string) ([]domain.Academy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Academy{}
	for _, id := range m.order {
		a := m.academies[id]
		if a.City != city {
			continue
		}
		if _, ok := a.Sport(sport); ok || sport == "" {
			out = append(out, *cloneAcademy(a))
		}
	}
	return out, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func cloneAcademy(a *domain.Academy) *domain.Academy {
	c := *a
	c.Sports = make([]domain.SportConfig, len(a.Sports))
	for i, s := range a.Sports {
		c.Sports[i] = cloneSport(s)
	}
	return &c
}

func cloneSport(s domain.SportConfig) domain.SportConfig {
	c := s
	c.Pricing = make([]domain.CourtPricing, len(s.Pricing))
	for i, p := range s.Pricing {
		c.Pricing[i] = domain.CourtPricing{CourtNumber: p.CourtNumber, Prices: slices.Clone(p.Prices)}
	}
	return c
}
