package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"sitelens/api/models"
)

// MemoryPageViewStore is a process-local PageViewStore for development and tests.
type MemoryPageViewStore struct {
	mu    sync.RWMutex
	views map[string]*models.PageView
	now   func() time.Time
}

func NewMemoryPageViewStore() *MemoryPageViewStore {
	return &MemoryPageViewStore{
		views: make(map[string]*models.PageView),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryPageViewStore) Create(_ context.Context, pv *models.PageView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pv
	s.views[pv.ID] = &cp
	return nil
}

func (s *MemoryPageViewStore) CloseOpen(_ context.Context, id, websiteID string, exit models.ExitFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pv, ok := s.views[id]
	if !ok || pv.WebsiteID != websiteID || pv.Type != models.PageViewEntry {
		return ErrPageViewNotFound
	}
	if pv.ExitTime != nil {
		return ErrAlreadyClosed
	}
	// Replace rather than mutate so copies handed to readers stay whole.
	next := *pv
	next.ApplyExit(exit, s.now())
	s.views[id] = &next
	return nil
}

func (s *MemoryPageViewStore) GetByID(_ context.Context, id string) (*models.PageView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pv, ok := s.views[id]
	if !ok {
		return nil, ErrPageViewNotFound
	}
	cp := *pv
	return &cp, nil
}

func (s *MemoryPageViewStore) ListByWebsite(_ context.Context, websiteID string, r TimeRange) ([]models.PageView, error) {
	s.mu.RLock()
	var views []models.PageView
	for _, pv := range s.views {
		if pv.WebsiteID == websiteID && r.Contains(pv.ServerTimestamp) {
			views = append(views, *pv)
		}
	}
	s.mu.RUnlock()

	sort.Slice(views, func(i, j int) bool {
		if !views[i].ServerTimestamp.Equal(views[j].ServerTimestamp) {
			return views[i].ServerTimestamp.After(views[j].ServerTimestamp)
		}
		return views[i].ID > views[j].ID
	})
	return views, nil
}
