package store

import (
	"context"
	"errors"
	"time"

	"sitelens/api/models"
)

var (
	ErrPageViewNotFound = errors.New("page view not found")
	ErrAlreadyClosed    = errors.New("page view already closed")
)

// TimeRange bounds a read on server_timestamp. Nil bounds are open.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

func (r TimeRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// PageViewStore persists page-view records.
//
// CloseOpen must be atomic per record: it writes the exit fields only if id
// names an open entry of websiteID, and readers observe either the open or the
// closed record, never a mix. It returns ErrPageViewNotFound when no such
// record exists and ErrAlreadyClosed when it exists but was closed earlier.
// Stores without conditional writes may let racing closes all succeed, but
// must then keep the same single exit regardless of arrival order.
type PageViewStore interface {
	Create(ctx context.Context, pv *models.PageView) error
	CloseOpen(ctx context.Context, id, websiteID string, exit models.ExitFields) error
	GetByID(ctx context.Context, id string) (*models.PageView, error)
	// ListByWebsite returns the website's records newest first.
	ListByWebsite(ctx context.Context, websiteID string, r TimeRange) ([]models.PageView, error)
}
