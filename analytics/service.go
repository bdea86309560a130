package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"sitelens/api/metrics"
	"sitelens/api/models"
	"sitelens/api/store"
)

type WebsiteLookup interface {
	GetOwned(ctx context.Context, websiteID string, userID int) (*models.Website, error)
}

type PageViewLister interface {
	ListByWebsite(ctx context.Context, websiteID string, r store.TimeRange) ([]models.PageView, error)
}

// Service serves dashboard reads.
type Service struct {
	websites WebsiteLookup
	views    PageViewLister
	engine   *Engine
}

func NewService(websites WebsiteLookup, views PageViewLister, engine *Engine) *Service {
	return &Service{websites: websites, views: views, engine: engine}
}

// Snapshot checks that userID owns the website, reads its page views once and
// computes every rollup from that read. A failed read fails the snapshot.
// A website that does not exist and one owned by someone else both report
// not found.
func (s *Service) Snapshot(ctx context.Context, userID int, websiteID string, r store.TimeRange) (*models.AnalyticsSnapshot, error) {
	start := time.Now()

	site, err := s.websites.GetOwned(ctx, websiteID, userID)
	if errors.Is(err, store.ErrWebsiteNotFound) {
		return nil, models.ErrNotFound("Website not found or unauthorized")
	}
	if err != nil {
		return nil, models.ErrStore("Failed to load website", err)
	}

	views, err := s.views.ListByWebsite(ctx, site.WebsiteID, r)
	if err != nil {
		return nil, models.ErrStore("Failed to load page views", err)
	}

	snap := s.engine.Compute(*site, views)

	metrics.RecordSnapshot(len(views), time.Since(start))
	log.Ctx(ctx).Debug().
		Str("website_id", site.WebsiteID).
		Int("page_views", len(views)).
		Dur("took", time.Since(start)).
		Msg("analytics snapshot computed")
	return &snap, nil
}
