package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sitelens/api/middleware"
	"sitelens/api/models"
	"sitelens/api/store"
	"sitelens/api/utils"
)

type WebsiteRepository interface {
	Create(ctx context.Context, w models.Website) (*models.Website, error)
	ListByUser(ctx context.Context, userID int) ([]models.Website, error)
}

type SnapshotService interface {
	Snapshot(ctx context.Context, userID int, websiteID string, r store.TimeRange) (*models.AnalyticsSnapshot, error)
}

type WebsiteHandlers struct {
	Websites  WebsiteRepository
	Analytics SnapshotService
}

func NewWebsiteHandlers(websites WebsiteRepository, analytics SnapshotService) *WebsiteHandlers {
	return &WebsiteHandlers{Websites: websites, Analytics: analytics}
}

func (h *WebsiteHandlers) CreateWebsite(c *gin.Context) {
	var req models.CreateWebsiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.ErrValidation("websiteId, domain, timezone and enableLocalTracking are required"))
		return
	}
	websiteID := strings.TrimSpace(req.WebsiteID)
	domain := strings.TrimSpace(req.Domain)
	timezone := strings.TrimSpace(req.Timezone)
	if websiteID == "" || domain == "" {
		respondError(c, models.ErrValidation("websiteId and domain must not be blank"))
		return
	}
	// "Local" would resolve to whatever clock the server runs on.
	if _, err := time.LoadLocation(timezone); err != nil || timezone == "Local" {
		respondError(c, models.ErrValidation("timezone must be an IANA time zone name"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	website, err := h.Websites.Create(ctx, models.Website{
		WebsiteID:           websiteID,
		Domain:              domain,
		Timezone:            timezone,
		EnableLocalTracking: *req.EnableLocalTracking,
		UserID:              c.GetInt(middleware.ContextUserID),
	})
	if errors.Is(err, store.ErrWebsiteExists) {
		respondError(c, models.ErrConflict("Website already exists"))
		return
	}
	if err != nil {
		respondError(c, models.ErrStore("Failed to create website", err))
		return
	}

	c.JSON(http.StatusCreated, website)
}

func (h *WebsiteHandlers) ListWebsites(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	websites, err := h.Websites.ListByUser(ctx, c.GetInt(middleware.ContextUserID))
	if err != nil {
		respondError(c, models.ErrStore("Failed to list websites", err))
		return
	}

	c.JSON(http.StatusOK, websites)
}

func (h *WebsiteHandlers) GetAnalytics(c *gin.Context) {
	websiteID := c.Param("websiteId")
	if websiteID == "" {
		respondError(c, models.ErrValidation("Website ID is required"))
		return
	}

	r, err := utils.ParseTimeRange(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	snapshot, err := h.Analytics.Snapshot(ctx, c.GetInt(middleware.ContextUserID), websiteID, r)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
