package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sitelens/api/models"
	"sitelens/api/tracking"
)

// trackTimeout bounds a whole ingestion request, geolocation included.
const trackTimeout = 10 * time.Second

type Tracker interface {
	Track(ctx context.Context, req models.TrackRequest, meta tracking.RequestMeta) (models.TrackResult, error)
}

type TrackHandlers struct {
	Tracker Tracker
}

func NewTrackHandlers(t Tracker) *TrackHandlers {
	return &TrackHandlers{Tracker: t}
}

// TrackEvent ingests one entry or exit from the browser probe. Exits sent with
// navigator.sendBeacon arrive as text/plain, so the body is always bound as JSON.
func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	var req models.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.ErrValidation("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), trackTimeout)
	defer cancel()

	res, err := h.Tracker.Track(ctx, req, tracking.RequestMeta{
		Header:     c.Request.Header,
		RemoteAddr: c.Request.RemoteAddr,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
