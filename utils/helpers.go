package utils

import (
	"time"

	"github.com/gin-gonic/gin"

	"sitelens/api/models"
	"sitelens/api/store"
)

// ParseTimeRange reads optional RFC3339 "start" and "end" query parameters.
// Absent parameters leave the range open on that side.
func ParseTimeRange(c *gin.Context) (store.TimeRange, error) {
	var r store.TimeRange

	if startParam := c.Query("start"); startParam != "" {
		start, err := time.Parse(time.RFC3339, startParam)
		if err != nil {
			return r, models.ErrValidation("Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)")
		}
		r.Start = &start
	}

	if endParam := c.Query("end"); endParam != "" {
		end, err := time.Parse(time.RFC3339, endParam)
		if err != nil {
			return r, models.ErrValidation("Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)")
		}
		r.End = &end
	}

	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return r, models.ErrValidation("'end' must not be before 'start'")
	}
	return r, nil
}
