package models

import "time"

// Website is a tracked property owned by one user.
type Website struct {
	ID                  int       `json:"id"`
	WebsiteID           string    `json:"websiteId"`
	Domain              string    `json:"domain"`
	Timezone            string    `json:"timezone"`
	EnableLocalTracking bool      `json:"enableLocalTracking"`
	UserID              int       `json:"userId"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type CreateWebsiteRequest struct {
	WebsiteID           string `json:"websiteId" binding:"required"`
	Domain              string `json:"domain" binding:"required"`
	Timezone            string `json:"timezone" binding:"required"`
	EnableLocalTracking *bool  `json:"enableLocalTracking" binding:"required"`
}

// Location loads the website's timezone, falling back to UTC.
func (w Website) Location() *time.Location {
	if w.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
