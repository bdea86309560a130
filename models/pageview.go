// api/models/pageview.go
package models

import (
	"time"
)

// PageViewType classifies a page-view record. A record is created by an entry
// and may later be closed in place by an exit, or created directly from an exit
// that could not be matched to an entry.
type PageViewType string

const (
	PageViewEntry PageViewType = "entry"
	PageViewExit  PageViewType = "exit"
)

// PageView is a single stored page visit.
type PageView struct {
	ID        string       `json:"id"`
	Type      PageViewType `json:"type"`
	WebsiteID string       `json:"websiteId"`
	Domain    string       `json:"domain"`

	URL      string  `json:"url"`
	Referrer *string `json:"referrer"`
	Language *string `json:"language"`

	UserAgent      *string `json:"userAgent"`
	Device         *string `json:"device"`
	Browser        *string `json:"browser"`
	BrowserVersion *string `json:"browserVersion"`
	OS             *string `json:"os"`
	OSVersion      *string `json:"osVersion"`

	IP       *string `json:"ip"`
	Country  *string `json:"country"`
	Region   *string `json:"region"`
	City     *string `json:"city"`
	Timezone *string `json:"timezone"`

	UTMSource   *string `json:"utm_source"`
	UTMMedium   *string `json:"utm_medium"`
	UTMCampaign *string `json:"utm_campaign"`
	UTMTerm     *string `json:"utm_term"`
	UTMContent  *string `json:"utm_content"`

	EntryTime       *time.Time `json:"entryTime"`
	ExitTime        *time.Time `json:"exitTime"`
	ActiveTime      *int64     `json:"activeTime"`
	ServerTimestamp time.Time  `json:"serverTimestamp"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExitFields are the values an exit writes onto an open entry record.
type ExitFields struct {
	ExitTime   time.Time
	ActiveTime *int64
}

// SessionState reports where a record sits in the entry/exit lifecycle.
type SessionState string

const (
	SessionOpen         SessionState = "open"
	SessionClosed       SessionState = "closed"
	SessionOrphanClosed SessionState = "orphan_closed"
)

// State derives the lifecycle state from the stored fields.
func (p *PageView) State() SessionState {
	switch {
	case p.Type == PageViewExit:
		return SessionOrphanClosed
	case p.ExitTime != nil:
		return SessionClosed
	default:
		return SessionOpen
	}
}

// ApplyExit copies exit fields onto the record.
func (p *PageView) ApplyExit(exit ExitFields, now time.Time) {
	t := exit.ExitTime
	p.ExitTime = &t
	p.ActiveTime = exit.ActiveTime
	p.UpdatedAt = now
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or the fallback when nil or empty.
func Deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
