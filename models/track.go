package models

// TrackRequest is the JSON body the browser probe posts for both entries and exits.
type TrackRequest struct {
	Type       string `json:"type"`
	WebsiteID  string `json:"websiteId"`
	Domain     string `json:"domain"`
	PageViewID string `json:"pageViewId"`

	URL       string `json:"url"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"userAgent"`
	Language  string `json:"language"`

	EntryTime  string `json:"entryTime"`
	ExitTime   string `json:"exitTime"`
	ActiveTime *int64 `json:"activeTime" binding:"omitempty,min=0"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`
}

// TrackResult is returned to the probe. PageViewID is set for entries only.
type TrackResult struct {
	Message    string `json:"message"`
	PageViewID string `json:"pageViewId,omitempty"`
}
