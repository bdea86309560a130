// api/models/analytics.go
package models

// AnalyticsSnapshot is the dashboard payload for one website. It is computed
// from the stored page views on every request and never persisted.
type AnalyticsSnapshot struct {
	Website          Website         `json:"website"`
	Overview         Overview        `json:"overview"`
	PopularPages     []PopularPage   `json:"popularPages"`
	TrafficSources   []TrafficSource `json:"trafficSources"`
	Devices          []DeviceStat    `json:"devices"`
	Browsers         []BrowserStat   `json:"browsers"`
	OperatingSystems []OSStat        `json:"operatingSystems"`
	Countries        []CountryStat   `json:"countries"`
	Campaigns        []CampaignStat  `json:"campaigns"`
	TimeAnalytics    TimeAnalytics   `json:"timeAnalytics"`
	RecentPageViews  []PageView      `json:"recentPageViews"`
}

type Overview struct {
	TotalPageViews  int   `json:"totalPageViews"`
	UniqueVisitors  int   `json:"uniqueVisitors"`
	AvgActiveTime   int64 `json:"avgActiveTime"`
	TotalActiveTime int64 `json:"totalActiveTime"`
}

type PopularPage struct {
	URL     string `json:"url"`
	Views   int    `json:"views"`
	AvgTime int64  `json:"avgTime"`
}

type TrafficSource struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type DeviceStat struct {
	Device string `json:"device"`
	Count  int    `json:"count"`
}

type BrowserStat struct {
	Browser string `json:"browser"`
	Count   int    `json:"count"`
}

type OSStat struct {
	OS    string `json:"os"`
	Count int    `json:"count"`
}

type CountryStat struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

type CampaignStat struct {
	Campaign string `json:"campaign"`
	Source   string `json:"source"`
	Medium   string `json:"medium"`
	Count    int    `json:"count"`
}

type DailyView struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type HourlyView struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type TimeAnalytics struct {
	DailyViews  []DailyView  `json:"dailyViews"`
	HourlyViews []HourlyView `json:"hourlyViews"`
}
