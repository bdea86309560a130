package analytics

import (
	"math"
	"sort"
	"time"

	"sitelens/api/models"
)

const (
	PopularPagesLimit    = 10
	TrafficSourcesLimit  = 10
	RecentPageViewsLimit = 20

	DailyWindowDays = 7
	HourlyWindow    = 24 * time.Hour

	DirectSource = "Direct"
	UnknownLabel = "Unknown"
)

// Engine turns a website's page views into an AnalyticsSnapshot. It is pure:
// the same views and clock reading always produce the same snapshot.
type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Compute derives every rollup from the one slice it is given. Time series
// bucket the server timestamp in the website's timezone.
func (e *Engine) Compute(site models.Website, views []models.PageView) models.AnalyticsSnapshot {
	ordered := newestFirst(views)
	now := e.now()
	loc := site.Location()

	return models.AnalyticsSnapshot{
		Website:          site,
		Overview:         overview(ordered),
		PopularPages:     popularPages(ordered),
		TrafficSources:   trafficSources(ordered),
		Devices:          deviceStats(ordered),
		Browsers:         browserStats(ordered),
		OperatingSystems: osStats(ordered),
		Countries:        countryStats(ordered),
		Campaigns:        campaigns(ordered),
		TimeAnalytics: models.TimeAnalytics{
			DailyViews:  dailyViews(ordered, now, loc),
			HourlyViews: hourlyViews(ordered, now, loc),
		},
		RecentPageViews: recent(ordered),
	}
}

// newestFirst copies views ordered by server timestamp descending, id
// descending on ties.
func newestFirst(views []models.PageView) []models.PageView {
	out := make([]models.PageView, len(views))
	copy(out, views)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ServerTimestamp.Equal(out[j].ServerTimestamp) {
			return out[i].ServerTimestamp.After(out[j].ServerTimestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func activeTime(pv models.PageView) int64 {
	if pv.ActiveTime == nil {
		return 0
	}
	return *pv.ActiveTime
}

// roundDiv divides and rounds half up, returning 0 for an empty denominator.
func roundDiv(sum int64, n int) int64 {
	if n == 0 {
		return 0
	}
	return int64(math.Round(float64(sum) / float64(n)))
}

// overview counts distinct non-null IPs as visitors, which undercounts
// visitors behind a shared address. The average divides by every page view,
// including those with no active time recorded.
func overview(views []models.PageView) models.Overview {
	ips := make(map[string]struct{})
	var total int64
	for _, pv := range views {
		if pv.IP != nil && *pv.IP != "" {
			ips[*pv.IP] = struct{}{}
		}
		total += activeTime(pv)
	}
	return models.Overview{
		TotalPageViews:  len(views),
		UniqueVisitors:  len(ips),
		AvgActiveTime:   roundDiv(total, len(views)),
		TotalActiveTime: total,
	}
}

type pageAcc struct {
	views int
	total int64
}

func popularPages(views []models.PageView) []models.PopularPage {
	pages := newOrderedGroups[pageAcc]()
	for _, pv := range views {
		acc, _ := pages.at(pv.URL)
		acc.views++
		acc.total += activeTime(pv)
	}

	top := pages.sorted(func(a, b entry[pageAcc]) bool { return a.Acc.views > b.Acc.views }, PopularPagesLimit)
	out := make([]models.PopularPage, 0, len(top))
	for _, p := range top {
		out = append(out, models.PopularPage{
			URL:     p.Key,
			Views:   p.Acc.views,
			AvgTime: roundDiv(p.Acc.total, p.Acc.views),
		})
	}
	return out
}

func trafficSources(views []models.PageView) []models.TrafficSource {
	c := newCounter()
	for _, pv := range views {
		c.add(models.Deref(pv.Referrer, DirectSource))
	}
	top := c.sorted(byCountDesc, TrafficSourcesLimit)
	out := make([]models.TrafficSource, 0, len(top))
	for _, s := range top {
		out = append(out, models.TrafficSource{Source: s.Key, Count: s.Acc})
	}
	return out
}

// countBy groups views by field, labelling missing values Unknown, ordered by
// count descending.
func countBy(views []models.PageView, field func(models.PageView) *string) []entry[int] {
	c := newCounter()
	for _, pv := range views {
		c.add(models.Deref(field(pv), UnknownLabel))
	}
	return c.sorted(byCountDesc, 0)
}

func deviceStats(views []models.PageView) []models.DeviceStat {
	groups := countBy(views, func(pv models.PageView) *string { return pv.Device })
	out := make([]models.DeviceStat, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.DeviceStat{Device: g.Key, Count: g.Acc})
	}
	return out
}

func browserStats(views []models.PageView) []models.BrowserStat {
	groups := countBy(views, func(pv models.PageView) *string { return pv.Browser })
	out := make([]models.BrowserStat, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.BrowserStat{Browser: g.Key, Count: g.Acc})
	}
	return out
}

func osStats(views []models.PageView) []models.OSStat {
	groups := countBy(views, func(pv models.PageView) *string { return pv.OS })
	out := make([]models.OSStat, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.OSStat{OS: g.Key, Count: g.Acc})
	}
	return out
}

func countryStats(views []models.PageView) []models.CountryStat {
	groups := countBy(views, func(pv models.PageView) *string { return pv.Country })
	out := make([]models.CountryStat, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.CountryStat{Country: g.Key, Count: g.Acc})
	}
	return out
}

// campaigns labels each campaign with the source and medium of the first
// view seen for it.
func campaigns(views []models.PageView) []models.CampaignStat {
	groups := newOrderedGroups[models.CampaignStat]()
	for _, pv := range views {
		if pv.UTMCampaign == nil || *pv.UTMCampaign == "" {
			continue
		}
		acc, created := groups.at(*pv.UTMCampaign)
		if created {
			acc.Campaign = *pv.UTMCampaign
			acc.Source = models.Deref(pv.UTMSource, UnknownLabel)
			acc.Medium = models.Deref(pv.UTMMedium, UnknownLabel)
		}
		acc.Count++
	}

	sorted := groups.sorted(func(a, b entry[models.CampaignStat]) bool { return a.Acc.Count > b.Acc.Count }, 0)
	out := make([]models.CampaignStat, 0, len(sorted))
	for _, g := range sorted {
		out = append(out, g.Acc)
	}
	return out
}

// dailyViews covers the last seven days. Days without views are omitted.
func dailyViews(views []models.PageView, now time.Time, loc *time.Location) []models.DailyView {
	cutoff := now.AddDate(0, 0, -DailyWindowDays)
	c := newCounter()
	for _, pv := range views {
		if pv.ServerTimestamp.Before(cutoff) {
			continue
		}
		c.add(pv.ServerTimestamp.In(loc).Format(time.DateOnly))
	}

	days := c.sorted(func(a, b entry[int]) bool { return a.Key < b.Key }, 0)
	out := make([]models.DailyView, 0, len(days))
	for _, d := range days {
		out = append(out, models.DailyView{Date: d.Key, Count: d.Acc})
	}
	return out
}

// hourlyViews covers the last 24 hours as a dense series of 24 buckets.
func hourlyViews(views []models.PageView, now time.Time, loc *time.Location) []models.HourlyView {
	cutoff := now.Add(-HourlyWindow)
	var counts [24]int
	for _, pv := range views {
		if pv.ServerTimestamp.Before(cutoff) {
			continue
		}
		counts[pv.ServerTimestamp.In(loc).Hour()]++
	}

	out := make([]models.HourlyView, 24)
	for h := range counts {
		out[h] = models.HourlyView{Hour: h, Count: counts[h]}
	}
	return out
}

func recent(views []models.PageView) []models.PageView {
	n := min(len(views), RecentPageViewsLimit)
	out := make([]models.PageView, n)
	copy(out, views[:n])
	return out
}
