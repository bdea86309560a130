package analytics

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitelens/api/models"
)

var fixedNow = time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)

func str(s string) *string { return &s }
func ms(v int64) *int64    { return &v }

func utcSite() models.Website {
	return models.Website{WebsiteID: "site-1", Domain: "example.com", Timezone: "UTC"}
}

func newTestEngine() *Engine {
	return NewEngine(func() time.Time { return fixedNow })
}

// view builds a page view ingested ago before fixedNow.
func view(id string, ago time.Duration) models.PageView {
	return models.PageView{
		ID:              id,
		Type:            models.PageViewEntry,
		WebsiteID:       "site-1",
		Domain:          "example.com",
		URL:             "/",
		ServerTimestamp: fixedNow.Add(-ago),
	}
}

func TestCompute_UniqueVisitorsCountsDistinctIPs(t *testing.T) {
	var views []models.PageView
	for i := 0; i < 25; i++ {
		v := view(fmt.Sprintf("v%02d", i), time.Minute)
		v.IP = str("203.0.113.7")
		views = append(views, v)
	}
	noIP := view("v99", time.Minute)
	views = append(views, noIP)

	snap := newTestEngine().Compute(utcSite(), views)

	assert.Equal(t, 26, snap.Overview.TotalPageViews)
	assert.Equal(t, 1, snap.Overview.UniqueVisitors)
}

func TestCompute_AverageActiveTimeDividesByAllViews(t *testing.T) {
	views := []models.PageView{
		view("a", time.Minute), view("b", time.Minute),
		view("c", time.Minute), view("d", time.Minute),
	}
	views[0].ActiveTime = ms(3000)
	views[1].ActiveTime = ms(5000)

	snap := newTestEngine().Compute(utcSite(), views)

	assert.Equal(t, int64(8000), snap.Overview.TotalActiveTime)
	// 8000 / 4 views, not 8000 / 2 views with active time.
	assert.Equal(t, int64(2000), snap.Overview.AvgActiveTime)
}

func TestCompute_AverageActiveTimeRounds(t *testing.T) {
	views := []models.PageView{view("a", time.Minute), view("b", time.Minute), view("c", time.Minute)}
	views[0].ActiveTime = ms(1000)
	views[1].ActiveTime = ms(1001)

	snap := newTestEngine().Compute(utcSite(), views)

	assert.Equal(t, int64(667), snap.Overview.AvgActiveTime)
}

func TestCompute_PopularPages(t *testing.T) {
	views := []models.PageView{view("1", 3*time.Minute), view("2", 2*time.Minute), view("3", time.Minute)}
	views[0].URL = "/a"
	views[1].URL = "/a"
	views[2].URL = "/b"

	snap := newTestEngine().Compute(utcSite(), views)

	assert.Equal(t, []models.PopularPage{
		{URL: "/a", Views: 2, AvgTime: 0},
		{URL: "/b", Views: 1, AvgTime: 0},
	}, snap.PopularPages)
}

func TestCompute_PopularPagesAverageAndCap(t *testing.T) {
	var views []models.PageView
	for i := 0; i < 12; i++ {
		for j := 0; j <= i; j++ {
			v := view(fmt.Sprintf("p%02d-%02d", i, j), time.Minute)
			v.URL = fmt.Sprintf("/page-%02d", i)
			if j == 0 {
				v.ActiveTime = ms(int64(1000 * (i + 1)))
			}
			views = append(views, v)
		}
	}

	snap := newTestEngine().Compute(utcSite(), views)

	require.Len(t, snap.PopularPages, PopularPagesLimit)
	assert.Equal(t, "/page-11", snap.PopularPages[0].URL)
	assert.Equal(t, 12, snap.PopularPages[0].Views)
	assert.Equal(t, int64(1000), snap.PopularPages[0].AvgTime)
	assert.Equal(t, "/page-02", snap.PopularPages[9].URL)
	for i := 1; i < len(snap.PopularPages); i++ {
		assert.GreaterOrEqual(t, snap.PopularPages[i-1].Views, snap.PopularPages[i].Views)
	}
}

func TestCompute_TrafficSources(t *testing.T) {
	views := []models.PageView{view("1", 3*time.Minute), view("2", 2*time.Minute), view("3", time.Minute)}
	views[1].Referrer = str("https://google.com")

	snap := newTestEngine().Compute(utcSite(), views)

	assert.Equal(t, []models.TrafficSource{
		{Source: "Direct", Count: 2},
		{Source: "https://google.com", Count: 1},
	}, snap.TrafficSources)
}

func TestCompute_TrafficSourcesEmptyReferrerIsDirectAndCapped(t *testing.T) {
	views := []models.PageView{view("empty", 0)}
	views[0].Referrer = str("")
	for i := 0; i < 15; i++ {
		v := view(fmt.Sprintf("r%02d", i), time.Minute)
		v.Referrer = str(fmt.Sprintf("https://ref-%02d.example", i))
		views = append(views, v)
	}

	snap := newTestEngine().Compute(utcSite(), views)

	assert.Len(t, snap.TrafficSources, TrafficSourcesLimit)
	sources := map[string]int{}
	for _, s := range snap.TrafficSources {
		sources[s.Source] = s.Count
	}
	assert.Equal(t, 1, sources["Direct"])
}

func TestCompute_Breakdowns(t *testing.T) {
	views := []models.PageView{view("1", time.Minute), view("2", 2*time.Minute), view("3", 3*time.Minute)}
	views[0].Device, views[0].Browser, views[0].OS, views[0].Country = str("mobile"), str("Safari"), str("iOS"), str("Germany")
	views[1].Device, views[1].Browser, views[1].OS, views[1].Country = str("mobile"), str("Chrome"), str("Android"), str("Germany")

	snap := newTestEngine().Compute(utcSite(), views)

	assert.Equal(t, []models.DeviceStat{{Device: "mobile", Count: 2}, {Device: "Unknown", Count: 1}}, snap.Devices)
	assert.Equal(t, []models.BrowserStat{
		{Browser: "Safari", Count: 1}, {Browser: "Chrome", Count: 1}, {Browser: "Unknown", Count: 1},
	}, snap.Browsers)
	assert.Equal(t, []models.OSStat{
		{OS: "iOS", Count: 1}, {OS: "Android", Count: 1}, {OS: "Unknown", Count: 1},
	}, snap.OperatingSystems)
	assert.Equal(t, []models.CountryStat{{Country: "Germany", Count: 2}, {Country: "Unknown", Count: 1}}, snap.Countries)
}

func TestCompute_CampaignsUseFirstSeenLabels(t *testing.T) {
	views := []models.PageView{
		view("newest", time.Minute),
		view("middle", 2*time.Minute),
		view("oldest", 3*time.Minute),
		view("other", 4*time.Minute),
		view("none", 5*time.Minute),
	}
	views[0].UTMCampaign, views[0].UTMSource, views[0].UTMMedium = str("spring"), str("newsletter"), str("email")
	views[1].UTMCampaign, views[1].UTMSource = str("spring"), str("twitter")
	views[2].UTMCampaign = str("spring")
	views[3].UTMCampaign = str("launch")

	snap := newTestEngine().Compute(utcSite(), views)

	assert.Equal(t, []models.CampaignStat{
		{Campaign: "spring", Source: "newsletter", Medium: "email", Count: 3},
		{Campaign: "launch", Source: "Unknown", Medium: "Unknown", Count: 1},
	}, snap.Campaigns)
}

func TestCompute_DailyViewsOmitEmptyDaysAndOldViews(t *testing.T) {
	views := []models.PageView{
		view("today-1", time.Hour),
		view("today-2", 2*time.Hour),
		view("three-days", 72*time.Hour),
		view("too-old", 8*24*time.Hour),
	}

	snap := newTestEngine().Compute(utcSite(), views)

	assert.Equal(t, []models.DailyView{
		{Date: "2024-06-12", Count: 1},
		{Date: "2024-06-15", Count: 2},
	}, snap.TimeAnalytics.DailyViews)
	for _, d := range snap.TimeAnalytics.DailyViews {
		assert.Positive(t, d.Count)
	}
}

func TestCompute_HourlyViewsDenseAndWindowed(t *testing.T) {
	views := []models.PageView{
		view("a", 10*time.Minute), // 12:20
		view("b", 20*time.Minute), // 12:10
		view("c", 3*time.Hour),    // 09:30
		view("d", 25*time.Hour),   // outside window
	}

	snap := newTestEngine().Compute(utcSite(), views)

	hourly := snap.TimeAnalytics.HourlyViews
	require.Len(t, hourly, 24)
	for h, hv := range hourly {
		assert.Equal(t, h, hv.Hour)
	}
	assert.Equal(t, 2, hourly[12].Count)
	assert.Equal(t, 1, hourly[9].Count)
	assert.Equal(t, 0, hourly[11].Count)
}

func TestCompute_TimeSeriesUseWebsiteTimezone(t *testing.T) {
	site := utcSite()
	site.Timezone = "America/New_York"
	// 2024-06-15 02:00 UTC is 2024-06-14 22:00 in New York (EDT).
	v := view("late", 10*time.Hour+30*time.Minute)

	snap := newTestEngine().Compute(site, []models.PageView{v})

	assert.Equal(t, []models.DailyView{{Date: "2024-06-14", Count: 1}}, snap.TimeAnalytics.DailyViews)
	assert.Equal(t, 1, snap.TimeAnalytics.HourlyViews[22].Count)
}

func TestCompute_EmptyInput(t *testing.T) {
	snap := newTestEngine().Compute(utcSite(), nil)

	assert.Equal(t, models.Overview{}, snap.Overview)
	assert.Len(t, snap.TimeAnalytics.HourlyViews, 24)
	assert.Empty(t, snap.TimeAnalytics.DailyViews)

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"popularPages":[]`)
	assert.Contains(t, string(b), `"recentPageViews":[]`)
	assert.Contains(t, string(b), `"dailyViews":[]`)
}

func TestCompute_RecentPageViewsNewestFirst(t *testing.T) {
	var views []models.PageView
	for i := 0; i < 30; i++ {
		views = append(views, view(fmt.Sprintf("v%02d", i), time.Duration(30-i)*time.Minute))
	}

	snap := newTestEngine().Compute(utcSite(), views)

	require.Len(t, snap.RecentPageViews, RecentPageViewsLimit)
	assert.Equal(t, "v29", snap.RecentPageViews[0].ID)
	assert.Equal(t, "v10", snap.RecentPageViews[19].ID)
}

func TestCompute_Idempotent(t *testing.T) {
	var views []models.PageView
	for i := 0; i < 40; i++ {
		v := view(fmt.Sprintf("v%02d", i), time.Duration(i)*time.Hour)
		v.URL = fmt.Sprintf("/p%d", i%4)
		v.IP = str(fmt.Sprintf("198.51.100.%d", i%6))
		v.Browser = str([]string{"Chrome", "Firefox", "Safari"}[i%3])
		if i%2 == 0 {
			v.ActiveTime = ms(int64(i * 100))
		}
		views = append(views, v)
	}
	e := newTestEngine()

	first, err := json.Marshal(e.Compute(utcSite(), views))
	require.NoError(t, err)

	// Input order must not matter either.
	reversed := make([]models.PageView, len(views))
	for i := range views {
		reversed[len(views)-1-i] = views[i]
	}
	second, err := json.Marshal(e.Compute(utcSite(), reversed))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}
