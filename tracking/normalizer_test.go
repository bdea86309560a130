package tracking

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitelens/api/models"
)

const chromeMacUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type fakeGeo struct {
	info  *GeoInfo
	err   error
	delay time.Duration
	calls []string
}

func (f *fakeGeo) Geolocate(_ context.Context, ip string) (*GeoInfo, error) {
	f.calls = append(f.calls, ip)
	if f.delay > 0 {
		// Ignores ctx on purpose to check the normalizer does not wait.
		time.Sleep(f.delay)
	}
	return f.info, f.err
}

func baseRequest() models.TrackRequest {
	return models.TrackRequest{
		Type:      "entry",
		WebsiteID: "site-1",
		Domain:    "example.com",
		URL:       "https://example.com/pricing",
	}
}

func publicMeta() RequestMeta {
	h := http.Header{}
	h.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	return RequestMeta{Header: h, RemoteAddr: "10.0.0.2:5555"}
}

func TestNormalize_Validation(t *testing.T) {
	n := NewNormalizer(nil, 0)
	negative := int64(-1)

	cases := map[string]func(r *models.TrackRequest){
		"missing website id": func(r *models.TrackRequest) { r.WebsiteID = "" },
		"blank domain":       func(r *models.TrackRequest) { r.Domain = "   " },
		"unknown type":       func(r *models.TrackRequest) { r.Type = "click" },
		"negative active":    func(r *models.TrackRequest) { r.ActiveTime = &negative },
		"bad entry time":     func(r *models.TrackRequest) { r.EntryTime = "yesterday" },
		"bad exit time":      func(r *models.TrackRequest) { r.ExitTime = "2024-13-01" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := baseRequest()
			mutate(&req)

			ev, err := n.Normalize(context.Background(), req, publicMeta())
			assert.Nil(t, ev)
			assert.Equal(t, models.KindValidation, models.KindOf(err))
		})
	}
}

func TestNormalize_MissingFieldsMessage(t *testing.T) {
	req := baseRequest()
	req.Domain = ""

	_, err := NewNormalizer(nil, 0).Normalize(context.Background(), req, publicMeta())
	assert.Equal(t, "Missing required fields: websiteId and domain", models.MessageOf(err))
}

func TestNormalize_EnrichesEntry(t *testing.T) {
	geo := &fakeGeo{info: &GeoInfo{Country: "Germany", Region: "Berlin", City: "Berlin", Timezone: "Europe/Berlin"}}
	n := NewNormalizer(geo, time.Second)
	req := baseRequest()
	req.Type = ""
	req.UserAgent = chromeMacUA
	req.Referrer = "https://news.ycombinator.com"
	req.UTMCampaign = "launch"
	req.EntryTime = "2024-06-15T10:00:00+02:00"

	ev, err := n.Normalize(context.Background(), req, publicMeta())
	require.NoError(t, err)

	assert.Equal(t, models.PageViewEntry, ev.Type, "missing type defaults to entry")
	v := ev.View
	assert.Equal(t, "203.0.113.9", *v.IP)
	assert.Equal(t, []string{"203.0.113.9"}, geo.calls)
	assert.Equal(t, "Germany", *v.Country)
	assert.Equal(t, "Europe/Berlin", *v.Timezone)
	assert.Equal(t, "Chrome", *v.Browser)
	assert.Equal(t, DeviceDesktop, *v.Device)
	assert.Equal(t, "https://news.ycombinator.com", *v.Referrer)
	assert.Equal(t, "launch", *v.UTMCampaign)
	assert.Nil(t, v.UTMSource)
	assert.Nil(t, v.Language)
	require.NotNil(t, v.EntryTime)
	assert.Equal(t, time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC), *v.EntryTime)
}

func TestNormalize_ExitCarriesToken(t *testing.T) {
	req := baseRequest()
	req.Type = "exit"
	req.PageViewID = " 8c7e2f0e-4c59-4c43-9a59-5a1c6a7b6f10 "
	active := int64(1500)
	req.ActiveTime = &active

	ev, err := NewNormalizer(nil, 0).Normalize(context.Background(), req, publicMeta())
	require.NoError(t, err)
	assert.Equal(t, models.PageViewExit, ev.Type)
	assert.Equal(t, "8c7e2f0e-4c59-4c43-9a59-5a1c6a7b6f10", ev.Token)
	assert.Equal(t, int64(1500), *ev.View.ActiveTime)
}

func TestNormalize_UserAgentFallsBackToHeader(t *testing.T) {
	meta := publicMeta()
	meta.Header.Set("User-Agent", chromeMacUA)

	ev, err := NewNormalizer(nil, 0).Normalize(context.Background(), baseRequest(), meta)
	require.NoError(t, err)
	assert.Equal(t, chromeMacUA, *ev.View.UserAgent)
	assert.Equal(t, "Chrome", *ev.View.Browser)
}

func TestNormalize_GeoFailuresLeaveLocationEmpty(t *testing.T) {
	t.Run("lookup error", func(t *testing.T) {
		n := NewNormalizer(&fakeGeo{err: errors.New("rate limited")}, time.Second)

		ev, err := n.Normalize(context.Background(), baseRequest(), publicMeta())
		require.NoError(t, err)
		assert.Nil(t, ev.View.Country)
		assert.Nil(t, ev.View.City)
	})

	t.Run("slow lookup is abandoned at the timeout", func(t *testing.T) {
		n := NewNormalizer(&fakeGeo{delay: 2 * time.Second, info: &GeoInfo{Country: "Late"}}, 50*time.Millisecond)

		start := time.Now()
		ev, err := n.Normalize(context.Background(), baseRequest(), publicMeta())
		require.NoError(t, err)
		assert.Less(t, time.Since(start), time.Second)
		assert.Nil(t, ev.View.Country)
	})

	t.Run("loopback is not looked up", func(t *testing.T) {
		geo := &fakeGeo{info: &GeoInfo{Country: "Nowhere"}}
		n := NewNormalizer(geo, time.Second)

		ev, err := n.Normalize(context.Background(), baseRequest(), RequestMeta{Header: http.Header{}})
		require.NoError(t, err)
		assert.Equal(t, LoopbackIP, *ev.View.IP)
		assert.Empty(t, geo.calls)
		assert.Nil(t, ev.View.Country)
	})
}

func TestNormalize_PrivateAddressesSkipGeolocation(t *testing.T) {
	for _, ip := range []string{"10.1.2.3", "192.168.0.10", "172.16.5.4", "fd00::1", "169.254.1.1"} {
		t.Run(ip, func(t *testing.T) {
			geo := &fakeGeo{info: &GeoInfo{Country: "Nowhere"}}
			h := http.Header{}
			h.Set("X-Real-IP", ip)

			ev, err := NewNormalizer(geo, time.Second).Normalize(context.Background(), baseRequest(), RequestMeta{Header: h})
			require.NoError(t, err)
			assert.Equal(t, ip, *ev.View.IP)
			assert.Empty(t, geo.calls)
			assert.Nil(t, ev.View.Country)
		})
	}
}

func TestResolveClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"real ip wins", map[string]string{"X-Real-IP": "198.51.100.1", "X-Forwarded-For": "198.51.100.2"}, "", "198.51.100.1"},
		{"first forwarded entry", map[string]string{"X-Forwarded-For": " 198.51.100.2 , 10.0.0.1"}, "", "198.51.100.2"},
		{"cloudflare", map[string]string{"CF-Connecting-IP": "198.51.100.3"}, "", "198.51.100.3"},
		{"vercel", map[string]string{"X-Vercel-Forwarded-For": "198.51.100.4"}, "", "198.51.100.4"},
		{"remote addr", nil, "198.51.100.5:443", "198.51.100.5"},
		{"remote addr without port", nil, "198.51.100.6", "198.51.100.6"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"nothing", nil, "", LoopbackIP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tc.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tc.want, ResolveClientIP(h, tc.remote))
		})
	}
}

func TestParseUA(t *testing.T) {
	t.Run("empty falls back", func(t *testing.T) {
		assert.Equal(t, ClientInfo{Device: DeviceDesktop, Browser: "Unknown", OS: "Unknown"}, ParseUA(""))
	})

	t.Run("iphone is mobile", func(t *testing.T) {
		info := ParseUA("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.Equal(t, DeviceMobile, info.Device)
		assert.Equal(t, "iOS", info.OS)
	})

	t.Run("ipad is tablet", func(t *testing.T) {
		info := ParseUA("Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.Equal(t, DeviceTablet, info.Device)
	})

	t.Run("desktop chrome", func(t *testing.T) {
		info := ParseUA(chromeMacUA)
		assert.Equal(t, DeviceDesktop, info.Device)
		assert.Equal(t, "Chrome", info.Browser)
		assert.Equal(t, "macOS", info.OS)
	})
}
