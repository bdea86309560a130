package tracking

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"sitelens/api/metrics"
	"sitelens/api/models"
)

// DefaultGeoTimeout bounds a single geolocation lookup.
const DefaultGeoTimeout = 3 * time.Second

// RequestMeta is the transport-level context of a tracking request.
type RequestMeta struct {
	Header     http.Header
	RemoteAddr string
}

// Event is a validated and enriched tracking signal. View carries every
// field except identity and server-side timestamps, which the Correlator assigns.
type Event struct {
	Type  models.PageViewType
	Token string
	View  models.PageView
}

type Normalizer struct {
	geo        Geolocator
	geoTimeout time.Duration
}

// NewNormalizer returns a Normalizer. geo may be nil, in which case location
// fields are always left empty.
func NewNormalizer(geo Geolocator, geoTimeout time.Duration) *Normalizer {
	if geoTimeout <= 0 {
		geoTimeout = DefaultGeoTimeout
	}
	return &Normalizer{geo: geo, geoTimeout: geoTimeout}
}

func (n *Normalizer) Normalize(ctx context.Context, req models.TrackRequest, meta RequestMeta) (*Event, error) {
	websiteID := strings.TrimSpace(req.WebsiteID)
	domain := strings.TrimSpace(req.Domain)
	if websiteID == "" || domain == "" {
		return nil, models.ErrValidation("Missing required fields: websiteId and domain")
	}

	typ := models.PageViewEntry
	switch req.Type {
	case "", string(models.PageViewEntry):
	case string(models.PageViewExit):
		typ = models.PageViewExit
	default:
		return nil, models.ErrValidation(fmt.Sprintf("Unknown tracking type %q", req.Type))
	}

	if req.ActiveTime != nil && *req.ActiveTime < 0 {
		return nil, models.ErrValidation("activeTime must be a non-negative integer")
	}
	entryTime, err := parseClientTime("entryTime", req.EntryTime)
	if err != nil {
		return nil, err
	}
	exitTime, err := parseClientTime("exitTime", req.ExitTime)
	if err != nil {
		return nil, err
	}

	ip := ResolveClientIP(meta.Header, meta.RemoteAddr)
	geo := n.geolocate(ctx, ip)

	userAgent := req.UserAgent
	if userAgent == "" && meta.Header != nil {
		userAgent = meta.Header.Get("User-Agent")
	}
	client := ParseUA(userAgent)

	view := models.PageView{
		Type:      typ,
		WebsiteID: websiteID,
		Domain:    domain,

		URL:      req.URL,
		Referrer: models.StringPtr(req.Referrer),
		Language: models.StringPtr(req.Language),

		UserAgent:      models.StringPtr(userAgent),
		Device:         models.StringPtr(client.Device),
		Browser:        models.StringPtr(client.Browser),
		BrowserVersion: models.StringPtr(client.BrowserVersion),
		OS:             models.StringPtr(client.OS),
		OSVersion:      models.StringPtr(client.OSVersion),

		IP: models.StringPtr(ip),

		UTMSource:   models.StringPtr(req.UTMSource),
		UTMMedium:   models.StringPtr(req.UTMMedium),
		UTMCampaign: models.StringPtr(req.UTMCampaign),
		UTMTerm:     models.StringPtr(req.UTMTerm),
		UTMContent:  models.StringPtr(req.UTMContent),

		EntryTime:  entryTime,
		ExitTime:   exitTime,
		ActiveTime: req.ActiveTime,
	}
	if geo != nil {
		view.Country = models.StringPtr(geo.Country)
		view.Region = models.StringPtr(geo.Region)
		view.City = models.StringPtr(geo.City)
		view.Timezone = models.StringPtr(geo.Timezone)
	}

	return &Event{
		Type:  typ,
		Token: strings.TrimSpace(req.PageViewID),
		View:  view,
	}, nil
}

type geoResult struct {
	info *GeoInfo
	err  error
}

// geolocate returns nil when the address is local, the lookup fails, or it
// does not answer within geoTimeout. It never blocks past the timeout, even
// if the Geolocator ignores ctx.
func (n *Normalizer) geolocate(ctx context.Context, ip string) *GeoInfo {
	if n.geo == nil || isLocalAddress(ip) {
		metrics.RecordGeoLookup("skipped", 0)
		return nil
	}

	start := time.Now()
	lookupCtx, cancel := context.WithTimeout(ctx, n.geoTimeout)
	defer cancel()

	ch := make(chan geoResult, 1)
	go func() {
		info, err := n.geo.Geolocate(lookupCtx, ip)
		ch <- geoResult{info: info, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			log.Ctx(ctx).Warn().Err(res.err).Str("ip", ip).Msg("geolocation failed")
			metrics.RecordGeoLookup("error", time.Since(start))
			return nil
		}
		metrics.RecordGeoLookup("ok", time.Since(start))
		return res.info
	case <-lookupCtx.Done():
		log.Ctx(ctx).Warn().Err(lookupCtx.Err()).Str("ip", ip).Msg("geolocation timed out")
		metrics.RecordGeoLookup("timeout", time.Since(start))
		return nil
	}
}

func parseClientTime(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, models.ErrValidation(fmt.Sprintf("%s must be an ISO-8601 timestamp", field))
	}
	t = t.UTC()
	return &t, nil
}
