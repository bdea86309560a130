package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// GeoInfo is the subset of a geolocation answer stored on a page view.
type GeoInfo struct {
	Country  string `json:"country"`
	Region   string `json:"region"`
	City     string `json:"city"`
	Timezone string `json:"timezone"`
}

// Geolocator resolves an IP address to a location. Implementations must
// honour ctx cancellation.
type Geolocator interface {
	Geolocate(ctx context.Context, ip string) (*GeoInfo, error)
}

// IPAPIClient queries an ip-api.com compatible JSON endpoint.
type IPAPIClient struct {
	endpoint string
	client   *http.Client
}

func NewIPAPIClient(endpoint string, timeout time.Duration) *IPAPIClient {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &IPAPIClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
	Timezone   string `json:"timezone"`
}

func (c *IPAPIClient) Geolocate(ctx context.Context, ip string) (*GeoInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+ip, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geo request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo request returned status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode geo response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return nil, fmt.Errorf("geo lookup failed for %s: %s", ip, body.Message)
	}

	return &GeoInfo{
		Country:  body.Country,
		Region:   body.RegionName,
		City:     body.City,
		Timezone: body.Timezone,
	}, nil
}

const geoCachePrefix = "geo:"

// CachedGeolocator keeps successful lookups in Redis. Cache failures are
// logged and the lookup falls through to the wrapped Geolocator.
type CachedGeolocator struct {
	next Geolocator
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedGeolocator(next Geolocator, rdb *redis.Client, ttl time.Duration) *CachedGeolocator {
	return &CachedGeolocator{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedGeolocator) Geolocate(ctx context.Context, ip string) (*GeoInfo, error) {
	key := geoCachePrefix + ip

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var info GeoInfo
		if err := json.Unmarshal(raw, &info); err == nil {
			return &info, nil
		}
		log.Ctx(ctx).Warn().Str("key", key).Msg("discarding undecodable geo cache entry")
	case !errors.Is(err, redis.Nil):
		log.Ctx(ctx).Warn().Err(err).Msg("geo cache read failed")
	}

	info, err := c.next.Geolocate(ctx, ip)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(info); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("geo cache write failed")
		}
	}
	return info, nil
}
