// Package geocoder is a small client for the Yandex geocoding HTTP API.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iliyamo/community-events/internal/config"
	"github.com/iliyamo/community-events/internal/metrics"
)

var (
	ErrNotConfigured = errors.New("geocoder is not configured")
	ErrNotFound      = errors.New("address not found")
	ErrUpstream      = errors.New("geocoder request failed")
)

// Location is a resolved point with its formatted address.
type Location struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Address       string  `json:"address"`
	YandexMapLink string  `json:"yandexMapLink"`
}

// Client calls the geocoder.  Outbound requests share one token bucket so a
// burst of API traffic cannot exceed the provider quota.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func New(cfg config.GeocoderConfig) *Client {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

func (c *Client) Configured() bool { return c.apiKey != "" }

// MapLink builds a Yandex Maps link for a point.  It needs no API key.
func MapLink(lat, lon float64) string {
	return fmt.Sprintf("https://yandex.ru/maps/?pt=%s,%s&z=16", fmtCoord(lon), fmtCoord(lat))
}

// AddressLink builds a Yandex Maps search link for free-form text.
func AddressLink(address string) string {
	return "https://yandex.ru/maps/?text=" + url.QueryEscape(address)
}

func fmtCoord(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Geocode resolves an address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (*Location, error) {
	obj, err := c.lookup(ctx, address)
	if err != nil {
		return nil, err
	}
	lon, lat, err := parsePos(obj.Point.Pos)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &Location{
		Latitude:      lat,
		Longitude:     lon,
		Address:       obj.MetaDataProperty.GeocoderMetaData.Text,
		YandexMapLink: MapLink(lat, lon),
	}, nil
}

// Reverse resolves coordinates to the nearest address.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Location, error) {
	obj, err := c.lookup(ctx, fmtCoord(lon)+","+fmtCoord(lat))
	if err != nil {
		return nil, err
	}
	return &Location{
		Latitude:      lat,
		Longitude:     lon,
		Address:       obj.MetaDataProperty.GeocoderMetaData.Text,
		YandexMapLink: MapLink(lat, lon),
	}, nil
}

type geoObject struct {
	MetaDataProperty struct {
		GeocoderMetaData struct {
			Text string `json:"text"`
		} `json:"GeocoderMetaData"`
	} `json:"metaDataProperty"`
	Point struct {
		Pos string `json:"pos"`
	} `json:"Point"`
}

type geocodeResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject geoObject `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

func (c *Client) lookup(ctx context.Context, query string) (*geoObject, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("geocode", query)
	q.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ExternalAPIDuration.WithLabelValues("yandex", "geocoder").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	members := body.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return nil, ErrNotFound
	}
	return &members[0].GeoObject, nil
}

// parsePos splits the "lon lat" pair Yandex returns.
func parsePos(pos string) (lon, lat float64, err error) {
	parts := strings.Fields(pos)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad position %q", pos)
	}
	if lon, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return 0, 0, err
	}
	if lat, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}
