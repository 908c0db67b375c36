package geocoder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iliyamo/community-events/internal/config"
)

const sampleResponse = `{"response":{"GeoObjectCollection":{"featureMember":[{"GeoObject":{
	"metaDataProperty":{"GeocoderMetaData":{"text":"Russia, Moscow, Tverskaya 1"}},
	"Point":{"pos":"37.611347 55.757308"}}}]}}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.GeocoderConfig{APIKey: "k", BaseURL: srv.URL + "/1.x/", Timeout: time.Second, RPS: 100})
}

func TestGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "k" || r.URL.Query().Get("geocode") != "Tverskaya 1" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(sampleResponse))
	})
	loc, err := c.Geocode(context.Background(), "Tverskaya 1")
	if err != nil {
		t.Fatal(err)
	}
	if loc.Latitude != 55.757308 || loc.Longitude != 37.611347 || loc.Address != "Russia, Moscow, Tverskaya 1" {
		t.Fatalf("loc = %+v", loc)
	}
	if loc.YandexMapLink != "https://yandex.ru/maps/?pt=37.611347,55.757308&z=16" {
		t.Fatalf("link = %s", loc.YandexMapLink)
	}
}

func TestReverseSendsLonLat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("geocode"); got != "37.6,55.7" {
			t.Errorf("geocode = %q", got)
		}
		_, _ = w.Write([]byte(sampleResponse))
	})
	loc, err := c.Reverse(context.Background(), 55.7, 37.6)
	if err != nil || loc.Latitude != 55.7 || loc.Address == "" {
		t.Fatalf("loc = %+v, %v", loc, err)
	}
}

func TestGeocodeErrors(t *testing.T) {
	empty := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"GeoObjectCollection":{"featureMember":[]}}}`))
	})
	if _, err := empty.Geocode(context.Background(), "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty result: %v", err)
	}

	broken := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	if _, err := broken.Geocode(context.Background(), "x"); !errors.Is(err, ErrUpstream) {
		t.Errorf("403: %v", err)
	}

	unconfigured := New(config.GeocoderConfig{})
	if _, err := unconfigured.Geocode(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("no key: %v", err)
	}
}

func TestLinks(t *testing.T) {
	if got := MapLink(55.75, 37.61); got != "https://yandex.ru/maps/?pt=37.61,55.75&z=16" {
		t.Errorf("MapLink = %s", got)
	}
	if got := AddressLink("Red Square"); got != "https://yandex.ru/maps/?text=Red+Square" {
		t.Errorf("AddressLink = %s", got)
	}
}
