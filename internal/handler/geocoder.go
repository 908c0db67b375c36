package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/geocoder"
)

// GeocoderHandler proxies address lookups.  Requests are accepted as GET
// query parameters or as a POST JSON body.
type GeocoderHandler struct {
	Client *geocoder.Client
	Log    *zap.Logger
}

func NewGeocoderHandler(client *geocoder.Client, log *zap.Logger) *GeocoderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GeocoderHandler{Client: client, Log: log}
}

type geoReq struct {
	Address   string      `json:"address" query:"address"`
	Lat       json.Number `json:"lat" query:"lat"`
	Lon       json.Number `json:"lon" query:"lon"`
	Latitude  json.Number `json:"latitude" query:"latitude"`
	Longitude json.Number `json:"longitude" query:"longitude"`
}

var errNoCoords = errors.New("latitude and longitude are required")

// coords returns the point, preferring the short parameter names.
func (r geoReq) coords() (lat, lon float64, err error) {
	latS, lonS := r.Lat, r.Lon
	if latS == "" {
		latS = r.Latitude
	}
	if lonS == "" {
		lonS = r.Longitude
	}
	if latS == "" || lonS == "" {
		return 0, 0, errNoCoords
	}
	if lat, err = latS.Float64(); err != nil {
		return 0, 0, errors.New("latitude must be a number")
	}
	if lon, err = lonS.Float64(); err != nil {
		return 0, 0, errors.New("longitude must be a number")
	}
	if lat < -90 || lat > 90 {
		return 0, 0, errors.New("Latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return 0, 0, errors.New("Longitude must be between -180 and 180")
	}
	return lat, lon, nil
}

func (h *GeocoderHandler) fail(c echo.Context, err error, notFound string) error {
	switch {
	case errors.Is(err, geocoder.ErrNotConfigured):
		return fail(c, http.StatusServiceUnavailable, "Geocoder is not configured")
	case errors.Is(err, geocoder.ErrNotFound):
		return fail(c, http.StatusNotFound, notFound)
	case errors.Is(err, context.DeadlineExceeded):
		return fail(c, http.StatusGatewayTimeout, "Geocoder timed out")
	}
	return internalError(c, h.Log, "Geocoder request failed", err)
}

func (h *GeocoderHandler) Geocode(c echo.Context) error {
	var req geoReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}
	addr := strings.TrimSpace(req.Address)
	if addr == "" {
		return fail(c, http.StatusBadRequest, "address is required")
	}
	if !h.Client.Configured() {
		return h.fail(c, geocoder.ErrNotConfigured, "")
	}
	loc, err := h.Client.Geocode(c.Request().Context(), addr)
	if err != nil {
		return h.fail(c, err, "Address not found")
	}
	return c.JSON(http.StatusOK, loc)
}

func (h *GeocoderHandler) Reverse(c echo.Context) error {
	var req geoReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}
	lat, lon, err := req.coords()
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	if !h.Client.Configured() {
		return h.fail(c, geocoder.ErrNotConfigured, "")
	}
	loc, err := h.Client.Reverse(c.Request().Context(), lat, lon)
	if err != nil {
		return h.fail(c, err, "No address found for these coordinates")
	}
	return c.JSON(http.StatusOK, loc)
}

// MapLink builds a Yandex Maps link from coordinates or an address.  It
// needs no API key.
func (h *GeocoderHandler) MapLink(c echo.Context) error {
	var req geoReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}
	lat, lon, err := req.coords()
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"yandexMapLink": geocoder.MapLink(lat, lon)})
	case !errors.Is(err, errNoCoords):
		return fail(c, http.StatusBadRequest, err.Error())
	}
	if addr := strings.TrimSpace(req.Address); addr != "" {
		return c.JSON(http.StatusOK, echo.Map{"yandexMapLink": geocoder.AddressLink(addr)})
	}
	return fail(c, http.StatusBadRequest, "Address or coordinates are required")
}
