package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/community-events/internal/handler"
)

// RegisterGeocoder registers the address lookup proxy.  Each endpoint
// answers both GET with query parameters and POST with a JSON body.
func RegisterGeocoder(e *echo.Echo, d Deps, h *handler.GeocoderHandler) {
	g := e.Group("/api/geocoder", d.limit("100-H"))
	for _, r := range []struct {
		path string
		fn   echo.HandlerFunc
	}{
		{"/geocode", h.Geocode},
		{"/reverse", h.Reverse},
		{"/map-link", h.MapLink},
	} {
		g.GET(r.path, r.fn)
		g.POST(r.path, r.fn)
	}
}

// RegisterUpload registers image uploads and, for local storage, the static
// directory the returned URLs point at.
func RegisterUpload(e *echo.Echo, d Deps, h *handler.UploadHandler) {
	g := e.Group("/api/upload", d.auth(), d.limit("20-H"))
	g.POST("", h.Image)
	g.POST("/image", h.Image)

	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}
}
