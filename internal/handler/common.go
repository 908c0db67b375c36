// Package handler contains the echo HTTP handlers.  Handlers bind and
// validate input, call repositories or services with a bounded context and
// translate sentinel errors into the {"error": "..."} envelope.
package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/repository"
)

const reqTimeout = 5 * time.Second

// reqCtx derives the per-request database context.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), reqTimeout)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// internalError logs err and answers 500 with a generic message.
func internalError(c echo.Context, log *zap.Logger, msg string, err error) error {
	if log != nil {
		log.Error(msg, zap.Error(err),
			zap.String("path", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
	}
	return fail(c, http.StatusInternalServerError, msg)
}

// repoError maps the repository sentinels; anything else is a 500.
func repoError(c echo.Context, log *zap.Logger, what string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, what+" not found")
	case errors.Is(err, repository.ErrForbidden):
		return fail(c, http.StatusForbidden, "Access denied")
	case errors.Is(err, repository.ErrEmailExists):
		return fail(c, http.StatusConflict, "Email already in use")
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, what+" already exists")
	}
	return internalError(c, log, "Failed to process "+what, err)
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type pagedResponse struct {
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}

func paged(c echo.Context, data any, page, limit, total int) error {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return c.JSON(http.StatusOK, pagedResponse{
		Data:       data,
		Pagination: pagination{Page: page, Limit: limit, Total: total, TotalPages: pages},
	})
}

var errPaging = errors.New("page must be >= 1 and limit between 1 and 100")

// pageParams reads page and limit with defaults 1 and 20.
func pageParams(c echo.Context) (page, limit int, err error) {
	page, limit = 1, 20
	if v := c.QueryParam("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			return 0, 0, errPaging
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > 100 {
			return 0, 0, errPaging
		}
	}
	return page, limit, nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("invalid date: " + s)
}

// optString trims s and returns nil for an empty result.
func optString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
