package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/matching"
	"github.com/iliyamo/community-events/internal/middleware"
)

// MatchingHandler exposes matching intents, candidate search and match
// requests under /api/events/:id/matching.
type MatchingHandler struct {
	Svc *matching.Service
	Log *zap.Logger
}

func NewMatchingHandler(svc *matching.Service, log *zap.Logger) *MatchingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MatchingHandler{Svc: svc, Log: log}
}

type intentReq struct {
	Status      string  `json:"status"`
	Preferences *string `json:"preferences"`
}

type matchRequestReq struct {
	ToUserID string  `json:"toUserID"`
	Message  *string `json:"message"`
}

func (h *MatchingHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, matching.ErrValidation):
		return fail(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), matching.ErrValidation.Error()+": "))
	case errors.Is(err, matching.ErrNotLooking),
		errors.Is(err, matching.ErrSelfRequest),
		errors.Is(err, matching.ErrInvalidState):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, matching.ErrNoIntent),
		errors.Is(err, matching.ErrEventNotFound),
		errors.Is(err, matching.ErrUserNotFound),
		errors.Is(err, matching.ErrRequestNotFound):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, matching.ErrDuplicateRequest):
		return fail(c, http.StatusConflict, err.Error())
	}
	return internalError(c, h.Log, "Matching failed", err)
}

// SetIntent handles POST /api/events/:id/matching.
func (h *MatchingHandler) SetIntent(c echo.Context) error {
	var req intentReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Svc.SetIntent(ctx, middleware.UserID(c), c.Param("id"), strings.ToUpper(strings.TrimSpace(req.Status)), optString(req.Preferences))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// FindMatches handles GET /api/events/:id/matching.
func (h *MatchingHandler) FindMatches(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	matches, err := h.Svc.FindMatches(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": matches, "total": len(matches)})
}

func (h *MatchingHandler) RemoveIntent(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.RemoveIntent(ctx, middleware.UserID(c), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Matching intent removed"})
}

func (h *MatchingHandler) CreateRequest(c echo.Context) error {
	var req matchRequestReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	mr, err := h.Svc.CreateRequest(ctx, middleware.UserID(c), c.Param("id"), strings.TrimSpace(req.ToUserID), optString(req.Message))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, mr)
}

func (h *MatchingHandler) ListRequests(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Svc.ListRequests(ctx, middleware.UserID(c), strings.ToUpper(c.QueryParam("status")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *MatchingHandler) Accept(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	mr, err := h.Svc.Accept(ctx, middleware.UserID(c), c.Param("requestId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, mr)
}

func (h *MatchingHandler) Reject(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	mr, err := h.Svc.Reject(ctx, middleware.UserID(c), c.Param("requestId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, mr)
}

func (h *MatchingHandler) Cancel(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.Cancel(ctx, middleware.UserID(c), c.Param("requestId")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Request cancelled"})
}
