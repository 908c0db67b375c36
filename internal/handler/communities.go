package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/middleware"
	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/repository"
	"github.com/iliyamo/community-events/internal/utils"
)

type CommunityHandler struct {
	Communities *repository.CommunityRepo
	Log         *zap.Logger
}

func NewCommunityHandler(communities *repository.CommunityRepo, log *zap.Logger) *CommunityHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommunityHandler{Communities: communities, Log: log}
}

type communityReq struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	AutoNotify  bool     `json:"autoNotify"`
	InterestIDs []string `json:"interestIDs"`
}

func (h *CommunityHandler) list(c echo.Context, memberID string) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	f := repository.CommunityFilter{
		Search:     strings.TrimSpace(c.QueryParam("search")),
		Category:   strings.TrimSpace(c.QueryParam("category")),
		InterestID: strings.TrimSpace(c.QueryParam("interestID")),
		MemberID:   memberID,
		Page:       page,
		Limit:      limit,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, total, err := h.Communities.List(ctx, f)
	if err != nil {
		return internalError(c, h.Log, "Failed to list communities", err)
	}
	return paged(c, list, page, limit, total)
}

func (h *CommunityHandler) List(c echo.Context) error { return h.list(c, "") }

// Mine lists the communities the caller belongs to.
func (h *CommunityHandler) Mine(c echo.Context) error { return h.list(c, middleware.UserID(c)) }

func (h *CommunityHandler) Get(c echo.Context) error {
	id := c.Param("id")
	ctx, cancel := reqCtx(c)
	defer cancel()

	cm, err := h.Communities.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, "Community", err)
	}
	if cm.Interests, err = h.Communities.Interests(ctx, id); err != nil {
		return internalError(c, h.Log, "Failed to load community", err)
	}
	if uid := middleware.UserID(c); uid != "" {
		if cm.IsMember, err = h.Communities.IsMember(ctx, id, uid); err != nil {
			return internalError(c, h.Log, "Failed to load community", err)
		}
	}
	return c.JSON(http.StatusOK, cm)
}

func (h *CommunityHandler) Members(c echo.Context) error {
	id := c.Param("id")
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Communities.GetByID(ctx, id); err != nil {
		return repoError(c, h.Log, "Community", err)
	}
	members, err := h.Communities.Members(ctx, id)
	if err != nil {
		return internalError(c, h.Log, "Failed to list members", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": members, "total": len(members)})
}

// Create makes the caller admin and first member of a new community.
func (h *CommunityHandler) Create(c echo.Context) error {
	var req communityReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if n := utils.RuneLen(name); n < 3 || n > 100 {
		return fail(c, http.StatusBadRequest, "Name must be between 3 and 100 characters")
	}
	desc := optString(req.Description)
	if desc != nil && utils.RuneLen(*desc) > 1000 {
		return fail(c, http.StatusBadRequest, "Description must be at most 1000 characters")
	}
	cm := &model.Community{
		Name:        name,
		Description: desc,
		AdminID:     middleware.UserID(c),
		AutoNotify:  req.AutoNotify,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Communities.Create(ctx, cm, req.InterestIDs); err != nil {
		return repoError(c, h.Log, "Community", err)
	}
	created, err := h.Communities.GetByID(ctx, cm.ID)
	if err != nil {
		return repoError(c, h.Log, "Community", err)
	}
	if created.Interests, err = h.Communities.Interests(ctx, cm.ID); err != nil {
		return internalError(c, h.Log, "Failed to load community", err)
	}
	created.IsMember = true
	return c.JSON(http.StatusCreated, created)
}

func (h *CommunityHandler) Join(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Communities.GetByID(ctx, c.Param("id")); err != nil {
		return repoError(c, h.Log, "Community", err)
	}
	err := h.Communities.Join(ctx, c.Param("id"), middleware.UserID(c))
	if errors.Is(err, repository.ErrConflict) {
		return fail(c, http.StatusConflict, "Already a member")
	}
	if err != nil {
		return repoError(c, h.Log, "Community", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Joined community"})
}

func (h *CommunityHandler) Leave(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	err := h.Communities.Leave(ctx, c.Param("id"), middleware.UserID(c))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "Left community"})
	case errors.Is(err, repository.ErrAdminLeave):
		return fail(c, http.StatusBadRequest, "The community admin cannot leave")
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, "Not a member of this community")
	}
	return internalError(c, h.Log, "Failed to leave community", err)
}
