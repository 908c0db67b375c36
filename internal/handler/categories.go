package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/middleware"
	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/repository"
	"github.com/iliyamo/community-events/internal/utils"
)

// CategoryHandler serves the public category list and the admin CRUD.
// Writes drop the cached public list when a Redis client is present.
type CategoryHandler struct {
	Categories  *repository.CategoryRepo
	Redis       *redis.Client
	CachePrefix string
	Log         *zap.Logger
}

func NewCategoryHandler(categories *repository.CategoryRepo, rdb *redis.Client, cachePrefix string, log *zap.Logger) *CategoryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CategoryHandler{Categories: categories, Redis: rdb, CachePrefix: cachePrefix, Log: log}
}

type categoryReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (r categoryReq) category() (*model.Category, string) {
	name := strings.TrimSpace(r.Name)
	if n := utils.RuneLen(name); n < 2 || n > 100 {
		return nil, "Name must be between 2 and 100 characters"
	}
	return &model.Category{Name: name, Description: optString(r.Description)}, ""
}

func (h *CategoryHandler) invalidate(c echo.Context) {
	if err := middleware.InvalidateCache(c.Request().Context(), h.Redis, h.CachePrefix); err != nil {
		h.Log.Warn("invalidate category cache", zap.Error(err))
	}
}

func (h *CategoryHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Categories.List(ctx)
	if err != nil {
		return internalError(c, h.Log, "Failed to list categories", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *CategoryHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cat, err := h.Categories.GetByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(c, h.Log, "Category", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	cat, msg := req.category()
	if cat == nil {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Categories.Create(ctx, cat); err != nil {
		return repoError(c, h.Log, "Category", err)
	}
	h.invalidate(c)
	return c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) Update(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	cat, msg := req.category()
	if cat == nil {
		return fail(c, http.StatusBadRequest, msg)
	}
	cat.ID = c.Param("id")

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Categories.Update(ctx, cat); err != nil {
		return repoError(c, h.Log, "Category", err)
	}
	h.invalidate(c)
	updated, err := h.Categories.GetByID(ctx, cat.ID)
	if err != nil {
		return repoError(c, h.Log, "Category", err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Categories.Delete(ctx, c.Param("id")); err != nil {
		return repoError(c, h.Log, "Category", err)
	}
	h.invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted"})
}
