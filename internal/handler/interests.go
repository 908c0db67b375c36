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

// InterestHandler serves the interest catalogue and the caller's weighted
// interests.
type InterestHandler struct {
	Interests     *repository.InterestRepo
	UserInterests *repository.UserInterestRepo
	Log           *zap.Logger
}

func NewInterestHandler(interests *repository.InterestRepo, userInterests *repository.UserInterestRepo, log *zap.Logger) *InterestHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InterestHandler{Interests: interests, UserInterests: userInterests, Log: log}
}

type interestReq struct {
	Name        string  `json:"name"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
}

type userInterestReq struct {
	InterestID string `json:"interestID"`
	Weight     *int   `json:"weight"`
}

func (h *InterestHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Interests.List(ctx, strings.TrimSpace(c.QueryParam("search")), strings.TrimSpace(c.QueryParam("category")))
	if err != nil {
		return internalError(c, h.Log, "Failed to list interests", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *InterestHandler) Categories(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cats, err := h.Interests.Categories(ctx)
	if err != nil {
		return internalError(c, h.Log, "Failed to list interest categories", err)
	}
	return c.JSON(http.StatusOK, cats)
}

// Create adds an interest to the catalogue (admin only).
func (h *InterestHandler) Create(c echo.Context) error {
	var req interestReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if n := utils.RuneLen(name); n < 2 || n > 100 {
		return fail(c, http.StatusBadRequest, "Name must be between 2 and 100 characters")
	}
	in := &model.Interest{Name: name, Category: optString(req.Category), Description: optString(req.Description)}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Interests.Create(ctx, in); err != nil {
		return repoError(c, h.Log, "Interest", err)
	}
	return c.JSON(http.StatusCreated, in)
}

func (h *InterestHandler) ListMine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.UserInterests.ListByUser(ctx, middleware.UserID(c))
	if err != nil {
		return internalError(c, h.Log, "Failed to list interests", err)
	}
	return c.JSON(http.StatusOK, list)
}

// AddMine links an interest to the caller.  The weight defaults to 5 and is
// clamped into 1..10.
func (h *InterestHandler) AddMine(c echo.Context) error {
	var req userInterestReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if !utils.ValidUUID(req.InterestID) {
		return fail(c, http.StatusBadRequest, "interestID is required")
	}
	weight := model.DefaultInterestWeight
	if req.Weight != nil {
		weight = *req.Weight
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ok, err := h.Interests.Exists(ctx, req.InterestID)
	if err != nil {
		return internalError(c, h.Log, "Failed to add interest", err)
	}
	if !ok {
		return fail(c, http.StatusNotFound, "Interest not found")
	}
	ui, err := h.UserInterests.Add(ctx, middleware.UserID(c), req.InterestID, weight)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusConflict, "Interest already added")
		}
		return internalError(c, h.Log, "Failed to add interest", err)
	}
	return c.JSON(http.StatusCreated, ui)
}

func (h *InterestHandler) UpdateMine(c echo.Context) error {
	var req userInterestReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Weight == nil || *req.Weight < model.MinInterestWeight || *req.Weight > model.MaxInterestWeight {
		return fail(c, http.StatusBadRequest, "Weight must be between 1 and 10")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.UserInterests.UpdateWeight(ctx, middleware.UserID(c), c.Param("interestId"), *req.Weight); err != nil {
		return repoError(c, h.Log, "Interest", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"interestID": c.Param("interestId"), "weight": *req.Weight})
}

func (h *InterestHandler) RemoveMine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.UserInterests.Remove(ctx, middleware.UserID(c), c.Param("interestId")); err != nil {
		return repoError(c, h.Log, "Interest", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Interest removed"})
}
