package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/middleware"
	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/repository"
	"github.com/iliyamo/community-events/internal/utils"
)

const maxCommentLen = 2000

type ReviewHandler struct {
	Events       *repository.EventRepo
	Participants *repository.ParticipantRepo
	Reviews      *repository.ReviewRepo
	Log          *zap.Logger
}

func NewReviewHandler(events *repository.EventRepo, participants *repository.ParticipantRepo,
	reviews *repository.ReviewRepo, log *zap.Logger) *ReviewHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewHandler{Events: events, Participants: participants, Reviews: reviews, Log: log}
}

type reviewReq struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func (r reviewReq) validate(creating bool) error {
	if r.Rating == nil && creating {
		return errors.New("Rating is required")
	}
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
		return errors.New("Rating must be between 1 and 5")
	}
	if r.Comment != nil && utils.RuneLen(*r.Comment) > maxCommentLen {
		return errors.New("Comment must be at most 2000 characters")
	}
	return nil
}

func (h *ReviewHandler) List(c echo.Context) error {
	id := c.Param("id")
	ctx, cancel := reqCtx(c)
	defer cancel()

	if ok, err := h.Events.Exists(ctx, id); err != nil {
		return internalError(c, h.Log, "Failed to list reviews", err)
	} else if !ok {
		return fail(c, http.StatusNotFound, "Event not found")
	}
	reviews, err := h.Reviews.List(ctx, id)
	if err != nil {
		return internalError(c, h.Log, "Failed to list reviews", err)
	}
	avg, err := h.Reviews.Average(ctx, id)
	if err != nil {
		return internalError(c, h.Log, "Failed to list reviews", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":          reviews,
		"averageRating": avg,
		"total":         len(reviews),
	})
}

// Create accepts a review from a participant of a past event.
func (h *ReviewHandler) Create(c echo.Context) error {
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(true); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	eventID, uid := c.Param("id"), middleware.UserID(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		return repoError(c, h.Log, "Event", err)
	}
	if e.Status != model.EventStatusPast {
		return fail(c, http.StatusBadRequest, "Only past events can be reviewed")
	}
	ok, err := h.Participants.IsParticipant(ctx, eventID, uid)
	if err != nil {
		return internalError(c, h.Log, "Failed to create review", err)
	}
	if !ok {
		return fail(c, http.StatusForbidden, "Only participants can review this event")
	}
	rv := &model.Review{EventID: eventID, UserID: uid, Rating: *req.Rating, Comment: optString(req.Comment)}
	if err := h.Reviews.Create(ctx, rv); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusConflict, "You have already reviewed this event")
		}
		return internalError(c, h.Log, "Failed to create review", err)
	}
	created, err := h.Reviews.GetByID(ctx, eventID, rv.ID)
	if err != nil {
		return repoError(c, h.Log, "Review", err)
	}
	return c.JSON(http.StatusCreated, created)
}

// authored loads the review and checks the caller wrote it or is an admin.
func (h *ReviewHandler) authored(c echo.Context) (*model.Review, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rv, err := h.Reviews.GetByID(ctx, c.Param("id"), c.Param("reviewId"))
	if err != nil {
		return nil, err
	}
	if rv.UserID != middleware.UserID(c) && !middleware.IsAdmin(c) {
		return nil, repository.ErrForbidden
	}
	return rv, nil
}

func (h *ReviewHandler) Update(c echo.Context) error {
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(false); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	rv, err := h.authored(c)
	if err != nil {
		return repoError(c, h.Log, "Review", err)
	}
	if req.Rating != nil {
		rv.Rating = *req.Rating
	}
	if req.Comment != nil {
		rv.Comment = optString(req.Comment)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Reviews.Update(ctx, rv); err != nil {
		return repoError(c, h.Log, "Review", err)
	}
	return c.JSON(http.StatusOK, rv)
}

func (h *ReviewHandler) Delete(c echo.Context) error {
	rv, err := h.authored(c)
	if err != nil {
		return repoError(c, h.Log, "Review", err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Reviews.Delete(ctx, rv.ID); err != nil {
		return repoError(c, h.Log, "Review", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Review deleted"})
}
