package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/geocoder"
	"github.com/iliyamo/community-events/internal/middleware"
	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/repository"
	"github.com/iliyamo/community-events/internal/utils"
)

// EventHandler serves event listing, CRUD and participation.
type EventHandler struct {
	Events       *repository.EventRepo
	Categories   *repository.CategoryRepo
	Participants *repository.ParticipantRepo
	Reviews      *repository.ReviewRepo
	Log          *zap.Logger
}

func NewEventHandler(events *repository.EventRepo, categories *repository.CategoryRepo,
	participants *repository.ParticipantRepo, reviews *repository.ReviewRepo, log *zap.Logger) *EventHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHandler{Events: events, Categories: categories, Participants: participants, Reviews: reviews, Log: log}
}

type eventReq struct {
	Title            *string   `json:"title"`
	ShortDescription *string   `json:"shortDescription"`
	FullDescription  *string   `json:"fullDescription"`
	StartDate        *string   `json:"startDate"`
	EndDate          *string   `json:"endDate"`
	ImageURL         *string   `json:"imageURL"`
	PaymentInfo      *string   `json:"paymentInfo"`
	MaxParticipants  *int      `json:"maxParticipants"`
	Status           *string   `json:"status"`
	CategoryIDs      []string  `json:"categoryIDs"`
	Tags             []string  `json:"tags"`
	Address          *string   `json:"address"`
	Latitude         *float64  `json:"latitude"`
	Longitude        *float64  `json:"longitude"`
}

// apply copies the supplied fields onto e and validates the result.  On
// create every required field must be present; on update only supplied
// fields change.
func (r eventReq) apply(e *model.Event, creating bool, now time.Time) error {
	if r.Title != nil {
		e.Title = strings.TrimSpace(*r.Title)
	}
	if creating || r.Title != nil {
		if n := utils.RuneLen(e.Title); n < 3 || n > 200 {
			return errors.New("Title must be between 3 and 200 characters")
		}
	}
	if r.ShortDescription != nil {
		e.ShortDescription = optString(r.ShortDescription)
		if e.ShortDescription != nil && utils.RuneLen(*e.ShortDescription) > 500 {
			return errors.New("Short description must be at most 500 characters")
		}
	}
	if r.FullDescription != nil {
		e.FullDescription = strings.TrimSpace(*r.FullDescription)
	}
	if (creating || r.FullDescription != nil) && e.FullDescription == "" {
		return errors.New("Full description is required")
	}

	if r.StartDate != nil {
		t, err := parseTime(*r.StartDate)
		if err != nil {
			return errors.New("Invalid start date")
		}
		if !t.After(now) {
			return errors.New("Start date must be in the future")
		}
		e.StartDate = t
	} else if creating {
		return errors.New("Start date is required")
	}
	if r.EndDate != nil {
		t, err := parseTime(*r.EndDate)
		if err != nil {
			return errors.New("Invalid end date")
		}
		e.EndDate = t
	} else if creating {
		return errors.New("End date is required")
	}
	if !e.EndDate.After(e.StartDate) {
		return errors.New("End date must be after start date")
	}

	if r.ImageURL != nil {
		e.ImageURL = optString(r.ImageURL)
	}
	if r.PaymentInfo != nil {
		e.PaymentInfo = optString(r.PaymentInfo)
	}
	if r.MaxParticipants != nil {
		if *r.MaxParticipants < 1 {
			return errors.New("Max participants must be at least 1")
		}
		v := *r.MaxParticipants
		e.MaxParticipants = &v
	}
	if r.Status != nil && !creating {
		if !model.ValidEventStatus(*r.Status) {
			return errors.New("Invalid status")
		}
		e.Status = *r.Status
	}
	if r.Tags != nil {
		tags := make([]string, 0, len(r.Tags))
		for _, t := range r.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		e.Tags = tags
	}

	if r.Address != nil {
		e.Address = optString(r.Address)
	}
	if r.Latitude != nil {
		if *r.Latitude < -90 || *r.Latitude > 90 {
			return errors.New("Latitude must be between -90 and 90")
		}
		v := *r.Latitude
		e.Latitude = &v
	}
	if r.Longitude != nil {
		if *r.Longitude < -180 || *r.Longitude > 180 {
			return errors.New("Longitude must be between -180 and 180")
		}
		v := *r.Longitude
		e.Longitude = &v
	}
	switch {
	case e.Latitude != nil && e.Longitude != nil:
		link := geocoder.MapLink(*e.Latitude, *e.Longitude)
		e.YandexMapLink = &link
	case e.Address != nil:
		link := geocoder.AddressLink(*e.Address)
		e.YandexMapLink = &link
	default:
		e.YandexMapLink = nil
	}
	return nil
}

// filterFromQuery reads the listing parameters shared by the public and
// admin event lists.
func filterFromQuery(c echo.Context) (repository.EventFilter, error) {
	f := repository.EventFilter{
		Tab:       c.QueryParam("tab"),
		Status:    c.QueryParam("status"),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
		ViewerID:  middleware.UserID(c),
	}
	switch f.Tab {
	case "", "active", "past":
	case "my":
		if f.ViewerID == "" {
			return f, errors.New("Authorization required for tab=my")
		}
	default:
		return f, errors.New("tab must be one of active, my, past")
	}
	if f.Status != "" && !model.ValidEventStatus(f.Status) {
		return f, errors.New("Invalid status")
	}
	switch f.SortBy {
	case "", "startDate", "createdAt", "participantsCount":
	default:
		return f, errors.New("sortBy must be one of startDate, createdAt, participantsCount")
	}
	switch strings.ToLower(f.SortOrder) {
	case "", "asc", "desc":
	default:
		return f, errors.New("sortOrder must be asc or desc")
	}
	if s := strings.TrimSpace(c.QueryParam("search")); s != "" {
		if utils.RuneLen(s) > 200 {
			return f, errors.New("Search must be at most 200 characters")
		}
		f.Search = s
	}
	f.CategoryIDs = splitList(c.QueryParam("categoryIDs"))
	f.Tags = splitList(c.QueryParam("tags"))
	if v := c.QueryParam("dateFrom"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return f, errors.New("Invalid dateFrom")
		}
		f.DateFrom = &t
	}
	if v := c.QueryParam("dateTo"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return f, errors.New("Invalid dateTo")
		}
		f.DateTo = &t
	}
	var err error
	if f.Page, f.Limit, err = pageParams(c); err != nil {
		return f, err
	}
	return f, nil
}

// search runs f and attaches categories to the page in one query.
func (h *EventHandler) search(c echo.Context, f repository.EventFilter) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	events, total, err := h.Events.Search(ctx, f)
	if err != nil {
		return internalError(c, h.Log, "Failed to list events", err)
	}
	ids := make([]string, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}
	cats, err := h.Categories.ForEvents(ctx, ids)
	if err != nil {
		return internalError(c, h.Log, "Failed to list events", err)
	}
	for i := range events {
		events[i].Categories = cats[events[i].ID]
		if events[i].Categories == nil {
			events[i].Categories = []model.Category{}
		}
	}
	return paged(c, events, f.Page, f.Limit, total)
}

// List handles GET /api/events.
func (h *EventHandler) List(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	return h.search(c, f)
}

// AdminList handles GET /api/admin/events; rejected events are included.
func (h *EventHandler) AdminList(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	f.IncludeRejected = true
	return h.search(c, f)
}

// Get returns one event with its relations.
func (h *EventHandler) Get(c echo.Context) error {
	id := c.Param("id")
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, "Event", err)
	}
	cats, err := h.Categories.ForEvents(ctx, []string{id})
	if err != nil {
		return internalError(c, h.Log, "Failed to load event", err)
	}
	e.Categories = cats[id]
	if e.Categories == nil {
		e.Categories = []model.Category{}
	}
	if e.Participants, err = h.Participants.List(ctx, id); err != nil {
		return internalError(c, h.Log, "Failed to load event", err)
	}
	if uid := middleware.UserID(c); uid != "" {
		for _, p := range e.Participants {
			if p.UserID == uid {
				e.IsParticipant = true
				break
			}
		}
	}
	if e.AverageRating, err = h.Reviews.Average(ctx, id); err != nil {
		return internalError(c, h.Log, "Failed to load event", err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Create(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	e := &model.Event{OrganizerID: middleware.UserID(c), Status: model.EventStatusActive, Tags: []string{}}
	if err := req.apply(e, true, time.Now().UTC()); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Events.Create(ctx, e, req.CategoryIDs); err != nil {
		return internalError(c, h.Log, "Failed to create event", err)
	}
	created, err := h.Events.GetByID(ctx, e.ID)
	if err != nil {
		return repoError(c, h.Log, "Event", err)
	}
	return c.JSON(http.StatusCreated, created)
}

// owned loads the event and checks that the caller organizes it or is an
// admin.
func (h *EventHandler) owned(c echo.Context) (*model.Event, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if e.OrganizerID != middleware.UserID(c) && !middleware.IsAdmin(c) {
		return nil, repository.ErrForbidden
	}
	return e, nil
}

func (h *EventHandler) Update(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	e, err := h.owned(c)
	if err != nil {
		return repoError(c, h.Log, "Event", err)
	}
	if err := req.apply(e, false, time.Now().UTC()); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Events.Update(ctx, e, req.CategoryIDs); err != nil {
		return repoError(c, h.Log, "Event", err)
	}
	updated, err := h.Events.GetByID(ctx, e.ID)
	if err != nil {
		return repoError(c, h.Log, "Event", err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *EventHandler) Delete(c echo.Context) error {
	e, err := h.owned(c)
	if err != nil {
		return repoError(c, h.Log, "Event", err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Events.SoftDelete(ctx, e.ID); err != nil {
		return repoError(c, h.Log, "Event", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Event deleted"})
}

func (h *EventHandler) Join(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Participants.Join(ctx, c.Param("id"), middleware.UserID(c))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "Joined event"})
	case errors.Is(err, repository.ErrEventFull):
		return fail(c, http.StatusConflict, "Event is full")
	case errors.Is(err, repository.ErrEventClosed):
		return fail(c, http.StatusBadRequest, "Only active events can be joined")
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, "Already a participant")
	}
	return repoError(c, h.Log, "Event", err)
}

func (h *EventHandler) Leave(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Participants.Leave(ctx, c.Param("id"), middleware.UserID(c)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Not a participant of this event")
		}
		return internalError(c, h.Log, "Failed to leave event", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Left event"})
}

// Export sends the participant list as CSV to the organizer or an admin.
func (h *EventHandler) Export(c echo.Context) error {
	e, err := h.owned(c)
	if err != nil {
		return repoError(c, h.Log, "Event", err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ps, err := h.Participants.List(ctx, e.ID)
	if err != nil {
		return internalError(c, h.Log, "Failed to export participants", err)
	}
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []string{p.FullName, p.Email, p.Telegram, p.JoinedAt.Format(time.RFC3339)})
	}
	return writeCSV(c, "participants-"+e.ID+".csv", []string{"fullName", "email", "telegram", "joinedAt"}, rows)
}
