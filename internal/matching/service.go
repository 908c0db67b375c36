package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/metrics"
	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/repository"
)

var (
	ErrNoIntent         = errors.New("matching intent not found")
	ErrNotLooking       = errors.New("matching intent is not LOOKING")
	ErrEventNotFound    = errors.New("event not found")
	ErrSelfRequest      = errors.New("cannot send a request to yourself")
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateRequest = errors.New("request already sent")
	ErrRequestNotFound  = errors.New("request not found")
	ErrInvalidState     = errors.New("request is not pending")
	ErrValidation       = errors.New("invalid input")
)

// IntentStore persists per-event matching intents.  Get and Delete return
// repository.ErrNotFound for missing rows.
type IntentStore interface {
	Get(ctx context.Context, userID, eventID string) (*model.EventMatching, error)
	Upsert(ctx context.Context, m *model.EventMatching) error
	Delete(ctx context.Context, userID, eventID string) error
	ListLooking(ctx context.Context, eventID, excludeUserID string) ([]model.UserRef, error)
	SetStatus(ctx context.Context, eventID, status string, userIDs ...string) (int64, error)
}

type InterestStore interface {
	ListByUsers(ctx context.Context, userIDs []string) (map[string][]model.UserInterest, error)
}

// RequestStore persists match requests.  Create returns
// repository.ErrConflict for a repeated (from, to, event) triple and
// repository.ErrNotFound when the target user does not exist; Transition
// and DeletePending return it when the row is no longer PENDING.
type RequestStore interface {
	Create(ctx context.Context, m *model.MatchRequest) error
	Get(ctx context.Context, id string) (*model.MatchRequest, error)
	Transition(ctx context.Context, id, toUserID, status string) error
	DeletePending(ctx context.Context, id, fromUserID string) error
	ListForUser(ctx context.Context, userID, status string) ([]model.MatchRequest, error)
}

type EventStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Notifier is told about request lifecycle changes.  Failures are logged and
// never fail the operation.
type Notifier interface {
	RequestCreated(ctx context.Context, req *model.MatchRequest) error
	RequestAccepted(ctx context.Context, req *model.MatchRequest) error
}

// Match is one ranked candidate returned by FindMatches.
type Match struct {
	User            model.UserRef `json:"user"`
	Score           float64       `json:"score"`
	CommonInterests []string      `json:"commonInterests"`
}

type Service struct {
	intents   IntentStore
	interests InterestStore
	requests  RequestStore
	events    EventStore
	notify    Notifier
	log       *zap.Logger
}

func NewService(intents IntentStore, interests InterestStore, requests RequestStore, events EventStore, notify Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{intents: intents, interests: interests, requests: requests, events: events, notify: notify, log: log}
}

func (s *Service) intent(ctx context.Context, userID, eventID string) (*model.EventMatching, error) {
	m, err := s.intents.Get(ctx, userID, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoIntent
	}
	return m, err
}

func toScoreMap(in []model.UserInterest) map[string]Interest {
	out := make(map[string]Interest, len(in))
	for _, ui := range in {
		out[ui.InterestID] = Interest{Name: ui.Name, Weight: ui.Weight}
	}
	return out
}

// FindMatches ranks the other LOOKING users of eventID against userID.  The
// caller must itself be LOOKING.  Candidates sharing no interest are left
// out; ties in score are ordered by user id.
func (s *Service) FindMatches(ctx context.Context, userID, eventID string) ([]Match, error) {
	ctx, span := otel.Tracer("matching").Start(ctx, "matching.FindMatches",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	me, err := s.intent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if me.Status != model.IntentLooking {
		return nil, ErrNotLooking
	}

	candidates, err := s.intents.ListLooking(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	span.SetAttributes(attribute.Int("matching.candidates", len(candidates)))
	metrics.MatchCandidatesScored.Observe(float64(len(candidates)))

	ids := make([]string, 0, len(candidates)+1)
	ids = append(ids, userID)
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	byUser, err := s.interests.ListByUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load interests: %w", err)
	}

	mine := toScoreMap(byUser[userID])
	matches := []Match{}
	for _, c := range candidates {
		score, common, ok := Score(mine, toScoreMap(byUser[c.ID]))
		if !ok {
			continue
		}
		matches = append(matches, Match{User: c, Score: score, CommonInterests: common})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].User.ID < matches[j].User.ID
	})
	span.SetAttributes(attribute.Int("matching.results", len(matches)))
	return matches, nil
}

// SetIntent creates or replaces the caller's intent for eventID.  An empty
// status means LOOKING.
func (s *Service) SetIntent(ctx context.Context, userID, eventID, status string, preferences *string) (*model.EventMatching, error) {
	if status == "" {
		status = model.IntentLooking
	}
	if !model.ValidIntentStatus(status) {
		return nil, fmt.Errorf("%w: status must be LOOKING, FOUND or GOING_ALONE", ErrValidation)
	}
	ok, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEventNotFound
	}
	if err := s.intents.Upsert(ctx, &model.EventMatching{
		UserID: userID, EventID: eventID, Status: status, Preferences: preferences,
	}); err != nil {
		return nil, err
	}
	return s.intents.Get(ctx, userID, eventID)
}

func (s *Service) RemoveIntent(ctx context.Context, userID, eventID string) error {
	err := s.intents.Delete(ctx, userID, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoIntent
	}
	return err
}

// CreateRequest sends a PENDING request from fromID to toID for eventID.
func (s *Service) CreateRequest(ctx context.Context, fromID, eventID, toID string, message *string) (*model.MatchRequest, error) {
	if toID == "" {
		return nil, fmt.Errorf("%w: toUserID is required", ErrValidation)
	}
	if toID == fromID {
		return nil, ErrSelfRequest
	}
	ok, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEventNotFound
	}
	req := &model.MatchRequest{FromUserID: fromID, ToUserID: toID, EventID: eventID, Message: message}
	if err := s.requests.Create(ctx, req); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrDuplicateRequest
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	metrics.MatchRequestsTotal.WithLabelValues(model.RequestPending).Inc()

	full, err := s.requests.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		if err := s.notify.RequestCreated(ctx, full); err != nil {
			s.log.Warn("match request notification failed", zap.String("request_id", full.ID), zap.Error(err))
		}
	}
	return full, nil
}

// received loads a request addressed to userID.  Requests addressed to
// someone else look missing.
func (s *Service) received(ctx context.Context, userID, requestID string) (*model.MatchRequest, error) {
	req, err := s.requests.Get(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if req.ToUserID != userID {
		return nil, ErrRequestNotFound
	}
	if req.Status != model.RequestPending {
		return nil, ErrInvalidState
	}
	return req, nil
}

func (s *Service) transition(ctx context.Context, req *model.MatchRequest, status string) error {
	err := s.requests.Transition(ctx, req.ID, req.ToUserID, status)
	if errors.Is(err, repository.ErrConflict) {
		return ErrInvalidState
	}
	if err != nil {
		return err
	}
	req.Status = status
	metrics.MatchRequestsTotal.WithLabelValues(status).Inc()
	return nil
}

// Accept marks the request ACCEPTED and moves both users' intents for the
// event to FOUND.  Missing intents are not an error.
func (s *Service) Accept(ctx context.Context, userID, requestID string) (*model.MatchRequest, error) {
	req, err := s.received(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, req, model.RequestAccepted); err != nil {
		return nil, err
	}
	if _, err := s.intents.SetStatus(ctx, req.EventID, model.IntentFound, req.FromUserID, req.ToUserID); err != nil {
		s.log.Warn("set intents to FOUND failed", zap.String("request_id", req.ID), zap.Error(err))
	}
	if s.notify != nil {
		if err := s.notify.RequestAccepted(ctx, req); err != nil {
			s.log.Warn("match request notification failed", zap.String("request_id", req.ID), zap.Error(err))
		}
	}
	return req, nil
}

func (s *Service) Reject(ctx context.Context, userID, requestID string) (*model.MatchRequest, error) {
	req, err := s.received(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, req, model.RequestRejected); err != nil {
		return nil, err
	}
	return req, nil
}

// Cancel lets the sender withdraw a request that is still PENDING.
func (s *Service) Cancel(ctx context.Context, userID, requestID string) error {
	req, err := s.requests.Get(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	if req.FromUserID != userID {
		return ErrRequestNotFound
	}
	if req.Status != model.RequestPending {
		return ErrInvalidState
	}
	err = s.requests.DeletePending(ctx, requestID, userID)
	if errors.Is(err, repository.ErrConflict) {
		return ErrInvalidState
	}
	return err
}

// ListRequests returns the user's incoming and outgoing requests.
func (s *Service) ListRequests(ctx context.Context, userID, status string) ([]model.MatchRequest, error) {
	if status != "" && !model.ValidRequestStatus(status) {
		return nil, fmt.Errorf("%w: status must be PENDING, ACCEPTED or REJECTED", ErrValidation)
	}
	return s.requests.ListForUser(ctx, userID, status)
}
