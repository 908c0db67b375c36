package handler

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/config"
	"github.com/iliyamo/community-events/internal/mailer"
	"github.com/iliyamo/community-events/internal/middleware"
	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/oauth"
	"github.com/iliyamo/community-events/internal/repository"
	"github.com/iliyamo/community-events/internal/utils"
)

const (
	codeTTL         = 10 * time.Minute
	maxCodeAttempts = 5
	resetTTL        = 24 * time.Hour

	oauthStateCookie = "yandex_oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Pending *repository.RegistrationRepo
	Resets  *repository.PasswordResetRepo
	Notify  *mailer.Notifier
	Yandex  *oauth.Yandex
	// FakeYandex enables POST /yandex/fake for local development.
	FakeYandex bool
	Log        *zap.Logger
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo,
	pending *repository.RegistrationRepo, resets *repository.PasswordResetRepo,
	notify *mailer.Notifier, yandex *oauth.Yandex, fakeYandex bool, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Pending: pending, Resets: resets,
		Notify: notify, Yandex: yandex, FakeYandex: fakeYandex, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Telegram string `json:"telegram"`
}
type verifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
type emailReq struct {
	Email string `json:"email"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
type fakeYandexReq struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	YandexID string `json:"yandexId"`
}

type sessionResp struct {
	Token        string      `json:"token"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
}

// issue creates an access token and a stored refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u *model.User) (*sessionResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &sessionResp{Token: access.Token, ExpiresAt: access.Exp, RefreshToken: refresh.Raw, User: u}, nil
}

func (h *AuthHandler) session(c echo.Context, ctx context.Context, status int, u *model.User) error {
	s, err := h.issue(ctx, u)
	if err != nil {
		return internalError(c, h.Log, "Failed to issue tokens", err)
	}
	return c.JSON(status, s)
}

// Register stores a pending registration and emails a confirmation code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = utils.NormalizeEmail(req.Email)
	if n := utils.RuneLen(req.FullName); n < 2 || n > 100 {
		return fail(c, http.StatusBadRequest, "Full name must be between 2 and 100 characters")
	}
	if !utils.ValidEmail(req.Email) {
		return fail(c, http.StatusBadRequest, "Invalid email format")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil && u.Status != model.UserStatusDeleted:
		return fail(c, http.StatusConflict, "User with this email already exists")
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return internalError(c, h.Log, "Failed to register", err)
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, h.Log, "Failed to register", err)
	}
	code, err := utils.VerificationCode()
	if err != nil {
		return internalError(c, h.Log, "Failed to register", err)
	}
	p := &model.PendingRegistration{
		FullName:      req.FullName,
		Email:         req.Email,
		PasswordHash:  hash,
		Telegram:      strings.TrimSpace(req.Telegram),
		Code:          code,
		CodeExpiresAt: time.Now().UTC().Add(codeTTL),
	}
	if err := h.Pending.Upsert(ctx, p); err != nil {
		return internalError(c, h.Log, "Failed to register", err)
	}
	if err := h.Notify.VerificationCode(ctx, p.Email, code); err != nil {
		return internalError(c, h.Log, "Failed to send verification email", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Verification code sent to your email",
		"email":   p.Email,
	})
}

// VerifyEmail turns a pending registration into an account.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = utils.NormalizeEmail(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || len(req.Code) != 6 {
		return fail(c, http.StatusBadRequest, "Invalid verification code")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Pending.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusBadRequest, "Invalid or expired verification code")
	}
	if err != nil {
		return internalError(c, h.Log, "Failed to verify email", err)
	}
	if p.Attempts >= maxCodeAttempts {
		return fail(c, http.StatusBadRequest, "Too many attempts, request a new code")
	}
	if p.Code != req.Code {
		if err := h.Pending.IncrementAttempts(ctx, p.ID); err != nil {
			h.Log.Warn("increment attempts", zap.Error(err))
		}
		return fail(c, http.StatusBadRequest, "Invalid or expired verification code")
	}
	if time.Now().UTC().After(p.CodeExpiresAt) {
		return fail(c, http.StatusBadRequest, "Invalid or expired verification code")
	}

	u := &model.User{
		FullName:      p.FullName,
		Email:         p.Email,
		PasswordHash:  p.PasswordHash,
		Telegram:      p.Telegram,
		EmailVerified: true,
	}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			_ = h.Pending.Delete(ctx, p.ID)
			return fail(c, http.StatusConflict, "User with this email already exists")
		}
		return internalError(c, h.Log, "Failed to verify email", err)
	}
	if err := h.Pending.Delete(ctx, p.ID); err != nil {
		h.Log.Warn("delete pending registration", zap.Error(err))
	}
	_ = h.Notify.Welcome(ctx, u.Email, u.FullName)
	return h.session(c, ctx, http.StatusCreated, u)
}

// ResendCode issues a fresh code for an existing pending registration.
func (h *AuthHandler) ResendCode(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return fail(c, http.StatusBadRequest, "Email is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Pending.GetByEmail(ctx, utils.NormalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "Registration request not found")
	}
	if err != nil {
		return internalError(c, h.Log, "Failed to resend code", err)
	}
	code, err := utils.VerificationCode()
	if err != nil {
		return internalError(c, h.Log, "Failed to resend code", err)
	}
	if err := h.Pending.UpdateCode(ctx, p.ID, code, time.Now().UTC().Add(codeTTL)); err != nil {
		return internalError(c, h.Log, "Failed to resend code", err)
	}
	if err := h.Notify.VerificationCode(ctx, p.Email, code); err != nil {
		return internalError(c, h.Log, "Failed to send verification email", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "A new verification code has been sent"})
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = utils.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "Invalid email or password")
		}
		return internalError(c, h.Log, "Failed to log in", err)
	}
	if u.Status == model.UserStatusDeleted || u.PasswordHash == "" ||
		!utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	return h.session(c, ctx, http.StatusOK, u)
}

// Logout revokes the supplied refresh token.  An authenticated call without
// a refresh token revokes every session of the caller.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch {
	case raw != "":
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return internalError(c, h.Log, "Failed to log out", err)
		}
	case middleware.UserID(c) != "":
		if err := h.Tokens.RevokeAllForUser(ctx, middleware.UserID(c)); err != nil {
			return internalError(c, h.Log, "Failed to log out", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "refreshToken is required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid refresh token")
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || u.Status == model.UserStatusDeleted {
		return fail(c, http.StatusUnauthorized, "Invalid refresh token")
	}
	return h.session(c, ctx, http.StatusOK, u)
}

const forgotMessage = "If an account with this email exists, a reset link has been sent"

// ForgotPassword always answers 200 so account existence is not revealed.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	email := utils.NormalizeEmail(req.Email)
	if !utils.ValidEmail(email) {
		return fail(c, http.StatusBadRequest, "Invalid email format")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.Status == model.UserStatusDeleted) {
		return c.JSON(http.StatusOK, echo.Map{"message": forgotMessage})
	}
	if err != nil {
		return internalError(c, h.Log, "Failed to process request", err)
	}
	token, err := utils.RandomHex(32)
	if err != nil {
		return internalError(c, h.Log, "Failed to process request", err)
	}
	if err := h.Resets.Create(ctx, u.ID, token, time.Now().UTC().Add(resetTTL)); err != nil {
		return internalError(c, h.Log, "Failed to process request", err)
	}
	if err := h.Notify.PasswordResetLink(ctx, u.Email, token); err != nil {
		return internalError(c, h.Log, "Failed to send email", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": forgotMessage})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return fail(c, http.StatusBadRequest, "Token and password are required")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	reset, err := h.Resets.GetValid(ctx, strings.TrimSpace(req.Token), time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusBadRequest, "Invalid or expired token")
	}
	if err != nil {
		return internalError(c, h.Log, "Failed to reset password", err)
	}
	if err := h.Resets.MarkUsed(ctx, reset.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusBadRequest, "Invalid or expired token")
		}
		return internalError(c, h.Log, "Failed to reset password", err)
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, h.Log, "Failed to reset password", err)
	}
	if err := h.Users.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		return repoError(c, h.Log, "User", err)
	}
	_ = h.Tokens.RevokeAllForUser(ctx, reset.UserID)
	if u, err := h.Users.GetByID(ctx, reset.UserID); err == nil {
		_ = h.Notify.PasswordChanged(ctx, u.Email)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed, you can now log in"})
}

// YandexAuth returns the Yandex authorization URL.
func (h *AuthHandler) YandexAuth(c echo.Context) error {
	if h.Yandex == nil || !h.Yandex.Configured() {
		if h.FakeYandex {
			return c.JSON(http.StatusOK, echo.Map{
				"fake":    true,
				"message": "Use POST /api/auth/yandex/fake",
			})
		}
		return fail(c, http.StatusServiceUnavailable, "Yandex OAuth is not configured")
	}
	state, err := utils.RandomHex(16)
	if err != nil {
		return internalError(c, h.Log, "Failed to start OAuth", err)
	}
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/yandex",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"authUrl": h.Yandex.AuthURL(state), "state": state})
}

// validState compares the callback state with the one issued to this
// browser by YandexAuth.
func validState(c echo.Context) bool {
	state := c.QueryParam("state")
	ck, err := c.Cookie(oauthStateCookie)
	if state == "" || err != nil || ck.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(state), []byte(ck.Value)) == 1
}

// YandexCallback exchanges the code and signs the account in, creating it
// on first use and linking an existing email account otherwise.
func (h *AuthHandler) YandexCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return fail(c, http.StatusBadRequest, "Authorization code missing")
	}
	if h.Yandex == nil || !h.Yandex.Configured() {
		return fail(c, http.StatusServiceUnavailable, "Yandex OAuth is not configured")
	}
	if !validState(c) {
		return fail(c, http.StatusBadRequest, "Invalid OAuth state")
	}
	c.SetCookie(&http.Cookie{Name: oauthStateCookie, Path: "/api/auth/yandex", MaxAge: -1, HttpOnly: true})

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	p, err := h.Yandex.Profile(ctx, code)
	if err != nil {
		return internalError(c, h.Log, "Failed to fetch Yandex profile", err)
	}
	u, err := h.yandexUser(ctx, p.ID, p.Email(), p.FullName())
	if err != nil {
		return h.yandexError(c, err)
	}
	return h.session(c, ctx, http.StatusOK, u)
}

// FakeYandexAuth signs in a made-up Yandex account.  Disabled unless
// YANDEX_FAKE_AUTH is set.
func (h *AuthHandler) FakeYandexAuth(c echo.Context) error {
	if !h.FakeYandex {
		return fail(c, http.StatusNotFound, "Fake authentication is disabled")
	}
	var req fakeYandexReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	email := utils.NormalizeEmail(req.Email)
	if !utils.ValidEmail(email) {
		return fail(c, http.StatusBadRequest, "Invalid email format")
	}
	name := strings.TrimSpace(req.FullName)
	if utils.RuneLen(name) < 2 {
		name = strings.SplitN(email, "@", 2)[0]
	}
	yid := strings.TrimSpace(req.YandexID)
	if yid == "" {
		sum := md5.Sum([]byte(email))
		yid = "fake_" + hex.EncodeToString(sum[:])
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.yandexUser(ctx, yid, email, name)
	if err != nil {
		return h.yandexError(c, err)
	}
	return h.session(c, ctx, http.StatusOK, u)
}

var errAccountDeleted = errors.New("account deleted")

func (h *AuthHandler) yandexUser(ctx context.Context, yandexID, email, name string) (*model.User, error) {
	u, err := h.Users.GetByYandexID(ctx, yandexID)
	if err == nil {
		if u.Status == model.UserStatusDeleted {
			return nil, errAccountDeleted
		}
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	u, err = h.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Status == model.UserStatusDeleted {
			return nil, errAccountDeleted
		}
		if err := h.Users.LinkYandex(ctx, u.ID, yandexID); err != nil {
			return nil, err
		}
		u.YandexID = &yandexID
		return u, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	u = &model.User{
		FullName:      name,
		Email:         email,
		YandexID:      &yandexID,
		EmailVerified: true,
		AuthProvider:  model.AuthProviderYandex,
	}
	if err := h.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	_ = h.Notify.Welcome(ctx, u.Email, u.FullName)
	return u, nil
}

func (h *AuthHandler) yandexError(c echo.Context, err error) error {
	if errors.Is(err, errAccountDeleted) {
		return fail(c, http.StatusForbidden, "Account has been deleted")
	}
	return internalError(c, h.Log, "Failed to sign in with Yandex", err)
}

// InitAdmin creates the default administrator once.
func (h *AuthHandler) InitAdmin(c echo.Context) error {
	if h.Cfg.AdminPassword == "" {
		return fail(c, http.StatusServiceUnavailable, "ADMIN_PASSWORD is not configured")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	exists, err := h.Users.AdminExists(ctx)
	if err != nil {
		return internalError(c, h.Log, "Failed to create admin", err)
	}
	if exists {
		return fail(c, http.StatusConflict, "Administrators already exist, use regular login")
	}
	hash, err := utils.HashPassword(h.Cfg.AdminPassword, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, h.Log, "Failed to create admin", err)
	}
	u := &model.User{
		FullName:      "Administrator",
		Email:         h.Cfg.AdminEmail,
		PasswordHash:  hash,
		Role:          model.RoleAdmin,
		EmailVerified: true,
	}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "A user with the admin email already exists")
		}
		return internalError(c, h.Log, "Failed to create admin", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Default administrator created",
		"user":    u,
	})
}
