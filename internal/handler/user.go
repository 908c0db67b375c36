package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/config"
	"github.com/iliyamo/community-events/internal/mailer"
	"github.com/iliyamo/community-events/internal/middleware"
	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/repository"
	"github.com/iliyamo/community-events/internal/utils"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Notify *mailer.Notifier
	Log    *zap.Logger
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo, notify *mailer.Notifier, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{Cfg: cfg, Users: users, Notify: notify, Log: log}
}

type profileReq struct {
	FullName        *string `json:"fullName"`
	Telegram        *string `json:"telegram"`
	AvatarURL       *string `json:"avatarURL"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

func (h *UserHandler) current(c echo.Context) (*model.User, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err == nil && u.Status == model.UserStatusDeleted {
		return nil, repository.ErrNotFound
	}
	return u, err
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	u, err := h.current(c)
	if err != nil {
		return repoError(c, h.Log, "User", err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateProfile changes name, telegram and avatar.  A password change needs
// the current password unless the account has none (OAuth sign-ups).
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	u, err := h.current(c)
	if err != nil {
		return repoError(c, h.Log, "User", err)
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if n := utils.RuneLen(name); n < 2 || n > 100 {
			return fail(c, http.StatusBadRequest, "Full name must be between 2 and 100 characters")
		}
		u.FullName = name
	}
	if req.Telegram != nil {
		u.Telegram = strings.TrimSpace(*req.Telegram)
	}
	if req.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	var newHash string
	if req.NewPassword != "" {
		if u.PasswordHash != "" && !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
			return fail(c, http.StatusBadRequest, "Current password is incorrect")
		}
		if err := utils.ValidatePassword(req.NewPassword); err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		if newHash, err = utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost); err != nil {
			return internalError(c, h.Log, "Failed to update profile", err)
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, u.ID, u.FullName, u.Telegram, u.AvatarURL); err != nil {
		return repoError(c, h.Log, "User", err)
	}
	if newHash != "" {
		if err := h.Users.UpdatePassword(ctx, u.ID, newHash); err != nil {
			return repoError(c, h.Log, "User", err)
		}
		if err := h.Notify.PasswordChanged(ctx, u.Email); err != nil {
			h.Log.Warn("password changed email", zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, u)
}
