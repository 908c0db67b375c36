package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/config"
	"github.com/iliyamo/community-events/internal/mailer"
	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/repository"
	"github.com/iliyamo/community-events/internal/utils"
)

const generatedPasswordLen = 12

// AdminHandler manages user accounts.  Every route sits behind
// RequireAdmin.
type AdminHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Notify *mailer.Notifier
	Log    *zap.Logger
}

func NewAdminHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo,
	notify *mailer.Notifier, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Cfg: cfg, Users: users, Tokens: tokens, Notify: notify, Log: log}
}

type adminUserReq struct {
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Status   string  `json:"status"`
	Telegram *string `json:"telegram"`
}

type passwordReq struct {
	Password string `json:"password"`
}

func validRole(r string) bool   { return r == model.RoleUser || r == model.RoleAdmin }
func validStatus(s string) bool { return s == model.UserStatusActive || s == model.UserStatusDeleted }

func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	f := repository.UserFilter{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Role:   c.QueryParam("role"),
		Status: c.QueryParam("status"),
		Page:   page,
		Limit:  limit,
	}
	if f.Role != "" && !validRole(f.Role) {
		return fail(c, http.StatusBadRequest, "Invalid role")
	}
	if f.Status != "" && !validStatus(f.Status) {
		return fail(c, http.StatusBadRequest, "Invalid status")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, total, err := h.Users.List(ctx, f)
	if err != nil {
		return internalError(c, h.Log, "Failed to list users", err)
	}
	return paged(c, users, page, limit, total)
}

// CreateUser adds an account.  Without a password one is generated; either
// way the password is emailed to the user.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req adminUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	name := strings.TrimSpace(req.FullName)
	email := utils.NormalizeEmail(req.Email)
	if n := utils.RuneLen(name); n < 2 || n > 100 {
		return fail(c, http.StatusBadRequest, "Full name must be between 2 and 100 characters")
	}
	if !utils.ValidEmail(email) {
		return fail(c, http.StatusBadRequest, "Invalid email format")
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !validRole(req.Role) {
		return fail(c, http.StatusBadRequest, "Invalid role")
	}
	password := req.Password
	if password == "" {
		var err error
		if password, err = utils.GeneratePassword(generatedPasswordLen); err != nil {
			return internalError(c, h.Log, "Failed to create user", err)
		}
	} else if err := utils.ValidatePassword(password); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, h.Log, "Failed to create user", err)
	}
	u := &model.User{
		FullName:      name,
		Email:         email,
		PasswordHash:  hash,
		Role:          req.Role,
		EmailVerified: true,
	}
	if req.Telegram != nil {
		u.Telegram = strings.TrimSpace(*req.Telegram)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Create(ctx, u); err != nil {
		return repoError(c, h.Log, "User", err)
	}
	if err := h.Notify.PasswordIssued(ctx, u.Email, u.FullName, password); err != nil {
		h.Log.Warn("send password email", zap.String("user_id", u.ID), zap.Error(err))
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *AdminHandler) GetUser(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(c, h.Log, "User", err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req adminUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(c, h.Log, "User", err)
	}
	if name := strings.TrimSpace(req.FullName); name != "" {
		if n := utils.RuneLen(name); n < 2 || n > 100 {
			return fail(c, http.StatusBadRequest, "Full name must be between 2 and 100 characters")
		}
		u.FullName = name
	}
	if req.Email != "" {
		email := utils.NormalizeEmail(req.Email)
		if !utils.ValidEmail(email) {
			return fail(c, http.StatusBadRequest, "Invalid email format")
		}
		u.Email = email
	}
	if req.Role != "" {
		if !validRole(req.Role) {
			return fail(c, http.StatusBadRequest, "Invalid role")
		}
		u.Role = req.Role
	}
	if req.Status != "" {
		if !validStatus(req.Status) {
			return fail(c, http.StatusBadRequest, "Invalid status")
		}
		u.Status = req.Status
	}
	if req.Telegram != nil {
		u.Telegram = strings.TrimSpace(*req.Telegram)
	}
	if err := h.Users.AdminUpdate(ctx, u); err != nil {
		return repoError(c, h.Log, "User", err)
	}
	return c.JSON(http.StatusOK, u)
}

// DeleteUser soft-deletes the account and revokes its sessions.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id := c.Param("id")
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.SoftDelete(ctx, id); err != nil {
		return repoError(c, h.Log, "User", err)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		h.Log.Warn("revoke sessions of deleted user", zap.String("user_id", id), zap.Error(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted"})
}

// ResetPassword sets a new password, generated when none is supplied, and
// emails it to the user.
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	var req passwordReq
	_ = c.Bind(&req)
	password := req.Password
	if password == "" {
		var err error
		if password, err = utils.GeneratePassword(generatedPasswordLen); err != nil {
			return internalError(c, h.Log, "Failed to reset password", err)
		}
	} else if err := utils.ValidatePassword(password); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(c, h.Log, "User", err)
	}
	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, h.Log, "Failed to reset password", err)
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return repoError(c, h.Log, "User", err)
	}
	_ = h.Tokens.RevokeAllForUser(ctx, u.ID)
	if err := h.Notify.PasswordIssued(ctx, u.Email, u.FullName, password); err != nil {
		return internalError(c, h.Log, "Password changed but the email could not be sent", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset and sent to the user"})
}

// ExportUsers sends every non-deleted account as CSV.
func (h *AdminHandler) ExportUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, _, err := h.Users.List(ctx, repository.UserFilter{Status: model.UserStatusActive})
	if err != nil {
		return internalError(c, h.Log, "Failed to export users", err)
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.FullName, u.Email, u.Telegram, u.Role, u.Status,
			strconv.FormatBool(u.EmailVerified), u.AuthProvider, u.CreatedAt.Format(time.RFC3339),
		})
	}
	header := []string{"fullName", "email", "telegram", "role", "status", "emailVerified", "authProvider", "createdAt"}
	return writeCSV(c, "users_export_"+time.Now().UTC().Format("2006-01-02")+".csv", header, rows)
}
