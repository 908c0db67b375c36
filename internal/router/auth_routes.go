package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/community-events/internal/handler"
)

// RegisterAuth registers the session endpoints under /api/auth.  Endpoints
// that can be abused for enumeration or mail flooding carry their own rate
// limit policy.
func RegisterAuth(e *echo.Echo, d Deps, a *handler.AuthHandler) {
	g := e.Group("/api/auth")

	g.POST("/register", a.Register, d.limit("3-H"))
	g.POST("/verify-email", a.VerifyEmail, d.limit("10-M"))
	g.POST("/resend-code", a.ResendCode, d.limit("3-H"))
	g.POST("/login", a.Login, d.limit("5-M"))
	// Logout works with just a refresh token; a valid access token
	// additionally allows revoking every session.
	g.POST("/logout", a.Logout, d.optional())
	g.POST("/refresh", a.Refresh)

	g.POST("/forgot-password", a.ForgotPassword, d.limit("3-H"))
	g.POST("/reset-password", a.ResetPassword, d.limit("5-M"))

	g.GET("/yandex", a.YandexAuth, d.limit("10-M"))
	g.GET("/yandex/callback", a.YandexCallback)
	g.POST("/yandex/fake", a.FakeYandexAuth, d.limit("10-M"))

	g.POST("/init-admin", a.InitAdmin, d.limit("1-H"))
}

// RegisterUser registers the caller's profile and interest endpoints.
func RegisterUser(e *echo.Echo, d Deps, u *handler.UserHandler, i *handler.InterestHandler) {
	g := e.Group("/api/user", d.auth())
	g.GET("/profile", u.GetProfile)
	g.PUT("/profile", u.UpdateProfile)

	g.GET("/interests", i.ListMine)
	g.POST("/interests", i.AddMine)
	g.PUT("/interests/:interestId", i.UpdateMine)
	g.DELETE("/interests/:interestId", i.RemoveMine)
}
