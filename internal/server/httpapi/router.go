package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Router struct {
	auth   *AuthHandler
	docs   *DocumentHandler
	authMW echo.MiddlewareFunc
}

func NewRouter(auth *AuthHandler, docs *DocumentHandler, authMW echo.MiddlewareFunc) *Router {
	return &Router{auth: auth, docs: docs, authMW: authMW}
}

// Setup registers all routes and the shared middleware on e.
func (r *Router) Setup(e *echo.Echo) {
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	auth := e.Group("/auth")
	auth.POST("/login", r.auth.Login)
	auth.POST("/registration", r.auth.Register)
	auth.POST("/validate-password", r.auth.ValidatePassword)
	auth.POST("/validate-id-with-email", r.auth.ConfirmEmail)

	e.POST("/token/refresh", r.auth.Refresh)

	reset := e.Group("/password-reset")
	reset.POST("", r.auth.RequestPasswordReset)
	reset.POST("/validate", r.auth.ValidatePasswordReset)
	reset.POST("/complete", r.auth.CompletePasswordReset)

	docs := e.Group("/documents", r.authMW)
	docs.POST("", r.docs.Create)
	docs.GET("", r.docs.List)
	docs.GET("/:id/url", r.docs.DownloadURL)
}
