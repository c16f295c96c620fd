package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deepdive-club/deepdive-api/internal/server/auth"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// JWTMiddleware fully validates the bearer token (signature, expiry, issuer,
// audience) and stores the subject and email in the request context.
func JWTMiddleware(tokens *auth.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"errorMessage": "missing token"})
			}

			claims, err := tokens.Parse(parts[1])
			if err != nil || claims.Subject == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"errorMessage": "invalid token"})
			}

			c.Set(ctxUserID, claims.Subject)
			c.Set(ctxEmail, claims.Email)
			return next(c)
		}
	}
}

func userIDFromCtx(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}
