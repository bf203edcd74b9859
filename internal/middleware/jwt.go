package middleware // reusable Echo middleware: auth, roles, caching, rate limiting

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Felicien407/car-rental-system/internal/utils"
)

// Context keys set by JWTAuth.
const (
	KeyUserID   = "user_id"   // uint64
	KeyRole     = "role"      // string
	KeyUserName = "user_name" // string
)

// JWTAuth validates a Bearer access token and stores the caller's id, role
// and name in the Echo context.  Handlers read them back with Actor.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "UNAUTHORIZED"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "UNAUTHORIZED"})
			}
			uid, _ := claims.UserID()
			c.Set(KeyUserID, uid)
			c.Set(KeyRole, claims.Role)
			c.Set(KeyUserName, claims.Name)
			return next(c)
		}
	}
}
