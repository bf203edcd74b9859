package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"

	"github.com/Felicien407/car-rental-system/internal/handler"
	"github.com/Felicien407/car-rental-system/internal/metrics"
	"github.com/Felicien407/car-rental-system/internal/middleware"
	"github.com/Felicien407/car-rental-system/internal/model"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready)
	}
	e.GET("/metrics", metrics.Handler())
}

// RegisterAuth registers /v1/auth/* and the authenticated /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterCars registers the public catalog (behind the response cache)
// and the admin fleet endpoints.
func RegisterCars(e *echo.Echo, h *handler.CarHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	admin := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin)}

	// static path first so it is not captured by :id
	e.GET("/v1/cars/stats", h.Stats, admin...)
	e.GET("/v1/cars", h.List, cache)
	e.GET("/v1/cars/:id", h.Get, cache)

	e.POST("/v1/cars", h.Create, admin...)
	e.PUT("/v1/cars/:id", h.Update, admin...)
	e.DELETE("/v1/cars/:id", h.Delete, admin...)
}

// RegisterBookings registers the booking endpoints.  Booking creation is
// rate limited per user.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.POST("", h.Create, limiter)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus, middleware.RequireRole(model.RoleAdmin))
}
