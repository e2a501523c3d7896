package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/andikaw/bus-ticketing/internal/config"
	"github.com/andikaw/bus-ticketing/internal/handler"
	"github.com/andikaw/bus-ticketing/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints and the protected
// profile route.  Unauthenticated operations live under /v1/auth,
// protected endpoints under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints.  When a
// Redis client is available the responses are cached; a nil client
// disables caching transparently.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, rdb *redis.Client) {
	cache := middleware.NewBrowseCache(config.LoadBrowseCacheConfig(), rdb)

	e.GET("/v1/routes", p.ListRoutes, cache)
	e.GET("/v1/routes/:id/trips", p.ListTrips, cache)
	e.GET("/v1/trips/:id", p.GetTrip, cache)
	// Seat status changes with every booking, so the seat map is served
	// uncached.
	e.GET("/v1/trips/:id/seats", p.GetTripSeats)
}

// RegisterOperator registers OPERATOR-scoped scheduling endpoints under
// /v1.  All routes require a valid JWT and the OPERATOR role.
func RegisterOperator(e *echo.Echo, t *handler.TripHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleOperator),
	)

	g.POST("/trips", t.Create)
	g.PUT("/trips/:id", t.Update)
	g.PATCH("/trips/:id", t.Update)
	g.DELETE("/trips/:id", t.Delete)

	g.POST("/trips/:id/cancel", t.Cancel)
	g.POST("/trips/:id/delay", t.Delay)
	g.POST("/trips/:id/resume", t.Resume)

	g.POST("/trips/generate", t.Generate)
	g.POST("/trips/availability", t.CheckAvailability)
}

// RegisterPassenger registers PASSENGER-scoped booking endpoints under
// /v1 plus the payment gateway callback.  Booking and transfer are rate
// limited per user to blunt seat-grabbing scripts; the callback is
// authenticated by the gateway's own channel, not a user JWT.
func RegisterPassenger(e *echo.Echo, t *handler.TicketHandler, jwtSecret string, rdb *redis.Client) {
	limit := middleware.NewBookingRateLimit(config.LoadBookingRateConfig(), rdb)

	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RolePassenger),
	)

	g.POST("/tickets", t.Book, limit)
	g.POST("/tickets/:id/confirm", t.Confirm)
	g.POST("/tickets/:id/abandon", t.Abandon)
	g.POST("/tickets/:id/transfer", t.Transfer, limit)
	g.GET("/tickets/:id", t.Get)
	g.GET("/my-tickets", t.List)

	e.POST("/v1/payments/callback", t.PaymentCallback)
}
