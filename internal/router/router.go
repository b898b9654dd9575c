package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/raffle-ticketing/internal/handler"
	"github.com/iliyamo/raffle-ticketing/internal/middleware"
)

// AdminRoles may call the /v1/admin endpoints.
var AdminRoles = []string{"ADMIN", "SUPERADMIN"}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the admin login.  limit guards it against
// password guessing.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, limit)
}

// RegisterPublic registers the unauthenticated raffle endpoints.  Reads go
// through cache; purchases and ticket lookups through limit.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/raffles")
	g.GET("", p.ListRaffles, cache)
	g.GET("/:id", p.GetRaffle, cache)
	g.GET("/:id/tickets", p.Grid, cache)
	g.GET("/:id/winner", p.Winner, cache)
	g.POST("/:id/purchases", p.Purchase, limit)

	e.POST("/v1/tickets/verify", p.VerifyTickets, limit)
}

// RegisterAdmin registers the management endpoints under /v1/admin.  All
// routes require a valid JWT carrying one of AdminRoles.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(AdminRoles...),
	)

	// ---- Raffles ----
	g.GET("/raffles", a.ListRaffles)
	g.GET("/raffles/:id", a.GetRaffle)
	g.POST("/raffles", a.CreateRaffle)
	g.PATCH("/raffles/:id/active", a.SetActive)
	g.DELETE("/raffles/:id", a.DeleteRaffle)
	g.GET("/raffles/:id/finance", a.Finance)

	// ---- Payments ----
	g.GET("/raffles/:id/payments", a.PendingPayments)
	g.POST("/raffles/:id/tickets/:number/confirm", a.ConfirmTicket)
	g.POST("/raffles/:id/tickets/:number/reject", a.RejectTicket)
	g.POST("/raffles/:id/tickets/:number/release", a.ReleaseTicket)

	// ---- Draw ----
	g.GET("/raffles/:id/winner", a.Winner)
	g.POST("/raffles/:id/draw", a.DrawNow)
	g.POST("/raffles/:id/draw/check", a.CheckDraw)
	g.DELETE("/raffles/:id/draw", a.RevokeDraw)
}
