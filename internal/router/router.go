package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/scriptreach/scriptreach/internal/handler" // handlers that implement the endpoints
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth      *handler.AuthHandler
	Profile   *handler.ProfileHandler
	Admin     *handler.AdminHandler
	Scripts   *handler.ScriptHandler
	Resources *handler.ResourceHandler
	Contacts  *handler.ContactHandler
	Send      *handler.SendHandler
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers or monitoring systems to verify the service
	// is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the whole API surface.  Unauthenticated auth operations
// live under /v1/auth (rate limited when rateLimit is non-nil); every data
// route lives under /v1 behind the approval gate; admin operations sit
// behind the additional role gate under /v1/admin.
func RegisterAPI(e *echo.Echo, h Handlers, approved, admin echo.MiddlewareFunc, rateLimit echo.MiddlewareFunc) {
	// Auth endpoints: these drive the state machine and must work from any
	// decision, so no approval gate here.
	authGroup := e.Group("/v1/auth")
	if rateLimit != nil {
		authGroup.Use(rateLimit)
	}
	authGroup.POST("/signup", h.Auth.SignUp)
	authGroup.POST("/signin", h.Auth.SignIn)
	authGroup.POST("/signout", h.Auth.SignOut)
	// State re-runs the routing decision; snapshot is the cheap read.
	authGroup.GET("/state", h.Auth.State)
	authGroup.GET("/snapshot", h.Auth.Snapshot)

	// Data endpoints: only reachable while the decision is Approved.
	v1 := e.Group("/v1", approved)

	v1.GET("/me", h.Profile.Me)
	v1.PATCH("/me", h.Profile.Update)

	v1.GET("/scripts", h.Scripts.List)
	v1.POST("/scripts", h.Scripts.Create)
	v1.GET("/scripts/:id", h.Scripts.Get)
	v1.PATCH("/scripts/:id", h.Scripts.Update)
	v1.DELETE("/scripts/:id", h.Scripts.Delete)
	v1.PUT("/scripts/:id/favorite", h.Scripts.Favorite)
	v1.DELETE("/scripts/:id/favorite", h.Scripts.Unfavorite)

	v1.GET("/resources", h.Resources.List)
	v1.POST("/resources", h.Resources.Upload)
	v1.GET("/resources/:id", h.Resources.Get)
	v1.DELETE("/resources/:id", h.Resources.Delete)
	v1.PUT("/resources/:id/favorite", h.Resources.Favorite)
	v1.DELETE("/resources/:id/favorite", h.Resources.Unfavorite)

	v1.GET("/contacts", h.Contacts.List)
	v1.POST("/contacts", h.Contacts.Create)
	v1.POST("/contacts/import", h.Contacts.Import)
	v1.GET("/contacts/:id", h.Contacts.Get)
	v1.PATCH("/contacts/:id", h.Contacts.Update)
	v1.DELETE("/contacts/:id", h.Contacts.Delete)
	v1.GET("/contacts/:id/history", h.Contacts.History)
	v1.POST("/contacts/:id/history", h.Contacts.AddActivity)

	v1.POST("/send/preview", h.Send.Preview)

	// Admin endpoints: approval gate plus the role gate.  The gateway
	// re-checks authorization on every call regardless.
	adm := v1.Group("/admin", admin)
	adm.GET("/users/pending", h.Admin.PendingUsers)
	adm.GET("/users", h.Admin.AllUsers)
	adm.POST("/users/:id/approve", h.Admin.Approve)
	adm.POST("/users/:id/deny", h.Admin.Deny)
	adm.DELETE("/users/:id", h.Admin.Reject)
	adm.PATCH("/users/:id", h.Admin.UpdateStatus)
}
