package routes

import (
	"jobmatch/internal/delivery/http/handler"
	"jobmatch/internal/delivery/http/middleware"
	"jobmatch/internal/ws"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every HTTP handler. Nil handlers are skipped.
type Registry struct {
	Health    *handler.HealthHandler
	Match     *handler.MatchHandler
	Discovery *handler.DiscoveryHandler
	WS        *ws.Handler
	Auth      *middleware.AuthMiddleware
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil || r == nil {
		return
	}

	r.registerHealth(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	r.registerAPI(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.Health == nil {
		return
	}
	r.Health.RegisterRoutes(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	RegisterV1(api.Group("/v1", r.Auth.Middleware()), r)
}

func RegisterV1(v1 fiber.Router, r *Registry) {
	if v1 == nil {
		return
	}
	if r.Match != nil {
		r.Match.RegisterRoutes(v1)
	}
	if r.Discovery != nil {
		r.Discovery.RegisterRoutes(v1)
	}
	if r.WS != nil {
		v1.Get("/ws/discovery", r.WS.HandleDiscoveryWS)
	}
}
