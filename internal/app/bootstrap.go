package app

import (
	"context"
	"fmt"
	"strings"

	"jobmatch/internal/config"
	"jobmatch/internal/delivery/http/handler"
	"jobmatch/internal/delivery/http/middleware"
	"jobmatch/internal/delivery/http/routes"
	"jobmatch/internal/discovery"
	"jobmatch/internal/ws"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
	Loop      *discovery.Loop
}

// New builds the HTTP app on top of an existing container.
func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: c.Config.App.Name})

	registerGlobalMiddleware(f, c.Log)

	var authMw *middleware.AuthMiddleware
	if c.JWT != nil {
		authMw = middleware.NewAuthMiddleware(c.JWT)
	} else {
		c.Log.Warn("jwt.secret is empty, /api/v1 is unauthenticated")
	}

	reg := &routes.Registry{
		Health: handler.NewHealthHandler().
			WithCritical("postgres", c.DB).
			WithOptional("redis", c.Cache),
		Match:     handler.NewMatchHandler(c.Matching),
		Discovery: handler.NewDiscoveryHandler(c.Discovery),
		WS:        ws.NewHandler(c.Hub, c.Log),
		Auth:      authMw,
	}
	reg.Register(f)

	return &App{Fiber: f, Container: c}
}

// Bootstrap wires the container, runs migrations, starts the websocket hub and,
// when enabled, the discovery loop. The returned cleanup stops all of it.
func Bootstrap(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, func() error, error) {
	c, err := NewContainer(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	go c.Hub.Run(runCtx)

	a := New(c)
	if cfg.Discovery.LoopEnabled {
		loop, err := c.NewLoop()
		if err != nil {
			cancel()
			_ = c.Close()
			return nil, nil, err
		}
		if err := loop.Start(runCtx); err != nil {
			cancel()
			_ = c.Close()
			return nil, nil, err
		}
		a.Loop = loop
	}

	cleanup := func() error {
		cancel()
		if a.Loop != nil {
			a.Loop.Stop()
		}
		return c.Close()
	}
	return a, cleanup, nil
}

func registerGlobalMiddleware(app *fiber.App, log *zap.Logger) {
	if app == nil {
		return
	}

	errMw := middleware.NewErrorMiddleware(log)
	accessMw := middleware.NewAccessLogMiddleware(log)
	app.Use(accessMw.Middleware())
	app.Use(errMw.Middleware())
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
