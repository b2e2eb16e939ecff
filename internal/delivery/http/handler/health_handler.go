package handler

import (
	"context"
	"sort"
	"time"

	"jobmatch/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the state of each dependency. Only critical ones fail the check.
type HealthHandler struct {
	critical map[string]Pinger
	optional map[string]Pinger
	timeout  time.Duration
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		critical: map[string]Pinger{},
		optional: map[string]Pinger{},
		timeout:  2 * time.Second,
	}
}

func (h *HealthHandler) WithCritical(name string, p Pinger) *HealthHandler {
	if p != nil {
		h.critical[name] = p
	}
	return h
}

func (h *HealthHandler) WithOptional(name string, p Pinger) *HealthHandler {
	if p != nil {
		h.optional[name] = p
	}
	return h
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
}

func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	for _, name := range sortedKeys(h.critical) {
		if err := h.critical[name].Ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}
	for _, name := range sortedKeys(h.optional) {
		if err := h.optional[name].Ping(ctx); err != nil {
			checks[name] = "degraded: " + err.Error()
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		return response.Error(c, fiber.StatusServiceUnavailable, response.MessageServiceUnavailable, checks)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, checks)
}

func sortedKeys(m map[string]Pinger) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
