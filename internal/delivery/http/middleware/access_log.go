package middleware

import (
	"time"

	"jobmatch/internal/logger"
	"jobmatch/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CtxRequestIDKey = response.RequestIDLocal
	HeaderRequestID = "X-Request-ID"
)

type AccessLogMiddleware struct {
	log *zap.Logger
}

func NewAccessLogMiddleware(log *zap.Logger) *AccessLogMiddleware {
	return &AccessLogMiddleware{log: logger.OrNop(log).Named("http")}
}

// Middleware tags each request with an id (reusing X-Request-ID when sent) and
// logs one line per request once the rest of the chain has finished. Only the
// path is logged; query strings may carry access tokens.
func (m *AccessLogMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		rid := c.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(HeaderRequestID, rid)
		c.Locals(CtxRequestIDKey, rid)

		err := c.Next()

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("rid", rid),
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("resp_bytes", len(c.Response().Body())),
		}
		if sub := Subject(c); sub != "" {
			fields = append(fields, zap.String("subject", sub))
		}
		if status >= fiber.StatusInternalServerError {
			m.log.Warn("http access", fields...)
		} else {
			m.log.Info("http access", fields...)
		}
		return err
	}
}
