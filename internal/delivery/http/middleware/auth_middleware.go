package middleware

import (
	"errors"
	"strings"

	"jobmatch/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

const CtxSubjectKey = "subject"

type AuthMiddleware struct {
	jwt jwt.Service
}

// NewAuthMiddleware protects routes with bearer tokens. A nil service lets every request through.
func NewAuthMiddleware(jwtSvc jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwtSvc}
}

func (m *AuthMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m == nil || m.jwt == nil {
			return c.Next()
		}

		token := requestToken(c)
		if token == "" {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}

		claims, err := m.jwt.ValidateToken(token)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return NewAppError(fiber.StatusUnauthorized, "Token expired", nil, err)
		case err != nil:
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", nil, err)
		}

		c.Locals(CtxSubjectKey, claims.Subject)
		return c.Next()
	}
}

// Subject is the token subject of an authenticated request, or "".
func Subject(c fiber.Ctx) string {
	sub, _ := c.Locals(CtxSubjectKey).(string)
	return sub
}

// requestToken reads the bearer token from the Authorization header, falling
// back to the access_token query parameter for websocket upgrades.
func requestToken(c fiber.Ctx) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(c.Get(fiber.HeaderAuthorization)), " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(c.Query("access_token"))
}
