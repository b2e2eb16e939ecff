package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newProtectedApp(svc jwt.Service) *fiber.App {
	app := fiber.New()
	app.Use(NewErrorMiddleware(nil).Middleware())
	app.Get("/secret", NewAuthMiddleware(svc).Middleware(), func(c fiber.Ctx) error {
		return c.SendString(Subject(c))
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	svc := jwt.NewHMACService("s3cret")
	tok, err := svc.GenerateAccessToken("discovery-cli", time.Hour)
	require.NoError(t, err)
	app := newProtectedApp(svc)

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{name: "missing", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + tok, status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "bearer", header: "Bearer " + tok, status: http.StatusOK},
		{name: "query token", query: "?access_token=" + tok, status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secret"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestAuthMiddlewareDisabledWithoutService(t *testing.T) {
	app := newProtectedApp(nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/secret", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccessLogSetsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := fiber.New()
	app.Use(NewAccessLogMiddleware(zap.New(core)).Middleware())
	app.Get("/ping", func(c fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "rid-1", resp.Header.Get("X-Request-ID"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	entries := logs.FilterMessage("http access").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "rid-1", entries[0].ContextMap()["rid"])
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	app := fiber.New()
	app.Use(NewErrorMiddleware(nil).Middleware())
	app.Get("/boom", func(c fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusForKind(apperr.KindInput))
	assert.Equal(t, http.StatusNotFound, StatusForKind(apperr.KindNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, StatusForKind(apperr.KindEmbeddingUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, StatusForKind(apperr.KindIndexUnavailable))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusForKind(apperr.KindValidationInconclusive))
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(apperr.KindAdapterFailure))

	status, _, _ := normalizeError(errors.New("plain"))
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(NewAccessLogMiddleware(nil).Middleware())
	app.Use(NewErrorMiddleware(nil).Middleware())
	app.Get("/bad", func(c fiber.Ctx) error { return apperr.Input("test", "limit must be positive") })

	req := httptest.NewRequest(http.MethodGet, "/bad", nil)
	req.Header.Set("X-Request-ID", "rid-2")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Message   string         `json:"message"`
		Data      map[string]any `json:"data"`
		RequestID string         `json:"request_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "rid-2", body.RequestID)
	assert.Equal(t, "limit must be positive", body.Message)
	assert.Equal(t, string(apperr.KindInput), body.Data["kind"])
}

func TestAccessLogRecordsSubjectWithoutQuery(t *testing.T) {
	svc := jwt.NewHMACService("s3cret")
	tok, err := svc.GenerateAccessToken("loop-runner", time.Hour)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	app := fiber.New()
	app.Use(NewAccessLogMiddleware(zap.New(core)).Middleware())
	app.Get("/feed", NewAuthMiddleware(svc).Middleware(), func(c fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/feed?access_token="+tok, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	entries := logs.FilterMessage("http access").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/feed", fields["path"])
	assert.Equal(t, "loop-runner", fields["subject"])
}
