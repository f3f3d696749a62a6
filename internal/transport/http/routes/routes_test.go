package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/infra/config"
	"github.com/florafleet/pollination-api/internal/transport/http/handlers"
	"github.com/florafleet/pollination-api/internal/usecase"
)

type rejectAllParser struct{}

func (rejectAllParser) ParseAccessToken(string) (*port.TokenClaims, error) {
	return nil, usecase.ErrInvalidAccessToken
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{}
	cfg.App.Env = "development"
	cfg.CORS.AllowedOrigins = []string{"*"}

	return New(Dependencies{
		Config:  cfg,
		Logger:  zaptest.NewLogger(t),
		Auth:    handlers.NewAuthHandler(nil, false),
		Drones:  handlers.NewDroneHandler(nil),
		Flowers: handlers.NewFlowerHandler(nil),
		Health:  handlers.NewHealthHandler(),
		Tokens:  rejectAllParser{},
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, rr.Code)
		}
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/drones"},
		{http.MethodGet, "/api/v1/drones/stats"},
		{http.MethodGet, "/api/v1/flowers"},
		{http.MethodGet, "/api/v1/flowers/top-rated"},
		{http.MethodGet, "/api/v1/auth/me"},
	}

	for _, route := range protected {
		req := httptest.NewRequest(route.method, route.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s %s, got %d", route.method, route.path, rr.Code)
		}
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for /metrics, got %d", rr.Code)
	}
}

func TestBearerTokenIsVerified(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/drones", nil)
	req.Header.Set("Authorization", "Bearer forged-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rejected token, got %d", rr.Code)
	}
}
