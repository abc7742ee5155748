package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vibast-solutions/ms-go-contact/app/composer"
	"github.com/vibast-solutions/ms-go-contact/app/controller"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
	"github.com/vibast-solutions/ms-go-contact/app/provider"
	"github.com/vibast-solutions/ms-go-contact/app/ratelimit"
	"github.com/vibast-solutions/ms-go-contact/app/service"
	"github.com/vibast-solutions/ms-go-contact/config"
)

const contactBody = `{"name":"Ada","email":"ada@example.com","message":"Hello, I would like to talk about a project."}`

type okBackend struct{}

func (okBackend) Kind() entity.Backend { return entity.BackendPrimaryAPI }
func (okBackend) Name() string         { return "ok" }

func (okBackend) Send(_ context.Context, _ provider.Recipient, _ composer.Payload) error {
	return nil
}

type nopOperatorLog struct{}

func (nopOperatorLog) Record(_ context.Context, _ string, _ map[string]string) {}

func mustMemoryStore(t *testing.T, limit int) *ratelimit.MemoryStore {
	t.Helper()
	store, err := ratelimit.NewMemoryStore(limit, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	return store
}

func newContactTestServer(t *testing.T, cfg *config.Config, generalLimit, contactLimit int) *http.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	delivery := service.NewDeliveryService([]provider.EmailBackend{okBackend{}}, provider.Recipient{Email: "owner@example.com"}, service.DefaultRetryPolicy(), nopOperatorLog{}, logger)
	contactController := controller.NewContactController(delivery, service.NewReporter(false, logger))
	stores := rateStores{
		general: mustMemoryStore(t, generalLimit),
		contact: mustMemoryStore(t, contactLimit),
	}
	return &http.Server{Handler: setupHTTPServer(cfg, contactController, stores)}
}

func postContactRoute(server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewBufferString(contactBody))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestSetupHTTPServerHealthRoute(t *testing.T) {
	t.Parallel()

	server := newContactTestServer(t, &config.Config{}, 100, 3)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message":"Server is running"`) {
		t.Fatalf("unexpected health payload: %s", rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers, got %v", rec.Header())
	}
}

func TestSetupHTTPServerContactRoute(t *testing.T) {
	t.Parallel()

	server := newContactTestServer(t, &config.Config{}, 100, 3)
	rec := postContactRoute(server)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("unexpected contact payload: %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestSetupHTTPServerContactRateLimit(t *testing.T) {
	t.Parallel()

	server := newContactTestServer(t, &config.Config{}, 100, 3)
	for i := 0; i < 3; i++ {
		if rec := postContactRoute(server); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := postContactRoute(server)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), contactRateLimitMessage) {
		t.Fatalf("unexpected rate limit payload: %s", rec.Body.String())
	}
}

func TestSetupHTTPServerGeneralRateLimit(t *testing.T) {
	t.Parallel()

	server := newContactTestServer(t, &config.Config{}, 1, 3)

	first := httptest.NewRecorder()
	server.Handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	server.Handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", second.Code)
	}
}

func TestSetupHTTPServerCORS(t *testing.T) {
	t.Parallel()

	server := newContactTestServer(t, &config.Config{FrontendURLs: []string{"https://portfolio.example.com"}}, 100, 3)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://portfolio.example.com")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portfolio.example.com" {
		t.Fatalf("expected allowed origin, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allowed origin, got %q", got)
	}
}

func TestCORSOrigins(t *testing.T) {
	t.Parallel()

	if got := corsOrigins(&config.Config{Environment: "production"}); got != nil {
		t.Fatalf("expected no origins in production, got %v", got)
	}
	if got := corsOrigins(&config.Config{Environment: "development"}); len(got) != 1 || got[0] != developmentOrigin {
		t.Fatalf("expected development origin, got %v", got)
	}
	configured := []string{"https://a.example.com"}
	if got := corsOrigins(&config.Config{Environment: "production", FrontendURLs: configured}); len(got) != 1 || got[0] != configured[0] {
		t.Fatalf("expected configured origins, got %v", got)
	}
}
