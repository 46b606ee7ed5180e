package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debatetab/debatetab/internal/api/auth"
	v1 "github.com/debatetab/debatetab/internal/api/v1"
	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/datastore/repository"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
	"github.com/debatetab/debatetab/internal/notification"
	"github.com/debatetab/debatetab/internal/observability"
	"github.com/debatetab/debatetab/internal/testutil"
)

func newTestServer(t *testing.T, port string) (*Server, *observability.Metrics) {
	t.Helper()
	db := testutil.NewTestDB(t)
	queue := notification.NewMemoryQueue(4)
	t.Cleanup(func() { _ = queue.Close() })

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.WebServer.Port = port
	s, err := New(settings, &v1.Dependencies{
		Tournaments: repository.NewTournamentRepository(db),
		People:      repository.NewPersonRepository(db),
		Preferences: repository.NewPreferenceRepository(db),
		Queue:       queue,
	},
		WithMetrics(m),
		WithAuthorizer(auth.AuthorizerFunc(func(echo.Context) bool { return false })),
		WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)),
	)
	require.NoError(t, err)
	return s, m
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(method, path, http.NoBody))
	return rec
}

func TestServer_RoutesAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, "8080")

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/v1/health").Code)
	assert.Equal(t, http.StatusForbidden, serve(s, http.MethodGet, "/api/v1/tournaments/wudc/email").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/no/such/page").Code)

	rec := serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `route="/api/v1/health"`)
	assert.Contains(t, body, `route="/api/v1/tournaments/:tournament/email",status="403"`)
	assert.Contains(t, body, `route="unmatched"`)
}

func TestServer_SecureHeaders(t *testing.T) {
	s, _ := newTestServer(t, "8080")
	rec := serve(s, http.MethodGet, "/api/v1/health")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, "0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(testutil.DefaultTestTimeout):
		t.Fatal("server did not stop after cancel")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Address())

	cfg.Host = "127.0.0.1"
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())

	cfg.Port = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = New(&conf.Settings{}, &v1.Dependencies{})
	require.Error(t, err, "empty port")
}
