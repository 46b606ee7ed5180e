package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/errors"
)

const testSessionName = "debatetab_session"

func newTestAuthorizer(t *testing.T) (*SessionAuthorizer, *sessions.CookieStore) {
	t.Helper()
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	return newSessionAuthorizer(store, testSessionName), store
}

// sessionCookie returns a signed session cookie holding values.
func sessionCookie(t *testing.T, store sessions.Store, values map[any]any) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	session, err := store.New(req, testSessionName)
	require.NoError(t, err)
	for k, v := range values {
		session.Values[k] = v
	}
	require.NoError(t, session.Save(req, rec))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func newContext(cookie *http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tournaments/wudc/email", http.NoBody)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSessionAuthorizer_IsAdministrator(t *testing.T) {
	a, store := newTestAuthorizer(t)

	tests := []struct {
		name   string
		cookie *http.Cookie
		want   bool
	}{
		{"no session", nil, false},
		{"superuser", sessionCookie(t, store, map[any]any{SessionKeyIsSuperuser: true, SessionKeyUsername: "ada"}), true},
		{"regular user", sessionCookie(t, store, map[any]any{SessionKeyIsSuperuser: false}), false},
		{"flag missing", sessionCookie(t, store, map[any]any{SessionKeyUsername: "ben"}), false},
		{"forged cookie", &http.Cookie{Name: testSessionName, Value: "not-a-signed-value"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.cookie)
			assert.Equal(t, tt.want, a.IsAdministrator(c))
		})
	}
}

func TestSessionAuthorizer_SetsUsername(t *testing.T) {
	a, store := newTestAuthorizer(t)
	c, _ := newContext(sessionCookie(t, store, map[any]any{SessionKeyIsSuperuser: true, SessionKeyUsername: "ada"}))

	require.True(t, a.IsAdministrator(c))
	assert.Equal(t, "ada", c.Get(CtxKeyUsername))
}

func TestSessionAuthorizer_SessionNotFound(t *testing.T) {
	a, _ := newTestAuthorizer(t)
	c, _ := newContext(nil)

	_, err := a.Session(c)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNewSessionAuthorizer_RequiresSecret(t *testing.T) {
	_, err := NewSessionAuthorizer(&conf.SecuritySettings{SessionName: testSessionName})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	a, err := NewSessionAuthorizer(&conf.SecuritySettings{SessionSecret: "s3cret", SessionName: testSessionName})
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestMiddleware(t *testing.T) {
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	t.Run("forbidden", func(t *testing.T) {
		c, rec := newContext(nil)
		err := Middleware(AuthorizerFunc(func(echo.Context) bool { return false }))(handler)(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "You do not have permission")
	})

	t.Run("nil authorizer", func(t *testing.T) {
		c, rec := newContext(nil)
		require.NoError(t, Middleware(nil)(handler)(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed", func(t *testing.T) {
		c, rec := newContext(nil)
		err := Middleware(AuthorizerFunc(func(echo.Context) bool { return true }))(handler)(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})
}
