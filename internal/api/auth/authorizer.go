// Package auth decides whether a request may use the tournament admin API.
//
// Identity is established by an upstream login service that shares the
// session secret. This package only reads the signed session cookie.
package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
)

// GetLogger returns the auth package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("auth")
}

// Session value keys written by the login service.
const (
	SessionKeyUsername    = "username"
	SessionKeyIsSuperuser = "is_superuser"
)

// Context keys for values stored in echo.Context.
const (
	// CtxKeyUsername contains the administrator's username.
	CtxKeyUsername = "auth:username"
)

// ErrSessionNotFound is returned when the request carries no valid session.
var ErrSessionNotFound = errors.NewStd("session not found or expired")

// Authorizer decides whether a request comes from a tournament administrator.
type Authorizer interface {
	IsAdministrator(c echo.Context) bool
}

// SessionAuthorizer reads a cookie session and requires its is_superuser
// value to be true.
type SessionAuthorizer struct {
	store sessions.Store
	name  string
	log   logger.Logger
}

// NewSessionAuthorizer creates a SessionAuthorizer from the security settings.
func NewSessionAuthorizer(settings *conf.SecuritySettings) (*SessionAuthorizer, error) {
	if settings.SessionSecret == "" {
		return nil, errors.Newf("session secret is required").
			Component("auth").
			Category(errors.CategoryConfiguration).
			Build()
	}
	store := sessions.NewCookieStore([]byte(settings.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   settings.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return newSessionAuthorizer(store, settings.SessionName), nil
}

func newSessionAuthorizer(store sessions.Store, name string) *SessionAuthorizer {
	return &SessionAuthorizer{store: store, name: name, log: GetLogger()}
}

// Session returns the request's session. A missing or invalid cookie
// yields ErrSessionNotFound.
func (a *SessionAuthorizer) Session(c echo.Context) (*sessions.Session, error) {
	session, err := a.store.Get(c.Request(), a.name)
	if err != nil {
		return nil, errors.Join(ErrSessionNotFound, err)
	}
	if session.IsNew {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// IsAdministrator reports whether the session belongs to a superuser.
func (a *SessionAuthorizer) IsAdministrator(c echo.Context) bool {
	session, err := a.Session(c)
	if err != nil {
		a.log.Debug("no administrator session",
			logger.String("path", c.Request().URL.Path),
			logger.Error(err))
		return false
	}
	isSuperuser, _ := session.Values[SessionKeyIsSuperuser].(bool)
	if !isSuperuser {
		return false
	}
	if username, ok := session.Values[SessionKeyUsername].(string); ok {
		c.Set(CtxKeyUsername, username)
	}
	return true
}
