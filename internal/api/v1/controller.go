// Package api implements the debatetab JSON API under /api/v1.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/debatetab/debatetab/internal/api/auth"
	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/datastore/repository"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
	"github.com/debatetab/debatetab/internal/notification"
)

// PreferenceCacheTTL is how long a preference read stays cached.
const PreferenceCacheTTL = 30 * time.Second

// Dependencies are the collaborators the controller needs.
type Dependencies struct {
	Tournaments repository.TournamentRepository
	People      repository.PersonRepository
	Preferences repository.PreferenceRepository
	Queue       notification.Queue
	// Sender delivers test emails. Test sends are rejected when nil.
	Sender notification.Sender
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	tournaments repository.TournamentRepository
	recipients  *tournamentRecipients
	preferences *PreferenceCache
	queue       notification.Queue
	sender      notification.Sender

	authorizer auth.Authorizer
	log        logger.Logger
	startTime  time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithAuthorizer sets the administrator check for protected routes.
// Without one every protected route answers 403.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(c *Controller) {
		c.authorizer = a
	}
}

// WithLogger overrides the api module logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, settings *conf.Settings, deps *Dependencies, opts ...Option) (*Controller, error) {
	if deps == nil || deps.Tournaments == nil || deps.People == nil || deps.Preferences == nil || deps.Queue == nil {
		return nil, errors.Newf("api controller requires tournament, people and preference repositories and a queue").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	preferences := NewPreferenceCache(deps.Preferences, PreferenceCacheTTL)
	c := &Controller{
		Echo:        e,
		Group:       e.Group("/api/v1"),
		Settings:    settings,
		tournaments: deps.Tournaments,
		recipients:  &tournamentRecipients{people: deps.People, preferences: preferences},
		preferences: preferences,
		queue:       deps.Queue,
		sender:      deps.Sender,
		log:         logger.Global().Module("api"),
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initNotificationRoutes()
	c.initComposerRoutes()
}

// adminMiddleware returns the administrator check for protected routes.
func (c *Controller) adminMiddleware() echo.MiddlewareFunc {
	return auth.Middleware(c.authorizer)
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"queue":          c.queue.Name(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// MessageResponse carries a user-visible status message.
type MessageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = errors.ScrubMessage(err.Error())
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
}

// HandleError logs err and writes it as an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Info("API request rejected", fields...)
	}

	return ctx.JSON(code, errorResp)
}

// requestError is a failure with the response it should produce.
type requestError struct {
	err     error
	message string
	code    int
}

func newRequestError(err error, message string, code int) *requestError {
	return &requestError{err: err, message: message, code: code}
}

func (e *requestError) Error() string {
	if e.err == nil {
		return e.message
	}
	return e.message + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

// writeError writes err through HandleError. Errors without a
// requestError become a 500.
func (c *Controller) writeError(ctx echo.Context, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return c.HandleError(ctx, re.err, re.message, re.code)
	}
	return c.HandleError(ctx, err, "Internal server error.", http.StatusInternalServerError)
}
