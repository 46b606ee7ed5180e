package api

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/debatetab/debatetab/internal/logger"
	"github.com/debatetab/debatetab/internal/notification"
)

// Test sends per client IP.
const (
	testEmailRate   = rate.Limit(1.0 / 10) // one every 10 seconds
	testEmailBurst  = 3
	testEmailWindow = 10 * time.Minute
)

// TestEmailRequest is the body of a test send.
type TestEmailRequest struct {
	Recipient string `json:"recipient" form:"recipient"`
}

func (c *Controller) initNotificationRoutes() {
	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      testEmailRate,
				Burst:     testEmailBurst,
				ExpiresIn: testEmailWindow,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusForbidden, map[string]string{"error": "could not identify client"})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many test emails, please wait before trying again",
			})
		},
	})

	c.Group.POST("/notifications/test-email", c.SendTestEmail, c.adminMiddleware(), limiter)
}

// SendTestEmail sends a test email synchronously. Transport failures are
// reported to the caller as a 502 with a readable message.
func (c *Controller) SendTestEmail(ctx echo.Context) error {
	if c.sender == nil {
		return c.HandleError(ctx, nil, "Email sending is not configured.", http.StatusServiceUnavailable)
	}

	var req TestEmailRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body.", http.StatusBadRequest)
	}
	addr, err := mail.ParseAddress(req.Recipient)
	if err != nil {
		return c.HandleError(ctx, err, "Enter a valid email address.", http.StatusBadRequest)
	}

	if err := notification.SendTestEmail(ctx.Request().Context(), c.sender, ctx.Request().Host, addr.Address); err != nil {
		c.log.Warn("test email failed",
			logger.String("host", ctx.Request().Host),
			logger.Error(err))
		return ctx.JSON(http.StatusBadGateway, MessageResponse{
			Message: fmt.Sprintf("There was an error sending the test email: %s", err),
		})
	}

	c.log.Info("test email sent", logger.String("host", ctx.Request().Host))
	return ctx.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("A test email has been sent to %s.", addr.Address),
	})
}
