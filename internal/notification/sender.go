package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/k3a/html2text"
	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"golang.org/x/time/rate"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/errors"
)

const (
	defaultSendTimeout = 30 * time.Second
	defaultRateLimit   = 2
	defaultBurst       = 5
)

// messageRouter is the part of the shoutrrr router used for sending.
type messageRouter interface {
	Send(message string, params *stypes.Params) []error
}

// ShoutrrrSender sends email through a shoutrrr SMTP URL. Sends are
// throttled by a token bucket so bulk messages do not trip provider limits.
type ShoutrrrSender struct {
	router  messageRouter
	limiter *rate.Limiter
	from    string
}

// NewShoutrrrSender builds a sender from the email settings.
func NewShoutrrrSender(cfg *conf.EmailSettings) (*ShoutrrrSender, error) {
	if cfg.SMTPURL == "" {
		return nil, errors.Newf("email transport not configured").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(cfg.SMTPURL)
	if err != nil {
		// The URL may carry SMTP credentials.
		return nil, errors.New(fmt.Errorf("invalid SMTP URL: %s", errors.ScrubMessage(err.Error()))).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender.Timeout = cfg.Timeout
	if sender.Timeout <= 0 {
		sender.Timeout = defaultSendTimeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return newShoutrrrSender(sender, cfg.From, cfg.RateLimit, cfg.Burst), nil
}

func newShoutrrrSender(router messageRouter, from string, perSecond float64, burst int) *ShoutrrrSender {
	if perSecond <= 0 {
		perSecond = defaultRateLimit
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &ShoutrrrSender{
		router:  router,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		from:    from,
	}
}

// Send delivers one email. HTML bodies are sent as plain text.
func (s *ShoutrrrSender) Send(ctx context.Context, email Email) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryTimeout).
			Build()
	}

	params := stypes.Params{"toaddresses": email.To}
	if s.from != "" {
		params["fromaddress"] = s.from
	}
	params.SetTitle(email.Subject)

	for _, err := range s.router.Send(PlainText(email.Body), &params) {
		if err != nil {
			return errors.New(fmt.Errorf("smtp send failed: %s", errors.ScrubMessage(err.Error()))).
				Component("notification").
				Category(errors.CategoryNetwork).
				Build()
		}
	}
	return nil
}

// PlainText converts an HTML body to plain text. Bodies without markup are
// returned unchanged.
func PlainText(body string) string {
	if !strings.Contains(body, "<") {
		return body
	}
	return strings.TrimSpace(html2text.HTML2Text(body))
}

// SendTestEmail sends a fixed message to recipient to check the transport.
func SendTestEmail(ctx context.Context, sender Sender, host, recipient string) error {
	return sender.Send(ctx, Email{
		To:      recipient,
		Subject: "Test email from debatetab",
		Body: fmt.Sprintf("<p>This is a test email from the debatetab site at %s.</p>"+
			"<p>If you are reading this, email sending is working.</p>", host),
	})
}
