package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/datastore/repository"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
	"github.com/debatetab/debatetab/internal/notification"
)

// User-visible composer messages.
const (
	msgQueued           = "Emails have been queued for sending."
	msgUnknownTemplate  = "There is no email template with that name."
	msgQueueFailed      = "Emails could not be queued for sending."
	msgRecipientsFailed = "Failed to load recipients."
	msgRoundNotFound    = "Round not found."
	msgInvalidTemplate  = "The subject line or message body is not a valid template."
)

// EmailRequest is the body of a composer submission.
type EmailRequest struct {
	SubjectLine string `json:"subject_line" form:"subject_line"`
	MessageBody string `json:"message_body" form:"message_body"`
	Recipients  []uint `json:"recipients" form:"recipients"`
}

// ComposerInitial prefills the composer form.
type ComposerInitial struct {
	SubjectLine string `json:"subject_line"`
	MessageBody string `json:"message_body"`
}

// RoundInfo identifies the round of a round-scoped composer.
type RoundInfo struct {
	ID           uint   `json:"id"`
	Seq          int    `json:"seq"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// ComposerPage is everything a composer page renders.
type ComposerPage struct {
	PageTitle  string          `json:"page_title"`
	PageEmoji  string          `json:"page_emoji"`
	Tournament string          `json:"tournament"`
	EventType  string          `json:"event_type,omitempty"`
	Round      *RoundInfo      `json:"round,omitempty"`
	Initial    ComposerInitial `json:"initial"`
	Table      RecipientTable  `json:"table"`
}

func (c *Controller) initComposerRoutes() {
	admin := c.adminMiddleware()

	c.Group.GET("/tournaments/:tournament/email", c.GetCustomEmail, admin)
	c.Group.POST("/tournaments/:tournament/email", c.PostCustomEmail, admin)

	c.Group.GET("/tournaments/:tournament/email/:event_type", c.GetTournamentTemplateEmail, admin)
	c.Group.POST("/tournaments/:tournament/email/:event_type", c.PostTournamentTemplateEmail, admin)

	c.Group.GET("/tournaments/:tournament/rounds/:round/email/:event_type", c.GetRoundTemplateEmail, admin)
	c.Group.POST("/tournaments/:tournament/rounds/:round/email/:event_type", c.PostRoundTemplateEmail, admin)
}

// GetCustomEmail returns the free-form composer. No recipient is selected.
func (c *Controller) GetCustomEmail(ctx echo.Context) error {
	tournament, err := c.resolveTournament(ctx)
	if err != nil {
		return c.writeError(ctx, err)
	}
	return c.renderComposer(ctx, emailPage{}, customRecipients{c.recipients}, tournament, &ComposerPage{})
}

// PostCustomEmail queues a free-form email to the selected recipients.
func (c *Controller) PostCustomEmail(ctx echo.Context) error {
	tournament, err := c.resolveTournament(ctx)
	if err != nil {
		return c.writeError(ctx, err)
	}
	req, err := bindEmailRequest(ctx)
	if err != nil {
		return c.writeError(ctx, err)
	}

	selected, err := c.selectedRecipients(ctx, tournament, req.Recipients)
	if err != nil {
		return c.writeError(ctx, err)
	}
	sendTo := make([]notification.Recipient, 0, len(selected))
	for _, r := range selected {
		sendTo = append(sendTo, notification.Recipient{ID: r.PersonID, Email: r.Email})
	}

	return c.enqueue(ctx, notification.NewCustomEmail(tournament.ID, req.SubjectLine, req.MessageBody, sendTo))
}

// GetTournamentTemplateEmail returns a tournament-wide template composer.
func (c *Controller) GetTournamentTemplateEmail(ctx echo.Context) error {
	tournament, event, err := c.resolveTemplate(ctx, notification.TournamentEvents)
	if err != nil {
		return c.writeError(ctx, err)
	}
	return c.renderTemplateComposer(ctx, tournament, event, nil)
}

// PostTournamentTemplateEmail saves the template and queues it.
func (c *Controller) PostTournamentTemplateEmail(ctx echo.Context) error {
	tournament, event, err := c.resolveTemplate(ctx, notification.TournamentEvents)
	if err != nil {
		return c.writeError(ctx, err)
	}
	return c.submitTemplateEmail(ctx, tournament, event, nil)
}

// GetRoundTemplateEmail returns a round template composer.
func (c *Controller) GetRoundTemplateEmail(ctx echo.Context) error {
	tournament, event, err := c.resolveTemplate(ctx, notification.RoundEvents)
	if err != nil {
		return c.writeError(ctx, err)
	}
	round, err := c.resolveRound(ctx, tournament)
	if err != nil {
		return c.writeError(ctx, err)
	}
	return c.renderTemplateComposer(ctx, tournament, event, round)
}

// PostRoundTemplateEmail saves the template and queues it with the round
// in the message context.
func (c *Controller) PostRoundTemplateEmail(ctx echo.Context) error {
	tournament, event, err := c.resolveTemplate(ctx, notification.RoundEvents)
	if err != nil {
		return c.writeError(ctx, err)
	}
	round, err := c.resolveRound(ctx, tournament)
	if err != nil {
		return c.writeError(ctx, err)
	}
	return c.submitTemplateEmail(ctx, tournament, event, round)
}

func (c *Controller) renderTemplateComposer(ctx echo.Context, tournament *entities.Tournament, event notification.EventType, round *entities.Round) error {
	subject, err := c.savedTemplate(ctx, tournament.ID, event.SubjectPreference(), event.DefaultSubject())
	if err != nil {
		return c.writeError(ctx, err)
	}
	body, err := c.savedTemplate(ctx, tournament.ID, event.MessagePreference(), event.DefaultBody())
	if err != nil {
		return c.writeError(ctx, err)
	}

	page := &ComposerPage{
		EventType: string(event),
		Initial:   ComposerInitial{SubjectLine: subject, MessageBody: body},
	}
	if round != nil {
		page.Round = &RoundInfo{ID: round.ID, Seq: round.Seq, Name: round.Name, Abbreviation: round.Abbreviation}
	}
	return c.renderComposer(ctx, emailPage{}, templateRecipients{c.recipients}, tournament, page)
}

func (c *Controller) submitTemplateEmail(ctx echo.Context, tournament *entities.Tournament, event notification.EventType, round *entities.Round) error {
	req, err := bindEmailRequest(ctx)
	if err != nil {
		return c.writeError(ctx, err)
	}

	if err := notification.ValidateTemplate("subject_line", req.SubjectLine); err != nil {
		return c.HandleError(ctx, err, msgInvalidTemplate, http.StatusBadRequest)
	}
	if err := notification.ValidateTemplate("message_body", req.MessageBody); err != nil {
		return c.HandleError(ctx, err, msgInvalidTemplate, http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	saved := []struct{ name, value string }{
		{event.SubjectPreference(), req.SubjectLine},
		{event.MessagePreference(), req.MessageBody},
	}
	for _, pref := range saved {
		if err := c.preferences.Set(reqCtx, tournament.ID, notification.EmailPreferenceSection, pref.name, pref.value); err != nil {
			return c.HandleError(ctx, err, "Failed to save the email template.", http.StatusInternalServerError)
		}
	}

	selected, err := c.selectedRecipients(ctx, tournament, req.Recipients)
	if err != nil {
		return c.writeError(ctx, err)
	}
	ids := make([]uint, 0, len(selected))
	for _, r := range selected {
		ids = append(ids, r.PersonID)
	}

	var extra map[string]any
	if round != nil {
		extra = map[string]any{
			"round_id": round.ID,
			"round":    round.Name,
		}
	}
	return c.enqueue(ctx, notification.NewTemplateEmail(tournament.ID, event, extra, ids))
}

// renderComposer writes the composer page with its recipient table.
func (c *Controller) renderComposer(ctx echo.Context, meta PageMeta, provider RecipientProvider, tournament *entities.Tournament, page *ComposerPage) error {
	recipients, err := provider.Recipients(ctx.Request().Context(), tournament)
	if err != nil {
		return c.HandleError(ctx, err, msgRecipientsFailed, http.StatusInternalServerError)
	}
	page.PageTitle = meta.PageTitle()
	page.PageEmoji = meta.PageEmoji()
	page.Tournament = tournament.Slug
	page.Table = buildRecipientTable(provider, recipients)
	return ctx.JSON(http.StatusOK, page)
}

func (c *Controller) enqueue(ctx echo.Context, msg *notification.Message) error {
	if err := c.queue.Enqueue(ctx.Request().Context(), msg); err != nil {
		return c.HandleError(ctx, err, msgQueueFailed, http.StatusServiceUnavailable)
	}
	c.log.Info("emails queued",
		logger.String("id", msg.ID),
		logger.String("type", string(msg.Type)),
		logger.Uint("tournament_id", msg.Tournament),
		logger.Int("recipients", len(msg.SendTo)))
	return ctx.JSON(http.StatusAccepted, MessageResponse{Message: msgQueued, ID: msg.ID})
}

func bindEmailRequest(ctx echo.Context) (*EmailRequest, error) {
	var req EmailRequest
	if err := ctx.Bind(&req); err != nil {
		return nil, newRequestError(err, "Invalid request body.", http.StatusBadRequest)
	}
	if req.SubjectLine == "" || req.MessageBody == "" {
		return nil, newRequestError(nil, "A subject line and a message body are required.", http.StatusBadRequest)
	}
	return &req, nil
}

// selectedRecipients narrows the tournament's candidate recipients to ids.
func (c *Controller) selectedRecipients(ctx echo.Context, tournament *entities.Tournament, ids []uint) ([]repository.Recipient, error) {
	candidates, err := c.recipients.Recipients(ctx.Request().Context(), tournament)
	if err != nil {
		return nil, newRequestError(err, msgRecipientsFailed, http.StatusInternalServerError)
	}
	return selectRecipients(candidates, ids), nil
}

func (c *Controller) savedTemplate(ctx echo.Context, tournamentID uint, name, fallback string) (string, error) {
	value, ok, err := c.preferences.Get(ctx.Request().Context(), tournamentID, notification.EmailPreferenceSection, name)
	if err != nil {
		return "", newRequestError(err, "Failed to load the email template.", http.StatusInternalServerError)
	}
	if !ok {
		return fallback, nil
	}
	return value, nil
}

func (c *Controller) resolveTournament(ctx echo.Context) (*entities.Tournament, error) {
	tournament, err := c.tournaments.GetBySlug(ctx.Request().Context(), ctx.Param("tournament"))
	switch {
	case errors.Is(err, repository.ErrTournamentNotFound):
		return nil, newRequestError(err, "Tournament not found.", http.StatusNotFound)
	case err != nil:
		return nil, newRequestError(err, "Failed to load the tournament.", http.StatusInternalServerError)
	}
	return tournament, nil
}

// resolveTemplate returns the tournament and the event named in the path
// if scope allows it.
func (c *Controller) resolveTemplate(ctx echo.Context, scope []notification.EventType) (*entities.Tournament, notification.EventType, error) {
	tournament, err := c.resolveTournament(ctx)
	if err != nil {
		return nil, "", err
	}
	event := notification.EventType(ctx.Param("event_type"))
	if !event.AllowedIn(scope) {
		return nil, "", newRequestError(nil, msgUnknownTemplate, http.StatusNotFound)
	}
	return tournament, event, nil
}

func (c *Controller) resolveRound(ctx echo.Context, tournament *entities.Tournament) (*entities.Round, error) {
	seq, err := strconv.Atoi(ctx.Param("round"))
	if err != nil {
		return nil, newRequestError(err, msgRoundNotFound, http.StatusNotFound)
	}
	round, err := c.tournaments.GetRound(ctx.Request().Context(), tournament.ID, seq)
	switch {
	case errors.Is(err, repository.ErrRoundNotFound):
		return nil, newRequestError(err, msgRoundNotFound, http.StatusNotFound)
	case err != nil:
		return nil, newRequestError(err, "Failed to load the round.", http.StatusInternalServerError)
	}
	return round, nil
}
