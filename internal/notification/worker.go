package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/logger"
	"github.com/debatetab/debatetab/internal/observability/metrics"
)

// PeopleLookup resolves recipient person IDs and their teams.
type PeopleLookup interface {
	ByIDs(ctx context.Context, ids []uint) ([]entities.Person, error)
	TeamReferences(ctx context.Context, tournamentID uint, personIDs []uint) (map[uint]string, error)
}

// PreferenceLookup reads saved email templates.
type PreferenceLookup interface {
	Get(ctx context.Context, tournamentID uint, section, name string) (string, bool, error)
}

// TournamentLookup resolves the tournament named in emails.
type TournamentLookup interface {
	GetByID(ctx context.Context, id uint) (*entities.Tournament, error)
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Sender      Sender
	People      PeopleLookup
	Preferences PreferenceLookup
	Tournaments TournamentLookup
	Metrics     *metrics.NotificationMetrics
	Logger      logger.Logger
	// SiteURL prefixes private URLs, e.g. https://tab.example.org.
	SiteURL string
}

// Worker delivers queued messages one at a time.
type Worker struct {
	sender      Sender
	people      PeopleLookup
	preferences PreferenceLookup
	tournaments TournamentLookup
	metrics     *metrics.NotificationMetrics
	log         logger.Logger
	siteURL     string
}

// NewWorker creates a Worker. Metrics and Logger are optional.
func NewWorker(cfg *WorkerConfig) *Worker {
	log := cfg.Logger
	if log == nil {
		log = getLogger()
	}
	return &Worker{
		sender:      cfg.Sender,
		people:      cfg.People,
		preferences: cfg.Preferences,
		tournaments: cfg.Tournaments,
		metrics:     cfg.Metrics,
		log:         log,
		siteURL:     strings.TrimSuffix(cfg.SiteURL, "/"),
	}
}

// Run delivers messages from ch until ch is closed or ctx is done.
func (w *Worker) Run(ctx context.Context, ch <-chan *Message) error {
	w.log.Info("notification worker started")
	defer w.log.Info("notification worker stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if w.metrics != nil {
				w.metrics.SetQueueDepth(len(ch))
			}
			w.Process(ctx, msg)
		}
	}
}

// Result counts the outcome of one message.
type Result struct {
	Sent   int
	Failed int
}

// Process delivers every email of msg. Failures of single recipients are
// logged and counted; they do not stop the rest of the batch.
func (w *Worker) Process(ctx context.Context, msg *Message) Result {
	start := time.Now()
	log := w.log.With(logger.String("id", msg.ID), logger.String("type", string(msg.Type)))

	var (
		result Result
		err    error
	)
	if err = msg.Validate(); err == nil {
		switch msg.Type {
		case TypeCustomEmail:
			result = w.deliverCustom(ctx, msg, log)
		case TypeEmail:
			result, err = w.deliverTemplate(ctx, msg, log)
		}
	}
	if err != nil {
		log.Error("notification not delivered", logger.Error(err))
		result.Failed = len(msg.SendTo)
	}

	status := metrics.StatusSuccess
	switch {
	case result.Failed > 0 && result.Sent == 0:
		status = metrics.StatusFailed
	case result.Failed > 0:
		status = metrics.StatusPartial
	}
	if w.metrics != nil {
		w.metrics.RecordProcessed(string(msg.Type), status, time.Since(start))
	}
	log.Info("notification processed",
		logger.Int("sent", result.Sent),
		logger.Int("failed", result.Failed),
		logger.Duration("duration", time.Since(start)))
	return result
}

func (w *Worker) deliverCustom(ctx context.Context, msg *Message, log logger.Logger) Result {
	var result Result
	for _, r := range msg.SendTo {
		w.send(ctx, Email{To: r.Email, Subject: msg.Subject, Body: msg.Body}, r.ID, &result, log)
	}
	return result
}

func (w *Worker) deliverTemplate(ctx context.Context, msg *Message, log logger.Logger) (Result, error) {
	var result Result

	tournament, err := w.tournaments.GetByID(ctx, msg.Tournament)
	if err != nil {
		return result, err
	}
	subjectText, err := w.savedTemplate(ctx, msg.Tournament, msg.Event.SubjectPreference(), msg.Event.DefaultSubject())
	if err != nil {
		return result, err
	}
	bodyText, err := w.savedTemplate(ctx, msg.Tournament, msg.Event.MessagePreference(), msg.Event.DefaultBody())
	if err != nil {
		return result, err
	}

	people, err := w.people.ByIDs(ctx, msg.RecipientIDs())
	if err != nil {
		return result, err
	}
	if missing := len(msg.SendTo) - len(people); missing > 0 {
		log.Warn("recipients no longer exist", logger.Int("count", missing))
		result.Failed += missing
	}

	ids := make([]uint, 0, len(people))
	for i := range people {
		ids = append(ids, people[i].ID)
	}
	teams, err := w.people.TeamReferences(ctx, msg.Tournament, ids)
	if err != nil {
		return result, err
	}

	for i := range people {
		p := &people[i]
		extra := stringifyExtra(msg.Extra)
		if team, ok := teams[p.ID]; ok {
			extra["team"] = team
		}
		if p.URLKey != "" {
			extra["url"] = w.privateURL(tournament.Slug, p.URLKey)
		}
		if missing := missingRecipientData(msg.Event, extra); missing != "" {
			log.Warn("recipient skipped", logger.Uint("person", p.ID), logger.String("missing", missing))
			result.Failed++
			continue
		}

		data := &TemplateData{Name: p.Name, Email: p.Email, Tournament: tournament.Name, Extra: extra}
		subject, err := renderTemplate("subject", subjectText, data)
		if err != nil {
			return result, err
		}
		body, err := renderTemplate("body", bodyText, data)
		if err != nil {
			return result, err
		}
		w.send(ctx, Email{To: p.Email, Subject: subject, Body: body}, p.ID, &result, log)
	}
	return result, nil
}

func (w *Worker) send(ctx context.Context, email Email, personID uint, result *Result, log logger.Logger) {
	if email.To == "" {
		log.Warn("recipient has no email address", logger.Uint("person", personID))
		result.Failed++
		return
	}
	err := w.sender.Send(ctx, email)
	if w.metrics != nil {
		w.metrics.RecordEmail(err == nil)
	}
	if err != nil {
		log.Warn("email send failed", logger.Uint("person", personID), logger.Error(err))
		result.Failed++
		return
	}
	result.Sent++
}

// savedTemplate returns the tournament's saved template text, or fallback
// when none is saved or the saved value is empty.
func (w *Worker) savedTemplate(ctx context.Context, tournamentID uint, name, fallback string) (string, error) {
	raw, found, err := w.preferences.Get(ctx, tournamentID, EmailPreferenceSection, name)
	if err != nil {
		return "", err
	}
	if !found || raw == "" {
		return fallback, nil
	}
	return raw, nil
}

// privateURL is the link a person uses to submit ballots and feedback.
func (w *Worker) privateURL(tournamentSlug, key string) string {
	return fmt.Sprintf("%s/%s/privateurls/%s/", w.siteURL, tournamentSlug, key)
}

// missingRecipientData names the per-recipient value event needs but
// extra lacks, or returns "".
func missingRecipientData(event EventType, extra map[string]string) string {
	switch event {
	case EventURL:
		if extra["url"] == "" {
			return "url"
		}
	case EventTeam:
		if extra["team"] == "" {
			return "team"
		}
	}
	return ""
}

func stringifyExtra(extra map[string]any) map[string]string {
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		out[k] = fmt.Sprint(v)
	}
	return out
}
