package notification

import (
	"bytes"
	"slices"
	"text/template"

	"github.com/debatetab/debatetab/internal/errors"
)

// EventType names a predefined email template.
type EventType string

// Template email events.
const (
	EventURL         EventType = "url"
	EventTeam        EventType = "team"
	EventAdjudicator EventType = "adj"
	EventTeamPoints  EventType = "team_points"
	EventMotion      EventType = "motion"
)

// Events allowed at tournament and round scope.
var (
	TournamentEvents = []EventType{EventURL, EventTeam}
	RoundEvents      = []EventType{EventAdjudicator, EventTeamPoints, EventMotion}
)

// EmailPreferenceSection holds the saved subject and body of each event.
const EmailPreferenceSection = "email"

type eventTemplate struct {
	subject string
	body    string
}

var defaultTemplates = map[EventType]eventTemplate{
	EventURL: {
		subject: "Your personal private URL for {{.Tournament}}",
		body: "<p>Hi {{.Name}},</p>" +
			"<p>At {{.Tournament}}, we are using an online tabulation system. " +
			"You can submit your ballots and feedback at your private URL:</p>" +
			"<p>{{.Extra.url}}</p>",
	},
	EventTeam: {
		subject: "{{.Tournament}}: your team registration",
		body: "<p>Hi {{.Name}},</p>" +
			"<p>You are registered at {{.Tournament}} as a member of {{.Extra.team}}.</p>",
	},
	EventAdjudicator: {
		subject: "{{.Tournament}}: your adjudication for {{.Extra.round}}",
		body: "<p>Hi {{.Name}},</p>" +
			"<p>You have been allocated to adjudicate {{.Extra.round}} at {{.Tournament}}.</p>",
	},
	EventTeamPoints: {
		subject: "{{.Tournament}}: team points after {{.Extra.round}}",
		body: "<p>Hi {{.Name}},</p>" +
			"<p>Team points after {{.Extra.round}} have been released at {{.Tournament}}.</p>",
	},
	EventMotion: {
		subject: "{{.Tournament}}: motion for {{.Extra.round}}",
		body: "<p>Hi {{.Name}},</p>" +
			"<p>The motion for {{.Extra.round}} at {{.Tournament}} has been released.</p>",
	},
}

// Valid reports whether e names a known template.
func (e EventType) Valid() bool {
	_, ok := defaultTemplates[e]
	return ok
}

// AllowedIn reports whether e may be sent from a scope's event list.
func (e EventType) AllowedIn(scope []EventType) bool {
	return slices.Contains(scope, e)
}

// SubjectPreference is the preference name of the event's saved subject.
func (e EventType) SubjectPreference() string {
	return string(e) + "_email_subject"
}

// MessagePreference is the preference name of the event's saved body.
func (e EventType) MessagePreference() string {
	return string(e) + "_email_message"
}

// DefaultSubject returns the built-in subject template of the event.
func (e EventType) DefaultSubject() string {
	return defaultTemplates[e].subject
}

// DefaultBody returns the built-in body template of the event.
func (e EventType) DefaultBody() string {
	return defaultTemplates[e].body
}

// TemplateData is the data available to email templates.
type TemplateData struct {
	Name       string
	Email      string
	Tournament string
	Extra      map[string]string
}

// ValidateTemplate reports whether text parses as a subject or body
// template. name identifies the field in the returned error.
func ValidateTemplate(name, text string) error {
	_, err := parseTemplate(name, text)
	return err
}

func parseTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategoryTemplate).
			Context("template", name).
			Build()
	}
	return tmpl, nil
}

// renderTemplate executes a subject or body template. Missing Extra keys
// render as empty strings.
func renderTemplate(name, text string, data *TemplateData) (string, error) {
	tmpl, err := parseTemplate(name, text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.New(err).
			Component("notification").
			Category(errors.CategoryTemplate).
			Context("template", name).
			Build()
	}
	return buf.String(), nil
}
