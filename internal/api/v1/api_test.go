package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/api/auth"
	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/datastore/repository"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
	"github.com/debatetab/debatetab/internal/notification"
	"github.com/debatetab/debatetab/internal/testutil"
)

// recordingSender records test emails and fails with err when set.
type recordingSender struct {
	mu   sync.Mutex
	sent []notification.Email
	err  error
}

func (s *recordingSender) Send(_ context.Context, email notification.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, email)
	return nil
}

type testEnv struct {
	e      *echo.Echo
	db     *gorm.DB
	fx     *testutil.Fixture
	queue  *notification.MemoryQueue
	sender *recordingSender
	prefs  repository.PreferenceRepository

	mu    sync.Mutex
	admin bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	env := &testEnv{
		e:      echo.New(),
		db:     db,
		fx:     testutil.NewFixture(t, db),
		queue:  notification.NewMemoryQueue(10),
		sender: &recordingSender{},
		prefs:  repository.NewPreferenceRepository(db),
		admin:  true,
	}
	t.Cleanup(func() { _ = env.queue.Close() })

	_, err := New(env.e, &conf.Settings{}, &Dependencies{
		Tournaments: repository.NewTournamentRepository(db),
		People:      repository.NewPersonRepository(db),
		Preferences: env.prefs,
		Queue:       env.queue,
		Sender:      env.sender,
	},
		WithAuthorizer(auth.AuthorizerFunc(func(echo.Context) bool {
			env.mu.Lock()
			defer env.mu.Unlock()
			return env.admin
		})),
		WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)),
	)
	require.NoError(t, err)
	return env
}

func (env *testEnv) setAdmin(admin bool) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.admin = admin
}

func (env *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, _ := json.Marshal(body)
		reader = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) queued(t *testing.T) *notification.Message {
	t.Helper()
	return testutil.ReceiveWithin(t, env.queue.Messages(), testutil.ShortTestTimeout, "no message queued")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// participants seeds wudc with one speaker, one adjudicator, a shared
// adjudicator and an adjudicator of another tournament.
type participants struct {
	speaker, adjudicator, shared, outsider uint
}

func seedParticipants(env *testEnv) participants {
	wudc := env.fx.Tournament("wudc")
	other := env.fx.Tournament("eudc")
	team := env.fx.Team(wudc)
	return participants{
		speaker:     env.fx.Speaker(team, "Ada Lovelace", testutil.SpeakerFlags{}).PersonID,
		adjudicator: env.fx.Adjudicator(wudc, "Ben Okafor").PersonID,
		shared:      env.fx.Adjudicator(nil, "Cy Shared").PersonID,
		outsider:    env.fx.Adjudicator(other, "Dee Elsewhere").PersonID,
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func rowIDs(table RecipientTable) []uint {
	ids := make([]uint, 0, len(table.Rows))
	for _, r := range table.Rows {
		ids = append(ids, r.Send.Value)
	}
	return ids
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/v1/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["queue"])
}

func TestComposer_RequiresAdministrator(t *testing.T) {
	env := newTestEnv(t)
	seedParticipants(env)
	env.setAdmin(false)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/tournaments/wudc/email"},
		{http.MethodPost, "/api/v1/tournaments/wudc/email"},
		{http.MethodGet, "/api/v1/tournaments/wudc/email/url"},
		{http.MethodPost, "/api/v1/notifications/test-email"},
	} {
		rec := env.do(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}
	assert.Equal(t, 0, env.queue.Len())
}

func TestGetCustomEmail_RowsUnchecked(t *testing.T) {
	env := newTestEnv(t)
	p := seedParticipants(env)

	rec := env.do(http.MethodGet, "/api/v1/tournaments/wudc/email", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[ComposerPage](t, rec)

	assert.Equal(t, "Email Participants", page.PageTitle)
	assert.Equal(t, "📤", page.PageEmoji)
	assert.Equal(t, "wudc", page.Tournament)
	assert.Equal(t, "role", page.Table.SortKey)
	assert.Equal(t, []uint{p.adjudicator, p.speaker}, rowIDs(page.Table), "adjudicators sort first, shared ones are excluded")

	for _, row := range page.Table.Rows {
		assert.False(t, row.Send.Checked)
		assert.Equal(t, "check-cell", row.Send.Component)
		assert.Equal(t, "recipients", row.Send.Name)
		assert.Equal(t, row.Send.ID, row.Send.Value)
		assert.Equal(t, "no-wrap", row.Name.Class)
		assert.Contains(t, row.Name.Tooltip, "@example.org")
	}
	assert.Equal(t, "Adj", page.Table.Rows[0].Role.Text)
	assert.Equal(t, "Spk", page.Table.Rows[1].Role.Text)
}

func TestGetCustomEmail_SharedAdjudicators(t *testing.T) {
	env := newTestEnv(t)
	p := seedParticipants(env)
	wudc, err := repository.NewTournamentRepository(env.db).GetBySlug(context.Background(), "wudc")
	require.NoError(t, err)
	env.fx.Preference(wudc, LeagueOptionsSection, ShareAdjudicatorsPref, "True")

	rec := env.do(http.MethodGet, "/api/v1/tournaments/wudc/email", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[ComposerPage](t, rec)

	ids := rowIDs(page.Table)
	assert.ElementsMatch(t, []uint{p.speaker, p.adjudicator, p.shared}, ids)
	assert.NotContains(t, ids, p.outsider)
}

func TestGetCustomEmail_UnknownTournament(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/v1/tournaments/nowhere/email", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Tournament not found.", decode[ErrorResponse](t, rec).Message)
}

func TestPostCustomEmail_QueuesSelectedRecipients(t *testing.T) {
	env := newTestEnv(t)
	p := seedParticipants(env)

	rec := env.do(http.MethodPost, "/api/v1/tournaments/wudc/email", EmailRequest{
		SubjectLine: "Venue change",
		MessageBody: "<p>Round 4 moves to Hall B.</p>",
		Recipients:  []uint{p.speaker, p.outsider, p.speaker},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	resp := decode[MessageResponse](t, rec)
	assert.Equal(t, "Emails have been queued for sending.", resp.Message)

	msg := env.queued(t)
	assert.Equal(t, resp.ID, msg.ID)
	assert.Equal(t, notification.TypeCustomEmail, msg.Type)
	assert.Equal(t, "Venue change", msg.Subject)
	assert.Equal(t, "<p>Round 4 moves to Hall B.</p>", msg.Body)
	require.Len(t, msg.SendTo, 1, "outsiders and duplicates are dropped")
	assert.Equal(t, p.speaker, msg.SendTo[0].ID)
	assert.NotEmpty(t, msg.SendTo[0].Email)
}

func TestPostCustomEmail_FormEncoded(t *testing.T) {
	env := newTestEnv(t)
	p := seedParticipants(env)

	form := url.Values{}
	form.Set("subject_line", "Briefing")
	form.Set("message_body", "Briefing at 9am")
	form.Add("recipients", itoa(p.speaker))
	form.Add("recipients", itoa(p.adjudicator))

	rec := env.postForm("/api/v1/tournaments/wudc/email", form)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.ElementsMatch(t, []uint{p.speaker, p.adjudicator}, env.queued(t).RecipientIDs())
}

func TestPostCustomEmail_Validation(t *testing.T) {
	env := newTestEnv(t)
	seedParticipants(env)

	rec := env.do(http.MethodPost, "/api/v1/tournaments/wudc/email", EmailRequest{MessageBody: "no subject"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/tournaments/wudc/email", map[string]any{"recipients": "all"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.queue.Len())
}

func TestPostCustomEmail_QueueClosed(t *testing.T) {
	env := newTestEnv(t)
	p := seedParticipants(env)
	require.NoError(t, env.queue.Close())

	rec := env.do(http.MethodPost, "/api/v1/tournaments/wudc/email", EmailRequest{
		SubjectLine: "s", MessageBody: "b", Recipients: []uint{p.speaker},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Emails could not be queued for sending.", decode[ErrorResponse](t, rec).Message)
}

func TestTemplateEmail_DefaultsAndCheckedRows(t *testing.T) {
	env := newTestEnv(t)
	seedParticipants(env)

	rec := env.do(http.MethodGet, "/api/v1/tournaments/wudc/email/url", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[ComposerPage](t, rec)

	assert.Equal(t, "url", page.EventType)
	assert.Nil(t, page.Round)
	assert.Equal(t, notification.EventURL.DefaultSubject(), page.Initial.SubjectLine)
	assert.Equal(t, notification.EventURL.DefaultBody(), page.Initial.MessageBody)
	require.Len(t, page.Table.Rows, 2)
	for _, row := range page.Table.Rows {
		assert.True(t, row.Send.Checked)
	}
}

func TestTemplateEmail_EventScopes(t *testing.T) {
	env := newTestEnv(t)
	wudc := env.fx.Tournament("wudc")
	env.fx.Round(wudc, 1)

	tests := []struct {
		path string
		code int
	}{
		{"/api/v1/tournaments/wudc/email/url", http.StatusOK},
		{"/api/v1/tournaments/wudc/email/team", http.StatusOK},
		{"/api/v1/tournaments/wudc/email/motion", http.StatusNotFound},
		{"/api/v1/tournaments/wudc/email/results", http.StatusNotFound},
		{"/api/v1/tournaments/wudc/rounds/1/email/adj", http.StatusOK},
		{"/api/v1/tournaments/wudc/rounds/1/email/team_points", http.StatusOK},
		{"/api/v1/tournaments/wudc/rounds/1/email/motion", http.StatusOK},
		{"/api/v1/tournaments/wudc/rounds/1/email/url", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.path, nil)
			require.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusNotFound {
				assert.Equal(t, "There is no email template with that name.", decode[ErrorResponse](t, rec).Message)
			}
		})
	}

	rec := env.do(http.MethodPost, "/api/v1/tournaments/wudc/email/motion", EmailRequest{SubjectLine: "s", MessageBody: "b"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "POST is limited to the same events")
	assert.Equal(t, 0, env.queue.Len())
}

func TestTemplateEmail_UnknownRound(t *testing.T) {
	env := newTestEnv(t)
	env.fx.Tournament("wudc")

	for _, path := range []string{
		"/api/v1/tournaments/wudc/rounds/9/email/motion",
		"/api/v1/tournaments/wudc/rounds/final/email/motion",
	} {
		rec := env.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Round not found.", decode[ErrorResponse](t, rec).Message)
	}
}

func TestRoundTemplateEmail_SavesTemplateAndQueues(t *testing.T) {
	env := newTestEnv(t)
	p := seedParticipants(env)
	wudc, err := repository.NewTournamentRepository(env.db).GetBySlug(context.Background(), "wudc")
	require.NoError(t, err)
	round := env.fx.Round(wudc, 3)
	path := "/api/v1/tournaments/wudc/rounds/3/email/motion"

	// Prime the preference cache with the defaults.
	rec := env.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notification.EventMotion.DefaultSubject(), decode[ComposerPage](t, rec).Initial.SubjectLine)

	rec = env.do(http.MethodPost, path, EmailRequest{
		SubjectLine: "Motion for {{.Extra.round}}",
		MessageBody: "Hi {{.Name}}",
		Recipients:  []uint{p.adjudicator, p.outsider},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	msg := env.queued(t)
	assert.Equal(t, notification.TypeEmail, msg.Type)
	assert.Equal(t, notification.EventMotion, msg.Event)
	assert.Equal(t, wudc.ID, msg.Tournament)
	assert.Equal(t, []uint{p.adjudicator}, msg.RecipientIDs())
	assert.Equal(t, round.ID, msg.Extra["round_id"])
	assert.Equal(t, "Round 3", msg.Extra["round"])

	subject, ok, err := env.prefs.Get(context.Background(), wudc.ID, notification.EmailPreferenceSection, "motion_email_subject")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Motion for {{.Extra.round}}", subject)

	rec = env.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[ComposerPage](t, rec)
	assert.Equal(t, "Motion for {{.Extra.round}}", page.Initial.SubjectLine, "saved template replaces the cached default")
	assert.Equal(t, "Hi {{.Name}}", page.Initial.MessageBody)
	require.NotNil(t, page.Round)
	assert.Equal(t, 3, page.Round.Seq)
}

func TestTournamentTemplateEmail_PostHasNoExtra(t *testing.T) {
	env := newTestEnv(t)
	p := seedParticipants(env)

	rec := env.do(http.MethodPost, "/api/v1/tournaments/wudc/email/team", EmailRequest{
		SubjectLine: "Your team", MessageBody: "Hi {{.Name}}", Recipients: []uint{p.speaker},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	msg := env.queued(t)
	assert.Equal(t, notification.EventTeam, msg.Event)
	assert.Empty(t, msg.Extra)
	assert.Equal(t, []notification.Recipient{{ID: p.speaker}}, msg.SendTo)
}

func TestTemplateEmail_RejectsMalformedTemplate(t *testing.T) {
	env := newTestEnv(t)
	p := seedParticipants(env)
	wudc, err := repository.NewTournamentRepository(env.db).GetBySlug(context.Background(), "wudc")
	require.NoError(t, err)

	for _, req := range []EmailRequest{
		{SubjectLine: "Your team", MessageBody: "Hi {{.Name", Recipients: []uint{p.speaker}},
		{SubjectLine: "{{if .Name}}Your team", MessageBody: "Hi {{.Name}}", Recipients: []uint{p.speaker}},
	} {
		rec := env.do(http.MethodPost, "/api/v1/tournaments/wudc/email/team", req)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, msgInvalidTemplate, decode[ErrorResponse](t, rec).Message)
	}

	for _, name := range []string{"team_email_subject", "team_email_message"} {
		_, ok, err := env.prefs.Get(context.Background(), wudc.ID, notification.EmailPreferenceSection, name)
		require.NoError(t, err)
		assert.False(t, ok, "%s must not be saved", name)
	}
	assert.Equal(t, 0, env.queue.Len())
}

func TestSendTestEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/notifications/test-email", TestEmailRequest{Recipient: "Ada <ada@example.org>"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A test email has been sent to ada@example.org.", decode[MessageResponse](t, rec).Message)
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, "ada@example.org", env.sender.sent[0].To)
	assert.Contains(t, env.sender.sent[0].Body, "example.com", "body names the request host")

	env.sender.err = errors.NewStd("dial tcp: connection refused")
	rec = env.do(http.MethodPost, "/api/v1/notifications/test-email", TestEmailRequest{Recipient: "ada@example.org"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "There was an error sending the test email: dial tcp: connection refused",
		decode[MessageResponse](t, rec).Message)

	rec = env.do(http.MethodPost, "/api/v1/notifications/test-email", TestEmailRequest{Recipient: "not an address"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendTestEmail_RateLimited(t *testing.T) {
	env := newTestEnv(t)

	codes := make([]int, 0, testEmailBurst+1)
	for range testEmailBurst + 1 {
		codes = append(codes, env.do(http.MethodPost, "/api/v1/notifications/test-email",
			TestEmailRequest{Recipient: "ada@example.org"}).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, codes[testEmailBurst])
	assert.Len(t, env.sender.sent, testEmailBurst)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(echo.New(), &conf.Settings{}, &Dependencies{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
