package testutil

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/datastore"
	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/logger"
)

// NewTestDB returns an initialized SQLite database in a temporary directory.
// The database is closed when the test ends.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	mgr, err := datastore.NewSQLiteManager(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	t.Cleanup(func() { _ = mgr.Close() })

	return mgr.DB()
}

// Fixture creates tournament data for tests.
type Fixture struct {
	t  *testing.T
	db *gorm.DB
	n  int
}

// NewFixture returns a Fixture writing to db.
func NewFixture(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()
	return &Fixture{t: t, db: db}
}

func (f *Fixture) next() int {
	f.n++
	return f.n
}

// Tournament creates a tournament with the given slug.
func (f *Fixture) Tournament(slug string) *entities.Tournament {
	f.t.Helper()
	t := &entities.Tournament{Name: "Tournament " + slug, Slug: slug, Active: true}
	require.NoError(f.t, f.db.Create(t).Error)
	return t
}

// Round creates a round with the given sequence number.
func (f *Fixture) Round(tournament *entities.Tournament, seq int) *entities.Round {
	f.t.Helper()
	r := &entities.Round{
		TournamentID: tournament.ID,
		Seq:          seq,
		Name:         fmt.Sprintf("Round %d", seq),
		Abbreviation: fmt.Sprintf("R%d", seq),
	}
	require.NoError(f.t, f.db.Create(r).Error)
	return r
}

// Team creates a team in the tournament.
func (f *Fixture) Team(tournament *entities.Tournament) *entities.Team {
	f.t.Helper()
	team := &entities.Team{TournamentID: tournament.ID, Reference: fmt.Sprintf("Team %d", f.next())}
	require.NoError(f.t, f.db.Create(team).Error)
	return team
}

// SpeakerFlags are the legacy category flags of a speaker.
type SpeakerFlags struct {
	Novice, ESL, EFL bool
}

// Speaker creates a person and a speaker on the team.
func (f *Fixture) Speaker(team *entities.Team, name string, flags SpeakerFlags) *entities.Speaker {
	f.t.Helper()
	person := f.Person(name)
	s := &entities.Speaker{
		PersonID: person.ID,
		TeamID:   team.ID,
		Novice:   flags.Novice,
		ESL:      flags.ESL,
		EFL:      flags.EFL,
	}
	require.NoError(f.t, f.db.Create(s).Error)
	s.Person = person
	s.Team = team
	return s
}

// Adjudicator creates a person and an adjudicator. A nil tournament
// creates a shared adjudicator.
func (f *Fixture) Adjudicator(tournament *entities.Tournament, name string) *entities.Adjudicator {
	f.t.Helper()
	person := f.Person(name)
	adj := &entities.Adjudicator{PersonID: person.ID}
	if tournament != nil {
		adj.TournamentID = &tournament.ID
	}
	require.NoError(f.t, f.db.Create(adj).Error)
	adj.Person = person
	return adj
}

// Person creates a person with a derived email address.
func (f *Fixture) Person(name string) *entities.Person {
	f.t.Helper()
	p := &entities.Person{Name: name, Email: fmt.Sprintf("person%d@example.org", f.next())}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

// Preference stores a raw tournament preference.
func (f *Fixture) Preference(tournament *entities.Tournament, section, name, value string) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&entities.TournamentPreference{
		Section:    section,
		Name:       name,
		InstanceID: tournament.ID,
		RawValue:   value,
	}).Error)
}

// Category creates a speaker category directly.
func (f *Fixture) Category(tournament *entities.Tournament, slug string, seq int) *entities.SpeakerCategory {
	f.t.Helper()
	c := &entities.SpeakerCategory{TournamentID: tournament.ID, Name: slug, Slug: slug, Seq: seq}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}
