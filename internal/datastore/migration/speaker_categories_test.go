package migration

import (
	"context"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
)

type prefKey struct {
	tournamentID  uint
	section, name string
}

// memoryStore is an in-memory CategoryStore.
type memoryStore struct {
	tournaments []entities.Tournament
	teams       map[uint]*entities.Team
	speakers    []entities.Speaker
	categories  []*entities.SpeakerCategory
	prefs       map[prefKey]string
	assigned    map[uint][]*entities.SpeakerCategory
	findCalls   int
	findErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		teams:    make(map[uint]*entities.Team),
		prefs:    make(map[prefKey]string),
		assigned: make(map[uint][]*entities.SpeakerCategory),
	}
}

func (m *memoryStore) addTournament(id uint) {
	m.tournaments = append(m.tournaments, entities.Tournament{ID: id, Slug: "t"})
	m.teams[id] = &entities.Team{ID: id, TournamentID: id}
}

func (m *memoryStore) addSpeaker(id, tournamentID uint, novice, esl, efl bool) {
	m.speakers = append(m.speakers, entities.Speaker{
		ID: id, TeamID: tournamentID, Novice: novice, ESL: esl, EFL: efl,
		Team: m.teams[tournamentID],
	})
}

func (m *memoryStore) setPref(tournamentID uint, name, value string) {
	m.prefs[prefKey{tournamentID, TabReleaseSection, name}] = value
}

func (m *memoryStore) category(tournamentID uint, slug string) *entities.SpeakerCategory {
	for _, c := range m.categories {
		if c.TournamentID == tournamentID && c.Slug == slug {
			return c
		}
	}
	return nil
}

func (m *memoryStore) slugs(speakerID uint) []string {
	var out []string
	for _, c := range m.assigned[speakerID] {
		out = append(out, c.Slug)
	}
	return out
}

func (m *memoryStore) ListTournaments(context.Context) ([]entities.Tournament, error) {
	return m.tournaments, nil
}

func (m *memoryStore) MaxSequence(_ context.Context, tournamentID uint) (int, error) {
	maxSeq := 0
	for _, c := range m.categories {
		if c.TournamentID == tournamentID && c.Seq > maxSeq {
			maxSeq = c.Seq
		}
	}
	return maxSeq, nil
}

func (m *memoryStore) CategoryExists(_ context.Context, tournamentID uint, slug string) (bool, error) {
	return m.category(tournamentID, slug) != nil, nil
}

func (m *memoryStore) CreateCategory(_ context.Context, c *entities.SpeakerCategory) error {
	if m.category(c.TournamentID, c.Slug) != nil {
		return errors.NewStd("duplicate category")
	}
	c.ID = uint(len(m.categories) + 1)
	m.categories = append(m.categories, c)
	return nil
}

func (m *memoryStore) GetPreference(_ context.Context, tournamentID uint, section, name string) (string, bool, error) {
	v, ok := m.prefs[prefKey{tournamentID, section, name}]
	return v, ok, nil
}

func (m *memoryStore) GetOrCreatePreference(_ context.Context, tournamentID uint, section, name, value string) error {
	key := prefKey{tournamentID, section, name}
	if _, ok := m.prefs[key]; !ok {
		m.prefs[key] = value
	}
	return nil
}

func (m *memoryStore) AnySpeakerWithFlag(_ context.Context, tournamentID uint, slug string) (bool, error) {
	for i := range m.speakers {
		s := &m.speakers[i]
		if s.TournamentID() != tournamentID {
			continue
		}
		switch slug {
		case entities.CategorySlugNovice:
			if s.Novice {
				return true, nil
			}
		case entities.CategorySlugESL:
			if s.ESL {
				return true, nil
			}
		case entities.CategorySlugEFL:
			if s.EFL {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memoryStore) ListSpeakers(context.Context) ([]entities.Speaker, error) {
	return m.speakers, nil
}

func (m *memoryStore) FindCategory(_ context.Context, tournamentID uint, slug string) (*entities.SpeakerCategory, error) {
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.category(tournamentID, slug), nil
}

func (m *memoryStore) SetSpeakerCategories(_ context.Context, speakerID uint, categories []*entities.SpeakerCategory) error {
	m.assigned[speakerID] = slices.Clone(categories)
	return nil
}

func discardLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func TestCreateSpeakerCategories_ESLWithoutReleasedTabs(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addSpeaker(1, 1, false, true, false)

	stats, err := CreateSpeakerCategories(context.Background(), store, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CategoriesCreated, "esl and pro")

	esl := store.category(1, entities.CategorySlugESL)
	require.NotNil(t, esl)
	assert.Equal(t, "ESL", esl.Name)
	assert.Equal(t, 1, esl.Seq)
	assert.Equal(t, 0, esl.Limit)
	assert.True(t, esl.Public)

	assert.Nil(t, store.category(1, entities.CategorySlugEFL))
	assert.Nil(t, store.category(1, entities.CategorySlugNovice))

	pro := store.category(1, entities.CategorySlugPro)
	require.NotNil(t, pro)
	assert.Equal(t, "Pro", pro.Name)
	assert.Equal(t, 3, pro.Seq)
	assert.False(t, pro.Public)

	assert.Equal(t, entities.PreferenceFalse,
		store.prefs[prefKey{1, TabReleaseSection, CategoryTabsReleasedPref}])
}

func TestCreateSpeakerCategories_ReleaseLiterals(t *testing.T) {
	tests := []struct {
		name       string
		eslRelease string
		wantPublic bool
		wantPref   string
	}{
		{"one is released", "1", true, entities.PreferenceTrue},
		{"zero is not released", "0", true, entities.PreferenceFalse},
		{"unknown literal is not released", "maybe", true, entities.PreferenceFalse},
		{"lowercase true is released", "true", true, entities.PreferenceTrue},
		{"on is not released", "on", true, entities.PreferenceFalse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			store.addTournament(1)
			store.addSpeaker(1, 1, true, true, false)
			store.setPref(1, "esl_tab_released", tt.eslRelease)

			_, err := CreateSpeakerCategories(context.Background(), store, discardLogger())
			require.NoError(t, err)

			assert.Equal(t, tt.wantPref, store.prefs[prefKey{1, TabReleaseSection, CategoryTabsReleasedPref}])
			assert.Equal(t, tt.wantPublic, store.category(1, entities.CategorySlugESL).Public)

			// Novice was never released, so it is public only when nothing was.
			novice := store.category(1, entities.CategorySlugNovice)
			require.NotNil(t, novice)
			assert.Equal(t, tt.wantPref == entities.PreferenceFalse, novice.Public)
		})
	}
}

func TestCreateSpeakerCategories_PublicFlags(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addSpeaker(1, 1, true, true, true)
	store.setPref(1, "novices_tab_released", "True")
	store.setPref(1, "pros_tab_released", "yes")

	_, err := CreateSpeakerCategories(context.Background(), store, discardLogger())
	require.NoError(t, err)

	assert.True(t, store.category(1, entities.CategorySlugNovice).Public)
	assert.False(t, store.category(1, entities.CategorySlugESL).Public)
	assert.False(t, store.category(1, entities.CategorySlugEFL).Public)
	assert.True(t, store.category(1, entities.CategorySlugPro).Public)
}

func TestCreateSpeakerCategories_ProReleaseDoesNotCountAsAnyReleased(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addSpeaker(1, 1, false, false, true)
	store.setPref(1, "pros_tab_released", "True")

	_, err := CreateSpeakerCategories(context.Background(), store, discardLogger())
	require.NoError(t, err)

	assert.True(t, store.category(1, entities.CategorySlugEFL).Public)
	assert.Equal(t, entities.PreferenceFalse,
		store.prefs[prefKey{1, TabReleaseSection, CategoryTabsReleasedPref}])
}

func TestCreateSpeakerCategories_Limits(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addSpeaker(1, 1, true, true, true)
	store.setPref(1, "esl_tab_limit", "abc")
	store.setPref(1, "efl_tab_limit", "12")
	store.setPref(1, "novices_tab_limit", "-4")
	store.setPref(1, "pros_tab_limit", " 25 ")

	_, err := CreateSpeakerCategories(context.Background(), store, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 0, store.category(1, entities.CategorySlugESL).Limit)
	assert.Equal(t, 12, store.category(1, entities.CategorySlugEFL).Limit)
	assert.Equal(t, 0, store.category(1, entities.CategorySlugNovice).Limit)
	assert.Equal(t, 25, store.category(1, entities.CategorySlugPro).Limit)
}

func TestCreateSpeakerCategories_Idempotent(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addSpeaker(1, 1, true, true, true)
	ctx := context.Background()

	first, err := CreateSpeakerCategories(ctx, store, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 4, first.CategoriesCreated)

	second, err := CreateSpeakerCategories(ctx, store, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, second.CategoriesCreated)
	assert.Len(t, store.categories, 4)
}

func TestCreateSpeakerCategories_ProSequenceOffset(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addTournament(2)
	store.addSpeaker(1, 2, false, true, false)
	// Tournament 2 already has categories up to seq 7.
	store.categories = append(store.categories,
		&entities.SpeakerCategory{ID: 100, TournamentID: 2, Slug: "open", Seq: 7})

	_, err := CreateSpeakerCategories(context.Background(), store, discardLogger())
	require.NoError(t, err)

	// No flagged speakers: only pro, still at last_seq+3.
	assert.Equal(t, 3, store.category(1, entities.CategorySlugPro).Seq)
	assert.Nil(t, store.category(1, entities.CategorySlugESL))

	assert.Equal(t, 8, store.category(2, entities.CategorySlugESL).Seq)
	assert.Equal(t, 10, store.category(2, entities.CategorySlugPro).Seq)
}

func TestCreateSpeakerCategories_ExistingPreferenceKept(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.setPref(1, CategoryTabsReleasedPref, entities.PreferenceTrue)

	_, err := CreateSpeakerCategories(context.Background(), store, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, entities.PreferenceTrue,
		store.prefs[prefKey{1, TabReleaseSection, CategoryTabsReleasedPref}])
}

func TestConvertSpeakerCategories_Assignments(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addSpeaker(1, 1, true, true, false)
	store.addSpeaker(2, 1, false, false, false)
	store.addSpeaker(3, 1, false, false, true)
	ctx := context.Background()

	_, err := CreateSpeakerCategories(ctx, store, discardLogger())
	require.NoError(t, err)

	n, err := ConvertSpeakerCategories(ctx, store, NewCategoryLookup(store), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, []string{"novice", "esl"}, store.slugs(1))
	assert.Equal(t, []string{"pro"}, store.slugs(2))
	assert.Equal(t, []string{"efl", "pro"}, store.slugs(3))
}

func TestConvertSpeakerCategories_MissingCategoriesSkipped(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addSpeaker(1, 1, true, true, false)
	store.categories = append(store.categories,
		&entities.SpeakerCategory{ID: 1, TournamentID: 1, Slug: entities.CategorySlugESL, Seq: 1})

	_, err := ConvertSpeakerCategories(context.Background(), store, NewCategoryLookup(store), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"esl"}, store.slugs(1))
}

func TestConvertSpeakerCategories_ReplacesManualAssignments(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addSpeaker(1, 1, false, false, false)
	ctx := context.Background()

	_, err := CreateSpeakerCategories(ctx, store, discardLogger())
	require.NoError(t, err)
	manual := &entities.SpeakerCategory{ID: 99, TournamentID: 1, Slug: "open", Seq: 9}
	store.categories = append(store.categories, manual)
	store.assigned[1] = []*entities.SpeakerCategory{manual}

	_, err = ConvertSpeakerCategories(ctx, store, NewCategoryLookup(store), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"pro"}, store.slugs(1))
}

func TestCategoryLookup_CachesMisses(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	for id := uint(1); id <= 5; id++ {
		store.addSpeaker(id, 1, true, true, true)
	}
	ctx := context.Background()

	_, err := ConvertSpeakerCategories(ctx, store, NewCategoryLookup(store), discardLogger())
	require.NoError(t, err)
	// novice, esl and efl looked up once each; none exist and all are cached.
	assert.Equal(t, 3, store.findCalls)
	assert.Empty(t, store.slugs(1))
}

func TestConvertSpeakerCategories_LookupFailureAborts(t *testing.T) {
	store := newMemoryStore()
	store.addTournament(1)
	store.addSpeaker(1, 1, false, false, false)
	store.findErr = errors.NewStd("connection reset")

	_, err := ConvertSpeakerCategories(context.Background(), store, NewCategoryLookup(store), discardLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMigration))
	assert.Empty(t, store.assigned)
}

func TestParseLimit(t *testing.T) {
	tests := map[string]int{
		"5":    5,
		"0":    0,
		"":     0,
		"abc":  0,
		"1.5":  0,
		" 7\n": 7,
		"-1":   0,
	}
	for raw, want := range tests {
		assert.Equal(t, want, parseLimit(raw), "raw %q", raw)
	}
}
