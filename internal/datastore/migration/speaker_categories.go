package migration

import (
	"context"
	"strconv"
	"strings"

	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
)

// Preference keys read and written by the backfill.
const (
	TabReleaseSection        = "tab_release"
	CategoryTabsReleasedPref = "speaker_category_tabs_released"
	proSequenceOffset        = 3
	speakerCategoryComponent = "speaker-category-backfill"
)

// categoryDefinition describes one legacy category and its preferences.
type categoryDefinition struct {
	slug         string
	name         string
	limitPref    string
	releasedPref string
}

// conditionalCategories are created only when a speaker carries the flag.
// The order fixes their sequence numbers.
var conditionalCategories = []categoryDefinition{
	{entities.CategorySlugESL, "ESL", "esl_tab_limit", "esl_tab_released"},
	{entities.CategorySlugEFL, "EFL", "efl_tab_limit", "efl_tab_released"},
	{entities.CategorySlugNovice, "Novice", "novices_tab_limit", "novices_tab_released"},
}

var proCategory = categoryDefinition{entities.CategorySlugPro, "Pro", "pros_tab_limit", "pros_tab_released"}

// BackfillStats summarizes one backfill run.
type BackfillStats struct {
	Tournaments       int
	CategoriesCreated int
	SpeakersUpdated   int
}

// CreateSpeakerCategories creates the ESL, EFL, Novice and Pro categories of
// every tournament from the legacy speaker flags and tab release preferences.
// Categories that already exist are left untouched.
func CreateSpeakerCategories(ctx context.Context, store CategoryStore, log logger.Logger) (*BackfillStats, error) {
	tournaments, err := store.ListTournaments(ctx)
	if err != nil {
		return nil, backfillError(err, "list_tournaments")
	}

	stats := &BackfillStats{Tournaments: len(tournaments)}
	for i := range tournaments {
		created, err := createTournamentCategories(ctx, store, tournaments[i].ID)
		if err != nil {
			return stats, err
		}
		stats.CategoriesCreated += created
		log.Debug("speaker categories created",
			logger.String("tournament", tournaments[i].Slug),
			logger.Int("created", created))
	}

	log.Info("speaker category creation complete",
		logger.Int("tournaments", stats.Tournaments),
		logger.Int("categories_created", stats.CategoriesCreated))
	return stats, nil
}

func createTournamentCategories(ctx context.Context, store CategoryStore, tournamentID uint) (int, error) {
	lastSeq, err := store.MaxSequence(ctx, tournamentID)
	if err != nil {
		return 0, backfillError(err, "max_sequence")
	}

	released := make(map[string]bool, len(conditionalCategories)+1)
	for _, def := range append([]categoryDefinition{proCategory}, conditionalCategories...) {
		raw, found, err := store.GetPreference(ctx, tournamentID, TabReleaseSection, def.releasedPref)
		if err != nil {
			return 0, backfillError(err, "get_release_preference")
		}
		released[def.slug] = found && entities.IsTruthy(raw)
	}

	// The pro release flag does not count towards any_released.
	anyReleased := released[entities.CategorySlugNovice] ||
		released[entities.CategorySlugESL] ||
		released[entities.CategorySlugEFL]

	err = store.GetOrCreatePreference(ctx, tournamentID, TabReleaseSection, CategoryTabsReleasedPref,
		entities.FormatBool(anyReleased))
	if err != nil {
		return 0, backfillError(err, "create_release_preference")
	}

	created := 0
	for i, def := range conditionalCategories {
		exists, err := store.CategoryExists(ctx, tournamentID, def.slug)
		if err != nil {
			return created, backfillError(err, "category_exists")
		}
		if exists {
			continue
		}

		used, err := store.AnySpeakerWithFlag(ctx, tournamentID, def.slug)
		if err != nil {
			return created, backfillError(err, "speaker_flag_exists")
		}
		if !used {
			continue
		}

		limit, err := limitPreference(ctx, store, tournamentID, def.limitPref)
		if err != nil {
			return created, err
		}
		category := &entities.SpeakerCategory{
			TournamentID: tournamentID,
			Name:         def.name,
			Slug:         def.slug,
			Seq:          lastSeq + i + 1,
			Limit:        limit,
			Public:       !anyReleased || released[def.slug],
		}
		if err := store.CreateCategory(ctx, category); err != nil {
			return created, backfillError(err, "create_category")
		}
		created++
	}

	exists, err := store.CategoryExists(ctx, tournamentID, proCategory.slug)
	if err != nil {
		return created, backfillError(err, "category_exists")
	}
	if exists {
		return created, nil
	}

	limit, err := limitPreference(ctx, store, tournamentID, proCategory.limitPref)
	if err != nil {
		return created, err
	}
	// Pro always takes last_seq+3, whichever conditional categories were created.
	pro := &entities.SpeakerCategory{
		TournamentID: tournamentID,
		Name:         proCategory.name,
		Slug:         proCategory.slug,
		Seq:          lastSeq + proSequenceOffset,
		Limit:        limit,
		Public:       released[proCategory.slug],
	}
	if err := store.CreateCategory(ctx, pro); err != nil {
		return created, backfillError(err, "create_category")
	}
	return created + 1, nil
}

// limitPreference reads a tab limit. Missing, malformed and negative
// values read as 0.
func limitPreference(ctx context.Context, store CategoryStore, tournamentID uint, name string) (int, error) {
	raw, found, err := store.GetPreference(ctx, tournamentID, TabReleaseSection, name)
	if err != nil {
		return 0, backfillError(err, "get_limit_preference")
	}
	if !found {
		return 0, nil
	}
	return parseLimit(raw), nil
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type categoryKey struct {
	tournamentID uint
	slug         string
}

// CategoryLookup memoizes (tournament, slug) category lookups for one run.
// Categories that do not exist are cached as nil.
type CategoryLookup struct {
	store   CategoryStore
	entries map[categoryKey]*entities.SpeakerCategory
}

// NewCategoryLookup returns an empty lookup reading from store.
func NewCategoryLookup(store CategoryStore) *CategoryLookup {
	return &CategoryLookup{
		store:   store,
		entries: make(map[categoryKey]*entities.SpeakerCategory),
	}
}

// Get returns the tournament's category with the slug, or nil.
func (l *CategoryLookup) Get(ctx context.Context, tournamentID uint, slug string) (*entities.SpeakerCategory, error) {
	key := categoryKey{tournamentID: tournamentID, slug: slug}
	if category, ok := l.entries[key]; ok {
		return category, nil
	}
	category, err := l.store.FindCategory(ctx, tournamentID, slug)
	if err != nil {
		return nil, err
	}
	l.entries[key] = category
	return category, nil
}

// ConvertSpeakerCategories replaces every speaker's categories with the set
// derived from the legacy flags: each flagged novice, esl and efl category,
// plus pro for speakers who are not novices.
func ConvertSpeakerCategories(ctx context.Context, store CategoryStore, lookup *CategoryLookup, log logger.Logger) (int, error) {
	speakers, err := store.ListSpeakers(ctx)
	if err != nil {
		return 0, backfillError(err, "list_speakers")
	}

	for i := range speakers {
		speaker := &speakers[i]
		categories, err := speakerCategories(ctx, speaker, lookup)
		if err != nil {
			return i, backfillError(err, "find_category")
		}
		if err := store.SetSpeakerCategories(ctx, speaker.ID, categories); err != nil {
			return i, backfillError(err, "set_speaker_categories")
		}
	}

	log.Info("speaker category assignment complete", logger.Int("speakers", len(speakers)))
	return len(speakers), nil
}

func speakerCategories(ctx context.Context, speaker *entities.Speaker, lookup *CategoryLookup) ([]*entities.SpeakerCategory, error) {
	tournamentID := speaker.TournamentID()
	flags := []struct {
		slug string
		set  bool
	}{
		{entities.CategorySlugNovice, speaker.Novice},
		{entities.CategorySlugESL, speaker.ESL},
		{entities.CategorySlugEFL, speaker.EFL},
		{entities.CategorySlugPro, !speaker.Novice},
	}

	var categories []*entities.SpeakerCategory
	for _, f := range flags {
		if !f.set {
			continue
		}
		category, err := lookup.Get(ctx, tournamentID, f.slug)
		if err != nil {
			return nil, err
		}
		if category != nil {
			categories = append(categories, category)
		}
	}
	return categories, nil
}

func backfillError(err error, operation string) error {
	return errors.New(err).
		Component(speakerCategoryComponent).
		Category(errors.CategoryMigration).
		Context("operation", operation).
		Build()
}
