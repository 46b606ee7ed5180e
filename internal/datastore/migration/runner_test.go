package migration_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/datastore/migration"
	"github.com/debatetab/debatetab/internal/datastore/repository"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
	"github.com/debatetab/debatetab/internal/testutil"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func categorySlugs(t *testing.T, db *gorm.DB, speakerID uint) []string {
	t.Helper()
	speaker, err := repository.NewSpeakerRepository(db).Get(context.Background(), speakerID)
	require.NoError(t, err)
	slugs := make([]string, 0, len(speaker.Categories))
	for _, c := range speaker.Categories {
		slugs = append(slugs, c.Slug)
	}
	return slugs
}

func TestRunner_SpeakerCategoryBackfill(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.NewFixture(t, db)
	ctx := context.Background()

	tour := fx.Tournament("wudc")
	team := fx.Team(tour)
	noviceESL := fx.Speaker(team, "Nia", testutil.SpeakerFlags{Novice: true, ESL: true})
	plain := fx.Speaker(team, "Pat", testutil.SpeakerFlags{})
	fx.Preference(tour, migration.TabReleaseSection, "esl_tab_released", "1")
	fx.Preference(tour, migration.TabReleaseSection, "esl_tab_limit", "8")
	fx.Preference(tour, migration.TabReleaseSection, "novices_tab_limit", "abc")

	runner := migration.NewRunner(db, testLogger())
	applied, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0031"}, applied)

	categories, err := repository.NewCategoryRepository(db).ListByTournament(ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, categories, 3)

	bySlug := make(map[string]entities.SpeakerCategory)
	for _, c := range categories {
		bySlug[c.Slug] = c
	}
	assert.Equal(t, 1, bySlug["esl"].Seq)
	assert.Equal(t, 8, bySlug["esl"].Limit)
	assert.True(t, bySlug["esl"].Public)
	assert.Equal(t, 3, bySlug["novice"].Seq)
	assert.Equal(t, 0, bySlug["novice"].Limit)
	assert.False(t, bySlug["novice"].Public)
	assert.Equal(t, 3, bySlug["pro"].Seq)
	assert.False(t, bySlug["pro"].Public)

	value, found, err := repository.NewPreferenceRepository(db).
		Get(ctx, tour.ID, migration.TabReleaseSection, migration.CategoryTabsReleasedPref)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entities.PreferenceTrue, value)

	assert.ElementsMatch(t, []string{"novice", "esl"}, categorySlugs(t, db, noviceESL.ID))
	assert.Equal(t, []string{"pro"}, categorySlugs(t, db, plain.ID))

	// Applied migrations are not run again.
	applied, err = runner.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	statuses, err := runner.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)
	assert.NotNil(t, statuses[0].AppliedAt)
}

func TestBackfill_RerunDropsManualAssignments(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.NewFixture(t, db)
	ctx := context.Background()

	tour := fx.Tournament("euros")
	spk := fx.Speaker(fx.Team(tour), "Sam", testutil.SpeakerFlags{})
	store := migration.NewGormStore(db)

	_, err := migration.CreateSpeakerCategories(ctx, store, testLogger())
	require.NoError(t, err)

	manual := fx.Category(tour, "open", 10)
	require.NoError(t, repository.NewSpeakerRepository(db).AddCategory(ctx, spk.ID, manual))
	assert.ElementsMatch(t, []string{"open"}, categorySlugs(t, db, spk.ID))

	_, err = migration.ConvertSpeakerCategories(ctx, store, migration.NewCategoryLookup(store), testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"pro"}, categorySlugs(t, db, spk.ID))

	// A second phase 1 run creates nothing new.
	stats, err := migration.CreateSpeakerCategories(ctx, store, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CategoriesCreated)
}

func TestRunner_FailureRollsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.NewFixture(t, db)
	ctx := context.Background()
	tour := fx.Tournament("t1")

	failing := migration.Migration{
		Version:     "0002",
		Description: "fails after writing",
		Up: func(ctx context.Context, tx *gorm.DB, _ logger.Logger) error {
			if err := tx.Create(&entities.SpeakerCategory{
				TournamentID: tour.ID, Name: "Temp", Slug: "temp", Seq: 1,
			}).Error; err != nil {
				return err
			}
			return errors.NewStd("boom")
		},
	}
	first := migration.Migration{
		Version:     "0001",
		Description: "no-op",
		Up:          func(context.Context, *gorm.DB, logger.Logger) error { return nil },
	}

	runner := migration.NewRunner(db, testLogger(), failing, first)
	applied, err := runner.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMigration))
	assert.Equal(t, []string{"0001"}, applied)

	var count int64
	require.NoError(t, db.Model(&entities.SpeakerCategory{}).Count(&count).Error)
	assert.Zero(t, count)

	statuses, err := runner.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "0001", statuses[0].Version)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[1].Applied)
	assert.Nil(t, statuses[1].AppliedAt)
}
