package migration

import (
	"context"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
)

// Migration is a data migration applied at most once per database.
type Migration struct {
	Version     string
	Description string
	// Up runs inside the transaction tx.
	Up func(ctx context.Context, tx *gorm.DB, log logger.Logger) error
}

// Status reports whether a migration has been applied.
type Status struct {
	Version     string     `yaml:"version" json:"version"`
	Description string     `yaml:"description" json:"description"`
	Applied     bool       `yaml:"applied" json:"applied"`
	AppliedAt   *time.Time `yaml:"applied_at,omitempty" json:"applied_at,omitempty"`
}

// Registry returns the known data migrations in version order.
func Registry() []Migration {
	return []Migration{
		{
			Version:     "0031",
			Description: "convert speaker categories",
			Up:          convertSpeakerCategoriesUp,
		},
	}
}

// convertSpeakerCategoriesUp runs both backfill phases in one transaction.
func convertSpeakerCategoriesUp(ctx context.Context, tx *gorm.DB, log logger.Logger) error {
	store := NewGormStore(tx)
	stats, err := CreateSpeakerCategories(ctx, store, log)
	if err != nil {
		return err
	}
	stats.SpeakersUpdated, err = ConvertSpeakerCategories(ctx, store, NewCategoryLookup(store), log)
	if err != nil {
		return err
	}
	log.Info("speaker category backfill complete",
		logger.Int("tournaments", stats.Tournaments),
		logger.Int("categories_created", stats.CategoriesCreated),
		logger.Int("speakers_updated", stats.SpeakersUpdated))
	return nil
}

// Runner applies pending migrations and records them in schema_migrations.
type Runner struct {
	db         *gorm.DB
	migrations []Migration
	log        logger.Logger
}

// NewRunner returns a Runner over migrations, or over Registry() when none
// are given.
func NewRunner(db *gorm.DB, log logger.Logger, migrations ...Migration) *Runner {
	if len(migrations) == 0 {
		migrations = Registry()
	}
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int {
		return strings.Compare(a.Version, b.Version)
	})
	if log == nil {
		log = logger.Global().Module("migration")
	}
	return &Runner{db: db, migrations: sorted, log: log}
}

// Run applies every pending migration in version order and returns the
// versions it applied. Each migration runs in its own transaction; the
// first failure stops the run and rolls that migration back.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, m := range r.migrations {
		if _, done := applied[m.Version]; done {
			continue
		}

		log := r.log.With(logger.String("version", m.Version))
		log.Info("applying migration", logger.String("description", m.Description))
		start := time.Now()

		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Up(ctx, tx, log); err != nil {
				return err
			}
			return tx.Create(&entities.SchemaMigration{
				Version:     m.Version,
				Description: m.Description,
				AppliedAt:   time.Now().UTC(),
			}).Error
		})
		if err != nil {
			log.Error("migration failed", logger.Error(err))
			return ran, errors.New(err).
				Component("migration").
				Category(errors.CategoryMigration).
				Context("version", m.Version).
				Build()
		}

		log.Info("migration applied", logger.Duration("duration", time.Since(start)))
		ran = append(ran, m.Version)
	}
	return ran, nil
}

// Status lists every known migration with its applied state.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(r.migrations))
	for _, m := range r.migrations {
		s := Status{Version: m.Version, Description: m.Description}
		if row, ok := applied[m.Version]; ok {
			s.Applied = true
			appliedAt := row.AppliedAt
			s.AppliedAt = &appliedAt
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

func (r *Runner) appliedVersions(ctx context.Context) (map[string]entities.SchemaMigration, error) {
	var rows []entities.SchemaMigration
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errors.New(err).
			Component("migration").
			Category(errors.CategoryDatabase).
			Context("operation", "list_applied_migrations").
			Build()
	}
	applied := make(map[string]entities.SchemaMigration, len(rows))
	for _, row := range rows {
		applied[row.Version] = row
	}
	return applied, nil
}
