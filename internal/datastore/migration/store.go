// Package migration applies run-once data migrations to the debatetab
// database. The speaker category backfill is expressed against the
// CategoryStore interface so that it can run on any storage backend.
package migration

import (
	"context"

	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/datastore/repository"
)

// CategoryStore is the data access needed by the speaker category backfill.
type CategoryStore interface {
	ListTournaments(ctx context.Context) ([]entities.Tournament, error)
	// MaxSequence returns the highest category Seq of the tournament, or 0.
	MaxSequence(ctx context.Context, tournamentID uint) (int, error)
	CategoryExists(ctx context.Context, tournamentID uint, slug string) (bool, error)
	CreateCategory(ctx context.Context, category *entities.SpeakerCategory) error
	// GetPreference returns the raw value and whether the preference is stored.
	GetPreference(ctx context.Context, tournamentID uint, section, name string) (string, bool, error)
	// GetOrCreatePreference stores value unless the preference already exists.
	GetOrCreatePreference(ctx context.Context, tournamentID uint, section, name, value string) error
	// AnySpeakerWithFlag reports whether a speaker of the tournament has the
	// legacy flag of the slug set.
	AnySpeakerWithFlag(ctx context.Context, tournamentID uint, slug string) (bool, error)
	// ListSpeakers returns every speaker with its team loaded.
	ListSpeakers(ctx context.Context) ([]entities.Speaker, error)
	// FindCategory returns nil when the tournament has no category with the slug.
	FindCategory(ctx context.Context, tournamentID uint, slug string) (*entities.SpeakerCategory, error)
	// SetSpeakerCategories replaces the speaker's categories with exactly categories.
	SetSpeakerCategories(ctx context.Context, speakerID uint, categories []*entities.SpeakerCategory) error
}

// gormStore implements CategoryStore with the GORM repositories.
type gormStore struct {
	tournaments repository.TournamentRepository
	categories  repository.CategoryRepository
	preferences repository.PreferenceRepository
	speakers    repository.SpeakerRepository
}

// NewGormStore returns a CategoryStore bound to db, usually a transaction.
func NewGormStore(db *gorm.DB) CategoryStore {
	return &gormStore{
		tournaments: repository.NewTournamentRepository(db),
		categories:  repository.NewCategoryRepository(db),
		preferences: repository.NewPreferenceRepository(db),
		speakers:    repository.NewSpeakerRepository(db),
	}
}

func (s *gormStore) ListTournaments(ctx context.Context) ([]entities.Tournament, error) {
	return s.tournaments.List(ctx)
}

func (s *gormStore) MaxSequence(ctx context.Context, tournamentID uint) (int, error) {
	return s.categories.MaxSequence(ctx, tournamentID)
}

func (s *gormStore) CategoryExists(ctx context.Context, tournamentID uint, slug string) (bool, error) {
	return s.categories.Exists(ctx, tournamentID, slug)
}

func (s *gormStore) CreateCategory(ctx context.Context, category *entities.SpeakerCategory) error {
	return s.categories.Create(ctx, category)
}

func (s *gormStore) GetPreference(ctx context.Context, tournamentID uint, section, name string) (string, bool, error) {
	return s.preferences.Get(ctx, tournamentID, section, name)
}

func (s *gormStore) GetOrCreatePreference(ctx context.Context, tournamentID uint, section, name, value string) error {
	_, err := s.preferences.GetOrCreate(ctx, tournamentID, section, name, value)
	return err
}

func (s *gormStore) AnySpeakerWithFlag(ctx context.Context, tournamentID uint, slug string) (bool, error) {
	return s.speakers.AnyWithFlag(ctx, tournamentID, slug)
}

func (s *gormStore) ListSpeakers(ctx context.Context) ([]entities.Speaker, error) {
	return s.speakers.ListWithTeams(ctx)
}

func (s *gormStore) FindCategory(ctx context.Context, tournamentID uint, slug string) (*entities.SpeakerCategory, error) {
	return s.categories.FindBySlug(ctx, tournamentID, slug)
}

func (s *gormStore) SetSpeakerCategories(ctx context.Context, speakerID uint, categories []*entities.SpeakerCategory) error {
	return s.speakers.ReplaceCategories(ctx, speakerID, categories)
}
