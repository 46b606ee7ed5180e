package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/datastore/entities"
)

// speakerFlagColumns maps category slugs to their legacy flag columns.
var speakerFlagColumns = map[string]string{
	entities.CategorySlugNovice: "speakers.novice",
	entities.CategorySlugESL:    "speakers.esl",
	entities.CategorySlugEFL:    "speakers.efl",
}

// SpeakerRepository provides access to speakers and their category memberships.
type SpeakerRepository interface {
	// ListWithTeams returns every speaker with Team loaded, ordered by ID.
	ListWithTeams(ctx context.Context) ([]entities.Speaker, error)
	// Get returns a speaker with Team and Categories loaded, or ErrSpeakerNotFound.
	Get(ctx context.Context, id uint) (*entities.Speaker, error)
	// AnyWithFlag reports whether a speaker on one of the tournament's teams
	// has the legacy flag for slug (novice, esl or efl) set.
	AnyWithFlag(ctx context.Context, tournamentID uint, slug string) (bool, error)
	// ReplaceCategories sets the speaker's categories to exactly the given set.
	ReplaceCategories(ctx context.Context, speakerID uint, categories []*entities.SpeakerCategory) error
	// AddCategory adds a single category membership, leaving others intact.
	AddCategory(ctx context.Context, speakerID uint, category *entities.SpeakerCategory) error
}

type speakerRepository struct {
	db *gorm.DB
}

// NewSpeakerRepository creates a new SpeakerRepository.
func NewSpeakerRepository(db *gorm.DB) SpeakerRepository {
	return &speakerRepository{db: db}
}

func (r *speakerRepository) ListWithTeams(ctx context.Context) ([]entities.Speaker, error) {
	var speakers []entities.Speaker
	if err := r.db.WithContext(ctx).Preload("Team").Order("id").Find(&speakers).Error; err != nil {
		return nil, dbError(err, "list_speakers")
	}
	return speakers, nil
}

func (r *speakerRepository) Get(ctx context.Context, id uint) (*entities.Speaker, error) {
	var speaker entities.Speaker
	err := r.db.WithContext(ctx).Preload("Team").Preload("Categories").First(&speaker, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSpeakerNotFound
	}
	if err != nil {
		return nil, dbError(err, "get_speaker")
	}
	return &speaker, nil
}

func (r *speakerRepository) AnyWithFlag(ctx context.Context, tournamentID uint, slug string) (bool, error) {
	column, ok := speakerFlagColumns[slug]
	if !ok {
		return false, fmt.Errorf("%w: no speaker flag for category %q", ErrInvalidInput, slug)
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Speaker{}).
		Joins("JOIN teams ON teams.id = speakers.team_id").
		Where("teams.tournament_id = ? AND "+column+" = ?", tournamentID, true).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, "speaker_flag_exists")
	}
	return count > 0, nil
}

func (r *speakerRepository) ReplaceCategories(ctx context.Context, speakerID uint, categories []*entities.SpeakerCategory) error {
	speaker := entities.Speaker{ID: speakerID}
	values := make([]entities.SpeakerCategory, 0, len(categories))
	for _, c := range categories {
		values = append(values, *c)
	}

	assoc := r.db.WithContext(ctx).Model(&speaker).Association("Categories")
	var err error
	if len(values) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(values)
	}
	if err != nil {
		return dbError(err, "replace_speaker_categories")
	}
	return nil
}

func (r *speakerRepository) AddCategory(ctx context.Context, speakerID uint, category *entities.SpeakerCategory) error {
	speaker := entities.Speaker{ID: speakerID}
	if err := r.db.WithContext(ctx).Model(&speaker).Association("Categories").Append(category); err != nil {
		return dbError(err, "add_speaker_category")
	}
	return nil
}
