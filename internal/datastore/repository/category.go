package repository

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/datastore/entities"
)

// CategoryRepository provides access to speaker categories.
type CategoryRepository interface {
	// MaxSequence returns the highest Seq among the tournament's categories, or 0.
	MaxSequence(ctx context.Context, tournamentID uint) (int, error)
	// Exists reports whether the tournament has a category with the slug.
	Exists(ctx context.Context, tournamentID uint, slug string) (bool, error)
	// Create inserts a category. A second category with the same
	// (tournament, slug) fails with ErrDuplicateKey.
	Create(ctx context.Context, category *entities.SpeakerCategory) error
	// FindBySlug returns nil without error when the category does not exist.
	FindBySlug(ctx context.Context, tournamentID uint, slug string) (*entities.SpeakerCategory, error)
	// ListByTournament returns the tournament's categories ordered by Seq.
	ListByTournament(ctx context.Context, tournamentID uint) ([]entities.SpeakerCategory, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) MaxSequence(ctx context.Context, tournamentID uint) (int, error) {
	var maxSeq sql.NullInt64
	row := r.db.WithContext(ctx).Model(&entities.SpeakerCategory{}).
		Where("tournament_id = ?", tournamentID).
		Select("MAX(seq)").
		Row()
	if err := row.Scan(&maxSeq); err != nil {
		return 0, dbError(err, "max_category_sequence")
	}
	return int(maxSeq.Int64), nil
}

func (r *categoryRepository) Exists(ctx context.Context, tournamentID uint, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.SpeakerCategory{}).
		Where("tournament_id = ? AND slug = ?", tournamentID, slug).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, "category_exists")
	}
	return count > 0, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *entities.SpeakerCategory) error {
	if category.TournamentID == 0 || category.Slug == "" || category.Limit < 0 {
		return ErrInvalidInput
	}
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return dbError(err, "create_category")
	}
	return nil
}

func (r *categoryRepository) FindBySlug(ctx context.Context, tournamentID uint, slug string) (*entities.SpeakerCategory, error) {
	var category entities.SpeakerCategory
	err := r.db.WithContext(ctx).
		Where("tournament_id = ? AND slug = ?", tournamentID, slug).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "find_category")
	}
	return &category, nil
}

func (r *categoryRepository) ListByTournament(ctx context.Context, tournamentID uint) ([]entities.SpeakerCategory, error) {
	var categories []entities.SpeakerCategory
	err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("seq, id").
		Find(&categories).Error
	if err != nil {
		return nil, dbError(err, "list_categories")
	}
	return categories, nil
}
