package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/datastore/entities"
)

// TournamentRepository provides access to tournaments and their rounds.
type TournamentRepository interface {
	// List returns all tournaments ordered by ID.
	List(ctx context.Context) ([]entities.Tournament, error)
	// GetByID returns ErrTournamentNotFound if no tournament has the ID.
	GetByID(ctx context.Context, id uint) (*entities.Tournament, error)
	// GetBySlug returns ErrTournamentNotFound if no tournament has the slug.
	GetBySlug(ctx context.Context, slug string) (*entities.Tournament, error)
	// GetRound returns the round by sequence number within the tournament,
	// or ErrRoundNotFound.
	GetRound(ctx context.Context, tournamentID uint, seq int) (*entities.Round, error)
}

type tournamentRepository struct {
	db *gorm.DB
}

// NewTournamentRepository creates a new TournamentRepository.
func NewTournamentRepository(db *gorm.DB) TournamentRepository {
	return &tournamentRepository{db: db}
}

func (r *tournamentRepository) List(ctx context.Context) ([]entities.Tournament, error) {
	var tournaments []entities.Tournament
	if err := r.db.WithContext(ctx).Order("id").Find(&tournaments).Error; err != nil {
		return nil, dbError(err, "list_tournaments")
	}
	return tournaments, nil
}

func (r *tournamentRepository) GetByID(ctx context.Context, id uint) (*entities.Tournament, error) {
	var t entities.Tournament
	err := r.db.WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, dbError(err, "get_tournament")
	}
	return &t, nil
}

func (r *tournamentRepository) GetBySlug(ctx context.Context, slug string) (*entities.Tournament, error) {
	var t entities.Tournament
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, dbError(err, "get_tournament_by_slug")
	}
	return &t, nil
}

func (r *tournamentRepository) GetRound(ctx context.Context, tournamentID uint, seq int) (*entities.Round, error) {
	var round entities.Round
	err := r.db.WithContext(ctx).
		Where("tournament_id = ? AND seq = ?", tournamentID, seq).
		First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, dbError(err, "get_round")
	}
	return &round, nil
}
