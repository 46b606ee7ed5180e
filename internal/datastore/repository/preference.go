package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/debatetab/debatetab/internal/datastore/entities"
)

// PreferenceRepository reads and writes free-text tournament preferences.
type PreferenceRepository interface {
	// Get returns the raw value and true, or "" and false when the
	// preference has never been stored.
	Get(ctx context.Context, tournamentID uint, section, name string) (string, bool, error)
	// GetOrCreate stores value only if no row exists yet and reports whether
	// a row was created. An existing value is left untouched.
	GetOrCreate(ctx context.Context, tournamentID uint, section, name, value string) (bool, error)
	// Set creates or overwrites the preference.
	Set(ctx context.Context, tournamentID uint, section, name, value string) error
}

type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Get(ctx context.Context, tournamentID uint, section, name string) (string, bool, error) {
	var pref entities.TournamentPreference
	err := r.db.WithContext(ctx).
		Where("section = ? AND name = ? AND instance_id = ?", section, name, tournamentID).
		First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, dbError(err, "get_preference")
	}
	return pref.RawValue, true, nil
}

func (r *preferenceRepository) GetOrCreate(ctx context.Context, tournamentID uint, section, name, value string) (bool, error) {
	if _, found, err := r.Get(ctx, tournamentID, section, name); err != nil || found {
		return false, err
	}

	pref := entities.TournamentPreference{
		Section:    section,
		Name:       name,
		InstanceID: tournamentID,
		RawValue:   value,
	}
	if err := r.db.WithContext(ctx).Create(&pref).Error; err != nil {
		// Lost a race with another writer; the existing row wins.
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, dbError(err, "get_or_create_preference")
	}
	return true, nil
}

func (r *preferenceRepository) Set(ctx context.Context, tournamentID uint, section, name, value string) error {
	pref := entities.TournamentPreference{
		Section:    section,
		Name:       name,
		InstanceID: tournamentID,
		RawValue:   value,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "section"}, {Name: "name"}, {Name: "instance_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"raw_value"}),
	}).Create(&pref).Error
	if err != nil {
		return dbError(err, "set_preference")
	}
	return nil
}
