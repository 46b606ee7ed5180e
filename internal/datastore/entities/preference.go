package entities

import "slices"

// TournamentPreference is a free-text tournament setting. InstanceID is the
// owning tournament's ID.
type TournamentPreference struct {
	ID         uint   `gorm:"primaryKey"`
	Section    string `gorm:"size:150;not null;uniqueIndex:idx_preference_key"`
	Name       string `gorm:"size:150;not null;uniqueIndex:idx_preference_key"`
	InstanceID uint   `gorm:"not null;uniqueIndex:idx_preference_key"`
	RawValue   string `gorm:"type:text"`
}

// TableName returns the table name for GORM.
func (TournamentPreference) TableName() string {
	return "tournament_preferences"
}

// Preference values written for booleans.
const (
	PreferenceTrue  = "True"
	PreferenceFalse = "False"
)

// truthyValues are the only raw values read as true. Anything else,
// including "on" or "y", is false.
var truthyValues = []string{"True", "true", "TRUE", "1", "YES", "Yes", "yes"}

// IsTruthy reports whether a raw preference value is one of the accepted
// true literals.
func IsTruthy(raw string) bool {
	return slices.Contains(truthyValues, raw)
}

// FormatBool returns the raw preference value for b.
func FormatBool(b bool) string {
	if b {
		return PreferenceTrue
	}
	return PreferenceFalse
}
