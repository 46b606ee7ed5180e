package entities

import "time"

// SchemaMigration records a data migration that has been applied.
type SchemaMigration struct {
	Version     string    `gorm:"primaryKey;size:100"`
	Description string    `gorm:"size:255"`
	AppliedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
