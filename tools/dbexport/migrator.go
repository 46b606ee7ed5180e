package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/debatetab/debatetab/internal/datastore/entities"
)

// speakerCategoryLink is a row of the speaker to category join table.
type speakerCategoryLink struct {
	SpeakerID         uint `gorm:"primaryKey"`
	SpeakerCategoryID uint `gorm:"primaryKey"`
}

func (speakerCategoryLink) TableName() string {
	return "speaker_categories_speakers"
}

// table copies one table. Tables are listed parents first.
type table struct {
	name    string
	order   string
	model   any
	migrate func(ctx context.Context, m *Migrator, target *gorm.DB, t table) (*TableStats, error)
}

var tables = []table{
	{"tournaments", "id", &entities.Tournament{}, copyTable[entities.Tournament]},
	{"rounds", "id", &entities.Round{}, copyTable[entities.Round]},
	{"teams", "id", &entities.Team{}, copyTable[entities.Team]},
	{"people", "id", &entities.Person{}, copyTable[entities.Person]},
	{"speaker_categories", "id", &entities.SpeakerCategory{}, copyTable[entities.SpeakerCategory]},
	{"speakers", "id", &entities.Speaker{}, copyTable[entities.Speaker]},
	{"adjudicators", "id", &entities.Adjudicator{}, copyTable[entities.Adjudicator]},
	{"speaker_categories_speakers", "speaker_id, speaker_category_id", &speakerCategoryLink{}, copyTable[speakerCategoryLink]},
	{"tournament_preferences", "id", &entities.TournamentPreference{}, copyTable[entities.TournamentPreference]},
	{"schema_migrations", "version", &entities.SchemaMigration{}, copyTable[entities.SchemaMigration]},
}

// Options control a Migrator run.
type Options struct {
	BatchSize int
	Clean     bool
	Verbose   bool
	Out       io.Writer
}

// Migrator copies debatetab tables between two databases.
type Migrator struct {
	source *gorm.DB
	target *gorm.DB
	opts   Options
}

// NewMigrator returns a Migrator copying source into target.
func NewMigrator(source, target *gorm.DB, opts Options) *Migrator {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1000
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Migrator{source: source, target: target, opts: opts}
}

// MigrationStats tracks migration statistics.
type MigrationStats struct {
	StartTime time.Time
	EndTime   time.Time
	Tables    []TableStats
}

// TableStats tracks per-table migration statistics.
type TableStats struct {
	Name     string
	Migrated int64
	Skipped  int64
	Errors   int64
	Duration time.Duration
}

// Print writes the migration summary to w.
func (s *MigrationStats) Print(w io.Writer) {
	fmt.Fprintln(w, "\n=== Export Summary ===")
	fmt.Fprintf(w, "Duration: %s\n\n", s.EndTime.Sub(s.StartTime).Round(time.Millisecond))
	fmt.Fprintf(w, "%-30s %10s %10s %10s %12s\n", "Table", "Migrated", "Skipped", "Errors", "Duration")
	fmt.Fprintln(w, strings.Repeat("-", 76))

	var totalMigrated, totalSkipped, totalErrors int64
	for _, t := range s.Tables {
		fmt.Fprintf(w, "%-30s %10d %10d %10d %12s\n",
			t.Name, t.Migrated, t.Skipped, t.Errors, t.Duration.Round(time.Millisecond))
		totalMigrated += t.Migrated
		totalSkipped += t.Skipped
		totalErrors += t.Errors
	}

	fmt.Fprintln(w, strings.Repeat("-", 76))
	fmt.Fprintf(w, "%-30s %10d %10d %10d\n", "TOTAL", totalMigrated, totalSkipped, totalErrors)
}

// Run copies every table. All writes share one target connection so the
// foreign key setting applies to them.
func (m *Migrator) Run(ctx context.Context) (*MigrationStats, error) {
	stats := &MigrationStats{StartTime: time.Now()}

	err := m.target.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := setForeignKeyChecks(conn, false); err != nil {
			return fmt.Errorf("failed to disable foreign key checks: %w", err)
		}
		defer func() { _ = setForeignKeyChecks(conn, true) }()

		if m.opts.Clean {
			if err := m.clean(conn); err != nil {
				return err
			}
		}

		for _, t := range tables {
			tableStats, err := t.migrate(ctx, m, conn, t)
			if err != nil {
				return fmt.Errorf("failed to migrate %s: %w", t.name, err)
			}
			stats.Tables = append(stats.Tables, *tableStats)
		}
		return nil
	})

	stats.EndTime = time.Now()
	return stats, err
}

func setForeignKeyChecks(conn *gorm.DB, enabled bool) error {
	switch conn.Dialector.Name() {
	case "mysql":
		value := 0
		if enabled {
			value = 1
		}
		return conn.Exec(fmt.Sprintf("SET FOREIGN_KEY_CHECKS=%d", value)).Error
	case "sqlite":
		value := "OFF"
		if enabled {
			value = "ON"
		}
		return conn.Exec("PRAGMA foreign_keys = " + value).Error
	default:
		return nil
	}
}

// clean deletes target rows, children first.
func (m *Migrator) clean(conn *gorm.DB) error {
	fmt.Fprintln(m.opts.Out, "Cleaning target tables...")
	for i := len(tables) - 1; i >= 0; i-- {
		t := tables[i]
		if err := conn.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t.model).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", t.name, err)
		}
		if m.opts.Verbose {
			fmt.Fprintf(m.opts.Out, "  Cleaned: %s\n", t.name)
		}
	}
	return nil
}

// copyTable copies rows of T in batches ordered by the table's key.
// Rows that already exist in the target are skipped.
func copyTable[T any](ctx context.Context, m *Migrator, target *gorm.DB, t table) (*TableStats, error) {
	start := time.Now()
	stats := &TableStats{Name: t.name}
	batchSize := m.opts.BatchSize

	var sourceCount int64
	if err := m.source.WithContext(ctx).Model(new(T)).Count(&sourceCount).Error; err != nil {
		return stats, fmt.Errorf("failed to count source records: %w", err)
	}
	if sourceCount == 0 {
		if m.opts.Verbose {
			fmt.Fprintf(m.opts.Out, "  %s: no records to migrate\n", t.name)
		}
		stats.Duration = time.Since(start)
		return stats, nil
	}

	for offset := 0; ; offset += batchSize {
		var rows []T
		if err := m.source.WithContext(ctx).Order(t.order).Limit(batchSize).Offset(offset).Find(&rows).Error; err != nil {
			return stats, fmt.Errorf("failed to read source records: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		result := target.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		if result.Error != nil {
			// A failed batch is counted and the copy continues.
			stats.Errors += int64(len(rows))
			fmt.Fprintf(m.opts.Out, "  %s: batch at offset %d failed: %v\n", t.name, offset, result.Error)
		} else {
			stats.Migrated += result.RowsAffected
			stats.Skipped += int64(len(rows)) - result.RowsAffected
		}

		if m.opts.Verbose {
			done := int64(offset + len(rows))
			fmt.Fprintf(m.opts.Out, "  %s: %d/%d (%.1f%%)\n", t.name, done, sourceCount,
				float64(done)/float64(sourceCount)*100)
		}
		if len(rows) < batchSize {
			break
		}
	}

	stats.Duration = time.Since(start)
	fmt.Fprintf(m.opts.Out, "  %s: %d migrated, %d skipped, %d errors in %s\n",
		t.name, stats.Migrated, stats.Skipped, stats.Errors, stats.Duration.Round(time.Millisecond))
	return stats, nil
}
