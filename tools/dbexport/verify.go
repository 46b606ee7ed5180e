package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/datastore/entities"
)

const sampleSize = 5

// Verifier compares the target of an export with its source.
type Verifier struct {
	sourceDB *gorm.DB
	targetDB *gorm.DB
	out      io.Writer
}

// NewVerifier creates a new Verifier.
func NewVerifier(sourceDB, targetDB *gorm.DB, out io.Writer) *Verifier {
	if out == nil {
		out = io.Discard
	}
	return &Verifier{sourceDB: sourceDB, targetDB: targetDB, out: out}
}

// Verify checks row counts of every table and samples people and
// speaker category memberships.
func (v *Verifier) Verify(ctx context.Context) error {
	if err := v.verifyCounts(ctx); err != nil {
		return fmt.Errorf("count verification failed: %w", err)
	}
	if err := v.samplePeople(ctx); err != nil {
		return fmt.Errorf("people sampling failed: %w", err)
	}
	if err := v.sampleSpeakerCategories(ctx); err != nil {
		return fmt.Errorf("speaker category sampling failed: %w", err)
	}
	return nil
}

func (v *Verifier) verifyCounts(ctx context.Context) error {
	fmt.Fprintf(v.out, "%-30s %12s %12s %8s\n", "Table", "Source", "Target", "Match")
	fmt.Fprintln(v.out, strings.Repeat("-", 65))

	var mismatched []string
	for _, t := range tables {
		var sourceCount, targetCount int64
		if err := v.sourceDB.WithContext(ctx).Model(t.model).Count(&sourceCount).Error; err != nil {
			return fmt.Errorf("failed to count source %s: %w", t.name, err)
		}
		if err := v.targetDB.WithContext(ctx).Model(t.model).Count(&targetCount).Error; err != nil {
			return fmt.Errorf("failed to count target %s: %w", t.name, err)
		}

		match := "✓"
		if sourceCount != targetCount {
			match = "✗"
			mismatched = append(mismatched, t.name)
		}
		fmt.Fprintf(v.out, "%-30s %12d %12d %8s\n", t.name, sourceCount, targetCount, match)
	}

	if len(mismatched) > 0 {
		return fmt.Errorf("record counts do not match for %s", strings.Join(mismatched, ", "))
	}
	return nil
}

func (v *Verifier) samplePeople(ctx context.Context) error {
	var people []entities.Person
	if err := v.sourceDB.WithContext(ctx).Order("id DESC").Limit(sampleSize).Find(&people).Error; err != nil {
		return fmt.Errorf("failed to fetch source samples: %w", err)
	}

	for i := range people {
		src := &people[i]
		var target entities.Person
		if err := v.targetDB.WithContext(ctx).First(&target, src.ID).Error; err != nil {
			return fmt.Errorf("person ID %d not found in target: %w", src.ID, err)
		}
		if src.Name != target.Name || src.Email != target.Email {
			return fmt.Errorf("person ID %d: contact details differ", src.ID)
		}
	}

	fmt.Fprintf(v.out, "  people: %d samples verified\n", len(people))
	return nil
}

func (v *Verifier) sampleSpeakerCategories(ctx context.Context) error {
	var speakers []entities.Speaker
	if err := v.sourceDB.WithContext(ctx).Preload("Categories").Order("id DESC").Limit(sampleSize).Find(&speakers).Error; err != nil {
		return fmt.Errorf("failed to fetch source samples: %w", err)
	}

	for i := range speakers {
		src := &speakers[i]
		var target entities.Speaker
		if err := v.targetDB.WithContext(ctx).Preload("Categories").First(&target, src.ID).Error; err != nil {
			return fmt.Errorf("speaker ID %d not found in target: %w", src.ID, err)
		}
		if categorySlugs(src.Categories) != categorySlugs(target.Categories) {
			return fmt.Errorf("speaker ID %d: categories differ (%s vs %s)",
				src.ID, categorySlugs(src.Categories), categorySlugs(target.Categories))
		}
	}

	fmt.Fprintf(v.out, "  speakers: %d samples verified\n", len(speakers))
	return nil
}

func categorySlugs(categories []entities.SpeakerCategory) string {
	slugs := make([]string, 0, len(categories))
	for _, c := range categories {
		slugs = append(slugs, c.Slug)
	}
	slices.Sort(slugs)
	return strings.Join(slugs, ",")
}
