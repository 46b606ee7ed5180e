package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/debatetab/debatetab/internal/datastore/entities"
)

// Participant roles shown in recipient lists.
const (
	RoleAdjudicator = "adjudicator"
	RoleSpeaker     = "speaker"
)

// Recipient is a person who can be sent a tournament email.
type Recipient struct {
	PersonID uint
	Name     string
	Email    string
	Role     string
}

// PersonRepository looks up people as email recipients.
type PersonRepository interface {
	// Recipients returns the tournament's speakers and adjudicators. When
	// includeShared is true, adjudicators without a tournament are included.
	// Speakers come first, each group ordered by name. A person who is both
	// appears once, as an adjudicator.
	Recipients(ctx context.Context, tournamentID uint, includeShared bool) ([]Recipient, error)
	// ByIDs returns the people with the given IDs that exist, ordered by ID.
	ByIDs(ctx context.Context, ids []uint) ([]entities.Person, error)
	// TeamReferences maps each of personIDs who speaks at the tournament to
	// the reference of their team.
	TeamReferences(ctx context.Context, tournamentID uint, personIDs []uint) (map[uint]string, error)
}

type personRepository struct {
	db *gorm.DB
}

// NewPersonRepository creates a new PersonRepository.
func NewPersonRepository(db *gorm.DB) PersonRepository {
	return &personRepository{db: db}
}

func (r *personRepository) Recipients(ctx context.Context, tournamentID uint, includeShared bool) ([]Recipient, error) {
	var speakers []Recipient
	err := r.db.WithContext(ctx).Table("people").
		Select("people.id AS person_id, people.name, people.email, ? AS role", RoleSpeaker).
		Joins("JOIN speakers ON speakers.person_id = people.id").
		Joins("JOIN teams ON teams.id = speakers.team_id").
		Where("teams.tournament_id = ?", tournamentID).
		Order("people.name, people.id").
		Scan(&speakers).Error
	if err != nil {
		return nil, dbError(err, "list_speaker_recipients")
	}

	adjQuery := r.db.WithContext(ctx).Table("people").
		Select("people.id AS person_id, people.name, people.email, ? AS role", RoleAdjudicator).
		Joins("JOIN adjudicators ON adjudicators.person_id = people.id")
	if includeShared {
		adjQuery = adjQuery.Where("adjudicators.tournament_id = ? OR adjudicators.tournament_id IS NULL", tournamentID)
	} else {
		adjQuery = adjQuery.Where("adjudicators.tournament_id = ?", tournamentID)
	}

	var adjudicators []Recipient
	if err := adjQuery.Order("people.name, people.id").Scan(&adjudicators).Error; err != nil {
		return nil, dbError(err, "list_adjudicator_recipients")
	}

	adjudicating := make(map[uint]struct{}, len(adjudicators))
	for _, a := range adjudicators {
		adjudicating[a.PersonID] = struct{}{}
	}
	recipients := make([]Recipient, 0, len(speakers)+len(adjudicators))
	for _, s := range speakers {
		if _, ok := adjudicating[s.PersonID]; !ok {
			recipients = append(recipients, s)
		}
	}
	return append(recipients, adjudicators...), nil
}

func (r *personRepository) ByIDs(ctx context.Context, ids []uint) ([]entities.Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var people []entities.Person
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&people).Error; err != nil {
		return nil, dbError(err, "list_people")
	}
	return people, nil
}

func (r *personRepository) TeamReferences(ctx context.Context, tournamentID uint, personIDs []uint) (map[uint]string, error) {
	refs := make(map[uint]string, len(personIDs))
	if len(personIDs) == 0 {
		return refs, nil
	}
	var rows []struct {
		PersonID  uint
		Reference string
	}
	err := r.db.WithContext(ctx).Table("speakers").
		Select("speakers.person_id, teams.reference").
		Joins("JOIN teams ON teams.id = speakers.team_id").
		Where("teams.tournament_id = ? AND speakers.person_id IN ?", tournamentID, personIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "list_team_references")
	}
	for _, row := range rows {
		refs[row.PersonID] = row.Reference
	}
	return refs, nil
}
