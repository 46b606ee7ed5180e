// Package entities defines the GORM entity models for the debatetab schema.
//
// # Tournament Entities
//
//   - Tournament: a single competition; most rows are scoped to one
//   - Round: a round of a tournament, referenced by round-level emails
//   - Team: a team entered in a tournament
//
// # Participant Entities
//
//   - Person: name and email shared by speakers and adjudicators
//   - Speaker: a team member with legacy novice/ESL/EFL flags and categories
//   - Adjudicator: a judge, optionally shared across tournaments
//   - SpeakerCategory: a named speaker group (ESL, EFL, Novice, Pro) per tournament
//
// # Settings and Bookkeeping
//
//   - TournamentPreference: free-text per-tournament settings keyed by section and name
//   - SchemaMigration: applied data migrations
package entities
