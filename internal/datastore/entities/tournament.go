package entities

import "time"

// Tournament represents a single competition.
type Tournament struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	ShortName string    `gorm:"size:25"`
	Slug      string    `gorm:"size:50;not null;uniqueIndex"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (Tournament) TableName() string {
	return "tournaments"
}

// Round is a round of a tournament.
type Round struct {
	ID           uint   `gorm:"primaryKey"`
	TournamentID uint   `gorm:"not null;uniqueIndex:idx_round_tournament_seq"`
	Seq          int    `gorm:"not null;uniqueIndex:idx_round_tournament_seq"`
	Name         string `gorm:"size:40;not null"`
	Abbreviation string `gorm:"size:10;not null"`

	Tournament *Tournament `gorm:"foreignKey:TournamentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (Round) TableName() string {
	return "rounds"
}

// Team is a team entered in a tournament.
type Team struct {
	ID           uint   `gorm:"primaryKey"`
	TournamentID uint   `gorm:"not null;index"`
	Reference    string `gorm:"size:150;not null"`
	ShortName    string `gorm:"size:50"`

	Tournament *Tournament `gorm:"foreignKey:TournamentID;constraint:OnDelete:CASCADE"`
	Speakers   []Speaker  `gorm:"foreignKey:TeamID"`
}

// TableName returns the table name for GORM.
func (Team) TableName() string {
	return "teams"
}
