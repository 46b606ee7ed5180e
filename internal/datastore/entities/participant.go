package entities

// Person holds contact details shared by speakers and adjudicators.
// Recipient identifiers in notification messages are Person IDs.
type Person struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:70;not null"`
	Email string `gorm:"size:254;index"` // empty when unknown
	// URLKey is the secret path segment of the person's private URL.
	// Empty until private URLs are generated.
	URLKey string `gorm:"column:url_key;size:24;index"`
}

// TableName returns the table name for GORM.
func (Person) TableName() string {
	return "people"
}

// Speaker is a member of a team.
//
// Novice, ESL and EFL are the legacy boolean flags. Category membership is
// now expressed through Categories; the flags remain the input of the
// category backfill.
type Speaker struct {
	ID       uint `gorm:"primaryKey"`
	PersonID uint `gorm:"not null;uniqueIndex"`
	TeamID   uint `gorm:"not null;index"`
	Novice   bool `gorm:"not null;default:false"`
	ESL      bool `gorm:"column:esl;not null;default:false"`
	EFL      bool `gorm:"column:efl;not null;default:false"`

	Person     *Person           `gorm:"foreignKey:PersonID;constraint:OnDelete:CASCADE"`
	Team       *Team             `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	Categories []SpeakerCategory `gorm:"many2many:speaker_categories_speakers;"`
}

// TableName returns the table name for GORM.
func (Speaker) TableName() string {
	return "speakers"
}

// TournamentID returns the tournament of the speaker's team. Team must be loaded.
func (s *Speaker) TournamentID() uint {
	if s.Team == nil {
		return 0
	}
	return s.Team.TournamentID
}

// Adjudicator is a judge. A nil TournamentID marks a shared adjudicator
// available to every tournament that enables adjudicator sharing.
type Adjudicator struct {
	ID           uint  `gorm:"primaryKey"`
	PersonID     uint  `gorm:"not null;uniqueIndex"`
	TournamentID *uint `gorm:"index"`

	Person     *Person     `gorm:"foreignKey:PersonID;constraint:OnDelete:CASCADE"`
	Tournament *Tournament `gorm:"foreignKey:TournamentID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM.
func (Adjudicator) TableName() string {
	return "adjudicators"
}
