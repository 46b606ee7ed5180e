package entities

// Speaker category slugs.
const (
	CategorySlugESL    = "esl"
	CategorySlugEFL    = "efl"
	CategorySlugNovice = "novice"
	CategorySlugPro    = "pro"
)

// SpeakerCategory groups speakers for separate speaker tabs.
// At most one category exists per (tournament, slug). Seq orders the
// categories of a tournament and is not unique.
type SpeakerCategory struct {
	ID           uint   `gorm:"primaryKey"`
	TournamentID uint   `gorm:"not null;uniqueIndex:idx_category_tournament_slug"`
	Name         string `gorm:"size:50;not null"`
	Slug         string `gorm:"size:50;not null;uniqueIndex:idx_category_tournament_slug"`
	Seq          int    `gorm:"not null;index"`
	Limit        int    `gorm:"column:tab_limit;not null;default:0"` // 0 means no limit
	Public       bool   `gorm:"not null;default:false"`

	Tournament *Tournament `gorm:"foreignKey:TournamentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (SpeakerCategory) TableName() string {
	return "speaker_categories"
}
