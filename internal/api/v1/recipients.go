package api

import (
	"cmp"
	"context"
	"slices"
	"unicode/utf8"

	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/datastore/repository"
)

// Adjudicator sharing is a league option of the tournament.
const (
	LeagueOptionsSection  = "league_options"
	ShareAdjudicatorsPref = "share_adjs"
)

const (
	// names shorter than this are not wrapped in the table
	shortNameLength = 20

	recipientsFieldName  = "recipients"
	noWrapClass          = "no-wrap"
	roleLabelAdjudicator = "Adj"
	roleLabelSpeaker     = "Spk"
	recipientSortKey     = "role"
)

// PageMeta supplies the heading of a page.
type PageMeta interface {
	PageTitle() string
	PageEmoji() string
}

// RecipientProvider lists the people a page may email and whether each
// is selected by default.
type RecipientProvider interface {
	Recipients(ctx context.Context, tournament *entities.Tournament) ([]repository.Recipient, error)
	DefaultSend(r repository.Recipient) bool
}

// emailPage is the heading shared by every composer page.
type emailPage struct{}

func (emailPage) PageTitle() string { return "Email Participants" }
func (emailPage) PageEmoji() string { return "📤" }

// tournamentRecipients lists the tournament's speakers and adjudicators,
// plus shared adjudicators when the tournament enables sharing.
type tournamentRecipients struct {
	people      repository.PersonRepository
	preferences *PreferenceCache
}

func (p *tournamentRecipients) Recipients(ctx context.Context, tournament *entities.Tournament) ([]repository.Recipient, error) {
	shareAdjs, err := p.preferences.Bool(ctx, tournament.ID, LeagueOptionsSection, ShareAdjudicatorsPref)
	if err != nil {
		return nil, err
	}
	return p.people.Recipients(ctx, tournament.ID, shareAdjs)
}

// customRecipients selects nobody by default.
type customRecipients struct {
	*tournamentRecipients
}

func (customRecipients) DefaultSend(repository.Recipient) bool { return false }

// templateRecipients selects everybody by default.
type templateRecipients struct {
	*tournamentRecipients
}

func (templateRecipients) DefaultSend(repository.Recipient) bool { return true }

// TableHeader describes one column of a table.
type TableHeader struct {
	Key     string `json:"key"`
	Title   string `json:"title,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

// CheckCell is a selectable checkbox cell.
type CheckCell struct {
	Component string `json:"component"`
	Checked   bool   `json:"checked"`
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Value     uint   `json:"value"`
}

// TextCell is a plain text cell.
type TextCell struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

// RecipientRow is one candidate recipient.
type RecipientRow struct {
	Send CheckCell `json:"send"`
	Name TextCell  `json:"name"`
	Role TextCell  `json:"role"`
}

// RecipientTable is the recipient selection table of a composer page.
type RecipientTable struct {
	Headers []TableHeader  `json:"headers"`
	Rows    []RecipientRow `json:"rows"`
	SortKey string         `json:"sort_key"`
}

var recipientHeaders = []TableHeader{
	{Key: "send", Title: "Send to"},
	{Key: "name", Tooltip: "Participant", Icon: "user"},
	{Key: "role", Title: "Role"},
}

// buildRecipientTable renders recipients as table rows sorted by role,
// adjudicators first, keeping the provider's order within a role.
func buildRecipientTable(provider RecipientProvider, recipients []repository.Recipient) RecipientTable {
	rows := make([]RecipientRow, 0, len(recipients))
	for _, r := range recipients {
		nameCell := TextCell{Text: r.Name, Tooltip: r.Email}
		if utf8.RuneCountInString(r.Name) < shortNameLength {
			nameCell.Class = noWrapClass
		}
		rows = append(rows, RecipientRow{
			Send: CheckCell{
				Component: "check-cell",
				Checked:   provider.DefaultSend(r),
				ID:        r.PersonID,
				Name:      recipientsFieldName,
				Value:     r.PersonID,
			},
			Name: nameCell,
			Role: TextCell{Text: roleLabel(r.Role)},
		})
	}
	slices.SortStableFunc(rows, func(a, b RecipientRow) int {
		return cmp.Compare(a.Role.Text, b.Role.Text)
	})
	return RecipientTable{
		Headers: recipientHeaders,
		Rows:    rows,
		SortKey: recipientSortKey,
	}
}

func roleLabel(role string) string {
	if role == repository.RoleAdjudicator {
		return roleLabelAdjudicator
	}
	return roleLabelSpeaker
}

// selectRecipients keeps the candidates whose person ID was requested.
// IDs that are not candidates of the tournament are dropped.
func selectRecipients(candidates []repository.Recipient, ids []uint) []repository.Recipient {
	wanted := make(map[uint]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	selected := make([]repository.Recipient, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, r := range candidates {
		if wanted[r.PersonID] && !seen[r.PersonID] {
			seen[r.PersonID] = true
			selected = append(selected, r)
		}
	}
	return selected
}
