package model

// Party identifies one side of a money or share transfer. The wire
// format distinguishes four cases: the bank pool, the IPO pool, a
// player, or a company. Construction is the only place the distinction
// is made, so callers never duck-type entity records.
type Party struct {
	kind    string
	player  *Player
	company *Company
}

const (
	kindBank    = "bank"
	kindIPO     = "ipo"
	kindPlayer  = "player"
	kindCompany = "company"
)

// Bank is the zero Party: the shared player-agnostic pool.
func Bank() Party { return Party{kind: kindBank} }

func IPO() Party { return Party{kind: kindIPO} }

func PlayerParty(p *Player) Party { return Party{kind: kindPlayer, player: p} }

func CompanyParty(c *Company) Party { return Party{kind: kindCompany, company: c} }

func (p Party) IsBank() bool { return p.kind == "" || p.kind == kindBank }
func (p Party) IsIPO() bool  { return p.kind == kindIPO }

// Kind returns the wire name of the variant: bank, ipo, player or
// company.
func (p Party) Kind() string {
	if p.kind == "" {
		return kindBank
	}
	return p.kind
}

// UUID returns the entity identifier and true for the player and
// company variants, "" and false for bank and ipo.
func (p Party) UUID() (string, bool) {
	switch p.kind {
	case kindPlayer:
		return p.player.UUID, true
	case kindCompany:
		return p.company.UUID, true
	}
	return "", false
}

func (p Party) String() string {
	switch p.kind {
	case kindPlayer:
		return p.player.Name
	case kindCompany:
		return p.company.Name
	case kindIPO:
		return "IPO"
	}
	return "the bank"
}
