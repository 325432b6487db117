package model

import (
	"encoding/json"
	"time"
)

// Game is the bank-level record for one accounting session. Cash is the
// bank balance; the three *SharesPay flags route dividends for shares
// that are not held by players.
type Game struct {
	UUID              string   `json:"uuid"`
	Cash              int      `json:"cash"`
	Players           []string `json:"players"`
	Companies         []string `json:"companies"`
	PoolSharesPay     bool     `json:"pool_shares_pay"`
	IPOSharesPay      bool     `json:"ipo_shares_pay"`
	TreasurySharesPay bool     `json:"treasury_shares_pay"`
}

type Player struct {
	UUID     string   `json:"uuid"`
	Game     string   `json:"game"`
	Name     string   `json:"name"`
	Cash     int      `json:"cash"`
	ShareSet []string `json:"share_set"`
}

// Company carries one field that never appears on the wire: Value, the
// locally tracked share price. Replacing a company with a fresh copy
// from the server must not reset it; see state.UpdateCompany.
type Company struct {
	UUID            string   `json:"uuid"`
	Game            string   `json:"game"`
	Name            string   `json:"name"`
	Cash            int      `json:"cash"`
	ShareCount      int      `json:"share_count"`
	IPOShares       int      `json:"ipo_shares"`
	BankShares      int      `json:"bank_shares"`
	TextColor       string   `json:"text_color"`
	BackgroundColor string   `json:"background_color"`
	ShareSet        []string `json:"share_set"`
	Value           int      `json:"-"`
}

// Share records a holding of one company's stock by one owner. A count
// of zero means the holding was sold off; the record is kept.
type Share struct {
	UUID    string `json:"uuid"`
	Owner   string `json:"owner"`
	Company string `json:"company"`
	Shares  int    `json:"shares"`
}

type LogEntry struct {
	UUID          string    `json:"uuid"`
	Game          string    `json:"game"`
	Time          time.Time `json:"time"`
	Text          string    `json:"text"`
	ActingCompany string    `json:"acting_company"`
	IsUndoable    bool      `json:"is_undoable"`
}

// Older server builds keyed entities by "_id_" instead of "uuid"; both
// are accepted on decode.
func fallbackID(uuid, alt string) string {
	if uuid != "" {
		return uuid
	}
	return alt
}

func (g *Game) UnmarshalJSON(data []byte) error {
	type alias Game
	aux := struct {
		*alias
		AltID string `json:"_id_"`
	}{alias: (*alias)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	g.UUID = fallbackID(g.UUID, aux.AltID)
	return nil
}

func (p *Player) UnmarshalJSON(data []byte) error {
	type alias Player
	aux := struct {
		*alias
		AltID string `json:"_id_"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.UUID = fallbackID(p.UUID, aux.AltID)
	return nil
}

func (c *Company) UnmarshalJSON(data []byte) error {
	type alias Company
	aux := struct {
		*alias
		AltID string `json:"_id_"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.UUID = fallbackID(c.UUID, aux.AltID)
	return nil
}

func (s *Share) UnmarshalJSON(data []byte) error {
	type alias Share
	aux := struct {
		*alias
		AltID string `json:"_id_"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.UUID = fallbackID(s.UUID, aux.AltID)
	return nil
}

func (e *LogEntry) UnmarshalJSON(data []byte) error {
	type alias LogEntry
	aux := struct {
		*alias
		AltID string `json:"_id_"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.UUID = fallbackID(e.UUID, aux.AltID)
	return nil
}

// Shareholder is anything that can hold shares: players and companies.
type Shareholder interface {
	HolderUUID() string
	HeldShares() []string
}

func (p *Player) HolderUUID() string    { return p.UUID }
func (p *Player) HeldShares() []string  { return p.ShareSet }
func (c *Company) HolderUUID() string   { return c.UUID }
func (c *Company) HeldShares() []string { return c.ShareSet }
