package server

import (
	"fmt"

	"railbank/internal/model"
)

func cloneGame(g model.Game) model.Game {
	g.Players = append([]string(nil), g.Players...)
	g.Companies = append([]string(nil), g.Companies...)
	return g
}

func clonePlayer(p model.Player) model.Player {
	p.ShareSet = append([]string(nil), p.ShareSet...)
	return p
}

func cloneCompany(c model.Company) model.Company {
	c.ShareSet = append([]string(nil), c.ShareSet...)
	return c
}

func (g *gameRecord) restore(s snapshot) {
	if s.game != nil {
		g.game = cloneGame(*s.game)
	}
	for _, p := range s.players {
		if cur, ok := g.players[p.UUID]; ok {
			*cur = clonePlayer(p)
		}
	}
	for _, c := range s.companies {
		if cur, ok := g.companies[c.UUID]; ok {
			*cur = cloneCompany(c)
		}
	}
	for _, sh := range s.playerShares {
		if cur, ok := g.playerShares[sh.UUID]; ok {
			*cur = sh
		} else {
			cp := sh
			g.playerShares[sh.UUID] = &cp
		}
	}
	for _, sh := range s.companyShares {
		if cur, ok := g.companyShares[sh.UUID]; ok {
			*cur = sh
		} else {
			cp := sh
			g.companyShares[sh.UUID] = &cp
		}
	}
	for _, uuid := range s.createdPlayerShares {
		delete(g.playerShares, uuid)
	}
	for _, uuid := range s.createdCompanyShares {
		delete(g.companyShares, uuid)
	}
}

func resultFrom(s snapshot) model.ActionResult {
	var out model.ActionResult
	if s.game != nil {
		game := cloneGame(*s.game)
		out.Game = &game
	}
	for _, p := range s.players {
		out.Players = append(out.Players, clonePlayer(p))
	}
	for _, c := range s.companies {
		out.Companies = append(out.Companies, cloneCompany(c))
	}
	out.Shares = append(out.Shares, s.playerShares...)
	out.Shares = append(out.Shares, s.companyShares...)
	return out
}

// party is the server-side resolution of one transfer side.
type party struct {
	kind    string
	player  *model.Player
	company *model.Company
}

func (p party) isBank() bool { return p.kind == "bank" }

func (p party) name() string {
	switch p.kind {
	case "player":
		return p.player.Name
	case "company":
		return p.company.Name
	case "ipo":
		return "the IPO"
	}
	return "the bank"
}

// TransferMoney moves cash between two parties; a nil player and
// company on a side means the bank. Touches only the two sides (and
// the game record when a side is the bank).
func (st *Store) TransferMoney(amount int, fromPlayer, fromCompany, toPlayer, toCompany *string) (model.ActionResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if fromPlayer == nil && fromCompany == nil && toPlayer == nil && toCompany == nil {
		return model.ActionResult{}, validationErrorf(errSourceOrDestRequired)
	}
	if fromPlayer != nil && fromCompany != nil {
		return model.ActionResult{}, validationErrorf("Cannot send or receive money to two different entities.")
	}
	if toPlayer != nil && toCompany != nil {
		return model.ActionResult{}, validationErrorf("Cannot send or receive money to two different entities.")
	}

	from, fromGame, err := st.resolveParty(fromPlayer, fromCompany)
	if err != nil {
		return model.ActionResult{}, err
	}
	to, toGame, err := st.resolveParty(toPlayer, toCompany)
	if err != nil {
		return model.ActionResult{}, err
	}
	if fromGame != nil && toGame != nil && fromGame != toGame {
		return model.ActionResult{}, validationErrorf(errDifferentGame)
	}
	g := fromGame
	if g == nil {
		g = toGame
	}
	if !from.isBank() && !to.isBank() && samePartyEntity(from, to) {
		return model.ActionResult{}, validationErrorf(errSameEntity)
	}

	before := st.snapParties(g, from, to)
	switch from.kind {
	case "player":
		from.player.Cash -= amount
	case "company":
		from.company.Cash -= amount
	default:
		g.game.Cash -= amount
	}
	switch to.kind {
	case "player":
		to.player.Cash += amount
	case "company":
		to.company.Cash += amount
	default:
		g.game.Cash += amount
	}
	after := st.snapParties(g, from, to)

	acting := ""
	if from.kind == "company" {
		acting = from.company.UUID
	} else if to.kind == "company" {
		acting = to.company.UUID
	}
	st.appendEntry(g, model.LogEntry{
		UUID:          st.newUUID(),
		Game:          g.game.UUID,
		Time:          st.now(),
		Text:          fmt.Sprintf("%s transferred %d to %s", title(from.name()), amount, to.name()),
		ActingCompany: acting,
	}, &logRecord{before: before, after: after})

	result := resultFrom(after)
	result.Log = &g.log[g.cursor-1].entry
	return result, nil
}

func samePartyEntity(a, b party) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case "player":
		return a.player.UUID == b.player.UUID
	case "company":
		return a.company.UUID == b.company.UUID
	}
	return false
}

func title(s string) string {
	if s == "the bank" {
		return "The bank"
	}
	return s
}

func (st *Store) resolveParty(playerUUID, companyUUID *string) (party, *gameRecord, error) {
	if playerUUID != nil {
		for _, g := range st.games {
			if p, ok := g.players[*playerUUID]; ok {
				return party{kind: "player", player: p}, g, nil
			}
		}
		return party{}, nil, fmt.Errorf("player %s: %w", *playerUUID, ErrNotFound)
	}
	if companyUUID != nil {
		c, g, err := st.findCompany(*companyUUID)
		if err != nil {
			return party{}, nil, err
		}
		return party{kind: "company", company: c}, g, nil
	}
	return party{kind: "bank"}, nil, nil
}

// snapParties copies the entities a money transfer touches. The game
// record rides along whenever a side is the bank.
func (st *Store) snapParties(g *gameRecord, parties ...party) snapshot {
	var s snapshot
	seenPlayers := map[string]bool{}
	seenCompanies := map[string]bool{}
	for _, p := range parties {
		switch p.kind {
		case "player":
			if !seenPlayers[p.player.UUID] {
				seenPlayers[p.player.UUID] = true
				s.players = append(s.players, clonePlayer(*p.player))
			}
		case "company":
			if !seenCompanies[p.company.UUID] {
				seenCompanies[p.company.UUID] = true
				s.companies = append(s.companies, cloneCompany(*p.company))
			}
		default:
			if s.game == nil {
				game := cloneGame(g.game)
				s.game = &game
			}
		}
	}
	return s
}

// TransferShareRequest mirrors the transfer_share endpoint body.
type TransferShareRequest struct {
	Price         int     `json:"price"`
	Amount        int     `json:"amount"`
	Share         string  `json:"share"`
	SourceType    string  `json:"source_type"`
	CompanySource *string `json:"company_source"`
	PlayerSource  *string `json:"player_source"`
	BuyerType     string  `json:"buyer_type"`
	CompanyBuyer  *string `json:"company_buyer"`
	PlayerBuyer   *string `json:"player_buyer"`
}

// TransferShare moves req.Amount shares of the traded company from the
// source party to the buyer party, with the buyer paying price×amount.
// IPO and bank sides settle cash against the game's bank balance.
func (st *Store) TransferShare(req TransferShareRequest) (model.ActionResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	traded, g, err := st.findCompany(req.Share)
	if err != nil {
		return model.ActionResult{}, err
	}
	source, err := st.resolveShareParty(g, req.SourceType, req.PlayerSource, req.CompanySource)
	if err != nil {
		return model.ActionResult{}, err
	}
	buyer, err := st.resolveShareParty(g, req.BuyerType, req.PlayerBuyer, req.CompanyBuyer)
	if err != nil {
		return model.ActionResult{}, err
	}

	if available := st.availableShares(g, source, traded); available < req.Amount {
		return model.ActionResult{}, validationErrorf(errNoAvailableShares)
	}

	before, after := snapshot{}, snapshot{}
	touchGame := source.isBank() || source.kind == "ipo" || buyer.isBank() || buyer.kind == "ipo"
	tracker := newShareTouch(g, traded, source, buyer, touchGame)
	tracker.capture(&before)

	// Move the shares.
	st.adjustHolding(g, source, traded, -req.Amount, &before)
	st.adjustHolding(g, buyer, traded, +req.Amount, &before)

	// Settle the cash.
	total := req.Price * req.Amount
	switch buyer.kind {
	case "player":
		buyer.player.Cash -= total
	case "company":
		buyer.company.Cash -= total
	default:
		g.game.Cash -= total
	}
	switch source.kind {
	case "player":
		source.player.Cash += total
	case "company":
		source.company.Cash += total
	default:
		g.game.Cash += total
	}

	tracker.capture(&after)

	acting := ""
	if buyer.kind == "company" {
		acting = buyer.company.UUID
	} else if source.kind == "company" {
		acting = source.company.UUID
	}
	st.appendEntry(g, model.LogEntry{
		UUID:          st.newUUID(),
		Game:          g.game.UUID,
		Time:          st.now(),
		Text:          fmt.Sprintf("%s bought %d share(s) of %s from %s for %d", title(buyer.name()), req.Amount, traded.Name, source.name(), total),
		ActingCompany: acting,
	}, &logRecord{before: before, after: after})

	result := resultFrom(after)
	result.Log = &g.log[g.cursor-1].entry
	return result, nil
}

func (st *Store) resolveShareParty(g *gameRecord, kind string, playerUUID, companyUUID *string) (party, error) {
	switch kind {
	case "ipo":
		return party{kind: "ipo"}, nil
	case "bank":
		return party{kind: "bank"}, nil
	case "player":
		if playerUUID == nil {
			return party{}, validationErrorf("player side requires a player uuid")
		}
		p, ok := g.players[*playerUUID]
		if !ok {
			return party{}, fmt.Errorf("player %s: %w", *playerUUID, ErrNotFound)
		}
		return party{kind: "player", player: p}, nil
	case "company":
		if companyUUID == nil {
			return party{}, validationErrorf("company side requires a company uuid")
		}
		c, ok := g.companies[*companyUUID]
		if !ok {
			return party{}, fmt.Errorf("company %s: %w", *companyUUID, ErrNotFound)
		}
		return party{kind: "company", company: c}, nil
	}
	return party{}, validationErrorf("%q is not a valid share party", kind)
}

func (st *Store) availableShares(g *gameRecord, source party, traded *model.Company) int {
	switch source.kind {
	case "ipo":
		return traded.IPOShares
	case "bank":
		return traded.BankShares
	case "player":
		if rec := findHolding(g.playerShares, source.player.UUID, traded.UUID); rec != nil {
			return rec.Shares
		}
		return 0
	case "company":
		if rec := findHolding(g.companyShares, source.company.UUID, traded.UUID); rec != nil {
			return rec.Shares
		}
		return 0
	}
	return 0
}

func findHolding(shares map[string]*model.Share, owner, company string) *model.Share {
	for _, rec := range shares {
		if rec.Owner == owner && rec.Company == company {
			return rec
		}
	}
	return nil
}

// adjustHolding applies a share delta for one party. For entity
// parties a missing holding record is created; its uuid is noted on
// before so undo can delete it again.
func (st *Store) adjustHolding(g *gameRecord, p party, traded *model.Company, delta int, before *snapshot) {
	switch p.kind {
	case "ipo":
		traded.IPOShares += delta
	case "bank":
		traded.BankShares += delta
	case "player":
		rec := findHolding(g.playerShares, p.player.UUID, traded.UUID)
		if rec == nil {
			rec = &model.Share{
				UUID:    st.newUUID(),
				Owner:   p.player.UUID,
				Company: traded.UUID,
			}
			g.playerShares[rec.UUID] = rec
			p.player.ShareSet = append(p.player.ShareSet, rec.UUID)
			if before != nil {
				before.createdPlayerShares = append(before.createdPlayerShares, rec.UUID)
			}
		}
		rec.Shares += delta
	case "company":
		rec := findHolding(g.companyShares, p.company.UUID, traded.UUID)
		if rec == nil {
			rec = &model.Share{
				UUID:    st.newUUID(),
				Owner:   p.company.UUID,
				Company: traded.UUID,
			}
			g.companyShares[rec.UUID] = rec
			p.company.ShareSet = append(p.company.ShareSet, rec.UUID)
			if before != nil {
				before.createdCompanyShares = append(before.createdCompanyShares, rec.UUID)
			}
		}
		rec.Shares += delta
	}
}

// shareTouch knows which entities a share transfer can dirty and
// copies their current values into a snapshot on demand.
type shareTouch struct {
	g         *gameRecord
	touchGame bool
	traded    *model.Company
	parties   []party
}

func newShareTouch(g *gameRecord, traded *model.Company, source, buyer party, touchGame bool) *shareTouch {
	return &shareTouch{g: g, touchGame: touchGame, traded: traded, parties: []party{source, buyer}}
}

func (t *shareTouch) capture(s *snapshot) {
	if t.touchGame {
		game := cloneGame(t.g.game)
		s.game = &game
	}
	s.players = nil
	s.companies = []model.Company{cloneCompany(*t.traded)}
	s.playerShares = nil
	s.companyShares = nil
	seenCompanies := map[string]bool{t.traded.UUID: true}
	for _, p := range t.parties {
		switch p.kind {
		case "player":
			s.players = append(s.players, clonePlayer(*p.player))
			if rec := findHolding(t.g.playerShares, p.player.UUID, t.traded.UUID); rec != nil {
				s.playerShares = append(s.playerShares, *rec)
			}
		case "company":
			if !seenCompanies[p.company.UUID] {
				seenCompanies[p.company.UUID] = true
				s.companies = append(s.companies, cloneCompany(*p.company))
			}
			if rec := findHolding(t.g.companyShares, p.company.UUID, t.traded.UUID); rec != nil {
				s.companyShares = append(s.companyShares, *rec)
			}
		}
	}
}
