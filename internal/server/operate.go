package server

import (
	"fmt"

	"railbank/internal/model"
)

// Operate runs a company revenue action. Dividends come out of the
// bank: full distributes the whole amount per share, half withholds
// half (plus any rounding) to the company treasury and distributes the
// rest, withhold sends everything to the treasury. The game's payout
// routing flags decide whether pool, IPO and treasury-held shares pay
// (to the holding company) or pay no one.
func (st *Store) Operate(companyUUID string, amount int, method string) (model.ActionResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	traded, g, err := st.findCompany(companyUUID)
	if err != nil {
		return model.ActionResult{}, err
	}

	var distribute, withheld int
	switch method {
	case model.PayoutFull:
		distribute = amount
	case model.PayoutHalf:
		distribute = amount / 2
		withheld = amount - distribute
	case model.PayoutWithhold:
		withheld = amount
	default:
		return model.ActionResult{}, validationErrorf("%q is not a valid payout method", method)
	}

	playerPay := make(map[*model.Player]int)
	companyPay := make(map[*model.Company]int)
	if distribute != 0 {
		for _, rec := range g.playerShares {
			if rec.Company == traded.UUID && rec.Shares > 0 {
				if pay := distribute * rec.Shares / traded.ShareCount; pay != 0 {
					playerPay[g.players[rec.Owner]] += pay
				}
			}
		}
		if g.game.TreasurySharesPay {
			for _, rec := range g.companyShares {
				if rec.Company == traded.UUID && rec.Shares > 0 {
					if pay := distribute * rec.Shares / traded.ShareCount; pay != 0 {
						companyPay[g.companies[rec.Owner]] += pay
					}
				}
			}
		}
		if g.game.PoolSharesPay {
			if pay := distribute * traded.BankShares / traded.ShareCount; pay != 0 {
				companyPay[traded] += pay
			}
		}
		if g.game.IPOSharesPay {
			if pay := distribute * traded.IPOShares / traded.ShareCount; pay != 0 {
				companyPay[traded] += pay
			}
		}
	}
	if withheld != 0 {
		companyPay[traded] += withheld
	}

	before := snapOperate(g, traded, playerPay, companyPay)

	total := 0
	for player, pay := range playerPay {
		player.Cash += pay
		total += pay
	}
	for company, pay := range companyPay {
		company.Cash += pay
		total += pay
	}
	g.game.Cash -= total

	after := snapOperate(g, traded, playerPay, companyPay)

	var text string
	switch method {
	case model.PayoutFull:
		text = fmt.Sprintf("%s operates for %d and pays full dividends", traded.Name, amount)
	case model.PayoutHalf:
		text = fmt.Sprintf("%s operates for %d and pays half dividends", traded.Name, amount)
	default:
		text = fmt.Sprintf("%s operates for %d and withholds", traded.Name, amount)
	}
	st.appendEntry(g, model.LogEntry{
		UUID:          st.newUUID(),
		Game:          g.game.UUID,
		Time:          st.now(),
		Text:          text,
		ActingCompany: traded.UUID,
	}, &logRecord{before: before, after: after})

	result := resultFrom(after)
	result.Log = &g.log[g.cursor-1].entry
	return result, nil
}

func snapOperate(g *gameRecord, traded *model.Company, playerPay map[*model.Player]int, companyPay map[*model.Company]int) snapshot {
	game := cloneGame(g.game)
	s := snapshot{
		game:      &game,
		companies: []model.Company{cloneCompany(*traded)},
	}
	for player := range playerPay {
		s.players = append(s.players, clonePlayer(*player))
	}
	for company := range companyPay {
		if company.UUID != traded.UUID {
			s.companies = append(s.companies, cloneCompany(*company))
		}
	}
	return s
}

// UndoAction reverts the newest applied log entry. Creations are not
// undoable and block the walk backward.
func (st *Store) UndoAction(gameUUID string) (model.ActionResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	g, err := st.game(gameUUID)
	if err != nil {
		return model.ActionResult{}, err
	}
	if g.cursor == 0 {
		return model.ActionResult{}, validationErrorf(errNothingToUndo)
	}
	rec := &g.log[g.cursor-1]
	if !rec.entry.IsUndoable {
		return model.ActionResult{}, validationErrorf("This action cannot be undone.")
	}

	// Clients keep share records addressable after an undo deletes
	// them here, so send them back zeroed.
	var zeroed []model.Share
	for _, uuid := range rec.before.createdPlayerShares {
		if sh, ok := g.playerShares[uuid]; ok {
			z := *sh
			z.Shares = 0
			zeroed = append(zeroed, z)
		}
	}
	for _, uuid := range rec.before.createdCompanyShares {
		if sh, ok := g.companyShares[uuid]; ok {
			z := *sh
			z.Shares = 0
			zeroed = append(zeroed, z)
		}
	}

	g.restore(rec.before)
	g.cursor--

	result := resultFrom(rec.before)
	result.Shares = append(result.Shares, zeroed...)
	return result, nil
}

// RedoAction re-applies the next entry past the cursor. The redo tail
// only ever holds undoable entries, so no check is needed here.
func (st *Store) RedoAction(gameUUID string) (model.ActionResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	g, err := st.game(gameUUID)
	if err != nil {
		return model.ActionResult{}, err
	}
	if g.cursor == len(g.log) {
		return model.ActionResult{}, validationErrorf(errNothingToRedo)
	}
	rec := &g.log[g.cursor]
	g.restore(rec.after)
	g.cursor++

	result := resultFrom(rec.after)
	result.Log = &rec.entry
	return result, nil
}
