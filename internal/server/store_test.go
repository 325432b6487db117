package server

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"railbank/internal/model"
)

func newTestStore() *Store {
	st := NewStore(12000)
	n := 0
	st.newUUID = func() string {
		n++
		return fmt.Sprintf("u%02d", n)
	}
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time {
		base = base.Add(time.Minute)
		return base
	}
	return st
}

// seedGame sets up a game with one player and one ten-share company,
// and puts two shares in the player's hands via an IPO purchase at
// price zero.
func seedGame(t *testing.T, st *Store) (model.Game, model.Player, model.Company) {
	t.Helper()
	game := st.CreateGame(nil)
	alice, err := st.CreatePlayer(game.UUID, "Alice", 500)
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	bo, err := st.CreateCompany(model.Company{Game: game.UUID, Name: "B&O"})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	_, err = st.TransferShare(TransferShareRequest{
		Amount:      2,
		Share:       bo.UUID,
		SourceType:  "ipo",
		BuyerType:   "player",
		PlayerBuyer: &alice.UUID,
	})
	if err != nil {
		t.Fatalf("seed shares: %v", err)
	}
	game, _ = st.GetGame(game.UUID)
	alice, _ = st.GetPlayer(alice.UUID)
	bo, _ = st.GetCompany(bo.UUID)
	return game, alice, bo
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return vErr.Error()
}

func TestCreateGameDefaults(t *testing.T) {
	st := newTestStore()
	game := st.CreateGame(nil)
	if game.Cash != 12000 {
		t.Fatalf("bank cash = %d, want 12000", game.Cash)
	}
	log, err := st.ListLog(game.UUID)
	if err != nil {
		t.Fatalf("list log: %v", err)
	}
	if len(log) != 1 || !strings.Contains(log[0].Text, "12000") {
		t.Fatalf("log = %+v", log)
	}
	if log[0].IsUndoable {
		t.Fatal("game creation must not be undoable")
	}

	cash := 9000
	if g := st.CreateGame(&cash); g.Cash != 9000 {
		t.Fatalf("explicit cash ignored: %d", g.Cash)
	}
}

func TestCreatePlayerDuplicateName(t *testing.T) {
	st := newTestStore()
	game := st.CreateGame(nil)
	if _, err := st.CreatePlayer(game.UUID, "Alice", 500); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := st.CreatePlayer(game.UUID, "Alice", 500)
	if msg := validationMessage(t, err); msg != errDuplicateName {
		t.Fatalf("message = %q", msg)
	}
}

func TestCreateCompanyDefaults(t *testing.T) {
	st := newTestStore()
	game := st.CreateGame(nil)
	company, err := st.CreateCompany(model.Company{Game: game.UUID, Name: "B&O"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if company.ShareCount != 10 || company.IPOShares != 10 || company.BankShares != 0 {
		t.Fatalf("share defaults wrong: %+v", company)
	}
	if company.TextColor != "black" || company.BackgroundColor != "white" {
		t.Fatalf("color defaults wrong: %+v", company)
	}

	_, err = st.CreateCompany(model.Company{Game: game.UUID, Name: "PRR", TextColor: "mauve-500"})
	if err == nil {
		t.Fatal("invalid color accepted")
	}
}

func TestUpdateCompany(t *testing.T) {
	st := newTestStore()
	game := st.CreateGame(nil)
	company, _ := st.CreateCompany(model.Company{Game: game.UUID, Name: "B&O"})
	other, _ := st.CreateCompany(model.Company{Game: game.UUID, Name: "PRR"})

	company.Name = "B&O Railroad"
	company.Cash = 300
	company.TextColor = "white"
	company.BackgroundColor = "blue-800"
	updated, err := st.UpdateCompany(company)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "B&O Railroad" || updated.Cash != 300 || updated.BackgroundColor != "blue-800" {
		t.Fatalf("update lost fields: %+v", updated)
	}

	other.Name = "B&O Railroad"
	if _, err := st.UpdateCompany(other); err == nil {
		t.Fatal("rename onto an existing name must fail")
	}
}

func TestTransferMoneyBankToPlayer(t *testing.T) {
	st := newTestStore()
	game, alice, _ := seedGame(t, st)

	result, err := st.TransferMoney(100, nil, nil, &alice.UUID, nil)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if result.Game == nil || result.Game.Cash != game.Cash-100 {
		t.Fatalf("game delta wrong: %+v", result.Game)
	}
	if len(result.Players) != 1 || result.Players[0].Cash != alice.Cash+100 {
		t.Fatalf("player delta wrong: %+v", result.Players)
	}
	if result.Log == nil || result.Log.Text != "The bank transferred 100 to Alice" {
		t.Fatalf("log = %+v", result.Log)
	}
	if !result.Log.IsUndoable {
		t.Fatal("transfers must be undoable")
	}
}

func TestTransferMoneyValidations(t *testing.T) {
	st := newTestStore()
	_, alice, bo := seedGame(t, st)

	_, err := st.TransferMoney(100, nil, nil, nil, nil)
	if msg := validationMessage(t, err); msg != errSourceOrDestRequired {
		t.Fatalf("bank-to-bank message = %q", msg)
	}

	_, err = st.TransferMoney(100, &alice.UUID, nil, &alice.UUID, nil)
	if msg := validationMessage(t, err); msg != errSameEntity {
		t.Fatalf("same-entity message = %q", msg)
	}

	_, err = st.TransferMoney(100, &alice.UUID, &bo.UUID, nil, nil)
	if err == nil {
		t.Fatal("two source entities accepted")
	}

	// Cross-game transfer.
	other := st.CreateGame(nil)
	bob, _ := st.CreatePlayer(other.UUID, "Bob", 500)
	_, err = st.TransferMoney(100, &alice.UUID, nil, &bob.UUID, nil)
	if msg := validationMessage(t, err); msg != errDifferentGame {
		t.Fatalf("cross-game message = %q", msg)
	}
}

func TestTransferShareIPOToPlayer(t *testing.T) {
	st := newTestStore()
	game := st.CreateGame(nil)
	alice, _ := st.CreatePlayer(game.UUID, "Alice", 500)
	bo, _ := st.CreateCompany(model.Company{Game: game.UUID, Name: "B&O"})

	result, err := st.TransferShare(TransferShareRequest{
		Price:       90,
		Amount:      2,
		Share:       bo.UUID,
		SourceType:  "ipo",
		BuyerType:   "player",
		PlayerBuyer: &alice.UUID,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if result.Game == nil || result.Game.Cash != game.Cash+180 {
		t.Fatalf("bank must receive ipo proceeds: %+v", result.Game)
	}
	alice, _ = st.GetPlayer(alice.UUID)
	if alice.Cash != 500-180 {
		t.Fatalf("alice cash = %d", alice.Cash)
	}
	bo, _ = st.GetCompany(bo.UUID)
	if bo.IPOShares != 8 {
		t.Fatalf("ipo shares = %d", bo.IPOShares)
	}
	shares, _ := st.ListPlayerShares("owner", alice.UUID)
	if len(shares) != 1 || shares[0].Shares != 2 {
		t.Fatalf("holding = %+v", shares)
	}
	if len(alice.ShareSet) != 1 || alice.ShareSet[0] != shares[0].UUID {
		t.Fatalf("share_set = %v", alice.ShareSet)
	}

	_, err = st.TransferShare(TransferShareRequest{
		Amount:      20,
		Share:       bo.UUID,
		SourceType:  "ipo",
		BuyerType:   "player",
		PlayerBuyer: &alice.UUID,
	})
	if msg := validationMessage(t, err); msg != errNoAvailableShares {
		t.Fatalf("oversell message = %q", msg)
	}
}

func TestTransferSharePlayerToPool(t *testing.T) {
	st := newTestStore()
	game, alice, bo := seedGame(t, st)

	result, err := st.TransferShare(TransferShareRequest{
		Price:        60,
		Amount:       1,
		Share:        bo.UUID,
		SourceType:   "player",
		PlayerSource: &alice.UUID,
		BuyerType:    "bank",
	})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if result.Game == nil || result.Game.Cash != game.Cash-60 {
		t.Fatalf("bank must pay for pool purchases: %+v", result.Game)
	}
	bo, _ = st.GetCompany(bo.UUID)
	if bo.BankShares != 1 {
		t.Fatalf("pool shares = %d", bo.BankShares)
	}
	updated, _ := st.GetPlayer(alice.UUID)
	if updated.Cash != alice.Cash+60 {
		t.Fatalf("alice cash = %d", updated.Cash)
	}
	shares, _ := st.ListPlayerShares("owner", alice.UUID)
	if len(shares) != 1 || shares[0].Shares != 1 {
		t.Fatalf("holding = %+v", shares)
	}
}

func TestOperatePayouts(t *testing.T) {
	st := newTestStore()
	game, alice, bo := seedGame(t, st)

	// Full: Alice holds 2/10, so she gets 20 of 100.
	result, err := st.Operate(bo.UUID, 100, model.PayoutFull)
	if err != nil {
		t.Fatalf("operate: %v", err)
	}
	updated, _ := st.GetPlayer(alice.UUID)
	if updated.Cash != alice.Cash+20 {
		t.Fatalf("full dividend: alice cash = %d", updated.Cash)
	}
	g, _ := st.GetGame(game.UUID)
	if g.Cash != game.Cash-20 {
		t.Fatalf("full dividend: bank cash = %d", g.Cash)
	}
	if result.Log == nil || !strings.Contains(result.Log.Text, "pays full dividends") {
		t.Fatalf("log = %+v", result.Log)
	}

	// Half: 50 distributed (Alice gets 10), 50 withheld.
	alice, _ = st.GetPlayer(alice.UUID)
	g, _ = st.GetGame(game.UUID)
	if _, err := st.Operate(bo.UUID, 100, model.PayoutHalf); err != nil {
		t.Fatalf("operate half: %v", err)
	}
	updated, _ = st.GetPlayer(alice.UUID)
	if updated.Cash != alice.Cash+10 {
		t.Fatalf("half dividend: alice cash = %d", updated.Cash)
	}
	updatedCo, _ := st.GetCompany(bo.UUID)
	if updatedCo.Cash != bo.Cash+50 {
		t.Fatalf("half dividend: treasury = %d", updatedCo.Cash)
	}
	gAfter, _ := st.GetGame(game.UUID)
	if gAfter.Cash != g.Cash-60 {
		t.Fatalf("half dividend: bank cash = %d", gAfter.Cash)
	}

	// Withhold: everything to the treasury.
	bo, _ = st.GetCompany(bo.UUID)
	if _, err := st.Operate(bo.UUID, 100, model.PayoutWithhold); err != nil {
		t.Fatalf("operate withhold: %v", err)
	}
	updatedCo, _ = st.GetCompany(bo.UUID)
	if updatedCo.Cash != bo.Cash+100 {
		t.Fatalf("withhold: treasury = %d", updatedCo.Cash)
	}

	if _, err := st.Operate(bo.UUID, 100, "double"); err == nil {
		t.Fatal("invalid payout method accepted")
	}
}

func TestOperatePoolAndIPORouting(t *testing.T) {
	st := newTestStore()
	game, _, bo := seedGame(t, st)

	rec := st.games[game.UUID]
	rec.game.PoolSharesPay = true
	rec.game.IPOSharesPay = true
	rec.companies[bo.UUID].BankShares = 3
	rec.companies[bo.UUID].IPOShares = 5

	if _, err := st.Operate(bo.UUID, 100, model.PayoutFull); err != nil {
		t.Fatalf("operate: %v", err)
	}
	updated, _ := st.GetCompany(bo.UUID)
	// 3 pool shares + 5 ipo shares of 10 pay the operating company.
	if updated.Cash != bo.Cash+30+50 {
		t.Fatalf("routed dividends = %d, want %d", updated.Cash, bo.Cash+80)
	}
	g, _ := st.GetGame(game.UUID)
	if g.Cash != game.Cash-20-80 {
		t.Fatalf("bank cash = %d", g.Cash)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	st := newTestStore()
	game, alice, _ := seedGame(t, st)
	logBefore, _ := st.ListLog(game.UUID)

	if _, err := st.TransferMoney(100, nil, nil, &alice.UUID, nil); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	result, err := st.UndoAction(game.UUID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	updated, _ := st.GetPlayer(alice.UUID)
	if updated.Cash != alice.Cash {
		t.Fatalf("undo did not restore cash: %d", updated.Cash)
	}
	if result.Log != nil {
		t.Fatal("undo result must not carry a log entry")
	}
	log, _ := st.ListLog(game.UUID)
	if len(log) != len(logBefore) {
		t.Fatalf("undone entry still visible: %d vs %d", len(log), len(logBefore))
	}

	redone, err := st.RedoAction(game.UUID)
	if err != nil {
		t.Fatalf("redo: %v", err)
	}
	updated, _ = st.GetPlayer(alice.UUID)
	if updated.Cash != alice.Cash+100 {
		t.Fatalf("redo did not reapply: %d", updated.Cash)
	}
	if redone.Log == nil || !strings.Contains(redone.Log.Text, "transferred 100") {
		t.Fatalf("redo log = %+v", redone.Log)
	}
}

func TestUndoCreationBlocked(t *testing.T) {
	st := newTestStore()
	game := st.CreateGame(nil)
	if _, err := st.CreatePlayer(game.UUID, "Alice", 500); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := st.UndoAction(game.UUID)
	if msg := validationMessage(t, err); msg != "This action cannot be undone." {
		t.Fatalf("message = %q", msg)
	}
}

func TestRedoTailTruncated(t *testing.T) {
	st := newTestStore()
	game, alice, _ := seedGame(t, st)

	if _, err := st.TransferMoney(100, nil, nil, &alice.UUID, nil); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := st.UndoAction(game.UUID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if _, err := st.TransferMoney(200, nil, nil, &alice.UUID, nil); err != nil {
		t.Fatalf("fresh action: %v", err)
	}
	_, err := st.RedoAction(game.UUID)
	if msg := validationMessage(t, err); msg != errNothingToRedo {
		t.Fatalf("message = %q", msg)
	}
}

func TestUndoDeletesCreatedShare(t *testing.T) {
	st := newTestStore()
	game := st.CreateGame(nil)
	alice, _ := st.CreatePlayer(game.UUID, "Alice", 500)
	bo, _ := st.CreateCompany(model.Company{Game: game.UUID, Name: "B&O"})

	if _, err := st.TransferShare(TransferShareRequest{
		Price:       90,
		Amount:      2,
		Share:       bo.UUID,
		SourceType:  "ipo",
		BuyerType:   "player",
		PlayerBuyer: &alice.UUID,
	}); err != nil {
		t.Fatalf("buy: %v", err)
	}

	result, err := st.UndoAction(game.UUID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	shares, _ := st.ListPlayerShares("owner", alice.UUID)
	if len(shares) != 0 {
		t.Fatalf("created holding must be deleted on undo: %+v", shares)
	}
	updated, _ := st.GetPlayer(alice.UUID)
	if len(updated.ShareSet) != 0 {
		t.Fatalf("share_set must be restored: %v", updated.ShareSet)
	}
	// The deleted record comes back zeroed so clients can drop it.
	foundZero := false
	for _, sh := range result.Shares {
		if sh.Owner == alice.UUID && sh.Shares == 0 {
			foundZero = true
		}
	}
	if !foundZero {
		t.Fatalf("zeroed share record missing from result: %+v", result.Shares)
	}

	if _, err := st.RedoAction(game.UUID); err != nil {
		t.Fatalf("redo: %v", err)
	}
	shares, _ = st.ListPlayerShares("owner", alice.UUID)
	if len(shares) != 1 || shares[0].Shares != 2 {
		t.Fatalf("redo must recreate the holding: %+v", shares)
	}
}
