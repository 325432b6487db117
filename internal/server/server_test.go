package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"railbank/internal/api"
	"railbank/internal/config"
	"railbank/internal/model"
	"railbank/internal/report"
	"railbank/internal/state"
)

func testClient(t *testing.T) *api.Client {
	t.Helper()
	srv := New(config.ServerConfig{BankCash: 12000}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return api.NewClient(ts.URL + "/api")
}

func TestFullGameOverHTTP(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	game, err := client.CreateGame(ctx, 12000)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	alice, err := client.CreatePlayer(ctx, game.UUID, "Alice", 500)
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	bo, err := client.CreateCompany(ctx, model.Company{
		Game: game.UUID, Name: "B&O", ShareCount: 10,
		TextColor: "white", BackgroundColor: "blue-800",
	})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}

	// Duplicate names come back as non_field_errors.
	_, err = client.CreatePlayer(ctx, game.UUID, "Alice", 0)
	apiErr, ok := err.(*api.Error)
	if !ok || len(apiErr.NonFieldErrors) == 0 {
		t.Fatalf("duplicate name error = %v", err)
	}

	// Alice buys 2 shares from the IPO at 90.
	result, err := client.TransferShare(ctx, model.PlayerParty(&alice), &bo, model.IPO(), 90, 2)
	if err != nil {
		t.Fatalf("buy shares: %v", err)
	}
	if result.Game == nil || result.Game.Cash != 12180 {
		t.Fatalf("bank after ipo buy: %+v", result.Game)
	}

	// B&O operates for 100, full payout: Alice holds 2/10.
	result, err = client.Operate(ctx, &bo, 100, model.PayoutFull)
	if err != nil {
		t.Fatalf("operate: %v", err)
	}
	var got *model.Player
	for i := range result.Players {
		if result.Players[i].UUID == alice.UUID {
			got = &result.Players[i]
		}
	}
	if got == nil || got.Cash != 500-180+20 {
		t.Fatalf("alice after dividend: %+v", got)
	}

	// The state holder sees the same picture through the wire.
	rep := report.New()
	st := state.New(client, rep)
	st.LoadGame(ctx, game.UUID)
	if err := st.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !st.IsLoaded() {
		t.Fatalf("load failed: %v", rep.Errors())
	}
	player, ok := st.PlayerByName("Alice")
	if !ok || player.Cash != 340 {
		t.Fatalf("loaded alice = %+v", player)
	}
	company, _ := st.CompanyByName("B&O")
	if !st.OwnsShare(&player, &company) {
		t.Fatal("alice should own B&O stock")
	}

	// Undo the dividend through the client.
	if err := st.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	player, _ = st.PlayerByName("Alice")
	if player.Cash != 320 {
		t.Fatalf("alice after undo = %d", player.Cash)
	}
	gameNow, _ := st.Game()
	if gameNow.Cash != 12180 {
		t.Fatalf("bank after undo = %d", gameNow.Cash)
	}

	// And redo it.
	if err := st.Redo(ctx); err != nil {
		t.Fatalf("redo: %v", err)
	}
	player, _ = st.PlayerByName("Alice")
	if player.Cash != 340 {
		t.Fatalf("alice after redo = %d", player.Cash)
	}
	log := st.Log()
	if len(log) == 0 || !strings.Contains(log[len(log)-1].Text, "full dividends") {
		t.Fatalf("log after redo = %+v", log)
	}
}

func TestTransferMoneyValidationOverHTTP(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	_, err := client.TransferMoney(ctx, 100, model.Bank(), model.Bank())
	apiErr, ok := err.(*api.Error)
	if !ok {
		t.Fatalf("expected *api.Error, got %v", err)
	}
	if apiErr.Status != 400 || !strings.Contains(apiErr.Error(), "bank to the bank") {
		t.Fatalf("error = %v", apiErr)
	}
}

func TestNotFoundOverHTTP(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)
	_, err := client.GetGame(ctx, "nope")
	if !api.IsNotFound(err) {
		t.Fatalf("expected 404, got %v", err)
	}
}
