package main

import (
	"strings"
	"testing"

	"railbank/internal/model"
	"railbank/internal/report"
	"railbank/internal/state"
)

func partyState(t *testing.T) *state.State {
	t.Helper()
	st := state.New(nil, report.New())
	if err := st.UpdateGame(model.Game{UUID: "g1"}); err != nil {
		t.Fatalf("update game: %v", err)
	}
	st.UpdatePlayer(model.Player{UUID: "p1", Game: "g1", Name: "Alice"})
	st.UpdateCompany(model.Company{UUID: "c1", Game: "g1", Name: "B&O"})
	return st
}

func TestResolveParty(t *testing.T) {
	st := partyState(t)

	party, err := resolveParty(st, "bank")
	if err != nil || !party.IsBank() {
		t.Fatalf("bank: %v %v", party, err)
	}
	if party, err = resolveParty(st, ""); err != nil || !party.IsBank() {
		t.Fatalf("blank should mean the bank: %v %v", party, err)
	}
	if party, err = resolveParty(st, "ipo"); err != nil || !party.IsIPO() {
		t.Fatalf("ipo: %v %v", party, err)
	}
	party, err = resolveParty(st, "Alice")
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	if uuid, ok := party.UUID(); !ok || uuid != "p1" {
		t.Fatalf("alice uuid = %q, %v", uuid, ok)
	}
	party, err = resolveParty(st, "B&O")
	if err != nil || party.Kind() != "company" {
		t.Fatalf("company: %v %v", party, err)
	}
	if _, err = resolveParty(st, "Nobody"); err == nil {
		t.Fatal("unknown name accepted")
	}
}

func TestResolveMoneyPartyRejectsIPO(t *testing.T) {
	st := partyState(t)

	_, err := resolveMoneyParty(st, "ipo")
	if err == nil || !strings.Contains(err.Error(), "IPO") {
		t.Fatalf("ipo must be rejected for money transfers, got %v", err)
	}
	party, err := resolveMoneyParty(st, "Alice")
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	if uuid, ok := party.UUID(); !ok || uuid != "p1" {
		t.Fatalf("alice uuid = %q, %v", uuid, ok)
	}
	if party, err = resolveMoneyParty(st, "bank"); err != nil || !party.IsBank() {
		t.Fatalf("bank: %v %v", party, err)
	}
}
