package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUnmarshalUUIDFallback(t *testing.T) {
	var p Player
	if err := json.Unmarshal([]byte(`{"_id_":"p1","name":"Alice","cash":500}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.UUID != "p1" {
		t.Fatalf("expected _id_ fallback, got uuid %q", p.UUID)
	}

	var g Game
	if err := json.Unmarshal([]byte(`{"uuid":"g1","_id_":"legacy","cash":12000}`), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.UUID != "g1" {
		t.Fatalf("uuid should win over _id_, got %q", g.UUID)
	}
}

func TestCompanyValueStaysLocal(t *testing.T) {
	raw, err := json.Marshal(Company{UUID: "c1", Name: "B&O", Value: 90})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "90") {
		t.Fatalf("value leaked onto the wire: %s", raw)
	}

	var c Company
	if err := json.Unmarshal([]byte(`{"uuid":"c1","name":"B&O","share_count":10}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Value != 0 {
		t.Fatalf("value should default to 0, got %d", c.Value)
	}
	if c.ShareCount != 10 {
		t.Fatalf("share_count = %d, want 10", c.ShareCount)
	}
}

func TestPartyVariants(t *testing.T) {
	var zero Party
	if !zero.IsBank() || zero.Kind() != "bank" {
		t.Fatalf("zero party should be the bank, got kind %q", zero.Kind())
	}
	if _, ok := zero.UUID(); ok {
		t.Fatal("bank party should not carry a uuid")
	}

	if !IPO().IsIPO() || IPO().Kind() != "ipo" {
		t.Fatal("ipo party misreported")
	}

	player := &Player{UUID: "p1", Name: "Alice"}
	pp := PlayerParty(player)
	if uuid, ok := pp.UUID(); !ok || uuid != "p1" {
		t.Fatalf("player party uuid = %q, %v", uuid, ok)
	}
	if pp.String() != "Alice" {
		t.Fatalf("player party string = %q", pp.String())
	}

	company := &Company{UUID: "c1", Name: "B&O"}
	cp := CompanyParty(company)
	if cp.Kind() != "company" {
		t.Fatalf("company party kind = %q", cp.Kind())
	}
	if cp.String() != "B&O" {
		t.Fatalf("company party string = %q", cp.String())
	}
}

func TestValidColor(t *testing.T) {
	for _, code := range []string{"black", "white", "red-500", "blue-grey-50", "deep-orange-900"} {
		if !ValidColor(code) {
			t.Fatalf("%q should be a valid color", code)
		}
	}
	for _, code := range []string{"", "red", "magenta-500", "red-550", "Black"} {
		if ValidColor(code) {
			t.Fatalf("%q should not be a valid color", code)
		}
	}
}

func TestColorOptionsShape(t *testing.T) {
	opts := ColorOptions()
	if opts[0] != "black" || opts[1] != "white" {
		t.Fatalf("options should start with black, white: %v", opts[:2])
	}
	if len(opts) != 2+19*10 {
		t.Fatalf("len(options) = %d, want %d", len(opts), 2+19*10)
	}
}
