package models

import "testing"

func TestProducerPickupAddress(t *testing.T) {
	zip := "1012 AB"
	withZip := Producer{Street: "Damrak", StreetNumber: "1", Zipcode: &zip, City: "Amsterdam"}
	if got := withZip.PickupAddress(); got != "Damrak 1, 1012 AB Amsterdam" {
		t.Fatalf("unexpected address %q", got)
	}

	withoutZip := Producer{Street: "Damrak", StreetNumber: "1", City: "Amsterdam"}
	if got := withoutZip.PickupAddress(); got != "Damrak 1, Amsterdam" {
		t.Fatalf("unexpected address %q", got)
	}

	blank := "  "
	blankZip := Producer{Street: "Damrak", StreetNumber: "1", Zipcode: &blank, City: "Amsterdam"}
	if got := blankZip.PickupAddress(); got != "Damrak 1, Amsterdam" {
		t.Fatalf("blank zipcode should be treated as absent, got %q", got)
	}
}

func TestUserDisplayName(t *testing.T) {
	if got := (User{FirstName: "Ada", LastName: "Lovelace"}).DisplayName(); got != "Ada Lovelace" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := (User{Email: "ada@example.com"}).DisplayName(); got != "ada@example.com" {
		t.Fatalf("expected email fallback, got %q", got)
	}
}
