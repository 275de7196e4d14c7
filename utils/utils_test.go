package utils

import (
	"testing"
)

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 || chunks[2][0] != 5 {
		t.Fatalf("unexpected chunks %v", chunks)
	}
	if got := Chunk([]int{}, 3); len(got) != 0 {
		t.Fatalf("empty input produced %v", got)
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	got, err := NormalizePhoneNumber("(650) 253-0000", "US")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "+16502530000" {
		t.Fatalf("got %q, want +16502530000", got)
	}
	if _, err := NormalizePhoneNumber("12", "US"); err == nil {
		t.Fatalf("expected an error for a short number")
	}
}

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret!", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(string(hashed), "s3cret!"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(string(hashed), "wrong"); err == nil {
		t.Fatalf("wrong password accepted")
	}
}

func TestMoneyFromFloat(t *testing.T) {
	if got := MoneyFromFloat(19.999).String(); got != "20" {
		t.Fatalf("MoneyFromFloat(19.999) = %s", got)
	}
	if got := RoundFloat(4.256); got != 4.26 {
		t.Fatalf("RoundFloat(4.256) = %v", got)
	}
}
