package authutil

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h == "correct horse" || !strings.HasPrefix(h, "$2") {
		t.Errorf("unexpected hash %q", h)
	}
	if !CheckPassword(h, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(h, "wrong horse") {
		t.Error("expected wrong password to fail")
	}
}

func TestHashPassword_Length(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("got %v, want %v", err, ErrPasswordTooShort)
	}
	if _, err := HashPassword(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("got %v, want %v", err, ErrPasswordTooLong)
	}
}

func TestCheckPassword_EmptyHash(t *testing.T) {
	if CheckPassword("", "anything") {
		t.Error("empty hash must never match")
	}
}
