package utils

import (
	"strings"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "6f1c2c1e-6d3a-4a4e-9a59-0c8d0a3f9d10", "a@b.c", "admin", 5)
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(tok.Exp) <= 0 {
		t.Fatal("token already expired")
	}
	c, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatal(err)
	}
	if c.UserID != "6f1c2c1e-6d3a-4a4e-9a59-0c8d0a3f9d10" || c.Email != "a@b.c" || c.Role != "admin" {
		t.Fatalf("claims = %+v", c)
	}
	if _, err := ParseAccessToken("other", tok.Token); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	tok, err := NewAccessToken("k", "u", "e", "user", -1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAccessToken("k", tok.Token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"short1!", ErrPasswordTooShort},
		{"longenough", ErrPasswordTooWeak},
		{"longenough1", ErrPasswordTooWeak},
		{"12345678!", ErrPasswordTooWeak},
		{"longenough1!", nil},
		{"пароль123$", nil},
	}
	for _, c := range cases {
		if got := ValidatePassword(c.in); got != c.want {
			t.Errorf("ValidatePassword(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestGeneratePasswordSatisfiesPolicy(t *testing.T) {
	for i := 0; i < 20; i++ {
		p, err := GeneratePassword(12)
		if err != nil {
			t.Fatal(err)
		}
		if len(p) != 12 {
			t.Fatalf("len = %d", len(p))
		}
		if err := ValidatePassword(p); err != nil {
			t.Fatalf("generated %q: %v", p, err)
		}
	}
}

func TestVerificationCode(t *testing.T) {
	c, err := VerificationCode()
	if err != nil {
		t.Fatal(err)
	}
	if len(c) != 6 || strings.Trim(c, "0123456789") != "" {
		t.Fatalf("code = %q", c)
	}
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("longenough1!", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(h, "longenough1!") || VerifyPassword(h, "nope") {
		t.Fatal("bcrypt verify mismatch")
	}
	if VerifyPassword("", "") {
		t.Fatal("empty hash must never verify")
	}
}

func TestValidators(t *testing.T) {
	if !ValidEmail("user@example.com") || ValidEmail("User <user@example.com>") || ValidEmail("nope") {
		t.Error("ValidEmail")
	}
	if !ValidUUID("6f1c2c1e-6d3a-4a4e-9a59-0c8d0a3f9d10") || ValidUUID("42") {
		t.Error("ValidUUID")
	}
	if NormalizeEmail("  A@B.C ") != "a@b.c" {
		t.Error("NormalizeEmail")
	}
}
