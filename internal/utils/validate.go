package utils

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ValidEmail reports whether s is a bare address (no display name).
func ValidEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// ValidUUID reports whether s is a canonical UUID string.
func ValidUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// RuneLen counts characters, not bytes.
func RuneLen(s string) int { return len([]rune(s)) }
