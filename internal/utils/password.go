package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooWeak  = errors.New("password must contain a letter, a digit and a special character")
)

// ValidatePassword enforces the account password policy.
func ValidatePassword(p string) error {
	if len([]rune(p)) < 8 {
		return ErrPasswordTooShort
	}
	var letter, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !letter || !digit || !special {
		return ErrPasswordTooWeak
	}
	return nil
}

const (
	genLetters  = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	genDigits   = "23456789"
	genSpecials = "!@#$%&*?"
)

// GeneratePassword returns a random password of length n (min 10) that
// satisfies ValidatePassword.
func GeneratePassword(n int) (string, error) {
	if n < 10 {
		n = 10
	}
	all := genLetters + genDigits + genSpecials
	out := make([]byte, n)
	sets := []string{genLetters, genDigits, genSpecials}
	for i := range out {
		set := all
		if i < len(sets) {
			set = sets[i]
		}
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	// shuffle so the required classes are not always in front
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

// VerificationCode returns a random 6 digit numeric code.
func VerificationCode() (string, error) {
	out := make([]byte, 6)
	for i := range out {
		c, err := randomChar("0123456789")
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	return string(out), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
