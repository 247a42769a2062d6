package core

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MinUsernameLength is the shortest accepted username.
const MinUsernameLength = 5

var ErrInvalidUsername = errors.New("username must be at least 5 characters and include 1 uppercase letter, 1 number, and 1 special character")

// ValidateUsername checks length and character classes of a trimmed username.
func ValidateUsername(name string) error {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < MinUsernameLength {
		return ErrInvalidUsername
	}
	var upper, digit, special bool
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
		default:
			special = true
		}
	}
	if !upper || !digit || !special {
		return ErrInvalidUsername
	}
	return nil
}
