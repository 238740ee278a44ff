package utils

import (
	"fmt"
	"unicode"

	"github.com/dicomeinit/post-comment-app/config"
)

// ValidateUsername checks that a username is of acceptable length and consists of
// letters, digits, underscores and hyphens only.
func ValidateUsername(username string) error {
	if l := len([]rune(username)); l < 3 || l > 30 {
		return fmt.Errorf("username must be 3-30 characters long")
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			continue
		}
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidatePassword enforces the password-strength policy: configured minimum length
// plus at least one letter and one digit.
func ValidatePassword(password string) error {
	minChars := config.Get().PasswordMinChars
	if len(password) < minChars {
		return fmt.Errorf("password must be at least %d characters long", minChars)
	}
	if len(password) > 128 {
		return fmt.Errorf("password must not exceed 128 characters")
	}

	hasLetter := false
	hasDigit := false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain at least one digit")
	}
	return nil
}
