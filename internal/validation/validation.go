// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxUsernameLength bounds usernames; it matches the users.username column.
	MaxUsernameLength = 30
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 5
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
	// MaxTextLength bounds thought and reaction bodies, in characters.
	MaxTextLength  = 280
	maxEmailLength = 254
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username is required")
	}

	if len(username) > MaxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLength)
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}

	return nil
}

// NormalizeEmail trims and lower-cases email. Emails are stored and looked
// up in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLength)
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf("must match an email address")
	}

	return nil
}

// ValidatePassword checks password length. bcrypt ignores everything past
// 72 bytes, so longer inputs are refused instead of silently truncated.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}

	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLength)
	}

	return nil
}

// ValidateText checks a thought or reaction body. field names the input in
// the error message.
func ValidateText(field, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%s is required", field)
	}

	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("%s must be between 1 and %d characters", field, MaxTextLength)
	}

	return nil
}
