package validation

import (
	"errors"
	"regexp"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateUsername validates a username: 3-20 characters, letters, numbers
// and underscores only.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}

	if len(username) > 20 {
		return errors.New("username is too long (max 20 characters)")
	}

	if !usernameRe.MatchString(username) {
		return errors.New("username can only contain letters, numbers, and underscores")
	}

	return nil
}
