package validation

import (
	"errors"
)

// ValidatePassword validates password length.
// Maximum is 72 bytes: bcrypt silently truncates anything longer, which
// would weaken the stored hash.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters")
	}

	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	return nil
}
