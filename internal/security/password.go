package security

import (
	"errors"
	"strings"
)

const (
	minPasswordLength = 8
	// bcrypt refuses longer inputs.
	maxPasswordLength = 72

	requiredSpecials = "!@#$%&*"
	allowedSpecials  = "@$!#%*?&"
)

var (
	ErrWeakPassword    = errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, 1 number and 1 special character, with a minimum length of 8 characters")
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes long")
)

// ValidatePassword enforces the sign-up password rule.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(allowedSpecials, r):
			if strings.ContainsRune(requiredSpecials, r) {
				hasSpecial = true
			}
		default:
			return ErrWeakPassword
		}
	}

	if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return ErrWeakPassword
	}

	return nil
}
