package validator

import (
	"regexp"

	"valutahub/internal/errs"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return errs.Validation("username must be 3-30 letters, digits or underscores")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errs.Validation("password must be at least 8 characters")
	}
	return nil
}
