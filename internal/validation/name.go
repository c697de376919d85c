package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxNameLen matches the feed author limit, since the profile name is
// credited on feed posts.
const MaxNameLen = 100

var (
	ErrNameRequired = errors.New("name is required")
	ErrNameTooLong  = errors.New("name is too long (max 100 characters)")
)

func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return ErrNameRequired
	}

	if utf8.RuneCountInString(trimmed) > MaxNameLen {
		return ErrNameTooLong
	}

	return nil
}
