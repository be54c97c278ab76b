package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxUsernameLength = 150
	maxEmailLength    = 254
	maxNameLength     = 150
	maxTitleLength    = 256
	maxSlugLength     = 50

	// ReservedUsername is taken by the /users/me endpoint.
	ReservedUsername = "me"
)

var (
	usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	slugRegex     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return fmt.Errorf("%w: username must be at most %d characters", ErrValidation, maxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: username may contain only letters, digits and @/./+/-/_", ErrValidation)
	}
	if strings.EqualFold(username, ReservedUsername) {
		return fmt.Errorf("%w: username %q is reserved", ErrValidation, username)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("%w: email must be at most %d characters", ErrValidation, maxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

func validateMaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, field, max)
	}
	return nil
}

func validateRequiredText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	return nil
}

func validateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug is required", ErrValidation)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug must be at most %d characters", ErrValidation, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: slug may contain only letters, digits, '-' and '_'", ErrValidation)
	}
	return nil
}
