// Package validate holds the input rules for locally created entities.
package validate

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	MinPasswordLen = 8
	// MaxPasswordLen is bcrypt's input limit.
	MaxPasswordLen = 72
	MaxUsernameLen = 64
)

// ErrInvalid is wrapped by every validation failure, so callers can map the
// whole class to a bad-request response.
var ErrInvalid = errors.New("invalid input")

// Usernames federate, so they are restricted to characters every known
// implementation accepts in webfinger identifiers.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

func Password(password string) error {
	l := len(password)
	switch {
	case l == 0:
		return fmt.Errorf("%w: empty password", ErrInvalid)
	case l < MinPasswordLen:
		return fmt.Errorf("%w: password too short; min %d characters", ErrInvalid, MinPasswordLen)
	case l > MaxPasswordLen:
		return fmt.Errorf("%w: password too long; max %d characters", ErrInvalid, MaxPasswordLen)
	}
	return nil
}

func Username(username string) error {
	if l := len(username); l == 0 {
		return fmt.Errorf("%w: empty username", ErrInvalid)
	} else if l > MaxUsernameLen {
		return fmt.Errorf("%w: username too long; max %d characters", ErrInvalid, MaxUsernameLen)
	}

	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username may only contain letters and digits", ErrInvalid)
	}
	return nil
}
