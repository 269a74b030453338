package resolver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrBadIdentifier reports a user identifier that does not look like
// username, @username or username@host. It belongs to the bad-request class:
// callers at the HTTP boundary reject it synchronously.
var ErrBadIdentifier = errors.New("invalid identifier")

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	hostPattern     = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// ParseIdentifier splits an identifier into username and instance host,
// defaulting to this server's own host when none is given.
func (r *Resolver) ParseIdentifier(input string) (username, host string, err error) {
	input = strings.TrimPrefix(input, "@")

	username = input
	host = r.cfg.Domain
	if i := strings.Index(input, "@"); i >= 0 {
		username, host = input[:i], input[i+1:]
		if strings.Contains(host, "@") || !hostPattern.MatchString(host) {
			return "", "", fmt.Errorf("%w: %q", ErrBadIdentifier, input)
		}
	}

	if !usernamePattern.MatchString(username) {
		return "", "", fmt.Errorf("%w: %q", ErrBadIdentifier, input)
	}
	return username, host, nil
}
