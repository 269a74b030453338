package db

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal database error")
)

// DB bundles the persistence ports the federation engine consumes. The
// implementations live in the impl subpackage; tests may supply mocks or an
// in-memory database.
type DB interface {
	Accounts
	Follows
	Bookmarks
	Users
}
