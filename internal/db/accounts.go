package db

import (
	"context"
	"net/url"

	"github.com/sidereusnuntius/gomarks/internal/domain"
)

type Accounts interface {
	// GetAccountByURI is a pure lookup; it never triggers a remote fetch.
	GetAccountByURI(ctx context.Context, uri *url.URL) (domain.Account, error)
	GetAccountByID(ctx context.Context, id int64) (domain.Account, error)
	GetAccountByUsername(ctx context.Context, username, host string) (domain.Account, error)
	GetAccountByUserID(ctx context.Context, userID int64) (domain.Account, error)
	// UpsertRemoteAccount inserts the account or, when another writer already
	// persisted the same uri, refreshes it and returns the stored row.
	UpsertRemoteAccount(ctx context.Context, account domain.Account) (domain.Account, error)
	// CreateLocalAccount persists a user together with its account in one
	// transaction. The account must carry both keys.
	CreateLocalAccount(ctx context.Context, user domain.User, account domain.Account) (domain.Account, error)
	GetPrivateKeyByURI(ctx context.Context, uri *url.URL) (string, error)
}

type Users interface {
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}
