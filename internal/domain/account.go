package domain

import (
	"net/url"
	"time"
)

// Account is a federated actor, local or remote. Local accounts belong to a
// user of this instance and carry a private key; remote accounts are created
// lazily the first time their uri is dereferenced and only carry the public
// key published in their actor document.
type Account struct {
	ID       int64
	// UserID is the local user owning this account, zero for remote accounts.
	UserID   int64
	Username string
	// Host is the instance the account lives on.
	Host string
	// Uri is the account's globally unique actor id.
	Uri         *url.URL
	Inbox       *url.URL
	Outbox      *url.URL
	SharedInbox *url.URL
	Followers   *url.URL
	Following   *url.URL
	PublicKey   string
	// PrivateKey is empty for remote accounts.
	PrivateKey  string
	Created     time.Time
	LastUpdated time.Time
}

// Local reports whether the account is owned by a user of this instance.
func (a Account) Local() bool {
	return a.UserID != 0
}

// DeliveryInbox is the inbox an activity addressed to this account should be
// posted to, preferring the instance-wide shared inbox when the actor
// advertises one.
func (a Account) DeliveryInbox() *url.URL {
	if a.SharedInbox != nil {
		return a.SharedInbox
	}
	return a.Inbox
}

type User struct {
	ID       int64
	Username string
	Password string
	Admin    bool
}
