package bundle

import (
	"fmt"
	"net/url"
	"time"

	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/federation"
)

// Actor is the wire form of an account's profile document.
type Actor struct {
	Context           any        `json:"@context,omitempty"`
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	PreferredUsername string     `json:"preferredUsername"`
	Name              string     `json:"name,omitempty"`
	Inbox             string     `json:"inbox"`
	Outbox            string     `json:"outbox,omitempty"`
	Followers         string     `json:"followers,omitempty"`
	Following         string     `json:"following,omitempty"`
	Published         string     `json:"published,omitempty"`
	PublicKey         *PublicKey `json:"publicKey,omitempty"`
	Endpoints         *Endpoints `json:"endpoints,omitempty"`
}

type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

type Endpoints struct {
	SharedInbox string `json:"sharedInbox"`
}

// ActorToAccount maps a fetched actor document to a new remote account. The
// account's host comes from the document's own id, never from the URL the
// document was fetched through, so a misbehaving transport cannot relocate an
// actor.
func ActorToAccount(doc Actor) (domain.Account, error) {
	id, err := url.Parse(doc.ID)
	if err != nil || !id.IsAbs() {
		return domain.Account{}, fmt.Errorf("%w: actor id %q", federation.ErrUnprocessablePropValue, doc.ID)
	}

	if doc.PreferredUsername == "" {
		return domain.Account{}, fmt.Errorf("%w: preferredUsername", federation.ErrMissingProperty)
	}

	if doc.PublicKey == nil || doc.PublicKey.PublicKeyPem == "" {
		return domain.Account{}, fmt.Errorf("%w: publicKeyPem", federation.ErrMissingProperty)
	}

	if doc.Inbox == "" {
		return domain.Account{}, fmt.Errorf("%w: inbox", federation.ErrMissingProperty)
	}

	account := domain.Account{
		Username:  doc.PreferredUsername,
		Host:      id.Host,
		Uri:       id,
		PublicKey: doc.PublicKey.PublicKeyPem,
	}

	if account.Inbox, err = url.Parse(doc.Inbox); err != nil {
		return domain.Account{}, fmt.Errorf("%w: inbox", federation.ErrUnprocessablePropValue)
	}

	account.Outbox = parseOptionalURL(doc.Outbox)
	account.Followers = parseOptionalURL(doc.Followers)
	account.Following = parseOptionalURL(doc.Following)
	if doc.Endpoints != nil {
		account.SharedInbox = parseOptionalURL(doc.Endpoints.SharedInbox)
	}

	return account, nil
}

// AccountToActor builds the profile document served for a local account.
// sharedInbox is the instance-wide inbox endpoint.
func AccountToActor(a domain.Account, sharedInbox *url.URL) (Actor, error) {
	if a.PublicKey == "" {
		return Actor{}, fmt.Errorf("account %s has no public key", a.Uri)
	}

	doc := Actor{
		Context:           []any{ActivityStreams, SecurityV1},
		ID:                a.Uri.String(),
		Type:              TypePerson,
		PreferredUsername: a.Username,
		Inbox:             a.Inbox.String(),
		PublicKey: &PublicKey{
			ID:           withFragment(a.Uri, "main-key").String(),
			Owner:        a.Uri.String(),
			PublicKeyPem: a.PublicKey,
		},
		Endpoints: &Endpoints{SharedInbox: sharedInbox.String()},
	}

	if a.Outbox != nil {
		doc.Outbox = a.Outbox.String()
	}
	if a.Followers != nil {
		doc.Followers = a.Followers.String()
	}
	if a.Following != nil {
		doc.Following = a.Following.String()
	}
	if !a.Created.IsZero() {
		doc.Published = a.Created.UTC().Format(time.RFC3339)
	}

	return doc, nil
}

func parseOptionalURL(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}
