// Package resolver turns actor references, by uri or by user@host
// identifier, into locally persisted accounts, fetching webfinger and actor
// documents on a cache miss.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"codeberg.org/gruf/go-mutexes"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/config"
	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/federation"
	"github.com/sidereusnuntius/gomarks/internal/wellknown"
)

// Fetcher is the outbound transport the resolver dereferences strangers
// through.
type Fetcher interface {
	FetchActor(ctx context.Context, iri *url.URL) (bundle.Actor, error)
	FetchWebfinger(ctx context.Context, username, host string) (wellknown.Response, error)
}

type Resolver struct {
	db      db.Accounts
	fetcher Fetcher
	cfg     *config.Configuration
	// locks single-flights resolution per uri, so two workers hitting the
	// same unknown actor fetch it once.
	locks *mutexes.MutexMap
}

func New(db db.Accounts, fetcher Fetcher, cfg *config.Configuration) *Resolver {
	locks := mutexes.MutexMap{}
	return &Resolver{
		db:      db,
		fetcher: fetcher,
		cfg:     cfg,
		locks:   &locks,
	}
}

// LookupByURI is the pure variant of FetchByURI: it never performs network
// I/O and returns db.ErrNotFound on a miss. Callers that must not trigger
// fetches, such as delivery of a message to an already known actor, use this.
func (r *Resolver) LookupByURI(ctx context.Context, uri *url.URL) (domain.Account, error) {
	return r.db.GetAccountByURI(ctx, uri)
}

// FetchByURI returns the account for a uri, dereferencing and persisting the
// actor on first reference.
func (r *Resolver) FetchByURI(ctx context.Context, uri *url.URL) (domain.Account, error) {
	account, err := r.db.GetAccountByURI(ctx, uri)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return domain.Account{}, err
	}

	unlock := r.locks.Lock(uri.String())
	defer unlock()

	// Another flight may have resolved it while we waited on the lock.
	account, err = r.db.GetAccountByURI(ctx, uri)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return domain.Account{}, err
	}

	return r.fetch(ctx, uri)
}

// FetchByIdentifier resolves username@host, going through the remote host's
// webfinger endpoint when the account is not yet known.
func (r *Resolver) FetchByIdentifier(ctx context.Context, username, host string) (domain.Account, error) {
	account, err := r.db.GetAccountByUsername(ctx, username, host)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return domain.Account{}, err
	}
	if host == r.cfg.Domain {
		// Local users are never created on reference.
		return domain.Account{}, err
	}

	wf, err := r.fetcher.FetchWebfinger(ctx, username, host)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: %w", federation.ErrActorFetch, err)
	}

	self := wf.Self()
	if self == "" {
		return domain.Account{}, fmt.Errorf("%w: webfinger response for %s@%s has no self link", federation.ErrActorFetch, username, host)
	}

	uri, err := url.Parse(self)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: bad self link %q", federation.ErrActorFetch, self)
	}

	return r.FetchByURI(ctx, uri)
}

func (r *Resolver) fetch(ctx context.Context, uri *url.URL) (domain.Account, error) {
	doc, err := r.fetcher.FetchActor(ctx, uri)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: %w", federation.ErrActorFetch, err)
	}

	account, err := bundle.ActorToAccount(doc)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: %w", federation.ErrActorFetch, err)
	}

	account, err = r.db.UpsertRemoteAccount(ctx, account)
	if err != nil {
		return domain.Account{}, err
	}

	log.Debug().Str("uri", account.Uri.String()).Int64("id", account.ID).Msg("resolved remote actor")
	return account, nil
}
