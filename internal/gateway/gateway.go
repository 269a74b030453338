// Package gateway is the heart of the federation engine: it validates and
// routes inbound activities, runs the follow lifecycle for both directions,
// and hands outbound activities to the delivery queue.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/config"
	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/federation"
	"github.com/sidereusnuntius/gomarks/internal/queue"
	"github.com/sidereusnuntius/gomarks/internal/resolver"

	"net/url"
)

// handlerFunc handles one classified activity. signer is the account whose
// key validated the envelope; handlers must not trust actor fields in the
// body beyond it.
type handlerFunc func(ctx context.Context, job queue.InboxJob, signer domain.Account) error

type Gateway struct {
	db  db.DB
	res *resolver.Resolver
	cfg *config.Configuration
	bus queue.Bus
	// routes is the exhaustive activity-type to handler table. Types absent
	// from it are dropped, not errors.
	routes map[string]handlerFunc
}

func New(d db.DB, res *resolver.Resolver, cfg *config.Configuration, bus queue.Bus) *Gateway {
	g := &Gateway{
		db:  d,
		res: res,
		cfg: cfg,
		bus: bus,
	}
	g.routes = map[string]handlerFunc{
		bundle.TypeAccept: g.processAccept,
		bundle.TypeFollow: g.processFollow,
		bundle.TypeUndo:   g.processUndo,
		bundle.TypeCreate: g.processCreate,
	}
	return g
}

// unrecoverable marks an error as never-retryable for the queue.
func unrecoverable(err error) error {
	return fmt.Errorf("%w: %w", federation.ErrUnrecoverable, err)
}

func unrecoverablef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{federation.ErrUnrecoverable}, args...)...)
}

func (g *Gateway) deliver(payload any, to *url.URL, from domain.Account) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return g.bus.Enqueue(queue.DeliverJob{
		To:      to.String(),
		From:    from.Uri.String(),
		Payload: body,
	})
}
