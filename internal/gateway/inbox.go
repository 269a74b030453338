package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/queue"
	"github.com/sidereusnuntius/gomarks/internal/signature"
	"github.com/sidereusnuntius/gomarks/internal/utils"
)

// ProcessInbox runs an inbound envelope through validation, classification
// and its handler. The remote peer was acknowledged long before this runs;
// every failure here is observable only through logs and the dead-letter
// retention.
func (g *Gateway) ProcessInbox(ctx context.Context, job queue.InboxJob) error {
	signer, err := g.validate(ctx, job)
	if err != nil {
		return err
	}

	var header bundle.Header
	if err := json.Unmarshal(job.Body, &header); err != nil {
		return unrecoverablef("undecodable activity: %v", err)
	}
	if header.Type == "" {
		return unrecoverablef("activity has no type")
	}
	if header.Type == bundle.TypeUndo && bundle.ObjectType(header.Object) != bundle.TypeFollow {
		log.Debug().Str("object", bundle.ObjectType(header.Object)).Msg("dropping undo of unsupported object")
		return nil
	}

	handler, ok := g.routes[header.Type]
	if !ok {
		log.Debug().Str("type", header.Type).Msg("dropping unsupported activity")
		return nil
	}
	return handler(ctx, job, signer)
}

// validate checks the envelope's HTTP signature against the signing actor's
// published key, resolving the actor first if this instance has never seen
// it. Every failure is unrecoverable: a request that does not verify now
// never will.
func (g *Gateway) validate(ctx context.Context, job queue.InboxJob) (domain.Account, error) {
	data, err := signature.ParseHeader(http.Header(job.Headers).Get("Signature"))
	if err != nil {
		return domain.Account{}, unrecoverable(err)
	}

	actorURI := *data.KeyID
	actorURI.Fragment = ""
	actorURI.RawFragment = ""

	actor, err := g.res.FetchByURI(ctx, &actorURI)
	if err != nil {
		return domain.Account{}, unrecoverable(err)
	}
	if actor.PublicKey == "" {
		return domain.Account{}, unrecoverablef("actor %s has no public key", actor.Uri)
	}

	key, err := utils.ParsePublicKeyPem(actor.PublicKey)
	if err != nil {
		return domain.Account{}, unrecoverable(err)
	}

	// The server promotes the Host header into Request.Host, so the envelope
	// carries it in job.Host and the header map alone cannot rebuild the
	// signing string.
	headers := signature.NormalizeHeaders(http.Header(job.Headers))
	if job.Host != "" {
		headers["host"] = []string{job.Host}
	}

	ok, err := signature.Verify(job.Path, key, data, headers, job.Body)
	if err != nil {
		return domain.Account{}, unrecoverable(err)
	}
	if !ok {
		return domain.Account{}, unrecoverablef("signature of %s does not verify", actor.Uri)
	}
	return actor, nil
}
