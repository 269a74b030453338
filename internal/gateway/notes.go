package gateway

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/queue"
)

// processCreate ingests a shared bookmark: the Note inside an inbound Create
// becomes a local bookmark attributed to the resolved remote account, which
// on relayed notes may differ from the signer. Create is only honored at the
// shared inbox.
func (g *Gateway) processCreate(ctx context.Context, job queue.InboxJob, _ domain.Account) error {
	if !job.Shared {
		log.Debug().Str("path", job.Path).Msg("dropping Create outside the shared inbox")
		return nil
	}

	var create bundle.Create
	if err := json.Unmarshal(job.Body, &create); err != nil {
		return unrecoverablef("undecodable Create: %v", err)
	}
	if create.Object.Type != bundle.TypeNote {
		log.Debug().Str("type", create.Object.Type).Msg("dropping Create of unsupported object")
		return nil
	}

	bm, err := bundle.NoteToBookmark(create.Object)
	if err != nil {
		return unrecoverable(err)
	}

	attributed := create.Object.AttributedTo
	if attributed == "" {
		attributed = create.Actor
	}
	actorURI, err := url.Parse(attributed)
	if err != nil || attributed == "" {
		return unrecoverablef("bad attributedTo %q", attributed)
	}

	author, err := g.res.FetchByURI(ctx, actorURI)
	if err != nil {
		return unrecoverable(err)
	}

	bm.AccountID = author.ID
	if _, err = g.db.CreateBookmark(ctx, bm); err != nil {
		return err
	}

	log.Info().Str("url", bm.Url).Str("author", author.Uri.String()).Msg("ingested remote bookmark")
	return nil
}

// ShareBookmark announces a local user's public bookmark to all followers:
// one Create(Note) per follower inbox.
func (g *Gateway) ShareBookmark(ctx context.Context, bookmarkID int64) error {
	bm, err := g.db.GetBookmarkByID(ctx, bookmarkID)
	if err != nil {
		return err
	}
	if !bm.Public {
		return nil
	}

	owner, err := g.db.GetAccountByUserID(ctx, bm.UserID)
	if err != nil {
		return err
	}

	followers, err := g.db.GetFollowerAccounts(ctx, bm.UserID)
	if err != nil {
		return err
	}

	cc := make([]string, 0, len(followers))
	for _, f := range followers {
		cc = append(cc, f.Uri.String())
	}

	note := bundle.BookmarkToNote(bm, owner.Uri, cc)
	note.Context = nil
	create := bundle.Create{
		Context: bundle.ActivityStreams,
		ID:      bundle.ActivityURI(owner.Uri, bundle.KindBookmark, bm.ID).JoinPath("create").String(),
		Type:    bundle.TypeCreate,
		Actor:   owner.Uri.String(),
		To:      []string{bundle.Public},
		Cc:      cc,
		Object:  note,
	}

	for _, f := range followers {
		if err = g.deliver(create, f.DeliveryInbox(), owner); err != nil {
			log.Error().Err(err).Str("to", f.Uri.String()).Msg("failed to enqueue delivery job")
		}
	}
	return nil
}
