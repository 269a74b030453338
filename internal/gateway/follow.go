package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/queue"
)

// processFollow handles an inbound follow request: the remote actor starts
// following a local user. Accepts are emitted automatically, so the follower
// row is created already confirmed and the Accept goes out referencing it.
func (g *Gateway) processFollow(ctx context.Context, job queue.InboxJob, signer domain.Account) error {
	var follow bundle.Follow
	if err := json.Unmarshal(job.Body, &follow); err != nil {
		return unrecoverablef("undecodable Follow: %v", err)
	}
	if follow.Actor != signer.Uri.String() {
		return unrecoverablef("Follow actor %q is not the signer %s", follow.Actor, signer.Uri)
	}

	objectURI, err := url.Parse(follow.Object)
	if err != nil {
		return unrecoverablef("bad object %q", follow.Object)
	}

	target, err := g.res.LookupByURI(ctx, objectURI)
	if err != nil || !target.Local() {
		return unrecoverablef("%s is not a local user", objectURI)
	}

	follower, err := g.db.CreateFollower(ctx, signer.ID, target.UserID)
	if err != nil {
		return err
	}

	log.Info().
		Str("follower", signer.Uri.String()).
		Str("followee", target.Uri.String()).
		Msg("accepted follow request")
	return g.SendAccept(ctx, follower.ID, follow)
}

// SendAccept builds and dispatches the Accept confirming the follower row.
// The original Follow is echoed in the object property so the remote side can
// correlate it.
func (g *Gateway) SendAccept(ctx context.Context, followerID int64, follow bundle.Follow) error {
	follower, err := g.db.GetFollower(ctx, followerID)
	if err != nil {
		return err
	}

	actor, err := g.db.GetAccountByID(ctx, follower.AccountID)
	if err != nil {
		return err
	}
	owner, err := g.db.GetAccountByUserID(ctx, follower.UserID)
	if err != nil {
		return err
	}

	accept := bundle.NewAccept(bundle.ActivityURI(owner.Uri, bundle.KindAccept, follower.ID), owner.Uri, follow)
	return g.deliver(accept, actor.DeliveryInbox(), owner)
}

// processAccept confirms a pending outbound follow. The Following row id is
// recovered from the fragment of the echoed Follow's id; only the followed
// actor itself may confirm the row.
func (g *Gateway) processAccept(ctx context.Context, job queue.InboxJob, signer domain.Account) error {
	var accept bundle.Accept
	if err := json.Unmarshal(job.Body, &accept); err != nil {
		return unrecoverablef("undecodable Accept: %v", err)
	}
	if accept.Object.Type != bundle.TypeFollow {
		return unrecoverablef("Accept for a %q, not a Follow", accept.Object.Type)
	}

	id, err := bundle.FragmentID(accept.Object.ID)
	if err != nil {
		return unrecoverable(err)
	}

	following, err := g.db.GetFollowing(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return unrecoverablef("Accept references unknown follow %d", id)
		}
		return err
	}
	if following.AccountID != signer.ID {
		return unrecoverablef("Accept from %s for a follow of another actor", signer.Uri)
	}

	log.Info().Int64("following", following.ID).Msg("follow confirmed by remote instance")
	return g.db.ConfirmFollowing(ctx, following.ID)
}

// processUndo retracts an inbound follow. An Undo for a follower this
// instance never recorded is a no-op, so replays are harmless.
func (g *Gateway) processUndo(ctx context.Context, job queue.InboxJob, signer domain.Account) error {
	var undo bundle.Undo
	if err := json.Unmarshal(job.Body, &undo); err != nil {
		return unrecoverablef("undecodable Undo: %v", err)
	}
	if undo.Object.Type != bundle.TypeFollow {
		return unrecoverablef("Undo of a %q, not a Follow", undo.Object.Type)
	}
	if undo.Actor != signer.Uri.String() {
		return unrecoverablef("Undo actor %q is not the signer %s", undo.Actor, signer.Uri)
	}

	objectURI, err := url.Parse(undo.Object.Object)
	if err != nil {
		return unrecoverablef("bad object %q", undo.Object.Object)
	}

	target, err := g.res.LookupByURI(ctx, objectURI)
	if err != nil || !target.Local() {
		return unrecoverablef("%s is not a local user", objectURI)
	}

	deleted, err := g.db.DeleteFollowerByPair(ctx, target.UserID, signer.ID)
	if err != nil {
		return err
	}
	if !deleted {
		log.Debug().
			Str("follower", signer.Uri.String()).
			Str("followee", target.Uri.String()).
			Msg("undo for unknown follower, ignoring")
	}
	return nil
}

// FollowRemoteActor starts following the actor behind an identifier on
// behalf of a local user: a pending Following row plus an outbound Follow.
func (g *Gateway) FollowRemoteActor(ctx context.Context, userID int64, identifier string) error {
	username, host, err := g.res.ParseIdentifier(identifier)
	if err != nil {
		return err
	}

	target, err := g.res.FetchByIdentifier(ctx, username, host)
	if err != nil {
		return err
	}

	following, err := g.db.CreateFollowing(ctx, userID, target.ID)
	if err != nil {
		return err
	}
	return g.SendFollow(ctx, following.ID)
}

// SendFollow dispatches the Follow activity for a Following row. The
// activity id carries the row id in its fragment; it comes back to us inside
// the remote side's Accept.
func (g *Gateway) SendFollow(ctx context.Context, followingID int64) error {
	following, err := g.db.GetFollowing(ctx, followingID)
	if err != nil {
		return err
	}

	owner, err := g.db.GetAccountByUserID(ctx, following.UserID)
	if err != nil {
		return err
	}
	target, err := g.db.GetAccountByID(ctx, following.AccountID)
	if err != nil {
		return err
	}

	follow := bundle.NewFollow(bundle.ActivityURI(owner.Uri, bundle.KindFollow, following.ID), owner.Uri, target.Uri)
	return g.deliver(follow, target.DeliveryInbox(), owner)
}

// UnfollowRemoteActor retracts an outbound follow: the Undo goes out, then
// the Following row is removed.
func (g *Gateway) UnfollowRemoteActor(ctx context.Context, followingID int64) error {
	if err := g.SendUndo(ctx, followingID); err != nil {
		return err
	}
	return g.db.DeleteFollowing(ctx, followingID)
}

// SendUndo rebuilds the original Follow from the Following row, wraps it in
// an Undo and dispatches it.
func (g *Gateway) SendUndo(ctx context.Context, followingID int64) error {
	following, err := g.db.GetFollowing(ctx, followingID)
	if err != nil {
		return err
	}

	owner, err := g.db.GetAccountByUserID(ctx, following.UserID)
	if err != nil {
		return err
	}
	target, err := g.db.GetAccountByID(ctx, following.AccountID)
	if err != nil {
		return err
	}

	follow := bundle.NewFollow(bundle.ActivityURI(owner.Uri, bundle.KindFollow, following.ID), owner.Uri, target.Uri)
	undo := bundle.NewUndo(bundle.ActivityURI(owner.Uri, bundle.KindUndo, following.ID), owner.Uri, follow)
	return g.deliver(undo, target.DeliveryInbox(), owner)
}
