package db

import (
	"context"

	"github.com/sidereusnuntius/gomarks/internal/domain"
)

type Follows interface {
	// CreateFollowing records a pending outbound follow.
	CreateFollowing(ctx context.Context, userID, accountID int64) (domain.Following, error)
	GetFollowing(ctx context.Context, id int64) (domain.Following, error)
	ConfirmFollowing(ctx context.Context, id int64) error
	DeleteFollowing(ctx context.Context, id int64) error

	// CreateFollower records a confirmed inbound follow.
	CreateFollower(ctx context.Context, accountID, userID int64) (domain.Follower, error)
	GetFollower(ctx context.Context, id int64) (domain.Follower, error)
	// DeleteFollowerByPair removes the follower row matching the pair and
	// reports whether one existed.
	DeleteFollowerByPair(ctx context.Context, userID, accountID int64) (bool, error)

	CountFollowers(ctx context.Context, userID int64) (int64, error)
	CountFollowing(ctx context.Context, userID int64) (int64, error)
	// GetFollowerPage returns the actors following the user whose row ids are
	// lower than after, newest first. An after of zero requests the first page.
	GetFollowerPage(ctx context.Context, userID, after int64, limit int) ([]CollectionItem, error)
	GetFollowingPage(ctx context.Context, userID, after int64, limit int) ([]CollectionItem, error)
	// GetFollowerAccounts returns every account following the user, for
	// addressing and fan-out.
	GetFollowerAccounts(ctx context.Context, userID int64) ([]domain.Account, error)
}

// CollectionItem is one entry of a paginated follower or following
// collection: the actor's uri plus the row id used as the next-page cursor.
type CollectionItem struct {
	RowID int64
	Actor string
}
