package db

import (
	"context"

	"github.com/sidereusnuntius/gomarks/internal/domain"
)

type Bookmarks interface {
	GetBookmarkByID(ctx context.Context, id int64) (domain.Bookmark, error)
	// CreateBookmark persists a bookmark together with its files, creating
	// any missing tags by slug. Exactly one of UserID and AccountID is set:
	// UserID for a local user's bookmark, AccountID for one ingested from a
	// federated Note.
	CreateBookmark(ctx context.Context, bookmark domain.Bookmark) (domain.Bookmark, error)
}
