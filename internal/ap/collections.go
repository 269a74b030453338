package ap

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/config"
	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/state"
)

// firstPage is the sentinel after-token requesting the first page without a
// real cursor.
const firstPage = "first"

type orderedCollection struct {
	Context    any    `json:"@context"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	TotalItems int64  `json:"totalItems"`
	First      string `json:"first,omitempty"`
}

type orderedCollectionPage struct {
	Context      any      `json:"@context"`
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	PartOf       string   `json:"partOf"`
	OrderedItems []string `json:"orderedItems"`
	Next         string   `json:"next,omitempty"`
}

// direction abstracts the two sides of the follow relation so followers and
// following share one endpoint implementation.
type direction struct {
	path  string
	count func(ctx context.Context, userID int64) (int64, error)
	page  func(ctx context.Context, userID, after int64, limit int) ([]db.CollectionItem, error)
}

func followersDirection(d db.Follows) direction {
	return direction{path: "followers", count: d.CountFollowers, page: d.GetFollowerPage}
}

func followingDirection(d db.Follows) direction {
	return direction{path: "following", count: d.CountFollowing, page: d.GetFollowingPage}
}

// CollectionEndpoint serves a paginated ordered collection of actor uris.
// Without an after parameter it returns the collection envelope; with one it
// returns a page of at most config.CollectionPageSize items in descending row
// order, the last row's id doubling as the next cursor.
func CollectionEndpoint(state *state.State, dir direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		account, err := state.DB.GetAccountByUsername(r.Context(), username, state.Config.Domain)
		if err != nil {
			http.Error(w, "", handleErr(err))
			return
		}
		if !account.Local() {
			http.Error(w, "", http.StatusNotFound)
			return
		}

		collectionIRI := state.Config.Url.JoinPath("ap", "u", username, dir.path)

		rawAfter := r.URL.Query().Get("after")
		if rawAfter == "" {
			total, err := dir.count(r.Context(), account.UserID)
			if err != nil {
				http.Error(w, "", handleErr(err))
				return
			}
			writeJSON(w, orderedCollection{
				Context:    bundle.ActivityStreams,
				ID:         collectionIRI.String(),
				Type:       "OrderedCollection",
				TotalItems: total,
				First:      collectionIRI.String() + "?after=" + firstPage,
			})
			return
		}

		var after int64
		if rawAfter != firstPage {
			after, err = strconv.ParseInt(rawAfter, 10, 64)
			if err != nil {
				http.Error(w, "invalid after cursor", http.StatusBadRequest)
				return
			}
		}

		items, err := dir.page(r.Context(), account.UserID, after, config.CollectionPageSize)
		if err != nil {
			http.Error(w, "", handleErr(err))
			return
		}

		page := orderedCollectionPage{
			Context:      bundle.ActivityStreams,
			ID:           collectionIRI.String() + "?after=" + rawAfter,
			Type:         "OrderedCollectionPage",
			PartOf:       collectionIRI.String(),
			OrderedItems: make([]string, 0, len(items)),
		}
		for _, item := range items {
			page.OrderedItems = append(page.OrderedItems, item.Actor)
		}
		if len(items) == config.CollectionPageSize {
			last := items[len(items)-1].RowID
			page.Next = collectionIRI.String() + "?after=" + strconv.FormatInt(last, 10)
		}
		writeJSON(w, page)
	}
}
