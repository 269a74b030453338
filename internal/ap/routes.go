// Package ap serves this instance's side of the federation contract: actor
// documents, inbox endpoints and the follower and following collections.
package ap

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/queue"
	"github.com/sidereusnuntius/gomarks/internal/state"
)

const contentType = "application/activity+json"

func Mount(state *state.State, bus queue.Bus, r chi.Router) {
	r.Route("/ap", func(r chi.Router) {
		r.Post("/inbox", InboxEndpoint(bus, true))
		r.Route("/u/{username}", func(r chi.Router) {
			r.Get("/", ActorEndpoint(state))
			r.Post("/inbox", InboxEndpoint(bus, false))
			r.Get("/followers", CollectionEndpoint(state, followersDirection(state.DB)))
			r.Get("/following", CollectionEndpoint(state, followingDirection(state.DB)))
		})
	})
}

func writeJSON(w http.ResponseWriter, doc any) {
	w.Header().Set("Content-Type", contentType)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		log.Error().Err(err).Msg("unable to marshal response document")
	}
}

func handleErr(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
