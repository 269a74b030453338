package ap

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/state"
)

// ActorEndpoint serves the profile document of a local account.
func ActorEndpoint(state *state.State) http.HandlerFunc {
	sharedInbox := state.Config.Url.JoinPath("ap", "inbox")

	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		account, err := state.DB.GetAccountByUsername(r.Context(), username, state.Config.Domain)
		if err != nil {
			http.Error(w, "", handleErr(err))
			return
		}

		doc, err := bundle.AccountToActor(account, sharedInbox)
		if err != nil {
			// A local account without a published key is a configuration
			// problem, not a client one.
			log.Error().Err(err).Str("username", username).Msg("cannot serve actor document")
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
		writeJSON(w, doc)
	}
}
