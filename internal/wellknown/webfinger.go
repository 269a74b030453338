package wellknown

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/state"
)

type Link struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}

type Response struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases,omitempty"`
	Links   []Link   `json:"links"`
}

// Self returns the href of the actor-document link, the one with rel self and
// the activity+json type.
func (r Response) Self() string {
	for _, link := range r.Links {
		if link.Rel == "self" && link.Type == "application/activity+json" {
			return link.Href
		}
	}
	return ""
}

var acctPattern = regexp.MustCompile(`^acct:([a-zA-Z0-9]+)@([a-zA-Z0-9_.:-]+)$`)

func Mount(state *state.State, r chi.Router) {
	r.Route("/.well-known/", func(r chi.Router) {
		r.Get("/webfinger", WebfingerEndpoint(state))
	})
}

func WebfingerEndpoint(state *state.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resource := r.URL.Query().Get("resource")
		match := acctPattern.FindStringSubmatch(resource)
		if match == nil {
			http.Error(w, "resource must be acct:user@host", http.StatusBadRequest)
			return
		}

		username, host := match[1], match[2]
		if host != state.Config.Domain {
			http.Error(w, "", http.StatusNotFound)
			return
		}

		account, err := state.DB.GetAccountByUsername(r.Context(), username, host)
		if err != nil {
			http.Error(w, "", handleErr(err))
			return
		}

		res := Response{
			Subject: resource,
			Aliases: []string{account.Uri.String()},
			Links: []Link{
				{
					Rel:  "http://webfinger.net/rel/profile-page",
					Type: "text/html",
					Href: state.Config.Url.JoinPath("u", username).String(),
				},
				{
					Rel:  "self",
					Type: "application/activity+json",
					Href: account.Uri.String(),
				},
			},
		}

		w.Header().Set("Content-Type", "application/jrd+json")
		if err = json.NewEncoder(w).Encode(res); err != nil {
			log.Error().Err(err).Msg("unable to marshal webfinger response")
			http.Error(w, "", http.StatusInternalServerError)
		}
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

// Acct formats the canonical subject for a local username.
func Acct(username, host string) string {
	return fmt.Sprintf("acct:%s@%s", username, strings.ToLower(host))
}
