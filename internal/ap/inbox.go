package ap

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/queue"
)

// maxBodySize caps inbound activity payloads.
const maxBodySize = 1 << 20

// InboxEndpoint receives signed activities. Its only job is to capture the
// raw envelope and enqueue it; the peer gets a 200 regardless of how
// processing later turns out.
func InboxEndpoint(bus queue.Bus, shared bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			http.Error(w, "", http.StatusRequestEntityTooLarge)
			return
		}

		job := queue.InboxJob{
			Method:  r.Method,
			Host:    r.Host,
			Path:    r.URL.RequestURI(),
			Headers: r.Header,
			Body:    body,
			Shared:  shared,
		}

		if err = bus.Enqueue(job); err != nil {
			log.Error().Err(err).Msg("failed to enqueue inbound envelope")
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
