package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"code.superseriousbusiness.org/httpsig"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/utils"
	"github.com/sidereusnuntius/gomarks/internal/wellknown"
)

var (
	publicPem  string
	privatePem string
	ctx        = context.Background()
)

func TestMain(m *testing.M) {
	var err error
	publicPem, privatePem, err = utils.GenerateKeysPem(2048)
	if err != nil {
		log.Fatal().Err(err).Msg("tests setup failure")
		return
	}
	m.Run()
}

// accountsStub fills the parts of db.Accounts the client never touches.
type accountsStub struct{}

func (accountsStub) GetAccountByURI(context.Context, *url.URL) (domain.Account, error) {
	return domain.Account{}, db.ErrNotFound
}

func (accountsStub) GetAccountByID(context.Context, int64) (domain.Account, error) {
	return domain.Account{}, db.ErrNotFound
}

func (accountsStub) GetAccountByUsername(context.Context, string, string) (domain.Account, error) {
	return domain.Account{}, db.ErrNotFound
}

func (accountsStub) GetAccountByUserID(context.Context, int64) (domain.Account, error) {
	return domain.Account{}, db.ErrNotFound
}

func (accountsStub) UpsertRemoteAccount(_ context.Context, a domain.Account) (domain.Account, error) {
	return a, nil
}

func (accountsStub) CreateLocalAccount(_ context.Context, _ domain.User, a domain.Account) (domain.Account, error) {
	return a, nil
}

func (accountsStub) GetPrivateKeyByURI(context.Context, *url.URL) (string, error) {
	return "", db.ErrNotFound
}

// keyStore satisfies the account lookups the client needs with one fixed key.
type keyStore struct {
	accountsStub
	key string
}

func (s keyStore) GetPrivateKeyByURI(ctx context.Context, uri *url.URL) (string, error) {
	return s.key, nil
}

func TestDeliver(t *testing.T) {
	payload := []byte(`{"type":"Follow"}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/bob/inbox" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != contentType {
			t.Errorf("unexpected content type %q", ct)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
		}
		if string(body) != string(payload) {
			t.Errorf("unexpected body %s", body)
		}

		verifier, err := httpsig.NewVerifier(r)
		if err != nil {
			t.Error(err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if verifier.KeyId() != "https://local.example/ap/u/alice#main-key" {
			t.Errorf("unexpected keyId %s", verifier.KeyId())
		}

		key, err := utils.ParsePublicKeyPem(publicPem)
		if err != nil {
			t.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
		if err = verifier.Verify(key, httpsig.RSA_SHA256); err != nil {
			t.Error("signature validation error:", err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := New(keyStore{key: privatePem}, &http.Client{}, nil)

	to, err := url.Parse(server.URL + "/users/bob/inbox")
	if err != nil {
		t.Fatal(err)
	}
	from, _ := url.Parse("https://local.example/ap/u/alice")

	if err = client.Deliver(ctx, payload, to, from); err != nil {
		t.Error(err)
	}

	t.Run("rejected delivery", func(t *testing.T) {
		rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "go away", http.StatusForbidden)
		}))
		defer rejecting.Close()

		to, _ := url.Parse(rejecting.URL + "/inbox")
		if err := client.Deliver(ctx, payload, to, from); err == nil {
			t.Error("expected an error for a rejected delivery")
		}
	})
}

func TestFetchActor(t *testing.T) {
	doc := bundle.Actor{
		ID:                "https://remote.example/users/bob",
		Type:              bundle.TypePerson,
		PreferredUsername: "bob",
		Inbox:             "https://remote.example/users/bob/inbox",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); accept != contentType {
			t.Errorf("unexpected accept header %q", accept)
		}

		// Fetches are signed with the instance actor's key.
		verifier, err := httpsig.NewVerifier(r)
		if err != nil {
			t.Error(err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		key, err := utils.ParsePublicKeyPem(publicPem)
		if err != nil {
			t.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
		if err = verifier.Verify(key, httpsig.RSA_SHA256); err != nil {
			t.Error("fetch signature validation error:", err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", contentType)
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	instance, _ := url.Parse("https://local.example")
	client := New(keyStore{key: privatePem}, &http.Client{}, instance)

	iri, _ := url.Parse(server.URL + "/users/bob")
	got, err := client.FetchActor(ctx, iri)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != doc.ID || got.PreferredUsername != doc.PreferredUsername {
		t.Errorf("unexpected actor %+v", got)
	}

	t.Run("gone", func(t *testing.T) {
		gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "", http.StatusGone)
		}))
		defer gone.Close()

		iri, _ := url.Parse(gone.URL + "/users/bob")
		if _, err := client.FetchActor(ctx, iri); err == nil {
			t.Error("expected an error for a 410 response")
		}
	})
}

func TestFetchWebfingerQuery(t *testing.T) {
	// FetchWebfinger always speaks https to real hosts, so only the query
	// shape is checked here, against a handler mounted on the test transport.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/webfinger" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("resource"); got != "acct:bob@"+r.Host {
			t.Errorf("unexpected resource %q", got)
		}
		w.Header().Set("Content-Type", "application/jrd+json")
		json.NewEncoder(w).Encode(wellknown.Response{
			Subject: r.URL.Query().Get("resource"),
			Links: []wellknown.Link{
				{Rel: "self", Type: "application/activity+json", Href: "https://remote.example/users/bob"},
			},
		})
	}))
	defer server.Close()

	serverURL, _ := url.Parse(server.URL)
	client := New(keyStore{}, &http.Client{
		Transport: rewriteToHTTP{http.DefaultTransport},
	}, nil)

	res, err := client.FetchWebfinger(ctx, "bob", serverURL.Host)
	if err != nil {
		t.Fatal(err)
	}
	if res.Self() != "https://remote.example/users/bob" {
		t.Errorf("unexpected self link %q", res.Self())
	}
}

// rewriteToHTTP downgrades outbound requests so the webfinger client can talk
// to a plaintext test server.
type rewriteToHTTP struct {
	next http.RoundTripper
}

func (rt rewriteToHTTP) RoundTrip(r *http.Request) (*http.Response, error) {
	r.URL.Scheme = "http"
	return rt.next.RoundTrip(r)
}
