package ap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/config"
	"github.com/sidereusnuntius/gomarks/internal/db"
	impl "github.com/sidereusnuntius/gomarks/internal/db/impl"
	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/initialization"
	"github.com/sidereusnuntius/gomarks/internal/mocks"
	"github.com/sidereusnuntius/gomarks/internal/queue"
	"github.com/sidereusnuntius/gomarks/internal/state"
	"go.uber.org/mock/gomock"
)

var (
	configuration config.Configuration
	database      db.DB
	ctx           = context.Background()
)

func TestMain(m *testing.M) {
	configuration = config.Configuration{
		Name:   "gomarks",
		Domain: "local.example",
		Https:  true,
	}
	configuration.Url, _ = url.Parse("https://local.example")

	d, err := initialization.OpenDB("file:ap_test?mode=memory&cache=shared")
	if err != nil {
		log.Fatal().Err(err).Msg("tests setup failure")
		return
	}
	d.SetMaxOpenConns(1)
	if err = initialization.SetupDB(&configuration, d, "../../migrations", "ap_test"); err != nil {
		log.Fatal().Err(err).Msg("tests setup failure")
		return
	}
	database = impl.New(configuration, d)

	m.Run()
	d.Close()
}

func makeLocalAccount(t *testing.T, username string) domain.Account {
	t.Helper()
	uri := configuration.Url.JoinPath("ap", "u", username)
	account, err := database.CreateLocalAccount(ctx, domain.User{
		Username: username,
		Password: "hashed",
	}, domain.Account{
		Username:  username,
		Host:      configuration.Domain,
		Uri:       uri,
		Inbox:     uri.JoinPath("inbox"),
		Followers: uri.JoinPath("followers"),
		Following: uri.JoinPath("following"),
		PublicKey: "-----BEGIN PUBLIC KEY-----\nMA==\n-----END PUBLIC KEY-----",
	})
	if err != nil {
		t.Fatal(err)
	}
	return account
}

func newRouter(bus queue.Bus) chi.Router {
	r := chi.NewRouter()
	Mount(&state.State{DB: database, Config: configuration}, bus, r)
	return r
}

func TestActorEndpoint(t *testing.T) {
	account := makeLocalAccount(t, "ana")
	router := newRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ap/u/ana", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != contentType {
		t.Errorf("unexpected content type %q", ct)
	}

	var doc bundle.Actor
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.ID != account.Uri.String() {
		t.Errorf("unexpected actor id %s", doc.ID)
	}
	if doc.PreferredUsername != "ana" || doc.Type != bundle.TypePerson {
		t.Errorf("unexpected actor %s of type %s", doc.PreferredUsername, doc.Type)
	}
	if doc.PublicKey == nil || doc.PublicKey.ID != account.Uri.String()+"#main-key" {
		t.Errorf("unexpected key block %+v", doc.PublicKey)
	}
	if doc.Endpoints == nil || doc.Endpoints.SharedInbox != "https://local.example/ap/inbox" {
		t.Errorf("unexpected endpoints %+v", doc.Endpoints)
	}

	t.Run("unknown user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ap/u/nobody", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestInboxEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	bus := mocks.NewMockBus(ctrl)
	router := newRouter(bus)

	body := `{"type":"Follow"}`

	var job queue.InboxJob
	bus.EXPECT().
		Enqueue(gomock.Any()).
		DoAndReturn(func(task any) error {
			job = task.(queue.InboxJob)
			return nil
		}).
		Times(1)

	req := httptest.NewRequest(http.MethodPost, "/ap/inbox", strings.NewReader(body))
	req.Header.Set("Signature", `keyId="https://remote.example/users/bob#main-key",headers="date",signature="Zm9v"`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("the peer must always get a 200, got %d", rec.Code)
	}
	if !job.Shared {
		t.Error("the instance inbox must mark envelopes shared")
	}
	if job.Path != "/ap/inbox" || string(job.Body) != body {
		t.Errorf("unexpected envelope %+v", job)
	}
	if job.Headers["Signature"] == nil {
		t.Error("the signature header must travel with the envelope")
	}

	t.Run("personal inbox", func(t *testing.T) {
		bus.EXPECT().
			Enqueue(gomock.Any()).
			DoAndReturn(func(task any) error {
				job = task.(queue.InboxJob)
				return nil
			}).
			Times(1)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ap/u/ana/inbox", strings.NewReader(body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rec.Code)
		}
		if job.Shared {
			t.Error("a personal inbox envelope must not be marked shared")
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/ap/inbox", strings.NewReader(strings.Repeat("x", maxBodySize+1))))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected 413, got %d", rec.Code)
		}
	})
}

func TestCollectionEndpoint(t *testing.T) {
	local := makeLocalAccount(t, "berta")
	router := newRouter(nil)

	for i := 0; i < 3; i++ {
		uri, _ := url.Parse(fmt.Sprintf("https://remote.example/users/peer%d", i))
		remote, err := database.UpsertRemoteAccount(ctx, domain.Account{
			Username:  fmt.Sprintf("peer%d", i),
			Host:      "remote.example",
			Uri:       uri,
			Inbox:     uri.JoinPath("inbox"),
			PublicKey: "pub",
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err = database.CreateFollower(ctx, remote.ID, local.UserID); err != nil {
			t.Fatal(err)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ap/u/berta/followers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var collection orderedCollection
	if err := json.NewDecoder(rec.Body).Decode(&collection); err != nil {
		t.Fatal(err)
	}
	if collection.TotalItems != 3 {
		t.Errorf("expected 3 followers, got %d", collection.TotalItems)
	}
	if collection.Type != "OrderedCollection" {
		t.Errorf("unexpected type %q", collection.Type)
	}
	if !strings.HasSuffix(collection.First, "?after=first") {
		t.Errorf("unexpected first page link %s", collection.First)
	}

	t.Run("first page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ap/u/berta/followers?after=first", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rec.Code)
		}

		var page orderedCollectionPage
		if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
			t.Fatal(err)
		}
		if len(page.OrderedItems) != 3 {
			t.Fatalf("expected 3 items, got %d", len(page.OrderedItems))
		}
		// Newest follower first.
		if page.OrderedItems[0] != "https://remote.example/users/peer2" {
			t.Errorf("unexpected order: %v", page.OrderedItems)
		}
		if page.Next != "" {
			t.Errorf("a short page must not advertise a next cursor, got %s", page.Next)
		}
	})

	t.Run("bad cursor", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ap/u/berta/followers?after=xyz", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("empty following", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ap/u/berta/following", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rec.Code)
		}
		var collection orderedCollection
		if err := json.NewDecoder(rec.Body).Decode(&collection); err != nil {
			t.Fatal(err)
		}
		if collection.TotalItems != 0 {
			t.Errorf("expected an empty collection, got %d", collection.TotalItems)
		}
	})
}
