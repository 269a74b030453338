package service

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/config"
	"github.com/sidereusnuntius/gomarks/internal/db"
	impl "github.com/sidereusnuntius/gomarks/internal/db/impl"
	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/initialization"
	"github.com/sidereusnuntius/gomarks/internal/utils"
	"github.com/sidereusnuntius/gomarks/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

var (
	configuration config.Configuration
	database      db.DB
	ctx           = context.Background()
)

func TestMain(m *testing.M) {
	configuration = config.Configuration{
		Name:       "gomarks",
		Domain:     "local.example",
		Https:      true,
		RsaKeySize: 2048,
	}
	configuration.Url, _ = url.Parse("https://local.example")

	d, err := initialization.OpenDB("file:service_test?mode=memory&cache=shared")
	if err != nil {
		log.Fatal().Err(err).Msg("tests setup failure")
		return
	}
	d.SetMaxOpenConns(1)
	if err = initialization.SetupDB(&configuration, d, "../../migrations", "service_test"); err != nil {
		log.Fatal().Err(err).Msg("tests setup failure")
		return
	}
	database = impl.New(configuration, d)

	m.Run()
	d.Close()
}

func TestRegister(t *testing.T) {
	s := New(database, &configuration, nil)

	account, err := s.Register(ctx, "ana", "correct horse battery")
	if err != nil {
		t.Fatal(err)
	}

	if account.Uri.String() != "https://local.example/ap/u/ana" {
		t.Errorf("unexpected account uri %s", account.Uri)
	}
	if account.Inbox.String() != "https://local.example/ap/u/ana/inbox" {
		t.Errorf("unexpected inbox %s", account.Inbox)
	}
	if account.SharedInbox.String() != "https://local.example/ap/inbox" {
		t.Errorf("unexpected shared inbox %s", account.SharedInbox)
	}
	if !account.Local() {
		t.Error("a registered account must be local")
	}

	if _, err = utils.ParsePublicKeyPem(account.PublicKey); err != nil {
		t.Errorf("generated public key does not parse: %v", err)
	}
	if _, err = utils.ParsePrivateKeyPem(account.PrivateKey); err != nil {
		t.Errorf("generated private key does not parse: %v", err)
	}

	key, err := database.GetPrivateKeyByURI(ctx, account.Uri)
	if err != nil {
		t.Fatal(err)
	}
	if key != account.PrivateKey {
		t.Error("the private key was not persisted")
	}

	user, err := database.GetUserByUsername(ctx, "ana")
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("correct horse battery")) != nil {
		t.Error("the stored password hash does not match")
	}

	t.Run("duplicate username", func(t *testing.T) {
		if _, err := s.Register(ctx, "ana", "another password"); !errors.Is(err, ErrUsernameTaken) {
			t.Errorf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		if _, err := s.Register(ctx, "bob", "short"); !errors.Is(err, validate.ErrInvalid) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})

	t.Run("bad username", func(t *testing.T) {
		if _, err := s.Register(ctx, "bad name", "a fine password"); !errors.Is(err, validate.ErrInvalid) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})
}

func TestUnfollowOwnership(t *testing.T) {
	s := New(database, &configuration, nil)

	owner, err := s.Register(ctx, "carla", "a fine password")
	if err != nil {
		t.Fatal(err)
	}

	remoteURI, _ := url.Parse("https://remote.example/users/dan")
	remote, err := database.UpsertRemoteAccount(ctx, domain.Account{
		Username:  "dan",
		Host:      "remote.example",
		Uri:       remoteURI,
		Inbox:     remoteURI.JoinPath("inbox"),
		PublicKey: "pub",
	})
	if err != nil {
		t.Fatal(err)
	}
	following, err := database.CreateFollowing(ctx, owner.UserID, remote.ID)
	if err != nil {
		t.Fatal(err)
	}

	// A user cannot retract someone else's follow.
	if err = s.Unfollow(ctx, owner.UserID+1, following.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
