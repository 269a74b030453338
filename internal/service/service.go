// Package service exposes the operations local users trigger: registration
// and the social actions that reach into federation.
package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/config"
	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/gateway"
	"github.com/sidereusnuntius/gomarks/internal/utils"
	"github.com/sidereusnuntius/gomarks/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

var ErrUsernameTaken = errors.New("username already taken")

type Service struct {
	db  db.DB
	cfg *config.Configuration
	gw  *gateway.Gateway
}

func New(d db.DB, cfg *config.Configuration, gw *gateway.Gateway) *Service {
	return &Service{
		db:  d,
		cfg: cfg,
		gw:  gw,
	}
}

// Register creates a local user and the account actors on other instances
// will see: uri, inbox and collection URLs under /ap/u/{username}, plus a
// fresh RSA keypair for signing.
func (s *Service) Register(ctx context.Context, username, password string) (domain.Account, error) {
	if err := validate.Username(username); err != nil {
		return domain.Account{}, err
	}
	if err := validate.Password(password); err != nil {
		return domain.Account{}, err
	}

	if _, err := s.db.GetUserByUsername(ctx, username); err == nil {
		return domain.Account{}, ErrUsernameTaken
	} else if !errors.Is(err, db.ErrNotFound) {
		return domain.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Account{}, err
	}

	pub, priv, err := utils.GenerateKeysPem(s.cfg.RsaKeySize)
	if err != nil {
		return domain.Account{}, err
	}

	uri := s.cfg.Url.JoinPath("ap", "u", username)
	account := domain.Account{
		Username:    username,
		Host:        s.cfg.Domain,
		Uri:         uri,
		Inbox:       uri.JoinPath("inbox"),
		Outbox:      uri.JoinPath("outbox"),
		SharedInbox: s.cfg.Url.JoinPath("ap", "inbox"),
		Followers:   uri.JoinPath("followers"),
		Following:   uri.JoinPath("following"),
		PublicKey:   pub,
		PrivateKey:  priv,
	}

	account, err = s.db.CreateLocalAccount(ctx, domain.User{
		Username: username,
		Password: string(hash),
	}, account)
	if err != nil {
		return domain.Account{}, err
	}

	log.Info().Str("username", username).Msg("registered new user")
	return account, nil
}

// Follow starts following the actor behind identifier on behalf of a local
// user.
func (s *Service) Follow(ctx context.Context, userID int64, identifier string) error {
	return s.gw.FollowRemoteActor(ctx, userID, identifier)
}

// Unfollow retracts an outbound follow.
func (s *Service) Unfollow(ctx context.Context, userID, followingID int64) error {
	following, err := s.db.GetFollowing(ctx, followingID)
	if err != nil {
		return err
	}
	if following.UserID != userID {
		return db.ErrNotFound
	}
	return s.gw.UnfollowRemoteActor(ctx, followingID)
}

// Share announces a public bookmark to the owner's followers.
func (s *Service) Share(ctx context.Context, bookmarkID int64) error {
	return s.gw.ShareBookmark(ctx, bookmarkID)
}
