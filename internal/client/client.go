package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/bundle"
	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/signature"
	"github.com/sidereusnuntius/gomarks/internal/wellknown"
)

const contentType = "application/activity+json"

// Client performs the outbound half of federation: dereferencing remote
// actors and delivering signed activities to their inboxes.
type Client struct {
	db     db.Accounts
	client *http.Client
	// signAs is the uri of the instance actor whose key signs fetches, for
	// peers in authorized-fetch mode.
	signAs *url.URL
}

func New(db db.Accounts, client *http.Client, signAs *url.URL) *Client {
	return &Client{
		db:     db,
		client: client,
		signAs: signAs,
	}
}

// FetchActor dereferences an actor document. The request is signed with the
// instance actor's key when one is configured.
func (c *Client) FetchActor(ctx context.Context, iri *url.URL) (bundle.Actor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iri.String(), nil)
	if err != nil {
		return bundle.Actor{}, err
	}
	req.Header.Set("Accept", contentType)
	c.signFetch(ctx, req, iri)

	res, err := c.client.Do(req)
	if err != nil {
		return bundle.Actor{}, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return bundle.Actor{}, fmt.Errorf("fetching %s: %d %s", iri, res.StatusCode, res.Status)
	}

	var doc bundle.Actor
	if err = json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return bundle.Actor{}, fmt.Errorf("decoding actor document: %w", err)
	}
	return doc, nil
}

// FetchWebfinger resolves user@host through the host's webfinger endpoint.
func (c *Client) FetchWebfinger(ctx context.Context, username, host string) (wellknown.Response, error) {
	endpoint := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     "/.well-known/webfinger",
		RawQuery: "resource=" + url.QueryEscape(fmt.Sprintf("acct:%s@%s", username, host)),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return wellknown.Response{}, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return wellknown.Response{}, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return wellknown.Response{}, fmt.Errorf("webfinger %s@%s: %d %s", username, host, res.StatusCode, res.Status)
	}

	var doc wellknown.Response
	if err = json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return wellknown.Response{}, fmt.Errorf("decoding webfinger response: %w", err)
	}
	return doc, nil
}

// signFetch signs an outbound GET with the instance actor's key. A missing
// key downgrades the request to an unsigned fetch rather than failing it.
func (c *Client) signFetch(ctx context.Context, req *http.Request, target *url.URL) {
	if c.signAs == nil {
		return
	}

	key, err := c.db.GetPrivateKeyByURI(ctx, c.signAs)
	if err != nil {
		log.Debug().Err(err).Str("signer", c.signAs.String()).Msg("fetching unsigned")
		return
	}

	headers, err := signature.BuildGet(target, c.signAs.String()+"#main-key", key)
	if err != nil {
		log.Error().Err(err).Msg("cannot sign fetch")
		return
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
}

// Deliver signs payload on behalf of the actor identified by from and POSTs
// it to the inbox at to. Any response status of 400 or above is a hard
// failure for this message; retrying is the queue's business, not ours.
func (c *Client) Deliver(ctx context.Context, payload []byte, to, from *url.URL) error {
	key, err := c.db.GetPrivateKeyByURI(ctx, from)
	if err != nil {
		log.Error().Err(err).Str("signer", from.String()).Msg("signer's private key not found")
		return err
	}

	keyId := from.String() + "#main-key"
	headers, err := signature.Build(to, keyId, key, payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, to.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(res.Body)
		log.Error().Int("code", res.StatusCode).Bytes("response body", body).Msg("delivery error")
		return fmt.Errorf("error %d: %s", res.StatusCode, res.Status)
	}
	return nil
}
