// Package bundle maps internal entities to and from their wire-format
// activity objects. Every DTO is an explicit struct with explicit json tags;
// the JSON-LD context each document needs is emitted by its constructor, so
// what goes on the wire is visible here rather than derived from reflection.
package bundle

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sidereusnuntius/gomarks/internal/federation"
)

const (
	// ActivityStreams is the base JSON-LD context of every activity.
	ActivityStreams = "https://www.w3.org/ns/activitystreams"
	// SecurityV1 is the context of the publicKey block in actor documents.
	SecurityV1 = "https://w3id.org/security/v1"

	TypeFollow = "Follow"
	TypeAccept = "Accept"
	TypeUndo   = "Undo"
	TypeCreate = "Create"
	TypeNote   = "Note"
	TypePerson = "Person"
)

// Header is the minimal envelope read off an inbound activity before it is
// routed: its type and, opaquely, its object.
type Header struct {
	Type   string          `json:"type"`
	Object json.RawMessage `json:"object"`
}

// ObjectType extracts the type field of a raw object value. It returns the
// empty string when the object is an IRI string or has no type.
func ObjectType(raw json.RawMessage) string {
	var inner struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &inner); err != nil {
		return ""
	}
	return inner.Type
}

// Follow is both the inbound and outbound wire form of a follow request:
// actor wants to follow the actor identified by object.
type Follow struct {
	Context any    `json:"@context,omitempty"`
	ID      string `json:"id"`
	Type    string `json:"type"`
	Actor   string `json:"actor"`
	Object  string `json:"object"`
}

// Accept confirms a follow. The original Follow travels in the object
// property, id included, which is how the sender correlates it back to its
// pending state.
type Accept struct {
	Context any    `json:"@context,omitempty"`
	ID      string `json:"id"`
	Type    string `json:"type"`
	Actor   string `json:"actor"`
	Object  Follow `json:"object"`
}

// Undo retracts a previously sent activity, here always a Follow.
type Undo struct {
	Context any    `json:"@context,omitempty"`
	ID      string `json:"id"`
	Type    string `json:"type"`
	Actor   string `json:"actor"`
	Object  Follow `json:"object"`
}

// Create wraps a Note for delivery.
type Create struct {
	Context any      `json:"@context,omitempty"`
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Actor   string   `json:"actor"`
	To      []string `json:"to,omitempty"`
	Cc      []string `json:"cc,omitempty"`
	Object  Note     `json:"object"`
}

func NewFollow(id, actor, object *url.URL) Follow {
	return Follow{
		Context: ActivityStreams,
		ID:      id.String(),
		Type:    TypeFollow,
		Actor:   actor.String(),
		Object:  object.String(),
	}
}

func NewAccept(id, actor *url.URL, follow Follow) Accept {
	follow.Context = nil
	return Accept{
		Context: ActivityStreams,
		ID:      id.String(),
		Type:    TypeAccept,
		Actor:   actor.String(),
		Object:  follow,
	}
}

func NewUndo(id, actor *url.URL, follow Follow) Undo {
	follow.Context = nil
	return Undo{
		Context: ActivityStreams,
		ID:      id.String(),
		Type:    TypeUndo,
		Actor:   actor.String(),
		Object:  follow,
	}
}

// Kind names a federated resource for address generation. Activity and
// object ids are derived from it through one switch table instead of from the
// concrete entity types.
type Kind uint8

const (
	KindBookmark Kind = iota
	KindFollow
	KindAccept
	KindUndo
)

// ActivityURI builds the id of an activity or object owned by actor. Follow,
// accept and undo ids carry the database row id in their fragment; the
// matching inbound activity references it back through FragmentID.
func ActivityURI(actor *url.URL, kind Kind, id int64) *url.URL {
	n := strconv.FormatInt(id, 10)
	switch kind {
	case KindBookmark:
		return actor.JoinPath("b", n)
	case KindFollow:
		return withFragment(actor, "follows/"+n)
	case KindAccept:
		return withFragment(actor, "accepts/"+n)
	case KindUndo:
		return withFragment(actor, "undoes/"+n)
	default:
		panic(fmt.Sprintf("unknown resource kind %d", kind))
	}
}

// FragmentID recovers the row id encoded in an activity id's URL fragment.
func FragmentID(iri string) (int64, error) {
	u, err := url.Parse(iri)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", federation.ErrUnprocessablePropValue, iri)
	}

	frag := u.Fragment
	if i := strings.LastIndex(frag, "/"); i >= 0 {
		frag = frag[i+1:]
	}

	id, err := strconv.ParseInt(frag, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: no row id in fragment of %q", federation.ErrUnprocessablePropValue, iri)
	}
	return id, nil
}

func withFragment(u *url.URL, fragment string) *url.URL {
	copied := *u
	copied.Fragment = fragment
	return &copied
}
