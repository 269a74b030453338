package bundle

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sidereusnuntius/gomarks/internal/domain"
)

var owner, _ = url.Parse("https://local.example/ap/u/alice")

func TestBookmarkNoteRoundTrip(t *testing.T) {
	bm := domain.Bookmark{
		ID:     7,
		Url:    "https://blog.example/posts/going-federated",
		Title:  "Going federated",
		Public: true,
		Tags: []domain.Tag{
			{Name: "Fediverse", Slug: "fediverse", Public: true},
			{Name: "private notes", Slug: "private-notes", Public: false},
		},
		Files: []domain.File{
			{Kind: domain.MainImage, Url: "https://local.example/files/7.png", MimeType: "image/png"},
			{Kind: domain.Archive, Url: "https://local.example/files/7.html.gz", MimeType: "application/gzip"},
		},
		Created: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}

	note := BookmarkToNote(bm, owner, []string{"https://local.example/ap/u/alice/followers"})

	if note.ID != "https://local.example/ap/u/alice/b/7" {
		t.Errorf("unexpected note id %s", note.ID)
	}
	if note.AttributedTo != owner.String() {
		t.Errorf("unexpected attributedTo %s", note.AttributedTo)
	}
	if diff := cmp.Diff([]string{Public}, note.To); diff != "" {
		t.Errorf("unexpected to (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]NoteTag{{Type: "Hashtag", Name: "#Fediverse"}}, note.Tag); diff != "" {
		t.Errorf("private tags must not federate (-want +got):\n%s", diff)
	}
	if len(note.Attachment) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(note.Attachment))
	}
	if note.Attachment[0].Type != "Image" || note.Attachment[1].Type != "Document" {
		t.Errorf("unexpected attachment types %s, %s", note.Attachment[0].Type, note.Attachment[1].Type)
	}

	got, err := NoteToBookmark(note)
	if err != nil {
		t.Fatal(err)
	}
	if got.Url != bm.Url {
		t.Errorf("expected url %s, got %s", bm.Url, got.Url)
	}
	if got.Title != bm.Title {
		t.Errorf("expected title %q, got %q", bm.Title, got.Title)
	}
	if diff := cmp.Diff([]domain.Tag{{Name: "Fediverse", Slug: "fediverse", Public: true}}, got.Tags); diff != "" {
		t.Errorf("unexpected tags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(bm.Files, got.Files); diff != "" {
		t.Errorf("unexpected files (-want +got):\n%s", diff)
	}
}

func TestNoteToBookmark(t *testing.T) {
	t.Run("no link", func(t *testing.T) {
		_, err := NoteToBookmark(Note{Content: "<p>just some text</p>"})
		if err == nil {
			t.Error("expected an error for a note without a link")
		}
	})

	t.Run("escaped url", func(t *testing.T) {
		bm, err := NoteToBookmark(Note{
			Content: `<p>search<br><a href="https://s.example/?a=1&amp;b=2">link</a></p>`,
		})
		if err != nil {
			t.Fatal(err)
		}
		if bm.Url != "https://s.example/?a=1&b=2" {
			t.Errorf("entities were not unescaped: %s", bm.Url)
		}
	})

	t.Run("first image wins", func(t *testing.T) {
		bm, err := NoteToBookmark(Note{
			Content: `<a href="https://a.example">a</a>`,
			Attachment: []Attachment{
				{Type: "Image", MediaType: "image/png", Url: "https://a.example/1.png"},
				{Type: "Image", MediaType: "image/jpeg", Url: "https://a.example/2.jpg"},
				{Type: "Document", MediaType: "application/pdf", Url: "https://a.example/d.pdf"},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(bm.Files) != 1 || bm.Files[0].Url != "https://a.example/1.png" {
			t.Errorf("unexpected files: %+v", bm.Files)
		}
	})
}

func TestActivityURI(t *testing.T) {
	for _, tc := range []struct {
		kind Kind
		want string
	}{
		{KindBookmark, "https://local.example/ap/u/alice/b/42"},
		{KindFollow, "https://local.example/ap/u/alice#follows/42"},
		{KindAccept, "https://local.example/ap/u/alice#accepts/42"},
		{KindUndo, "https://local.example/ap/u/alice#undoes/42"},
	} {
		if got := ActivityURI(owner, tc.kind, 42).String(); got != tc.want {
			t.Errorf("expected %s, got %s", tc.want, got)
		}
	}
}

func TestFragmentID(t *testing.T) {
	id, err := FragmentID("https://local.example/ap/u/alice#follows/42")
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Errorf("expected 42, got %d", id)
	}

	if _, err = FragmentID("https://local.example/ap/u/alice"); err == nil {
		t.Error("expected an error for an id without a fragment")
	}
	if _, err = FragmentID("https://local.example/ap/u/alice#follows/abc"); err == nil {
		t.Error("expected an error for a non-numeric fragment")
	}
}

func TestObjectType(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want string
	}{
		"embedded object": {`{"type":"Follow","id":"https://remote.example/f/1"}`, "Follow"},
		"iri object":      {`"https://remote.example/f/1"`, ""},
		"no type":         {`{"id":"https://remote.example/f/1"}`, ""},
		"absent":          {``, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := ObjectType(json.RawMessage(tc.raw)); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestActorToAccount(t *testing.T) {
	doc := Actor{
		ID:                "https://remote.example/users/bob",
		Type:              TypePerson,
		PreferredUsername: "bob",
		Inbox:             "https://remote.example/users/bob/inbox",
		PublicKey: &PublicKey{
			ID:           "https://remote.example/users/bob#main-key",
			Owner:        "https://remote.example/users/bob",
			PublicKeyPem: "-----BEGIN PUBLIC KEY-----\nMA==\n-----END PUBLIC KEY-----",
		},
		Endpoints: &Endpoints{SharedInbox: "https://remote.example/inbox"},
	}

	account, err := ActorToAccount(doc)
	if err != nil {
		t.Fatal(err)
	}
	if account.Host != "remote.example" {
		t.Errorf("host must come from the actor id, got %q", account.Host)
	}
	if account.Username != "bob" {
		t.Errorf("unexpected username %q", account.Username)
	}
	if account.SharedInbox == nil || account.SharedInbox.String() != "https://remote.example/inbox" {
		t.Errorf("unexpected shared inbox %v", account.SharedInbox)
	}
	if account.DeliveryInbox().String() != "https://remote.example/inbox" {
		t.Error("delivery must prefer the shared inbox")
	}

	for name, mutate := range map[string]func(*Actor){
		"relative id":  func(a *Actor) { a.ID = "/users/bob" },
		"no username":  func(a *Actor) { a.PreferredUsername = "" },
		"no inbox":     func(a *Actor) { a.Inbox = "" },
		"no key":       func(a *Actor) { a.PublicKey = nil },
		"no key pem":   func(a *Actor) { a.PublicKey = &PublicKey{ID: a.PublicKey.ID} },
	} {
		t.Run(name, func(t *testing.T) {
			broken := doc
			mutate(&broken)
			if _, err := ActorToAccount(broken); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNewAccept(t *testing.T) {
	follow := NewFollow(
		ActivityURI(owner, KindFollow, 3),
		owner,
		mustParse(t, "https://remote.example/users/bob"),
	)
	accept := NewAccept(ActivityURI(owner, KindAccept, 3), owner, follow)

	if accept.Object.Context != nil {
		t.Error("the embedded follow must not repeat the JSON-LD context")
	}
	if accept.Object.ID != follow.ID {
		t.Errorf("the accept must echo the follow id, got %s", accept.Object.ID)
	}

	id, err := FragmentID(accept.Object.ID)
	if err != nil {
		t.Fatal(err)
	}
	if id != 3 {
		t.Errorf("expected row id 3, got %d", id)
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
