package bundle

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sidereusnuntius/gomarks/internal/domain"
	"github.com/sidereusnuntius/gomarks/internal/federation"
)

// Public is the special ActivityStreams collection addressing everyone.
const Public = "https://www.w3.org/ns/activitystreams#Public"

// Note is the wire form of a shared bookmark.
type Note struct {
	Context      any          `json:"@context,omitempty"`
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	AttributedTo string       `json:"attributedTo"`
	Content      string       `json:"content"`
	Published    string       `json:"published,omitempty"`
	To           []string     `json:"to,omitempty"`
	Cc           []string     `json:"cc,omitempty"`
	Tag          []NoteTag    `json:"tag,omitempty"`
	Attachment   []Attachment `json:"attachment,omitempty"`
}

type NoteTag struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type Attachment struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType"`
	Url       string `json:"url"`
}

var (
	hrefPattern = regexp.MustCompile(`href="([^"]+)"`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// mime types accepted as a page archive attachment.
var archiveTypes = map[string]bool{
	"application/gzip": true,
	"text/html":        true,
}

// BookmarkToNote builds the Note announcing a bookmark: the title and link as
// HTML content, one hashtag per public tag, the owner's followers in cc, and
// the bookmark's main image and archive as attachments.
func BookmarkToNote(bm domain.Bookmark, owner *url.URL, followers []string) Note {
	var content strings.Builder
	content.WriteString("<p>")
	content.WriteString(html.EscapeString(bm.Title))
	content.WriteString(`<br><a href="`)
	content.WriteString(html.EscapeString(bm.Url))
	content.WriteString(`">`)
	content.WriteString(html.EscapeString(bm.Url))
	content.WriteString("</a></p>")

	var tags []NoteTag
	for _, t := range bm.Tags {
		if !t.Public {
			continue
		}
		tags = append(tags, NoteTag{Type: "Hashtag", Name: "#" + t.Name})
		content.WriteString(fmt.Sprintf(" #%s", t.Name))
	}

	note := Note{
		Context:      ActivityStreams,
		ID:           ActivityURI(owner, KindBookmark, bm.ID).String(),
		Type:         TypeNote,
		AttributedTo: owner.String(),
		Content:      content.String(),
		To:           []string{Public},
		Cc:           followers,
		Tag:          tags,
	}
	if !bm.Created.IsZero() {
		note.Published = bm.Created.UTC().Format(time.RFC3339)
	}

	for _, f := range bm.Files {
		switch f.Kind {
		case domain.MainImage:
			note.Attachment = append(note.Attachment, Attachment{
				Type:      "Image",
				MediaType: f.MimeType,
				Url:       f.Url,
			})
		case domain.Archive:
			note.Attachment = append(note.Attachment, Attachment{
				Type:      "Document",
				MediaType: f.MimeType,
				Url:       f.Url,
			})
		}
	}

	return note
}

// NoteToBookmark recovers a bookmark from a federated Note. The title is the
// text preceding the first link, the url the first href in the content.
// Hashtags become tags and attachments are matched back to the main image and
// archive by media type, first match winning per category.
func NoteToBookmark(note Note) (domain.Bookmark, error) {
	href := hrefPattern.FindStringSubmatch(note.Content)
	if href == nil {
		return domain.Bookmark{}, fmt.Errorf("%w: note content has no link", federation.ErrMissingProperty)
	}

	title := note.Content
	if i := strings.Index(title, "<a"); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(title, "")))

	bm := domain.Bookmark{
		Url:    html.UnescapeString(href[1]),
		Title:  title,
		Public: true,
	}

	for _, t := range note.Tag {
		if t.Type != "Hashtag" {
			continue
		}
		name := strings.TrimPrefix(t.Name, "#")
		bm.Tags = append(bm.Tags, domain.Tag{
			Name:   name,
			Slug:   Slugify(name),
			Public: true,
		})
	}

	var haveImage, haveArchive bool
	for _, a := range note.Attachment {
		switch {
		case !haveImage && strings.HasPrefix(a.MediaType, "image/"):
			bm.Files = append(bm.Files, domain.File{
				Kind:     domain.MainImage,
				Url:      a.Url,
				MimeType: a.MediaType,
			})
			haveImage = true
		case !haveArchive && archiveTypes[a.MediaType]:
			bm.Files = append(bm.Files, domain.File{
				Kind:     domain.Archive,
				Url:      a.Url,
				MimeType: a.MediaType,
			})
			haveArchive = true
		}
	}

	return bm, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify normalizes a tag name to the form tags are deduplicated by.
func Slugify(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
