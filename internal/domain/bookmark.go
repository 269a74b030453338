package domain

import "time"

// FileKind classifies a bookmark's stored files for federation purposes.
// Address generation and attachment matching switch on this kind instead of
// inspecting concrete types.
type FileKind string

const (
	// MainImage is the bookmark's preview picture.
	MainImage FileKind = "image"
	// Archive is a saved snapshot of the bookmarked page, gzip or html.
	Archive FileKind = "archive"
)

type File struct {
	Kind     FileKind
	Url      string
	MimeType string
}

type Tag struct {
	ID   int64
	Name string
	// Slug is the normalized form tags are deduplicated by.
	Slug string
	// Public marks tags shared in the federated Note as hashtags.
	Public bool
}

// Bookmark is a saved link. Local bookmarks belong to a user of this
// instance; bookmarks ingested from remote Note activities are attributed to
// the remote account instead.
type Bookmark struct {
	ID        int64
	UserID    int64
	AccountID int64
	Url       string
	Title     string
	Public    bool
	Tags      []Tag
	Files     []File
	Created   time.Time
}
