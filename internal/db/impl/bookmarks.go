package impl

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sidereusnuntius/gomarks/internal/domain"
)

func (d *dbImpl) GetBookmarkByID(ctx context.Context, id int64) (domain.Bookmark, error) {
	var (
		bm        domain.Bookmark
		userID    sql.NullInt64
		accountID sql.NullInt64
		created   int64
	)

	row := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, account_id, url, title, public, created FROM bookmarks WHERE id = ?`, id)
	if err := row.Scan(&bm.ID, &userID, &accountID, &bm.Url, &bm.Title, &bm.Public, &created); err != nil {
		return domain.Bookmark{}, d.HandleError(err)
	}
	bm.UserID = userID.Int64
	bm.AccountID = accountID.Int64
	bm.Created = time.Unix(created, 0)

	tags, err := d.bookmarkTags(ctx, id)
	if err != nil {
		return domain.Bookmark{}, err
	}
	bm.Tags = tags

	files, err := d.bookmarkFiles(ctx, id)
	if err != nil {
		return domain.Bookmark{}, err
	}
	bm.Files = files

	return bm, nil
}

func (d *dbImpl) bookmarkTags(ctx context.Context, bookmarkID int64) ([]domain.Tag, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, bt.public FROM tags t
		JOIN bookmark_tags bt ON bt.tag_id = t.id
		WHERE bt.bookmark_id = ?
		ORDER BY t.slug`, bookmarkID)
	if err != nil {
		return nil, d.HandleError(err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err = rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Public); err != nil {
			return nil, d.HandleError(err)
		}
		tags = append(tags, t)
	}
	return tags, d.HandleError(rows.Err())
}

func (d *dbImpl) bookmarkFiles(ctx context.Context, bookmarkID int64) ([]domain.File, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT kind, url, mime_type FROM bookmark_files WHERE bookmark_id = ? ORDER BY id`, bookmarkID)
	if err != nil {
		return nil, d.HandleError(err)
	}
	defer rows.Close()

	var files []domain.File
	for rows.Next() {
		var f domain.File
		if err = rows.Scan(&f.Kind, &f.Url, &f.MimeType); err != nil {
			return nil, d.HandleError(err)
		}
		files = append(files, f)
	}
	return files, d.HandleError(rows.Err())
}

// CreateBookmark persists a bookmark, creating any tags this instance has
// not seen before.
func (d *dbImpl) CreateBookmark(ctx context.Context, bm domain.Bookmark) (domain.Bookmark, error) {
	err := d.WithTx(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO bookmarks (user_id, account_id, url, title, public, created) VALUES (?, ?, ?, ?, ?, ?)`,
			nullID(bm.UserID), nullID(bm.AccountID), bm.Url, bm.Title, bm.Public, time.Now().Unix(),
		)
		if err != nil {
			return err
		}
		if bm.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		for i, t := range bm.Tags {
			tagID, err := findOrCreateTag(ctx, tx, t)
			if err != nil {
				return err
			}
			bm.Tags[i].ID = tagID

			_, err = tx.ExecContext(ctx,
				`INSERT INTO bookmark_tags (bookmark_id, tag_id, public) VALUES (?, ?, ?)`,
				bm.ID, tagID, t.Public,
			)
			if err != nil {
				return err
			}
		}

		for _, f := range bm.Files {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO bookmark_files (bookmark_id, kind, url, mime_type) VALUES (?, ?, ?, ?)`,
				bm.ID, f.Kind, f.Url, f.MimeType,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, err
	}
	return bm, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func findOrCreateTag(ctx context.Context, tx *sql.Tx, t domain.Tag) (int64, error) {
	var id int64
	row := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE slug = ?`, t.Slug)
	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO tags (name, slug) VALUES (?, ?)`, t.Name, t.Slug)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
