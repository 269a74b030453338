package impl

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/domain"
)

const accountColumns = `id, user_id, username, host, uri, inbox, outbox, shared_inbox, followers, following, public_key, private_key, created, last_updated`

const prefixedAccountColumns = `a.id, a.user_id, a.username, a.host, a.uri, a.inbox, a.outbox, a.shared_inbox, a.followers, a.following, a.public_key, a.private_key, a.created, a.last_updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a          domain.Account
		userID     sql.NullInt64
		uri        string
		inbox      sql.NullString
		outbox     sql.NullString
		shared     sql.NullString
		followers  sql.NullString
		following  sql.NullString
		privateKey sql.NullString
		created    int64
		updated    int64
	)

	err := row.Scan(
		&a.ID, &userID, &a.Username, &a.Host, &uri,
		&inbox, &outbox, &shared, &followers, &following,
		&a.PublicKey, &privateKey, &created, &updated,
	)
	if err != nil {
		return domain.Account{}, err
	}

	a.UserID = userID.Int64
	a.PrivateKey = privateKey.String
	a.Created = time.Unix(created, 0)
	a.LastUpdated = time.Unix(updated, 0)

	if a.Uri, err = url.Parse(uri); err != nil {
		return domain.Account{}, err
	}
	a.Inbox = nullURL(inbox)
	a.Outbox = nullURL(outbox)
	a.SharedInbox = nullURL(shared)
	a.Followers = nullURL(followers)
	a.Following = nullURL(following)

	return a, nil
}

func nullURL(s sql.NullString) *url.URL {
	if !s.Valid || s.String == "" {
		return nil
	}
	u, err := url.Parse(s.String)
	if err != nil {
		return nil
	}
	return u
}

func urlString(u *url.URL) sql.NullString {
	if u == nil {
		return sql.NullString{}
	}
	return sql.NullString{Valid: true, String: u.String()}
}

func (d *dbImpl) getAccount(ctx context.Context, where string, args ...any) (domain.Account, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...)
	account, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, d.HandleError(err)
	}
	return account, nil
}

func (d *dbImpl) GetAccountByURI(ctx context.Context, uri *url.URL) (domain.Account, error) {
	return d.getAccount(ctx, `uri = ?`, uri.String())
}

func (d *dbImpl) GetAccountByID(ctx context.Context, id int64) (domain.Account, error) {
	return d.getAccount(ctx, `id = ?`, id)
}

func (d *dbImpl) GetAccountByUsername(ctx context.Context, username, host string) (domain.Account, error) {
	return d.getAccount(ctx, `username = ? AND host = ?`, username, host)
}

func (d *dbImpl) GetAccountByUserID(ctx context.Context, userID int64) (domain.Account, error) {
	return d.getAccount(ctx, `user_id = ?`, userID)
}

// UpsertRemoteAccount persists a freshly resolved actor. A concurrent writer
// may have won the race on the uri uniqueness constraint; the conflict clause
// turns that into a refresh, and the stored row is read back either way.
func (d *dbImpl) UpsertRemoteAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	now := time.Now().Unix()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO accounts (username, host, uri, inbox, outbox, shared_inbox, followers, following, public_key, created, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			username = excluded.username,
			host = excluded.host,
			inbox = excluded.inbox,
			outbox = excluded.outbox,
			shared_inbox = excluded.shared_inbox,
			followers = excluded.followers,
			following = excluded.following,
			public_key = excluded.public_key,
			last_updated = excluded.last_updated`,
		account.Username, account.Host, account.Uri.String(),
		urlString(account.Inbox), urlString(account.Outbox), urlString(account.SharedInbox),
		urlString(account.Followers), urlString(account.Following),
		account.PublicKey, now, now,
	)
	if err != nil {
		return domain.Account{}, d.HandleError(err)
	}

	return d.GetAccountByURI(ctx, account.Uri)
}

// CreateLocalAccount persists the user and its account in one transaction.
func (d *dbImpl) CreateLocalAccount(ctx context.Context, user domain.User, account domain.Account) (domain.Account, error) {
	now := time.Now().Unix()
	err := d.WithTx(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, password, admin) VALUES (?, ?, ?)`,
			user.Username, user.Password, user.Admin,
		)
		if err != nil {
			return err
		}

		userID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		account.UserID = userID

		res, err = tx.ExecContext(ctx, `
			INSERT INTO accounts (user_id, username, host, uri, inbox, outbox, shared_inbox, followers, following, public_key, private_key, created, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, account.Username, account.Host, account.Uri.String(),
			urlString(account.Inbox), urlString(account.Outbox), urlString(account.SharedInbox),
			urlString(account.Followers), urlString(account.Following),
			account.PublicKey, account.PrivateKey, now, now,
		)
		if err != nil {
			return err
		}

		account.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	account.Created = time.Unix(now, 0)
	account.LastUpdated = time.Unix(now, 0)
	return account, nil
}

func (d *dbImpl) GetPrivateKeyByURI(ctx context.Context, uri *url.URL) (string, error) {
	var key sql.NullString
	row := d.db.QueryRowContext(ctx, `SELECT private_key FROM accounts WHERE uri = ?`, uri.String())
	if err := row.Scan(&key); err != nil {
		return "", d.HandleError(err)
	}
	if !key.Valid || key.String == "" {
		return "", db.ErrNotFound
	}
	return key.String, nil
}

func (d *dbImpl) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	row := d.db.QueryRowContext(ctx, `SELECT id, username, password, admin FROM users WHERE id = ?`, id)
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Admin); err != nil {
		return domain.User{}, d.HandleError(err)
	}
	return u, nil
}

func (d *dbImpl) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	row := d.db.QueryRowContext(ctx, `SELECT id, username, password, admin FROM users WHERE username = ?`, username)
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Admin); err != nil {
		return domain.User{}, d.HandleError(err)
	}
	return u, nil
}
