package impl

import (
	"context"

	"github.com/sidereusnuntius/gomarks/internal/db"
	"github.com/sidereusnuntius/gomarks/internal/domain"
)

// CreateFollowing records a pending outbound follow. Following the same
// actor twice reuses the existing row, confirmed or not, so the Follow can be
// resent under the same activity id.
func (d *dbImpl) CreateFollowing(ctx context.Context, userID, accountID int64) (domain.Following, error) {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO following (user_id, account_id, status) VALUES (?, ?, ?)
		ON CONFLICT(user_id, account_id) DO NOTHING`,
		userID, accountID, domain.Pending,
	)
	if err != nil {
		return domain.Following{}, d.HandleError(err)
	}

	var f domain.Following
	row := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, account_id, status FROM following WHERE user_id = ? AND account_id = ?`,
		userID, accountID)
	if err = row.Scan(&f.ID, &f.UserID, &f.AccountID, &f.Status); err != nil {
		return domain.Following{}, d.HandleError(err)
	}
	return f, nil
}

func (d *dbImpl) GetFollowing(ctx context.Context, id int64) (domain.Following, error) {
	var f domain.Following
	row := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, account_id, status FROM following WHERE id = ?`, id)
	if err := row.Scan(&f.ID, &f.UserID, &f.AccountID, &f.Status); err != nil {
		return domain.Following{}, d.HandleError(err)
	}
	return f, nil
}

func (d *dbImpl) ConfirmFollowing(ctx context.Context, id int64) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE following SET status = ? WHERE id = ?`, domain.Confirmed, id)
	return d.HandleError(err)
}

func (d *dbImpl) DeleteFollowing(ctx context.Context, id int64) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM following WHERE id = ?`, id)
	return d.HandleError(err)
}

// CreateFollower records an inbound follow. Remote instances replay Follow
// activities, so a hit on the pair constraint keeps the existing row.
func (d *dbImpl) CreateFollower(ctx context.Context, accountID, userID int64) (domain.Follower, error) {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO followers (account_id, user_id, status) VALUES (?, ?, ?)
		ON CONFLICT(account_id, user_id) DO NOTHING`,
		accountID, userID, domain.Confirmed,
	)
	if err != nil {
		return domain.Follower{}, d.HandleError(err)
	}

	var f domain.Follower
	row := d.db.QueryRowContext(ctx,
		`SELECT id, account_id, user_id, status FROM followers WHERE account_id = ? AND user_id = ?`,
		accountID, userID)
	if err = row.Scan(&f.ID, &f.AccountID, &f.UserID, &f.Status); err != nil {
		return domain.Follower{}, d.HandleError(err)
	}
	return f, nil
}

func (d *dbImpl) GetFollower(ctx context.Context, id int64) (domain.Follower, error) {
	var f domain.Follower
	row := d.db.QueryRowContext(ctx,
		`SELECT id, account_id, user_id, status FROM followers WHERE id = ?`, id)
	if err := row.Scan(&f.ID, &f.AccountID, &f.UserID, &f.Status); err != nil {
		return domain.Follower{}, d.HandleError(err)
	}
	return f, nil
}

func (d *dbImpl) DeleteFollowerByPair(ctx context.Context, userID, accountID int64) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM followers WHERE user_id = ? AND account_id = ?`, userID, accountID)
	if err != nil {
		return false, d.HandleError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, d.HandleError(err)
	}
	return affected > 0, nil
}

func (d *dbImpl) CountFollowers(ctx context.Context, userID int64) (int64, error) {
	var count int64
	row := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM followers WHERE user_id = ?`, userID)
	if err := row.Scan(&count); err != nil {
		return 0, d.HandleError(err)
	}
	return count, nil
}

func (d *dbImpl) CountFollowing(ctx context.Context, userID int64) (int64, error) {
	var count int64
	row := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM following WHERE user_id = ?`, userID)
	if err := row.Scan(&count); err != nil {
		return 0, d.HandleError(err)
	}
	return count, nil
}

func (d *dbImpl) GetFollowerPage(ctx context.Context, userID, after int64, limit int) ([]db.CollectionItem, error) {
	return d.collectionPage(ctx, `
		SELECT f.id, a.uri FROM followers f
		JOIN accounts a ON a.id = f.account_id
		WHERE f.user_id = ? AND (? = 0 OR f.id < ?)
		ORDER BY f.id DESC LIMIT ?`,
		userID, after, after, limit)
}

func (d *dbImpl) GetFollowingPage(ctx context.Context, userID, after int64, limit int) ([]db.CollectionItem, error) {
	return d.collectionPage(ctx, `
		SELECT f.id, a.uri FROM following f
		JOIN accounts a ON a.id = f.account_id
		WHERE f.user_id = ? AND (? = 0 OR f.id < ?)
		ORDER BY f.id DESC LIMIT ?`,
		userID, after, after, limit)
}

func (d *dbImpl) collectionPage(ctx context.Context, query string, args ...any) ([]db.CollectionItem, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.HandleError(err)
	}
	defer rows.Close()

	var items []db.CollectionItem
	for rows.Next() {
		var item db.CollectionItem
		if err = rows.Scan(&item.RowID, &item.Actor); err != nil {
			return nil, d.HandleError(err)
		}
		items = append(items, item)
	}
	return items, d.HandleError(rows.Err())
}

func (d *dbImpl) GetFollowerAccounts(ctx context.Context, userID int64) ([]domain.Account, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+prefixedAccountColumns+` FROM accounts a
		JOIN followers f ON f.account_id = a.id
		WHERE f.user_id = ?
		ORDER BY f.id DESC`, userID)
	if err != nil {
		return nil, d.HandleError(err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, d.HandleError(err)
		}
		accounts = append(accounts, account)
	}
	return accounts, d.HandleError(rows.Err())
}
