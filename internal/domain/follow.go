package domain

type FollowStatus string

const (
	// Pending marks an outbound follow whose Accept has not arrived yet.
	Pending   FollowStatus = "pending"
	Confirmed FollowStatus = "confirmed"
)

// Following records that a local user follows another account. It is created
// pending when the outbound Follow activity is sent and confirmed when the
// matching Accept arrives.
type Following struct {
	ID int64
	// UserID is the local user doing the following.
	UserID int64
	// AccountID is the account being followed.
	AccountID int64
	Status    FollowStatus
}

// Follower records that an account follows a local user. Inbound follows are
// accepted automatically, so rows are created already confirmed.
type Follower struct {
	ID int64
	// AccountID is the account doing the following.
	AccountID int64
	// UserID is the local user being followed.
	UserID int64
	Status FollowStatus
}
