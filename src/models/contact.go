package models

import "time"

type ContactRel int

const (
	RelNone ContactRel = iota
	// They follow the user.
	RelFollower
	// The user follows them.
	RelSharing
	// Mutual.
	RelFriend
)

// Contact is one subscription edge. uid=0 rows are public contact records
// (one per known remote actor); uid>0 rows are a specific user's edge to
// that actor.
type Contact struct {
	ID  int `db:"id"`
	UID int `db:"uid"`

	URL     string     `db:"url"`
	Nurl    string     `db:"nurl"` // normalized url, the cross-protocol join key
	Addr    string     `db:"addr"` // user@host style address
	Alias   string     `db:"alias"`
	Name    string     `db:"name"`
	Nick    string     `db:"nick"`
	Network Network    `db:"network"`
	Rel     ContactRel `db:"rel"`

	Self    bool `db:"self"`
	Blocked bool `db:"blocked"`
	Pending bool `db:"pending"`
	Deleted bool `db:"deleted"`
	// Forum/community contacts redistribute what they receive.
	Forum     bool `db:"forum"`
	PrivForum bool `db:"prv"`
	// Deliver a notification whenever this contact posts.
	NotifyNewPosts bool `db:"notify_new_posts"`

	AvatarURL   string     `db:"avatar"`
	AvatarDate  *time.Time `db:"avatar_date"`
	ArchivedAt  *time.Time `db:"archived_at"`
	LastUpdated time.Time  `db:"last_updated"`
}

func (c *Contact) IsSharing() bool {
	return c.Rel == RelSharing || c.Rel == RelFriend
}

func (c *Contact) IsForum() bool {
	return c.Forum || c.PrivForum
}
