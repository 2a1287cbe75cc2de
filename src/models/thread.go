package models

import "time"

// Thread is the denormalized summary row for a thread root, keyed by the
// root item's durable id. It exists for fast conversation-level queries and
// mirrors the root's mutable flags.
type Thread struct {
	ItemID int `db:"iid"`
	UID    int `db:"uid"`

	AuthorID  int     `db:"author_id"`
	OwnerID   int     `db:"owner_id"`
	ContactID int     `db:"contact_id"`
	Network   Network `db:"network"`

	Private   Privacy `db:"private"`
	Wall      bool    `db:"wall"`
	Origin    bool    `db:"origin"`
	Pushed    bool    `db:"pushed"`
	Visible   bool    `db:"visible"`
	Deleted   bool    `db:"deleted"`
	Moderated bool    `db:"moderated"`
	Starred   bool    `db:"starred"`
	Ignored   bool    `db:"ignored"`
	Mention   bool    `db:"mention"`

	Created   time.Time `db:"created"`
	Edited    time.Time `db:"edited"`
	Received  time.Time `db:"received"`
	Commented time.Time `db:"commented"`
	Changed   time.Time `db:"changed"`
}
