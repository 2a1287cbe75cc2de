package models

import "time"

type AccountPage int

const (
	PageNormal AccountPage = iota
	PageSoapbox
	// Open forum: top-level posts mentioning the account are rebroadcast to
	// all members.
	PageCommunity
	PageBlog
	// Closed forum: rebroadcast like PageCommunity, but deliveries stay
	// private to members.
	PagePrivateGroup
)

type User struct {
	ID       int    `db:"id"`
	Username string `db:"username"`
	Nickname string `db:"nickname"`

	Page AccountPage `db:"page_flags"`

	// Days after which incoming pushed items are too stale to store.
	// 0 disables the check.
	RetentionDays int `db:"retention_days"`

	Blocked        bool       `db:"blocked"`
	AccountRemoved bool       `db:"account_removed"`
	AccountExpired bool       `db:"account_expired"`
	AccountExpires *time.Time `db:"account_expires_on"`
	RegisteredAt   time.Time  `db:"registered_at"`
	DefaultGroupID *int       `db:"default_group_id"`
	HideWall       bool       `db:"hidewall"`
}

func (u *User) IsForum() bool {
	return u.Page == PageCommunity || u.Page == PagePrivateGroup
}

func (u *User) IsUsable(now time.Time) bool {
	if u.Blocked || u.AccountRemoved || u.AccountExpired {
		return false
	}
	if u.AccountExpires != nil && u.AccountExpires.Before(now) {
		return false
	}
	return true
}
