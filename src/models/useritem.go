package models

type NotificationType int

// Per-recipient notification reasons, independently set bits.
const (
	NotifyExplicitTagged        NotificationType = 1
	NotifyImplicitTagged        NotificationType = 2
	NotifyThreadComment         NotificationType = 4
	NotifyDirectComment         NotificationType = 8
	NotifyCommentParticipation  NotificationType = 16
	NotifyActivityParticipation NotificationType = 32
	NotifyDirectThreadComment   NotificationType = 64
	NotifyShared                NotificationType = 128
)

// UserItem carries per-recipient state about an item the recipient did not
// author, including the hide-instead-of-delete flag for shared uid=0 rows.
type UserItem struct {
	URIID int `db:"uri_id"`
	UID   int `db:"uid"`

	Hidden           bool             `db:"hidden"`
	Ignored          bool             `db:"ignored"`
	Pinned           bool             `db:"pinned"`
	NotificationType NotificationType `db:"notification_type"`
}
