package models

import "time"

type Gravity int

// Gravity classifies an item's structural role in a conversation. The values
// are spaced out on the wire for historical reasons and must not be renumbered.
const (
	GravityParent   Gravity = 0
	GravityActivity Gravity = 3
	GravityComment  Gravity = 6
	GravityUnknown  Gravity = 9
)

func (g Gravity) String() string {
	switch g {
	case GravityParent:
		return "parent"
	case GravityActivity:
		return "activity"
	case GravityComment:
		return "comment"
	default:
		return "unknown"
	}
}

type Privacy int

const (
	PrivacyPublic   Privacy = 0
	PrivacyPrivate  Privacy = 1
	PrivacyUnlisted Privacy = 2
)

type PostType int

const (
	PostTypeArticle PostType = iota
	PostTypeNote
	PostTypePage
	PostTypeImage
	PostTypeVideo
	PostTypeAudio
	// Delivered because the recipient subscribes to one of the item's tags,
	// not because they follow the author.
	PostTypeTagged
)

type Network string

const (
	NetworkNative      Network = "native"
	NetworkActivityPub Network = "apub"
	NetworkDiaspora    Network = "dspr"
	NetworkOStatus     Network = "stat"
	NetworkFeed        Network = "feed"
	NetworkMail        Network = "mail"
)

// Networks that reliably repeat the same uri for the same remote object.
// A (uri, uid) match across any of these is a duplicate.
var FederatedNetworks = []Network{
	NetworkNative,
	NetworkActivityPub,
	NetworkDiaspora,
	NetworkOStatus,
}

// Networks whose guids are globally unique, so a (guid, uid) match alone
// proves duplication.
var GuidUniqueNetworks = []Network{
	NetworkNative,
	NetworkDiaspora,
}

func (n Network) IsFederated() bool {
	for _, fn := range FederatedNetworks {
		if n == fn {
			return true
		}
	}
	return false
}

func (n Network) HasUniqueGuids() bool {
	for _, gn := range GuidUniqueNetworks {
		if n == gn {
			return true
		}
	}
	return false
}

type Item struct {
	ID   int    `db:"id"`
	Guid string `db:"guid"`
	UID  int    `db:"uid"` // 0 is the shared public copy

	URIID          int     `db:"uri_id"`
	ParentID       int     `db:"parent"` // durable id of the thread root; self-referential for roots
	ParentURIID    int     `db:"parent_uri_id"`
	ThrParentURIID int     `db:"thr_parent_uri_id"` // immediate reply target
	Gravity        Gravity `db:"gravity"`

	VerbID   int      `db:"vid"`
	Network  Network  `db:"network"`
	PostType PostType `db:"post_type"`

	AuthorID  int  `db:"author_id"`
	OwnerID   int  `db:"owner_id"`
	ContactID int  `db:"contact_id"` // the local subscription edge used for delivery
	CauserID  *int `db:"causer_id"`

	PermissionSetID *int    `db:"psid"`
	Private         Privacy `db:"private"`
	Wall            bool    `db:"wall"`
	Origin          bool    `db:"origin"`
	Pushed          bool    `db:"pushed"` // arrived by push/relay rather than our own pull

	Global    bool `db:"global"`
	Visible   bool `db:"visible"`
	Deleted   bool `db:"deleted"`
	Moderated bool `db:"moderated"`
	Starred   bool `db:"starred"`
	Mention   bool `db:"mention"`
	ForumMode int  `db:"forum_mode"`

	Created   time.Time `db:"created"`
	Edited    time.Time `db:"edited"`
	Received  time.Time `db:"received"`
	Commented time.Time `db:"commented"`
	Changed   time.Time `db:"changed"`

	ExtID string `db:"extid"`
}

func (i *Item) IsThreadRoot() bool {
	return i.Gravity == GravityParent
}
