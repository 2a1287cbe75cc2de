package models

import "time"

// ItemRecord is the normalized item produced by a protocol adapter, before
// ingestion. Everything is optional except uri (or enough to synthesize one),
// a network tag, and at least one of body/title. The json tags exist for the
// spool; a record serialized on storage failure must replay losslessly.
type ItemRecord struct {
	URI  string `json:"uri"`
	Guid string `json:"guid,omitempty"`
	UID  int    `json:"uid"`

	Network Network `json:"network"`
	Verb    string  `json:"verb,omitempty"`

	// Uri of the immediate reply target. Equal to URI (or empty) for roots.
	ThrParent string `json:"thr_parent,omitempty"`
	// Explicit gravity from the adapter, if it knows better than we do.
	Gravity *Gravity `json:"gravity,omitempty"`
	// Treat an unresolvable reply as a new thread root instead of rejecting.
	ForceParent bool `json:"force_parent,omitempty"`

	Title   string `json:"title,omitempty"`
	Body    string `json:"body,omitempty"`
	RawBody string `json:"raw_body,omitempty"`
	Plink   string `json:"plink,omitempty"`
	ExtID   string `json:"extid,omitempty"`

	AuthorLink   string `json:"author_link,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	AuthorAvatar string `json:"author_avatar,omitempty"`
	OwnerLink    string `json:"owner_link,omitempty"`
	OwnerName    string `json:"owner_name,omitempty"`
	OwnerAvatar  string `json:"owner_avatar,omitempty"`
	CauserLink   string `json:"causer_link,omitempty"`

	// Explicit self-contact reference from the adapter, when the item was
	// composed locally.
	ContactID int `json:"contact_id,omitempty"`

	AllowCID []int `json:"allow_cid,omitempty"`
	AllowGID []int `json:"allow_gid,omitempty"`
	DenyCID  []int `json:"deny_cid,omitempty"`
	DenyGID  []int `json:"deny_gid,omitempty"`

	Private  *Privacy `json:"private,omitempty"`
	Wall     bool     `json:"wall,omitempty"`
	Origin   bool     `json:"origin,omitempty"`
	Pushed   bool     `json:"pushed,omitempty"`
	PostType PostType `json:"post_type,omitempty"`

	Created  time.Time `json:"created,omitempty"`
	Edited   time.Time `json:"edited,omitempty"`
	Received time.Time `json:"received,omitempty"`

	Hashtags []string    `json:"hashtags,omitempty"`
	Mentions []TagRecord `json:"mentions,omitempty"`
}

// TagRecord is one structured mention delivered with the item.
type TagRecord struct {
	Name string  `json:"name"`
	URL  string  `json:"url"`
	Type TagType `json:"type"`
}

func (rec *ItemRecord) IsEmpty() bool {
	return rec.Body == "" && rec.Title == ""
}
