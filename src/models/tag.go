package models

type TagType int

const (
	TagHashtag TagType = iota + 1
	TagMention
	// A mention that was reconstructed from the body rather than delivered
	// as a structured tag.
	TagImplicitMention
	// The item is addressed to this actor alone (forum-style delivery).
	TagExclusiveMention
)

type Tag struct {
	ID   int     `db:"id"`
	Name string  `db:"name"`
	URL  *string `db:"url"` // set for mentions, nil for plain hashtags
}

type ItemTag struct {
	URIID int     `db:"uri_id"`
	TagID int     `db:"tag_id"`
	Type  TagType `db:"type"`
}

// TagSubscription marks that a local user wants every public post carrying
// the tag delivered to them.
type TagSubscription struct {
	UID   int `db:"uid"`
	TagID int `db:"tag_id"`
}

func (t TagType) IsMention() bool {
	return t == TagMention || t == TagImplicitMention || t == TagExclusiveMention
}
