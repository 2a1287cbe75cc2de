package models

// ItemContent holds the large, mutable text fields of an item, split out of
// the item row. At most one row exists per uri_id; every copy of the item
// (shadow or per-subscriber) shares it.
type ItemContent struct {
	URIID int `db:"uri_id"`

	Title    string `db:"title"`
	RawBody  string `db:"raw_body"`
	Body     string `db:"body"`
	Rendered string `db:"rendered_html"`

	// sha1 over (renderer version, dialect, raw body). Guards against
	// re-rendering unchanged content.
	RenderedHash string `db:"rendered_hash"`

	Language string `db:"language"`
	Plink    string `db:"plink"`
	Location string `db:"location"`
}
