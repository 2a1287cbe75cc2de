package models

// ItemURI interns a protocol-level uri string to a stable integer handle.
// Re-ingesting the same uri must resolve to the same id forever.
type ItemURI struct {
	ID   int     `db:"id"`
	URI  string  `db:"uri"`
	Guid *string `db:"guid"`
}
