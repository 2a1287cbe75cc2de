package models

// ServerBlock is a node-level block of an entire remote server. Items whose
// author or owner lives on a blocked server are rejected at ingestion.
type ServerBlock struct {
	ID     int    `db:"id"`
	Domain string `db:"domain"`
	Reason string `db:"reason"`
}
