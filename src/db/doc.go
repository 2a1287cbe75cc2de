/*
This package contains lowish-level APIs for making database queries to our Postgres database. It streamlines the process of mapping query results to Go types, while allowing you to write arbitrary SQL queries.

The primary functions are Query and QueryIterator. See the package and function examples for detailed usage.

Query syntax

This package allows a few small extensions to SQL syntax to streamline the interaction between Go and Postgres.

Arguments can be provided using placeholders like $1, $2, etc. All arguments will be safely escaped and mapped from their Go type to the correct Postgres type. (This is a direct proxy to pgx.)

	itemIDs, err := db.Query[int](ctx, conn,
		`
		SELECT id
		FROM item
		WHERE
			network = ANY($1)
			AND deleted = $2
		`,
		[]string{"dfrn", "apub"},
		false,
	)

(This also demonstrates a useful tip: if you want to use a slice in your query, use Postgres arrays instead of IN.)

When querying individual fields, you can simply select the field like so:

	ids, err := db.Query[int](ctx, conn, `SELECT id FROM item`)

To query multiple columns at once, you may use a struct type with `db:"column_name"` tags, and the special $columns placeholder:

	type Item struct {
		ID      int       `db:"id"`
		Guid    string    `db:"guid"`
		Created time.Time `db:"created"`
	}
	items, err := db.Query[Item](ctx, conn, `SELECT $columns FROM ...`)
	// Resulting query:
	// SELECT id, guid, created FROM ...

Sometimes a table name prefix is required on each column to disambiguate between column names, especially when performing a JOIN. In those situations, you can include the prefix in the $columns placeholder like $columns{prefix}:

	type Item struct {
		ID      int       `db:"id"`
		Guid    string    `db:"guid"`
		Created time.Time `db:"created"`
	}
	orphans, err := db.Query[Item](ctx, conn, `
		SELECT $columns{items}
		FROM
			item AS items
			LEFT JOIN thread ON thread.iid = items.parent
		WHERE
			thread.iid IS NULL
	`)
	// Resulting query:
	// SELECT items.id, items.guid, items.created FROM ...
*/
package db
