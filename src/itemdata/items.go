package itemdata

import (
	"context"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
	"git.thicket.social/thicket/thicket/src/perf"
)

type ItemsQuery struct {
	// Available on all item queries.
	UIDs      []int            // if empty, all scopes (you rarely want this)
	Networks  []models.Network // if empty, all networks
	Gravities []models.Gravity // if empty, all gravities

	// Ignored when using FetchItem.
	ItemIDs []int
	URIIDs  []int
	// Restrict to one thread, identified by its root item id.
	ThreadID int

	// Apply the per-user hidden overlay for this uid.
	ForUID *int

	IncludeDeleted   bool
	IncludeInvisible bool

	// Ignored when using FetchItem or CountItems.
	Limit, Offset  int  // if empty, no pagination
	OrderByCreated bool // defaults to order by received
}

type ItemAndStuff struct {
	Item    models.Item         `db:"item"`
	URI     string              `db:"item_uri.uri"`
	Content *models.ItemContent `db:"item_content"` // nil if the content row is gone
}

/*
Fetches items and their interned uri and content from the database according
to all the given query params. Returns the newest first.
*/
func FetchItems(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q ItemsQuery,
) ([]ItemAndStuff, error) {
	b := perf.ExtractPerf(ctx).StartBlock("SQL", "Fetch items")
	defer b.End()

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT $columns
		FROM
			item
			JOIN item_uri ON item_uri.id = item.uri_id
			LEFT JOIN item_content ON item_content.uri_id = item.uri_id
		`,
	)
	if q.ForUID != nil {
		qb.Add(
			`
			LEFT JOIN user_item ON (
				user_item.uri_id = item.uri_id
				AND user_item.uid = $?
			)
			`,
			*q.ForUID,
		)
	}
	qb.Add(`WHERE TRUE`)
	if !q.IncludeDeleted {
		qb.Add(`AND NOT item.deleted`)
	}
	if !q.IncludeInvisible {
		qb.Add(`AND item.visible`)
	}
	if q.ForUID != nil {
		qb.Add(`AND NOT COALESCE(user_item.hidden, FALSE)`)
	}
	if len(q.UIDs) > 0 {
		qb.Add(`AND item.uid = ANY ($?)`, q.UIDs)
	}
	if len(q.Networks) > 0 {
		qb.Add(`AND item.network = ANY ($?)`, q.Networks)
	}
	if len(q.Gravities) > 0 {
		qb.Add(`AND item.gravity = ANY ($?)`, q.Gravities)
	}
	if len(q.ItemIDs) > 0 {
		qb.Add(`AND item.id = ANY ($?)`, q.ItemIDs)
	}
	if len(q.URIIDs) > 0 {
		qb.Add(`AND item.uri_id = ANY ($?)`, q.URIIDs)
	}
	if q.ThreadID > 0 {
		qb.Add(`AND item.parent = $?`, q.ThreadID)
	}
	if q.OrderByCreated {
		qb.Add(`ORDER BY item.created DESC`)
	} else {
		qb.Add(`ORDER BY item.received DESC`)
	}
	if q.Limit > 0 {
		qb.Add(`LIMIT $? OFFSET $?`, q.Limit, q.Offset)
	}

	result, err := db.Query[ItemAndStuff](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch items")
	}

	res := make([]ItemAndStuff, len(result))
	for i, row := range result {
		res[i] = *row
	}
	return res, nil
}

/*
Fetches a single item and related data. A wrapper around FetchItems.

Returns db.NotFound if no result is found.
*/
func FetchItem(
	ctx context.Context,
	dbConn db.ConnOrTx,
	itemID int,
	q ItemsQuery,
) (ItemAndStuff, error) {
	q.ItemIDs = []int{itemID}
	q.Limit = 1
	q.Offset = 0

	res, err := FetchItems(ctx, dbConn, q)
	if err != nil {
		return ItemAndStuff{}, oops.New(err, "failed to fetch item")
	}

	if len(res) == 0 {
		return ItemAndStuff{}, db.NotFound
	}

	return res[0], nil
}

/*
Fetches every item of one thread, root included, oldest first. A wrapper
around FetchItems.
*/
func FetchThreadItems(
	ctx context.Context,
	dbConn db.ConnOrTx,
	rootID int,
	q ItemsQuery,
) ([]ItemAndStuff, error) {
	q.ThreadID = rootID
	q.OrderByCreated = true

	res, err := FetchItems(ctx, dbConn, q)
	if err != nil {
		return nil, err
	}

	// Conversation order.
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

func CountItems(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q ItemsQuery,
) (int, error) {
	b := perf.ExtractPerf(ctx).StartBlock("SQL", "Count items")
	defer b.End()

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT COUNT(*)
		FROM item
		WHERE TRUE
		`,
	)
	if !q.IncludeDeleted {
		qb.Add(`AND NOT item.deleted`)
	}
	if !q.IncludeInvisible {
		qb.Add(`AND item.visible`)
	}
	if len(q.UIDs) > 0 {
		qb.Add(`AND item.uid = ANY ($?)`, q.UIDs)
	}
	if len(q.Networks) > 0 {
		qb.Add(`AND item.network = ANY ($?)`, q.Networks)
	}
	if len(q.Gravities) > 0 {
		qb.Add(`AND item.gravity = ANY ($?)`, q.Gravities)
	}
	if len(q.ItemIDs) > 0 {
		qb.Add(`AND item.id = ANY ($?)`, q.ItemIDs)
	}
	if len(q.URIIDs) > 0 {
		qb.Add(`AND item.uri_id = ANY ($?)`, q.URIIDs)
	}
	if q.ThreadID > 0 {
		qb.Add(`AND item.parent = $?`, q.ThreadID)
	}

	count, err := db.QueryOneScalar[int](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return 0, oops.New(err, "failed to count items")
	}
	return count, nil
}
