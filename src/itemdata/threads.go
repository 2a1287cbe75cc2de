package itemdata

import (
	"context"
	"time"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
)

// addThread creates the denormalized conversation row for a freshly stored
// thread root. The row mirrors the root's flags at creation time; later
// children only advance its timestamps.
func addThread(ctx context.Context, conn db.ConnOrTx, item *models.Item) error {
	_, err := conn.Exec(ctx,
		`
		---- add thread for root item
		INSERT INTO thread (
			iid, uid, author_id, owner_id, contact_id, network,
			private, wall, origin, pushed, visible, deleted, moderated,
			starred, ignored, mention,
			created, edited, received, commented, changed
		)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, FALSE, FALSE,
			FALSE, FALSE, $12,
			$13, $14, $15, $16, $17
		)
		ON CONFLICT (iid) DO NOTHING
		`,
		item.ID, item.UID, item.AuthorID, item.OwnerID, item.ContactID, item.Network,
		item.Private, item.Wall, item.Origin, item.Pushed, item.Visible,
		item.Mention,
		item.Created, item.Edited, item.Received, item.Commented, item.Changed,
	)
	if err != nil {
		return oops.New(err, "failed to add thread for item %d", item.ID)
	}
	return nil
}

// updateThreadOnChild advances the parent thread's activity timestamps for a
// newly arrived child. changed always moves; commented only when the child
// counts as conversational activity.
func updateThreadOnChild(ctx context.Context, conn db.ConnOrTx, item *models.Item, bump bool) error {
	changed := item.Received
	var commented *time.Time
	if bump {
		commented = &item.Received
	}

	_, err := conn.Exec(ctx,
		`
		---- bump root item on child
		UPDATE item
		SET
			changed = GREATEST(changed, $2),
			commented = GREATEST(commented, COALESCE($3, commented))
		WHERE id = $1
		`,
		item.ParentID, changed, commented,
	)
	if err != nil {
		return oops.New(err, "failed to bump root item %d", item.ParentID)
	}

	_, err = conn.Exec(ctx,
		`
		---- bump thread on child
		UPDATE thread
		SET
			changed = GREATEST(changed, $2),
			commented = GREATEST(commented, COALESCE($3, commented))
		WHERE iid = $1
		`,
		item.ParentID, changed, commented,
	)
	if err != nil {
		return oops.New(err, "failed to bump thread %d", item.ParentID)
	}
	return nil
}

// markThreadMentioned flags the conversation as involving the owning user, so
// it surfaces in their mention views even when the root predates the mention.
func markThreadMentioned(ctx context.Context, conn db.ConnOrTx, rootID int, uid int) error {
	_, err := conn.Exec(ctx,
		`UPDATE item SET mention = TRUE WHERE id = $1 AND uid = $2`,
		rootID, uid,
	)
	if err != nil {
		return oops.New(err, "failed to mark root item %d mentioned", rootID)
	}
	_, err = conn.Exec(ctx,
		`UPDATE thread SET mention = TRUE WHERE iid = $1 AND uid = $2`,
		rootID, uid,
	)
	if err != nil {
		return oops.New(err, "failed to mark thread %d mentioned", rootID)
	}
	return nil
}
